// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package httpserver

import (
	"strconv"
	"time"

	"github.com/xorrvin/gitoboros/modules/env"
	"github.com/xorrvin/gitoboros/pkg/version"
)

const (
	DefaultReadTimeout  = 2 * time.Hour
	DefaultWriteTimeout = 2 * time.Hour
	DefaultIdleTimeout  = 5 * time.Minute

	DefaultHTTPHost    = "0.0.0.0"
	DefaultHTTPPort    = 8080
	DefaultHTTPWorkers = 4

	DefaultRedisHost = "127.0.0.1"
	DefaultRedisPort = 6379
)

// ServerConfig holds everything the HTTP server needs to listen and to
// reach the session store. Unlike the configuration of a persistent
// forge, there is no repository root, no cache, and no durable object
// store backing it: every repository this server advertises lives only
// as a packfile in the session store, until that session's TTL expires.
type ServerConfig struct {
	Host          string
	Port          int
	Workers       int
	RedisHost     string
	RedisPort     int
	Namespace     string
	IdleTimeout   time.Duration
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	BannerVersion string
}

// NewServerConfig builds a ServerConfig purely from environment
// variables, per the project's env var contract.
func NewServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:          env.HTTP_HOST.Find(),
		Port:          int(env.HTTP_PORT.SimpleAtoi(DefaultHTTPPort)),
		Workers:       int(env.HTTP_WORKERS.SimpleAtoi(DefaultHTTPWorkers)),
		RedisHost:     env.REDIS_HOST.Find(),
		RedisPort:     int(env.REDIS_PORT.SimpleAtoi(DefaultRedisPort)),
		Namespace:     env.SESSION_NAMESPACE.Find(),
		IdleTimeout:   DefaultIdleTimeout,
		ReadTimeout:   DefaultReadTimeout,
		WriteTimeout:  DefaultWriteTimeout,
		BannerVersion: version.GetServerVersion(),
	}
}

func (sc *ServerConfig) Addr() string {
	host := sc.Host
	if host == "" {
		host = DefaultHTTPHost
	}
	port := sc.Port
	if port == 0 {
		port = DefaultHTTPPort
	}
	return host + ":" + strconv.Itoa(port)
}

func (sc *ServerConfig) redisHost() string {
	if sc.RedisHost == "" {
		return DefaultRedisHost
	}
	return sc.RedisHost
}

func (sc *ServerConfig) redisPort() int {
	if sc.RedisPort == 0 {
		return DefaultRedisPort
	}
	return sc.RedisPort
}

// RedisAddr returns the host:port pair used to dial the session store.
func (sc *ServerConfig) RedisAddr() string {
	return sc.redisHost() + ":" + strconv.Itoa(sc.redisPort())
}
