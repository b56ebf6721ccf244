// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"encoding/base64"
	"time"
)

// Store is the hash-valued, TTL-capable key-value contract the session
// lifecycle is built on. The production implementation is Redis; tests
// use an in-memory fake.
type Store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGet(ctx context.Context, key, field string) (string, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

func encodePackfile(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func decodePackfile(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(s)
}
