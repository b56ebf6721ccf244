// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package httpserver

import (
	"context"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/xorrvin/gitoboros/pkg/ingest"
	"github.com/xorrvin/gitoboros/pkg/repobuilder"
	"github.com/xorrvin/gitoboros/pkg/session"
)

// Server wires the session store and repository builder into gorilla
// mux routes for the migrate endpoint and the smart HTTP surface.
type Server struct {
	*ServerConfig
	srv        *http.Server
	r          *mux.Router
	store      session.Store
	closer     io.Closer
	builder    *repobuilder.Builder
	serverName string
}

func (s *Server) initialize() error {
	r := mux.NewRouter().UseEncodedPath()
	r.HandleFunc("/api/migrate", s.handleMigrate).Methods(http.MethodPost)
	r.HandleFunc("/repo/{repo_id}/info/refs", s.withSession(s.handleInfoRefs)).Methods(http.MethodGet)
	r.HandleFunc("/repo/{repo_id}/git-upload-pack", s.withSession(s.handleUploadPack)).Methods(http.MethodPost)
	s.r = r
	s.srv.Handler = s
	return nil
}

// NewServer builds a Server from sc, parsing SESSION_NAMESPACE (if set)
// as a UUID namespace and falling back to DefaultNamespace otherwise.
func NewServer(sc *ServerConfig) (*Server, error) {
	namespace := session.DefaultNamespace
	if sc.Namespace != "" {
		if ns, err := uuid.Parse(sc.Namespace); err == nil {
			namespace = ns
		} else {
			logrus.Warnf("SESSION_NAMESPACE %q is not a valid UUID, using default namespace", sc.Namespace)
		}
	}

	store := session.NewRedisStore(sc.RedisAddr())
	srv := &Server{
		ServerConfig: sc,
		srv: &http.Server{
			Addr:         sc.Addr(),
			ReadTimeout:  sc.ReadTimeout,
			IdleTimeout:  sc.IdleTimeout,
			WriteTimeout: sc.WriteTimeout,
		},
		store:      store,
		closer:     store,
		builder:    repobuilder.New(store, namespace, ingest.NewGitHubIngester()),
		serverName: sc.BannerVersion,
	}
	if err := srv.initialize(); err != nil {
		return nil, err
	}
	return srv, nil
}

func (s *Server) ListenAndServe() error {
	logrus.Infof("gitoboros listening on %s", s.srv.Addr)
	return s.srv.ListenAndServe()
}

func logResponse(hw *ResponseWriter, r *http.Request, tr *trackedReader, spent time.Duration) {
	message := r.Header.Get(ErrorMessageKey)
	fields := logrus.Fields{
		"remote":   hw.RemoteAddr(),
		"method":   r.Method,
		"uri":      r.RequestURI,
		"status":   hw.StatusCode(),
		"received": tr.received,
		"written":  hw.Written(),
		"spent":    spent,
	}
	if message != "" {
		logrus.WithFields(fields).Errorf("request failed: %s", message)
		return
	}
	logrus.WithFields(fields).Info("request handled")
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL != nil {
		r.URL.Path = path.Clean(r.URL.Path)
	}
	w.Header().Set("Server", s.serverName)
	tr := newTrackedReader(r.Body)
	r.Body = tr
	now := time.Now()
	hw := NewResponseWriter(w, r)
	s.r.ServeHTTP(hw, r)
	logResponse(hw, r, tr, time.Since(now))
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil || s.srv == nil {
		return nil
	}
	if err := s.srv.Shutdown(ctx); err != nil {
		logrus.Errorf("shutdown http server: %v", err)
	}
	if s.closer != nil {
		_ = s.closer.Close()
	}
	return nil
}

// withSession decodes {repo_id} into a session.Session, rendering 404
// on any decode failure, and dispatches to fn with the enriched Request.
func (s *Server) withSession(fn func(http.ResponseWriter, *Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		repoID := mux.Vars(r)["repo_id"]
		sess, err := session.MakeFromURI(s.store, repoID)
		if err != nil {
			renderErrorStatus(w, r, http.StatusNotFound, err)
			return
		}
		valid, err := sess.IsValid(r.Context())
		if err != nil {
			renderError(w, r, err)
			return
		}
		if !valid {
			renderErrorStatus(w, r, http.StatusNotFound, unknownRepoErr(repoID))
			return
		}
		fn(w, &Request{Request: r, Session: sess})
	}
}
