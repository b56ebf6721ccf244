// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package httpserver

import (
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/xorrvin/gitoboros/pkg/apierr"
)

const ErrorMessageKey = "X-Gitoboros-Error-Message"

// ResponseWriter shadows http.ResponseWriter to track bytes written and
// the final status code for access logging.
type ResponseWriter struct {
	http.ResponseWriter
	written    int64
	statusCode int
	remoteAddr string
}

func NewResponseWriter(w http.ResponseWriter, r *http.Request) *ResponseWriter {
	return &ResponseWriter{ResponseWriter: w, statusCode: http.StatusOK, remoteAddr: parseRemoteAddress(r)}
}

func (w *ResponseWriter) Write(data []byte) (int, error) {
	written, err := w.ResponseWriter.Write(data)
	w.written += int64(written)
	return written, err
}

func (w *ResponseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *ResponseWriter) StatusCode() int {
	return w.statusCode
}

func (w *ResponseWriter) Written() int64 {
	return w.written
}

func (w *ResponseWriter) RemoteAddr() string {
	return w.remoteAddr
}

// Flush forwards to the underlying http.Flusher, if the wrapped
// ResponseWriter implements one. This lets handlers stream a response
// (the upload-pack pack body) rather than buffering it.
func (w *ResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

type trackedReader struct {
	rc       io.ReadCloser
	received int64
}

func newTrackedReader(rc io.ReadCloser) *trackedReader {
	return &trackedReader{rc: rc}
}

func (r *trackedReader) Read(data []byte) (int, error) {
	n, err := r.rc.Read(data)
	r.received += int64(n)
	return n, err
}

func (r *trackedReader) Close() error {
	return r.rc.Close()
}

func parseRemoteAddress(r *http.Request) string {
	if addr := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); addr != "" {
		return strings.TrimSpace(strings.Split(addr, ",")[0])
	}
	if addr := strings.TrimSpace(r.Header.Get("X-Real-Ip")); addr != "" {
		return addr
	}
	addr, _, _ := net.SplitHostPort(strings.TrimSpace(r.RemoteAddr))
	return addr
}

// renderError formats err per the {error, details} response shape and
// taxonomy-driven status code.
func renderError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := apierr.AsBody(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
	r.Header.Set(ErrorMessageKey, body.Details)
}

// renderErrorStatus renders err's {error, details} body but forces the
// given HTTP status, overriding the Kind's default — used on repo
// routes where both invalid-session and unknown-repo always render 404.
func renderErrorStatus(w http.ResponseWriter, r *http.Request, status int, err error) {
	_, body := apierr.AsBody(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
	r.Header.Set(ErrorMessageKey, body.Details)
}

func renderJSON(w http.ResponseWriter, a any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(a); err != nil {
		logrus.Errorf("encode response error: %v", err)
	}
}
