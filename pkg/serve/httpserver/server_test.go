// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/xorrvin/gitoboros/modules/pktline"
	"github.com/xorrvin/gitoboros/pkg/repobuilder"
	"github.com/xorrvin/gitoboros/pkg/session"
)

type fakeStore struct {
	mu   sync.Mutex
	data map[string]map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]map[string]string)}
}

func (f *fakeStore) HSet(_ context.Context, key string, fields map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.data[key]
	if !ok {
		h = make(map[string]string)
		f.data[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (f *fakeStore) HGet(_ context.Context, key, field string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[key][field], nil
}

func (f *fakeStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.data[key]))
	for k, v := range f.data[key] {
		out[k] = v
	}
	return out, nil
}

func (f *fakeStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	return nil
}

type fakeIngester struct {
	timestamps []int64
}

func (f *fakeIngester) Contributions(_ context.Context, _ string) ([]int64, error) {
	return f.timestamps, nil
}

func newTestServer(store session.Store) *Server {
	sc := &ServerConfig{
		Host:          "127.0.0.1",
		Port:          0,
		ReadTimeout:   DefaultReadTimeout,
		WriteTimeout:  DefaultWriteTimeout,
		IdleTimeout:   DefaultIdleTimeout,
		BannerVersion: "Gitoboros/test",
	}
	srv := &Server{
		ServerConfig: sc,
		srv:          &http.Server{},
		store:        store,
		builder:      repobuilder.New(store, uuid.NameSpaceURL, &fakeIngester{timestamps: []int64{1700000000}}),
		serverName:   sc.BannerVersion,
	}
	if err := srv.initialize(); err != nil {
		panic(err)
	}
	return srv
}

func TestHandleMigrateRejectsInvalidHandle(t *testing.T) {
	srv := newTestServer(newFakeStore())
	body, _ := json.Marshal(migrateRequest{Handle: "bad handle!", Email: "a@example.com"})
	req := httptest.NewRequest(http.MethodPost, "/api/migrate", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleMigrateThenInfoRefsThenUploadPack(t *testing.T) {
	srv := newTestServer(newFakeStore())

	body, _ := json.Marshal(migrateRequest{Handle: "alice", Email: "a@example.com"})
	req := httptest.NewRequest(http.MethodPost, "/api/migrate", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var mres migrateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mres))
	require.Len(t, mres.RepoID, session.IDLength)

	infoReq := httptest.NewRequest(http.MethodGet, "/repo/"+mres.RepoID+"/info/refs?service=git-upload-pack", nil)
	infoRec := httptest.NewRecorder()
	srv.ServeHTTP(infoRec, infoReq)
	require.Equal(t, http.StatusOK, infoRec.Code)
	require.Equal(t, "application/x-git-upload-pack-advertisement", infoRec.Header().Get("Content-Type"))

	serviceLine, flush, err := pktline.Decode(infoRec.Body)
	require.NoError(t, err)
	require.False(t, flush)
	require.Contains(t, string(serviceLine), "# service=git-upload-pack")

	_, flush, err = pktline.Decode(infoRec.Body)
	require.NoError(t, err)
	require.True(t, flush)

	headLine, _, err := pktline.Decode(infoRec.Body)
	require.NoError(t, err)
	head := string(headLine[:40])

	upBody := "004cwant " + head + " side-band-64k no-progress\n" + "0009done\n"
	upReq := httptest.NewRequest(http.MethodPost, "/repo/"+mres.RepoID+"/git-upload-pack", bytes.NewReader([]byte(upBody)))
	upReq.Header.Set("Content-Type", "application/x-git-upload-pack-request")
	upReq.Header.Set("Accept", "application/x-git-upload-pack-result")
	upRec := httptest.NewRecorder()
	srv.ServeHTTP(upRec, upReq)
	require.Equal(t, http.StatusOK, upRec.Code)
	require.Equal(t, "application/x-git-upload-pack-result", upRec.Header().Get("Content-Type"))
	require.NotEmpty(t, upRec.Body.Bytes())
}

func TestHandleInfoRefsUnknownRepoIs404(t *testing.T) {
	store := newFakeStore()
	srv := newTestServer(store)
	neverBuilt := session.MakeFromData(store, uuid.NameSpaceURL, "nobody", "n@example.com", "main")
	req := httptest.NewRequest(http.MethodGet, "/repo/"+neverBuilt.AsURI()+"/info/refs?service=git-upload-pack", nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleInfoRefsBadSessionIDIs404(t *testing.T) {
	srv := newTestServer(newFakeStore())
	req := httptest.NewRequest(http.MethodGet, "/repo/short/info/refs?service=git-upload-pack", nil)
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}
