// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package httpserver

import (
	"net/http"

	"github.com/xorrvin/gitoboros/pkg/apierr"
	"github.com/xorrvin/gitoboros/pkg/smarthttp"
)

func setGitCacheHeaders(w http.ResponseWriter) {
	w.Header().Set("Pragma", "No-Cache")
	w.Header().Set("Cache-Control", "No-Cache, Max-Age=0, Must-Revalidate")
	w.Header().Set("Expires", "Fri, 01 Jan 1980 00:00:00 GMT")
}

func (s *Server) handleInfoRefs(w http.ResponseWriter, r *Request) {
	if r.URL.Query().Get("service") != smarthttp.ServiceUploadPack {
		renderError(w, r.Request, apierr.New(apierr.MalformedGitRequest, "only service=%s is supported", smarthttp.ServiceUploadPack))
		return
	}

	data, err := r.Session.GetData(r.Context())
	if err != nil {
		renderError(w, r.Request, err)
		return
	}
	branch, err := r.Session.Branch(r.Context())
	if err != nil {
		renderError(w, r.Request, err)
		return
	}
	body, err := smarthttp.BuildAdvertisement(data.LatestObject, branch)
	if err != nil {
		renderError(w, r.Request, err)
		return
	}

	setGitCacheHeaders(w)
	w.Header().Set("Content-Type", "application/x-git-upload-pack-advertisement")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) handleUploadPack(w http.ResponseWriter, r *Request) {
	if r.Header.Get("Content-Type") != "application/x-git-upload-pack-request" ||
		r.Header.Get("Accept") != "application/x-git-upload-pack-result" {
		renderError(w, r.Request, apierr.New(apierr.MalformedGitRequest, "missing or invalid upload-pack content negotiation headers"))
		return
	}

	upReq, err := smarthttp.ParseUploadPackRequest(r.Body)
	if err != nil {
		renderError(w, r.Request, err)
		return
	}

	data, err := r.Session.GetData(r.Context())
	if err != nil {
		renderError(w, r.Request, err)
		return
	}
	if err := smarthttp.ValidateWants(upReq, data.LatestObject); err != nil {
		renderError(w, r.Request, err)
		return
	}

	setGitCacheHeaders(w)
	w.Header().Set("Content-Type", "application/x-git-upload-pack-result")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	if err := smarthttp.StreamUploadPack(r.Context(), w, flusher, upReq, data.TotalObjects, data.Packfile); err != nil {
		// Headers are already sent; nothing left to do but stop writing
		// and let the client observe a truncated response.
		return
	}
}
