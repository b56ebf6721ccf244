// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/mail"
	"regexp"

	"github.com/xorrvin/gitoboros/modules/streamio"
	"github.com/xorrvin/gitoboros/pkg/apierr"
	"github.com/xorrvin/gitoboros/pkg/repobuilder"
)

const (
	maxHandleLen = 39
	maxBranchLen = 64

	// maxMigrateBodyBytes bounds how much of the request body we'll ever
	// read: the JSON payload is three short strings, never legitimately
	// anywhere near this size.
	maxMigrateBodyBytes = 4096
)

var (
	handlePattern = regexp.MustCompile(`^[0-9A-Za-z\-]+$`)
	branchPattern = regexp.MustCompile(`^[0-9A-Za-z\-/\\.]+$`)
)

type migrateRequest struct {
	Email  string `json:"email"`
	Handle string `json:"handle"`
	Branch string `json:"branch"`
}

type migrateResponse struct {
	RepoID  string `json:"repo_id"`
	RepoTTL int64  `json:"repo_ttl"`
}

func validateMigrateRequest(req *migrateRequest) error {
	if req.Handle == "" || len(req.Handle) > maxHandleLen || !handlePattern.MatchString(req.Handle) {
		return apierr.New(apierr.InvalidInput, "handle must be 1-%d alphanumeric/hyphen characters", maxHandleLen)
	}
	if req.Branch == "" {
		req.Branch = repobuilder.DefaultBranch
	}
	if len(req.Branch) > maxBranchLen || !branchPattern.MatchString(req.Branch) {
		return apierr.New(apierr.InvalidInput, "branch must be 1-%d characters from [0-9A-Za-z-/\\.]", maxBranchLen)
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return apierr.Wrap(apierr.InvalidInput, err, "email is not a valid address")
	}
	return nil
}

func (s *Server) handleMigrate(w http.ResponseWriter, r *http.Request) {
	body, err := streamio.ReadMax(r.Body, maxMigrateBodyBytes)
	if err != nil {
		renderError(w, r, apierr.Wrap(apierr.InvalidInput, err, "reading request body"))
		return
	}
	var req migrateRequest
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&req); err != nil {
		renderError(w, r, apierr.Wrap(apierr.InvalidInput, err, "malformed request body"))
		return
	}
	if err := validateMigrateRequest(&req); err != nil {
		renderError(w, r, err)
		return
	}

	repoID, err := s.builder.Migrate(r.Context(), req.Handle, req.Email, req.Branch)
	if err != nil {
		renderError(w, r, err)
		return
	}
	renderJSON(w, migrateResponse{
		RepoID:  repoID,
		RepoTTL: int64(s.builder.SessionExpiry.Seconds()),
	})
}
