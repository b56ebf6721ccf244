// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package httpserver

import (
	"net/http"

	"github.com/xorrvin/gitoboros/pkg/session"
)

// Request carries the decoded session handle alongside the raw
// http.Request, once a repo route has resolved {repo_id}.
type Request struct {
	*http.Request
	Session *session.Session
}
