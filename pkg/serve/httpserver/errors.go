// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package httpserver

import "github.com/xorrvin/gitoboros/pkg/apierr"

func unknownRepoErr(repoID string) error {
	return apierr.New(apierr.UnknownRepo, "no valid session for repo id %q", repoID)
}
