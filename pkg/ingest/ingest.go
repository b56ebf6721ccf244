// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package ingest defines the contribution ingester collaborator
// contract: given a handle, produce the unordered list of Unix
// timestamps to synthesize as commits. The core treats this as an
// opaque, size-bounded collaborator; scraping mechanics (the HTTP fetch
// and HTML parsing) live entirely in the default implementation and are
// not part of the tested core. That implementation makes one request
// per call, with no retries and no rate limiting.
package ingest

import (
	"context"

	"github.com/xorrvin/gitoboros/pkg/apierr"
)

// MaxContribs bounds how many timestamps a single Ingester call may
// return; a collaborator that returns more is itself misbehaving and
// the caller truncates.
const MaxContribs = 1 << 24

// Ingester produces a contribution timestamp sequence for a handle.
// Implementations must not deduplicate: duplicate timestamps are
// deliberately preserved as distinct commits with identical times.
type Ingester interface {
	Contributions(ctx context.Context, handle string) ([]int64, error)
}

// Fetch calls ing.Contributions and truncates the result to MaxContribs,
// wrapping any collaborator error as apierr.UpstreamFetchFailed.
func Fetch(ctx context.Context, ing Ingester, handle string) ([]int64, error) {
	timestamps, err := ing.Contributions(ctx, handle)
	if err != nil {
		return nil, apierr.Wrap(apierr.UpstreamFetchFailed, err, "fetching contributions for %q", handle)
	}
	if len(timestamps) > MaxContribs {
		timestamps = timestamps[:MaxContribs]
	}
	return timestamps, nil
}
