// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package repobuilder drives the object engine and the contribution
// ingester to produce a finalized packfile and persist it into a
// session, implementing the (open, poll, close) dedup protocol.
package repobuilder

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/xorrvin/gitoboros/modules/gitobj"
	"github.com/xorrvin/gitoboros/pkg/apierr"
	"github.com/xorrvin/gitoboros/pkg/ingest"
	"github.com/xorrvin/gitoboros/pkg/session"
)

const (
	// DefaultAuthor is the identity stamped on every synthesized commit.
	DefaultAuthor = "Gitoboros"

	// DefaultBranch is used when the caller does not name one.
	DefaultBranch = "main"

	// DefaultSessionExpiry is SESSION_EXPIRY_TIME: the TTL every valid
	// session is extended to on successful migrate.
	DefaultSessionExpiry = 300 * time.Second

	// DefaultWaitTimeout is SESSION_WAIT_TIMEOUT: the bound on the poll
	// loop for a build already in progress. It must stay below
	// DefaultSessionExpiry so a crashed build's stale "opened" marker
	// cannot wedge every subsequent request past its own TTL.
	DefaultWaitTimeout = 10 * time.Second

	pollInterval = 100 * time.Millisecond

	// DefaultReadmeTimestamp seeds the README commit's clock when a
	// build has no contributions to take it from (S1, the empty-history
	// case). Any fixed value works; what matters is that it never falls
	// back to wall-clock time, which would make the commit's SHA-1 (and
	// therefore the whole packfile) different across otherwise-identical
	// builds.
	DefaultReadmeTimestamp int64 = 1700000000
)

// Builder wires a session Store, a namespace, and an Ingester together.
type Builder struct {
	Store     session.Store
	Namespace uuid.UUID
	Ingester  ingest.Ingester

	WaitTimeout   time.Duration
	SessionExpiry time.Duration
}

func New(store session.Store, namespace uuid.UUID, ing ingest.Ingester) *Builder {
	return &Builder{
		Store:         store,
		Namespace:     namespace,
		Ingester:      ing,
		WaitTimeout:   DefaultWaitTimeout,
		SessionExpiry: DefaultSessionExpiry,
	}
}

// Migrate implements §4.5: derive the session, dedup against any
// concurrent or prior build, and otherwise build a fresh repository.
// It returns the external (base58) session id.
func (b *Builder) Migrate(ctx context.Context, handle, email, branch string) (string, error) {
	if branch == "" {
		branch = DefaultBranch
	}
	s := session.MakeFromData(b.Store, b.Namespace, handle, email, branch)

	valid, err := s.IsValid(ctx)
	if err != nil {
		return "", err
	}
	if valid {
		if err := s.Extend(ctx, b.SessionExpiry); err != nil {
			return "", err
		}
		return s.AsURI(), nil
	}

	opened, err := s.IsOpened(ctx)
	if err != nil {
		return "", err
	}
	if opened {
		if err := b.waitForValid(ctx, s); err != nil {
			return "", err
		}
		if err := s.Extend(ctx, b.SessionExpiry); err != nil {
			return "", err
		}
		return s.AsURI(), nil
	}

	if err := b.build(ctx, s, handle, email); err != nil {
		return "", err
	}
	if err := s.Extend(ctx, b.SessionExpiry); err != nil {
		return "", err
	}
	return s.AsURI(), nil
}

func (b *Builder) waitForValid(ctx context.Context, s *session.Session) error {
	deadline := time.Now().Add(b.WaitTimeout)
	for time.Now().Before(deadline) {
		valid, err := s.IsValid(ctx)
		if err != nil {
			return err
		}
		if valid {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
	return apierr.New(apierr.SessionWaitTimeout, "timed out waiting for concurrent build of session %s", s.AsURI())
}

// build implements the fresh-build path of §4.5 step 2-3: open the
// session, fetch timestamps, synthesize one commit per timestamp plus
// the README commit, pack every stored object, and persist+close.
//
// A failure here leaves the session's "opened" marker in place; like
// the source this is modeled on, it relies on TTL expiry rather than
// clearing it explicitly, which is safe exactly because
// WaitTimeout < SessionExpiry.
func (b *Builder) build(ctx context.Context, s *session.Session, handle, email string) error {
	if err := s.Open(ctx); err != nil {
		return err
	}

	timestamps, err := ingest.Fetch(ctx, b.Ingester, handle)
	if err != nil {
		return err
	}

	branch, err := s.Branch(ctx)
	if err != nil {
		return err
	}
	logrus.Infof("building session %s for handle %q on branch %q: %d contributions", s.AsURI(), handle, branch, len(timestamps))

	repo := gitobj.NewRepository()
	for i, ts := range timestamps {
		if _, err := repo.Commit(DefaultAuthor, email, contributionMessage(i), ts); err != nil {
			return err
		}
	}
	readmeTS := latestTimestamp(timestamps)
	if _, err := repo.AddBlob("README", []byte("Hello, world!\n"), readmeTS); err != nil {
		return err
	}
	if _, err := repo.Commit(DefaultAuthor, email, "Added readme", readmeTS); err != nil {
		return err
	}

	ids := repo.Store.IDs()
	packfile, err := repo.Pack(ids)
	if err != nil {
		return err
	}

	if err := s.SetData(ctx, session.Data{
		TotalObjects: len(ids),
		LatestObject: string(repo.Head()),
		Packfile:     packfile,
	}); err != nil {
		return err
	}
	return s.Close(ctx)
}

func contributionMessage(i int) string {
	return "Contribution #" + strconv.Itoa(i)
}

// latestTimestamp returns the max of timestamps, or DefaultReadmeTimestamp
// when timestamps is empty, so the README commit's clock is always a pure
// function of the build's inputs rather than wall-clock time.
func latestTimestamp(timestamps []int64) int64 {
	if len(timestamps) == 0 {
		return DefaultReadmeTimestamp
	}
	latest := timestamps[0]
	for _, ts := range timestamps[1:] {
		if ts > latest {
			latest = ts
		}
	}
	return latest
}
