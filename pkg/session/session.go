// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package session implements the fingerprint-derived session identity
// and the Redis-backed lifecycle (opened/closed/TTL) that the
// repository builder dedups against.
package session

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"github.com/xorrvin/gitoboros/pkg/apierr"
	"golang.org/x/crypto/blake2b"
)

const (
	// IDLength is the fixed length of an external (base58) session id.
	IDLength = 22

	stateOpened = "SESSION_OPENED"
	stateClosed = "SESSION_CLOSED"

	fieldBranch        = "branch"
	fieldState         = "state"
	fieldTotalObjects  = "total_objects"
	fieldLatestObject  = "latest_object"
	fieldPackfile      = "packfile"
)

// DefaultNamespace is the UUIDv5 namespace session ids are derived
// under when SESSION_NAMESPACE is unset or not a valid UUID; the
// server parses that variable at process start.
var DefaultNamespace = uuid.NameSpaceURL

// Fingerprint computes the blake2b-512-hex fingerprint string for
// (handle, email, branch), matching "{handle} + {email} ({branch})".
// blake2b-512 (not -256) matches hashlib.blake2b's default digest size
// in the original implementation this session id derivation mirrors.
func Fingerprint(handle, email, branch string) string {
	sum := blake2b.Sum512([]byte(fmt.Sprintf("%s + %s (%s)", handle, email, branch)))
	return hex.EncodeToString(sum[:])
}

// DeriveID computes the deterministic UUIDv5 session id for
// (handle, email, branch) under namespace.
func DeriveID(namespace uuid.UUID, handle, email, branch string) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte(Fingerprint(handle, email, branch)))
}

// Data is the set of fields a fully built session carries.
type Data struct {
	TotalObjects int
	LatestObject string
	Packfile     []byte
}

// Session is a handle bound to one session id; it delegates all
// persistence to a Store.
type Session struct {
	id     uuid.UUID
	branch string
	store  Store
}

// MakeFromData derives a session id from (handle, email, branch) and
// binds a handle to it, recording branch for later symref advertisement.
func MakeFromData(store Store, namespace uuid.UUID, handle, email, branch string) *Session {
	return &Session{id: DeriveID(namespace, handle, email, branch), branch: branch, store: store}
}

// MakeFromURI decodes a 22-character base58 external id into a session
// handle.
func MakeFromURI(store Store, uri string) (*Session, error) {
	if len(uri) != IDLength {
		return nil, apierr.New(apierr.InvalidSession, "session id must be %d characters, got %d", IDLength, len(uri))
	}
	raw, err := base58.Decode(uri)
	if err != nil {
		return nil, apierr.Wrap(apierr.InvalidSession, err, "invalid base58 session id %q", uri)
	}
	if len(raw) != 16 {
		return nil, apierr.New(apierr.InvalidSession, "decoded session id must be 16 bytes, got %d", len(raw))
	}
	id, err := uuid.FromBytes(raw)
	if err != nil {
		return nil, apierr.Wrap(apierr.InvalidSession, err, "invalid session id bytes")
	}
	return &Session{id: id, store: store}, nil
}

// AsURI base58-encodes the 16 raw UUID bytes into the external id form.
func (s *Session) AsURI() string {
	raw, _ := s.id.MarshalBinary()
	return base58.Encode(raw)
}

func (s *Session) key() string {
	return "gitoboros:session:" + s.id.String()
}

// Open marks the session as being built.
func (s *Session) Open(ctx context.Context) error {
	return s.store.HSet(ctx, s.key(), map[string]string{
		fieldBranch: s.branch,
		fieldState:  stateOpened,
	})
}

// Close marks the session as fully built.
func (s *Session) Close(ctx context.Context) error {
	return s.store.HSet(ctx, s.key(), map[string]string{fieldState: stateClosed})
}

// IsOpened reports whether the session is mid-build.
func (s *Session) IsOpened(ctx context.Context) (bool, error) {
	state, err := s.store.HGet(ctx, s.key(), fieldState)
	if err != nil {
		return false, err
	}
	return state == stateOpened, nil
}

// IsValid reports whether the session has a fully persisted build.
func (s *Session) IsValid(ctx context.Context) (bool, error) {
	state, err := s.store.HGet(ctx, s.key(), fieldState)
	if err != nil {
		return false, err
	}
	return state == stateClosed, nil
}

// Branch returns the branch name recorded for this session, fetching
// it from the store if it wasn't already known (e.g. when the Session
// was built via MakeFromURI).
func (s *Session) Branch(ctx context.Context) (string, error) {
	if s.branch != "" {
		return s.branch, nil
	}
	branch, err := s.store.HGet(ctx, s.key(), fieldBranch)
	if err != nil {
		return "", err
	}
	s.branch = branch
	return branch, nil
}

// SetData writes the finalized build atomically into the hash.
func (s *Session) SetData(ctx context.Context, d Data) error {
	return s.store.HSet(ctx, s.key(), map[string]string{
		fieldTotalObjects: fmt.Sprintf("%d", d.TotalObjects),
		fieldLatestObject: d.LatestObject,
		fieldPackfile:     encodePackfile(d.Packfile),
	})
}

// GetData reads back a closed session's fields.
func (s *Session) GetData(ctx context.Context) (Data, error) {
	fields, err := s.store.HGetAll(ctx, s.key())
	if err != nil {
		return Data{}, err
	}
	var d Data
	if _, err := fmt.Sscanf(fields[fieldTotalObjects], "%d", &d.TotalObjects); err != nil {
		return Data{}, apierr.Wrap(apierr.UnknownRepo, err, "session %s has no valid total_objects field", s.AsURI())
	}
	d.LatestObject = fields[fieldLatestObject]
	packfile, err := decodePackfile(fields[fieldPackfile])
	if err != nil {
		return Data{}, apierr.Wrap(apierr.UnknownRepo, err, "session %s has a corrupt packfile field", s.AsURI())
	}
	d.Packfile = packfile
	return d, nil
}

// Extend refreshes the session's TTL to ttl.
func (s *Session) Extend(ctx context.Context, ttl time.Duration) error {
	return s.store.Expire(ctx, s.key(), ttl)
}
