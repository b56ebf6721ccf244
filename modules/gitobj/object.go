// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package gitobj implements the minimal slice of the Git object model
// this service needs: content-addressed commit/tree/blob objects,
// a synthetic index used to build a single-level tree, and packfile
// assembly. Everything here is in-memory; nothing is ever written to a
// working directory.
package gitobj

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/xorrvin/gitoboros/modules/streamio"
	"github.com/xorrvin/gitoboros/pkg/apierr"
)

// Kind is the object type tag, matching Git's own commit/tree/blob
// ordering for pack header type tags.
type Kind int8

const (
	KindCommit Kind = 1
	KindTree   Kind = 2
	KindBlob   Kind = 3
)

func (k Kind) String() string {
	switch k {
	case KindCommit:
		return "commit"
	case KindTree:
		return "tree"
	case KindBlob:
		return "blob"
	default:
		return "unknown"
	}
}

// ID is a 40-character lowercase hex SHA-1 object id.
type ID string

// HashObject computes the object id for kind/payload: SHA-1 of
// "{kind} {len}\x00{payload}".
func HashObject(kind Kind, payload []byte) ID {
	sum := sha1.Sum(frame(kind, payload))
	return ID(hex.EncodeToString(sum[:]))
}

func frame(kind Kind, payload []byte) []byte {
	header := fmt.Sprintf("%s %d\x00", kind, len(payload))
	buf := make([]byte, 0, len(header)+len(payload))
	buf = append(buf, header...)
	buf = append(buf, payload...)
	return buf
}

// storedObject is the zlib-compressed header-plus-payload form kept in
// the object store.
type storedObject struct {
	kind Kind
	size int
	raw  []byte // compressed frame(kind, payload)
}

// Store is an in-memory, content-addressed object store. One Store
// backs exactly one synthesized repository; it is never shared across
// builds.
type Store struct {
	mu      sync.RWMutex
	objects map[ID]*storedObject
}

func NewStore() *Store {
	return &Store{objects: make(map[ID]*storedObject)}
}

// HashAndStore computes the id for kind/payload and stores the
// zlib-compressed framed bytes under it. Storing the same id twice is a
// no-op: objects are immutable once stored.
func (s *Store) HashAndStore(kind Kind, payload []byte) (ID, error) {
	id := HashObject(kind, payload)
	s.mu.RLock()
	_, exists := s.objects[id]
	s.mu.RUnlock()
	if exists {
		return id, nil
	}
	buf := streamio.GetBytesBuffer()
	defer streamio.PutBytesBuffer(buf)
	zw := streamio.GetZlibWriter(buf)
	defer streamio.PutZlibWriter(zw)
	if _, err := zw.Write(frame(kind, payload)); err != nil {
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", err
	}
	raw := make([]byte, buf.Len())
	copy(raw, buf.Bytes())
	s.mu.Lock()
	s.objects[id] = &storedObject{kind: kind, size: len(payload), raw: raw}
	s.mu.Unlock()
	return id, nil
}

// Read decompresses and re-parses the object stored under id, asserting
// the payload actually read has the size recorded when it was stored.
func (s *Store) Read(id ID) (Kind, []byte, error) {
	s.mu.RLock()
	obj, ok := s.objects[id]
	s.mu.RUnlock()
	if !ok {
		return 0, nil, apierr.New(apierr.UnknownObject, "no such object: %s", id)
	}
	zr, err := streamio.GetZlibReader(bytes.NewReader(obj.raw))
	if err != nil {
		return 0, nil, err
	}
	defer streamio.PutZlibReader(zr)
	decoded, err := io.ReadAll(zr.Reader)
	if err != nil {
		return 0, nil, err
	}
	kind, payload, err := parseFrame(decoded)
	if err != nil {
		return 0, nil, err
	}
	if len(payload) != obj.size {
		return 0, nil, fmt.Errorf("gitobj: size mismatch for %s: read %d bytes, store says %d", id, len(payload), obj.size)
	}
	return kind, payload, nil
}

func parseFrame(b []byte) (Kind, []byte, error) {
	nul := bytes.IndexByte(b, 0)
	if nul < 0 {
		return 0, nil, fmt.Errorf("gitobj: malformed object frame, no NUL separator")
	}
	header := string(b[:nul])
	var kindStr string
	var size int
	if _, err := fmt.Sscanf(header, "%s %d", &kindStr, &size); err != nil {
		return 0, nil, fmt.Errorf("gitobj: malformed object header %q: %w", header, err)
	}
	kind, err := parseKind(kindStr)
	if err != nil {
		return 0, nil, err
	}
	return kind, b[nul+1:], nil
}

func parseKind(s string) (Kind, error) {
	switch s {
	case "commit":
		return KindCommit, nil
	case "tree":
		return KindTree, nil
	case "blob":
		return KindBlob, nil
	default:
		return 0, fmt.Errorf("gitobj: unknown object kind %q", s)
	}
}

// IDs returns every id currently stored, in strictly ascending
// lexicographic order: pack assembly and determinism both depend on
// this ordering.
func (s *Store) IDs() []ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]ID, 0, len(s.objects))
	for id := range s.objects {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len reports how many distinct objects are stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
