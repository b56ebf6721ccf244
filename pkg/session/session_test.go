package session

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestDeriveIDDeterministic(t *testing.T) {
	a := DeriveID(DefaultNamespace, "alice", "a@example.com", "main")
	b := DeriveID(DefaultNamespace, "alice", "a@example.com", "main")
	require.Equal(t, a, b)

	c := DeriveID(DefaultNamespace, "bob", "a@example.com", "main")
	require.NotEqual(t, a, c)
}

func TestDeriveIDMatchesManualFingerprint(t *testing.T) {
	fp := Fingerprint("alice", "a@example.com", "main")
	want := uuid.NewSHA1(DefaultNamespace, []byte(fp))
	got := DeriveID(DefaultNamespace, "alice", "a@example.com", "main")
	require.Equal(t, want, got)
}

func TestAsURILengthAndRoundTrip(t *testing.T) {
	store := newMemoryStore()
	s := MakeFromData(store, DefaultNamespace, "alice", "a@example.com", "main")
	uri := s.AsURI()
	require.Len(t, uri, IDLength)

	s2, err := MakeFromURI(store, uri)
	require.NoError(t, err)
	require.Equal(t, s.id, s2.id)
}

func TestMakeFromURIRejectsBadLength(t *testing.T) {
	store := newMemoryStore()
	_, err := MakeFromURI(store, "tooshort")
	require.Error(t, err)
}

func TestOpenCloseLifecycle(t *testing.T) {
	store := newMemoryStore()
	ctx := context.Background()
	s := MakeFromData(store, DefaultNamespace, "alice", "a@example.com", "main")

	opened, err := s.IsOpened(ctx)
	require.NoError(t, err)
	require.False(t, opened)

	require.NoError(t, s.Open(ctx))
	opened, err = s.IsOpened(ctx)
	require.NoError(t, err)
	require.True(t, opened)

	valid, err := s.IsValid(ctx)
	require.NoError(t, err)
	require.False(t, valid)

	require.NoError(t, s.Close(ctx))
	valid, err = s.IsValid(ctx)
	require.NoError(t, err)
	require.True(t, valid)
}

func TestSetDataGetDataRoundTrip(t *testing.T) {
	store := newMemoryStore()
	ctx := context.Background()
	s := MakeFromData(store, DefaultNamespace, "alice", "a@example.com", "main")
	require.NoError(t, s.Open(ctx))
	want := Data{TotalObjects: 3, LatestObject: "abc123", Packfile: []byte{0x01, 0x02, 0x03}}
	require.NoError(t, s.SetData(ctx, want))
	require.NoError(t, s.Close(ctx))

	got, err := s.GetData(ctx)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestBranchFetchedFromStoreWhenUnknown(t *testing.T) {
	store := newMemoryStore()
	ctx := context.Background()
	s := MakeFromData(store, DefaultNamespace, "alice", "a@example.com", "feature/x")
	require.NoError(t, s.Open(ctx))

	s2, err := MakeFromURI(store, s.AsURI())
	require.NoError(t, err)
	branch, err := s2.Branch(ctx)
	require.NoError(t, err)
	require.Equal(t, "feature/x", branch)
}
