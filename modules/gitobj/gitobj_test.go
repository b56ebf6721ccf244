package gitobj

import (
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashObjectMatchesGitFraming(t *testing.T) {
	payload := []byte("Hello, world!\n")
	id := HashObject(KindBlob, payload)
	want := sha1.Sum([]byte("blob 14\x00Hello, world!\n"))
	require.Equal(t, ID(hex.EncodeToString(want[:])), id)
}

func TestStoreRoundTrip(t *testing.T) {
	s := NewStore()
	id, err := s.HashAndStore(KindBlob, []byte("hi"))
	require.NoError(t, err)
	kind, payload, err := s.Read(id)
	require.NoError(t, err)
	require.Equal(t, KindBlob, kind)
	require.Equal(t, []byte("hi"), payload)
}

func TestStoreIdempotent(t *testing.T) {
	s := NewStore()
	id1, err := s.HashAndStore(KindBlob, []byte("same"))
	require.NoError(t, err)
	id2, err := s.HashAndStore(KindBlob, []byte("same"))
	require.NoError(t, err)
	require.Equal(t, id1, id2)
	require.Equal(t, 1, s.Len())
}

func TestReadUnknownObject(t *testing.T) {
	s := NewStore()
	_, _, err := s.Read("deadbeef")
	require.Error(t, err)
}

func TestEmptyHistoryObjectCount(t *testing.T) {
	// S1: no contributions, just the README commit. Expect 3 objects:
	// one blob, one tree, one commit.
	r := NewRepository()
	_, err := r.AddBlob("README", []byte("Hello, world!\n"), 0)
	require.NoError(t, err)
	_, err = r.Commit("Gitoboros", "noreply@gitoboros.invalid", "Added readme", 1700000000)
	require.NoError(t, err)
	require.Equal(t, 3, r.Store.Len())
	require.NotEmpty(t, r.Head())
}

func TestObjectDeterminism(t *testing.T) {
	build := func() []ID {
		r := NewRepository()
		_, err := r.Commit("Gitoboros", "a@example.com", "Contribution #0", 1700000000)
		require.NoError(t, err)
		_, err = r.AddBlob("README", []byte("Hello, world!\n"), 0)
		require.NoError(t, err)
		_, err = r.Commit("Gitoboros", "a@example.com", "Added readme", 1700000000)
		require.NoError(t, err)
		return r.Store.IDs()
	}
	a := build()
	b := build()
	require.Equal(t, a, b)
}

func TestPackTrailerIsSHA1OfPrecedingBytes(t *testing.T) {
	r := NewRepository()
	_, err := r.AddBlob("README", []byte("Hello, world!\n"), 0)
	require.NoError(t, err)
	_, err = r.Commit("Gitoboros", "a@example.com", "Added readme", 1700000000)
	require.NoError(t, err)
	ids := r.Store.IDs()
	packed, err := r.Pack(ids)
	require.NoError(t, err)
	require.Greater(t, len(packed), 20)
	body := packed[:len(packed)-20]
	trailer := packed[len(packed)-20:]
	sum := sha1.Sum(body)
	require.Equal(t, sum[:], trailer)
}

func TestPackHeaderMagicAndCount(t *testing.T) {
	r := NewRepository()
	_, err := r.AddBlob("README", []byte("x"), 0)
	require.NoError(t, err)
	_, err = r.Commit("Gitoboros", "a@example.com", "Added readme", 1700000000)
	require.NoError(t, err)
	ids := r.Store.IDs()
	packed, err := r.Pack(ids)
	require.NoError(t, err)
	require.Equal(t, "PACK", string(packed[:4]))
	require.Equal(t, uint32(len(ids)), binary.BigEndian.Uint32(packed[8:12]))
}

func TestObjectOrderingAscending(t *testing.T) {
	s := NewStore()
	for _, p := range []string{"a", "b", "c", "d"} {
		_, err := s.HashAndStore(KindBlob, []byte(p))
		require.NoError(t, err)
	}
	ids := s.IDs()
	for i := 1; i < len(ids); i++ {
		require.Less(t, ids[i-1], ids[i])
	}
}
