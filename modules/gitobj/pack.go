// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package gitobj

import (
	"bytes"
	"crypto/sha1"

	"github.com/xorrvin/gitoboros/modules/binary"
	"github.com/xorrvin/gitoboros/modules/streamio"
)

var packMagic = [4]byte{'P', 'A', 'C', 'K'}

const packVersion uint32 = 2

// Pack assembles a packfile from ids, which must already be in
// strictly ascending lexicographic order (Store.IDs returns them that
// way). The trailer is the raw SHA-1 of every preceding byte.
func (r *Repository) Pack(ids []ID) ([]byte, error) {
	buf := streamio.GetBytesBuffer()
	defer streamio.PutBytesBuffer(buf)

	buf.Write(packMagic[:])
	if err := binary.WriteUint32(buf, packVersion); err != nil {
		return nil, err
	}
	if err := binary.WriteUint32(buf, uint32(len(ids))); err != nil {
		return nil, err
	}

	for _, id := range ids {
		kind, payload, err := r.Store.Read(id)
		if err != nil {
			return nil, err
		}
		if err := writePackObject(buf, kind, payload); err != nil {
			return nil, err
		}
	}

	checksum := sha1.Sum(buf.Bytes())
	out := make([]byte, buf.Len()+len(checksum))
	copy(out, buf.Bytes())
	copy(out[buf.Len():], checksum[:])
	return out, nil
}

// writePackObject emits Git's variable-length type+size header followed
// by the zlib-compressed payload. The first byte packs the type tag
// into bits 4-6 and the low 4 size bits into bits 0-3; if any size bits
// remain, continuation bytes carry 7 bits each with the high bit set on
// all but the last.
func writePackObject(buf *bytes.Buffer, kind Kind, payload []byte) error {
	size := len(payload)
	b := byte(int(kind)<<4) | byte(size&0x0f)
	size >>= 4
	if size > 0 {
		b |= 0x80
	}
	buf.WriteByte(b)
	for size > 0 {
		b = byte(size & 0x7f)
		size >>= 7
		if size > 0 {
			b |= 0x80
		}
		buf.WriteByte(b)
	}
	zw := streamio.GetZlibWriter(buf)
	defer streamio.PutZlibWriter(zw)
	if _, err := zw.Write(payload); err != nil {
		return err
	}
	return zw.Close()
}
