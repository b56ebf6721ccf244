// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package smarthttp

import (
	"github.com/xorrvin/gitoboros/modules/pktline"
	"github.com/xorrvin/gitoboros/pkg/apierr"
)

// SidebandKind tags a multiplexed pkt-line payload's channel.
type SidebandKind byte

const (
	SidebandPackData SidebandKind = 1
	SidebandMessage  SidebandKind = 2
	SidebandError    SidebandKind = 3
)

// EncodeSidebandFrame frames data on channel kind as a single pkt-line
// whose payload begins with the one-byte channel tag. Message frames
// get a trailing \r appended so Git overwrites the progress line in
// place; other kinds are passed through unmodified.
func EncodeSidebandFrame(kind SidebandKind, data []byte, maxPayload int) ([]byte, error) {
	payload := make([]byte, 0, len(data)+2)
	payload = append(payload, byte(kind))
	payload = append(payload, data...)
	if kind == SidebandMessage {
		payload = append(payload, '\r')
	}
	if len(payload)-1 > maxPayload {
		return nil, apierr.New(apierr.SidebandOverflow, "sideband payload of %d bytes exceeds negotiated maximum %d", len(payload)-1, maxPayload)
	}
	return pktline.Encode(payload)
}
