// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package smarthttp implements the Git smart HTTP transport's
// upload-pack side: reference advertisement, fetch-request parsing,
// and the sideband-multiplexed, streamed pack response. It never
// walks a commit graph or supports anything beyond a full clone of the
// advertised HEAD — no haves, no delta negotiation, no push.
package smarthttp

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/xorrvin/gitoboros/modules/pktline"
	"github.com/xorrvin/gitoboros/pkg/apierr"
)

const (
	ServiceUploadPack = "git-upload-pack"

	CapSideBand           = "side-band"
	CapSideBand64k        = "side-band-64k"
	CapObjectFormatSHA1   = "object-format=sha1"
	CapAllowTipSHA1InWant = "allow-tip-sha1-in-want"
	CapNoProgress         = "no-progress"
	capSymrefPrefix       = "symref=HEAD:refs/heads/"

	// CapAgent is the literal agent capability this server advertises,
	// matching the spec's smart_proto.py Agent constant exactly rather
	// than deriving it from a build version.
	CapAgent = "agent=git/fakegit"

	// MaxSidebandSmall and MaxSidebandLarge are the maximum payload
	// sizes (not counting the channel byte) for side-band and
	// side-band-64k respectively.
	MaxSidebandSmall = 999
	MaxSidebandLarge = 65519
)

// SidebandMode names which, if either, of the mutually exclusive
// side-band capabilities the client negotiated.
type SidebandMode int

const (
	SidebandNone SidebandMode = iota
	SidebandSmall
	SidebandLarge
)

// MaxPayload returns the maximum sideband payload size for mode, or 0
// if mode is SidebandNone.
func (m SidebandMode) MaxPayload() int {
	switch m {
	case SidebandSmall:
		return MaxSidebandSmall
	case SidebandLarge:
		return MaxSidebandLarge
	default:
		return 0
	}
}

// BuildAdvertisement renders the GET /info/refs response body for
// upload-pack: the service header pkt, a flush, the HEAD line carrying
// capabilities, the branch ref line, and a terminating flush.
func BuildAdvertisement(head, branch string) ([]byte, error) {
	var buf bytes.Buffer
	pw := pktline.NewWriter(&buf)
	if err := pw.WriteString(fmt.Sprintf("# service=%s\n", ServiceUploadPack)); err != nil {
		return nil, err
	}
	if err := pw.WriteFlush(); err != nil {
		return nil, err
	}

	caps := strings.Join([]string{
		CapSideBand,
		CapSideBand64k,
		CapObjectFormatSHA1,
		CapAllowTipSHA1InWant,
		capSymrefPrefix + branch,
		CapNoProgress,
		CapAgent,
	}, " ")

	if err := pw.WriteString(fmt.Sprintf("%s HEAD\x00%s\n", head, caps)); err != nil {
		return nil, err
	}
	if err := pw.WriteString(fmt.Sprintf("%s refs/heads/%s\n", head, branch)); err != nil {
		return nil, err
	}
	if err := pw.WriteFlush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UploadPackRequest is the parsed form of a POST .../git-upload-pack
// body.
type UploadPackRequest struct {
	Wants      map[string]bool
	Sideband   SidebandMode
	NoProgress bool
}

// ParseUploadPackRequest reads pkt-lines from r until a "done" line,
// extracting the wanted commit ids and negotiated capabilities from
// the first "want" line.
func ParseUploadPackRequest(r io.Reader) (*UploadPackRequest, error) {
	req := &UploadPackRequest{Wants: make(map[string]bool)}
	br := bufio.NewReader(r)
	sawDone := false
	firstWant := true

	for {
		payload, flush, err := pktline.Decode(br)
		if err != nil {
			if err == io.EOF {
				break
			}
			if err == pktline.ErrOverflow {
				return nil, apierr.Wrap(apierr.PktLineOverflow, err, "reading upload-pack request")
			}
			return nil, apierr.Wrap(apierr.MalformedGitRequest, err, "reading upload-pack request")
		}
		if flush {
			continue
		}
		line := string(payload)
		switch {
		case line == "done":
			sawDone = true
		case strings.HasPrefix(line, "want "):
			fields := strings.Fields(line)
			if len(fields) < 2 {
				return nil, apierr.New(apierr.MalformedGitRequest, "malformed want line %q", line)
			}
			req.Wants[fields[1]] = true
			if firstWant {
				firstWant = false
				if err := applyCapabilities(req, fields[2:]); err != nil {
					return nil, err
				}
			}
		case strings.HasPrefix(line, "have "):
			// No graph walk is performed; haves are accepted and ignored.
		default:
			// Ignore anything else (e.g. shallow/deepen lines) per the
			// minimal want/have/done grammar this server supports.
		}
		if sawDone {
			break
		}
	}

	if !sawDone {
		return nil, apierr.New(apierr.MalformedGitRequest, "upload-pack request missing terminating done line")
	}
	return req, nil
}

func applyCapabilities(req *UploadPackRequest, caps []string) error {
	sideBand, sideBand64k := false, false
	for _, c := range caps {
		switch c {
		case CapSideBand:
			sideBand = true
		case CapSideBand64k:
			sideBand64k = true
		case CapNoProgress:
			req.NoProgress = true
		}
	}
	if sideBand && sideBand64k {
		return apierr.New(apierr.MalformedGitRequest, "client advertised both side-band and side-band-64k")
	}
	switch {
	case sideBand64k:
		req.Sideband = SidebandLarge
	case sideBand:
		req.Sideband = SidebandSmall
	default:
		req.Sideband = SidebandNone
	}
	return nil
}

// ValidateWants requires that head (the session's latest_object) is
// among the wanted ids: the server only supports full clones of HEAD.
func ValidateWants(req *UploadPackRequest, head string) error {
	if !req.Wants[head] {
		return apierr.New(apierr.MalformedGitRequest, "client did not want HEAD (%s); only full clones of HEAD are supported", head)
	}
	return nil
}
