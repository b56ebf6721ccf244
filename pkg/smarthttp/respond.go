// Copyright ©️ Ant Group. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

package smarthttp

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/xorrvin/gitoboros/modules/pktline"
)

const (
	welcomeCharDelay  = 50 * time.Millisecond
	countingStepDelay = 10 * time.Millisecond
)

var welcomeLines = []string{
	"Thanks for using Gitoboros.",
	"Please don't try to impersonate other people.",
}

// Flusher is implemented by http.ResponseWriter (via http.Flusher); the
// responder loop in StreamUploadPack flushes after every chunk it writes
// so the client observes the streamed pacing instead of a single
// buffered burst.
type Flusher interface {
	Flush()
}

type nopFlusher struct{}

func (nopFlusher) Flush() {}

// chunkQueue is the bounded handoff queue between the producer goroutine
// (which owns all the timing and framing logic) and the HTTP responder,
// which only ever drains it and writes bytes. A nil chunk is never
// sent; the channel's close is the sentinel that ends the stream.
type chunkQueue chan []byte

// StreamUploadPack writes the full upload-pack response body for req:
// NAK, optional sideband progress, the packfile (chunked over sideband
// or raw), the optional final summary line, and a closing flush when
// sideband is in play. It runs the producer in its own goroutine so
// that, per the design this mirrors, the response can start flushing to
// the client as soon as the first chunk is ready rather than waiting
// for the whole body to be assembled. Client disconnect is detected via
// ctx and aborts the producer without writing any further bytes.
func StreamUploadPack(ctx context.Context, w io.Writer, flusher Flusher, req *UploadPackRequest, totalObjects int, packfile []byte) error {
	if flusher == nil {
		flusher = nopFlusher{}
	}
	queue := make(chunkQueue, 4)
	errCh := make(chan error, 1)

	go produceUploadPack(ctx, queue, errCh, req, totalObjects, packfile)

	for {
		select {
		case chunk, ok := <-queue:
			if !ok {
				return <-errCh
			}
			if _, err := w.Write(chunk); err != nil {
				return err
			}
			flusher.Flush()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func produceUploadPack(ctx context.Context, queue chunkQueue, errCh chan error, req *UploadPackRequest, totalObjects int, packfile []byte) {
	defer close(queue)

	emit := func(b []byte) bool {
		select {
		case queue <- b:
			return true
		case <-ctx.Done():
			return false
		}
	}

	nak, err := pktline.EncodeString("NAK\n")
	if err != nil {
		errCh <- err
		return
	}
	if !emit(nak) {
		errCh <- ctx.Err()
		return
	}

	maxPayload := req.Sideband.MaxPayload()
	progress := req.Sideband != SidebandNone && !req.NoProgress

	if progress {
		for _, line := range welcomeLines {
			if !emitWelcomeLine(ctx, emit, line, maxPayload) {
				errCh <- ctx.Err()
				return
			}
		}
		enumerating := fmt.Sprintf("Enumerating objects: %d, done.\n", totalObjects)
		if !emitMessage(emit, enumerating, maxPayload) {
			errCh <- ctx.Err()
			return
		}
		step := totalObjects/100 + 1
		for i := 0; i <= totalObjects; i += step {
			percent := 100
			if totalObjects > 0 {
				percent = i * 100 / totalObjects
			}
			text := fmt.Sprintf("Counting objects:  %d%% (%d/%d)", percent, i, totalObjects)
			if !emitMessage(emit, text, maxPayload) {
				errCh <- ctx.Err()
				return
			}
			select {
			case <-time.After(countingStepDelay):
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
			if totalObjects == 0 {
				break
			}
		}
	}

	if req.Sideband != SidebandNone {
		chunkSize := maxPayload / 2
		if chunkSize <= 0 {
			chunkSize = 1
		}
		for off := 0; off < len(packfile); off += chunkSize {
			end := off + chunkSize
			if end > len(packfile) {
				end = len(packfile)
			}
			frame, err := EncodeSidebandFrame(SidebandPackData, packfile[off:end], maxPayload)
			if err != nil {
				errCh <- err
				return
			}
			if !emit(frame) {
				errCh <- ctx.Err()
				return
			}
		}
	} else {
		if !emit(append([]byte(nil), packfile...)) {
			errCh <- ctx.Err()
			return
		}
	}

	if progress {
		summary := fmt.Sprintf("Total %d (delta 0), reused 0 (delta 0), pack-reused 0\n", totalObjects)
		if !emitMessage(emit, summary, maxPayload) {
			errCh <- ctx.Err()
			return
		}
	}

	if req.Sideband != SidebandNone {
		if !emit(pktline.Flush()) {
			errCh <- ctx.Err()
			return
		}
	}

	errCh <- nil
}

func emitMessage(emit func([]byte) bool, text string, maxPayload int) bool {
	frame, err := EncodeSidebandFrame(SidebandMessage, []byte(text), maxPayload)
	if err != nil {
		return false
	}
	return emit(frame)
}

// emitWelcomeLine emits successive prefixes of line, one character at a
// time with welcomeCharDelay pacing, then a final newline.
func emitWelcomeLine(ctx context.Context, emit func([]byte) bool, line string, maxPayload int) bool {
	for k := 0; k <= len(line); k++ {
		if !emitMessage(emit, line[:k], maxPayload) {
			return false
		}
		select {
		case <-time.After(welcomeCharDelay):
		case <-ctx.Done():
			return false
		}
	}
	return emitMessage(emit, "\n", maxPayload)
}
