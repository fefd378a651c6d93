// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// =============================================================================
// SSE STREAM READER
// =============================================================================

// MaxEventSize caps a single stream event payload.
// SECURITY: Size limit prevents memory exhaustion from a hostile stream.
const MaxEventSize = 1024 * 1024 // 1MB

// SSEReader parses a server-sent-event response body. Events are blocks
// of lines separated by a blank line; payload lines carry a "data:"
// prefix. Lines with other prefixes and payloads that fail to parse are
// skipped so one malformed frame cannot kill the stream.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader wraps a response body for event-by-event reading.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{
		reader: bufio.NewReaderSize(r, 64*1024),
	}
}

// ReadEvent returns the data payload of the next event, or io.EOF when
// the stream ends. A partial final event (data lines followed by EOF
// instead of a blank line) is still returned; the io.EOF follows on the
// next call.
func (s *SSEReader) ReadEvent() (string, error) {
	var data strings.Builder

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF && data.Len() > 0 {
				return data.String(), nil
			}
			return "", err
		}

		line = bytes.TrimRight(line, "\r\n")

		// Blank line ends the event.
		if len(line) == 0 {
			if data.Len() > 0 {
				return data.String(), nil
			}
			continue
		}

		if rest, ok := bytes.CutPrefix(line, []byte("data:")); ok {
			if data.Len()+len(rest) > MaxEventSize {
				return "", fmt.Errorf("stream event exceeds %d bytes", MaxEventSize)
			}
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.Write(bytes.TrimPrefix(rest, []byte(" ")))
		}
		// Other field prefixes (event:, id:, comments) are ignored.
	}
}

// StreamCallback receives each parsed event in arrival order. Returning
// an error aborts the stream.
type StreamCallback func(StreamEvent) error

// StreamError wraps a mid-stream failure together with whether any
// events were delivered before it, so callers can keep partial output.
type StreamError struct {
	Err       error
	Delivered int
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("stream failed after %d events: %v", e.Delivered, e.Err)
}

func (e *StreamError) Unwrap() error {
	return e.Err
}

// processStream drives the reader until a done event, a backend error
// event, natural EOF, or context cancellation. EOF without a done event
// is normal completion: the callback receives a synthesized done so the
// consumer always settles. A body that ends before producing a single
// frame is reported as ErrEmptyBody instead.
func processStream(ctx context.Context, body io.Reader, callback StreamCallback) error {
	reader := NewSSEReader(body)
	delivered := 0
	sawPayload := false

	for {
		select {
		case <-ctx.Done():
			return &StreamError{Err: ctx.Err(), Delivered: delivered}
		default:
		}

		payload, err := reader.ReadEvent()
		if err != nil {
			if errors.Is(err, io.EOF) {
				if !sawPayload {
					return &StreamError{Err: ErrEmptyBody, Delivered: delivered}
				}
				// Natural end of stream without an explicit done.
				return callback(StreamEvent{Kind: EventDone})
			}
			return &StreamError{Err: err, Delivered: delivered}
		}
		sawPayload = true

		event, ok := parseEvent(payload)
		if !ok {
			// Malformed or unrecognized frame, skip it.
			continue
		}

		delivered++
		if err := callback(event); err != nil {
			return err
		}

		switch event.Kind {
		case EventError, EventDone:
			return nil
		}
	}
}

// parseEvent interprets one data payload. Returns ok=false for frames
// that are not valid JSON or match no known shape.
func parseEvent(payload string) (StreamEvent, bool) {
	var frame streamFrame
	if err := json.Unmarshal([]byte(payload), &frame); err != nil {
		return StreamEvent{}, false
	}

	switch {
	case frame.Error != nil:
		return StreamEvent{Kind: EventError, Err: *frame.Error}, true
	case frame.Status == "done":
		return StreamEvent{Kind: EventDone, TraceURL: frame.TraceURL}, true
	case frame.Chunk != nil:
		return StreamEvent{Kind: EventChunk, Chunk: *frame.Chunk}, true
	default:
		return StreamEvent{}, false
	}
}
