package sse

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	dataPrefix     = "data: "
	eventSeparator = "\n\n"
	doneSentinel   = "[DONE]"
)

// ErrDone is returned by Next once the stream has signaled completion,
// either via the [DONE] sentinel or because the underlying source ended
// cleanly. A read failure mid-stream is not completion and surfaces as its
// own error.
var ErrDone = errors.New("sse: stream done")

// chunkPayload mirrors the slice of a completion event the decoder cares
// about: the incremental content delta, if any.
type chunkPayload struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// Decoder turns a chunked event stream into an in-order sequence of content
// fragments. Events are delimited by a blank line and carried behind a
// "data: " marker; partial events spanning chunk boundaries are buffered
// until the full separator is seen. Malformed payloads are logged and
// skipped. After completion the decoder refuses further reads.
type Decoder struct {
	r    io.ReadCloser
	buf  bytes.Buffer
	read []byte

	pending []string

	mu     sync.Mutex
	done   bool
	closed bool
}

// NewDecoder wraps r. The decoder owns r and closes it on Close.
func NewDecoder(r io.ReadCloser) *Decoder {
	return &Decoder{r: r, read: make([]byte, 4096)}
}

// Next returns the next content fragment. It blocks reading the source as
// needed and returns ErrDone once completion is reached; every call after
// that also returns ErrDone. A non-EOF read failure is returned as an error
// and terminates the stream.
func (d *Decoder) Next() (string, error) {
	if d == nil {
		return "", errors.New("sse: nil decoder")
	}
	for {
		if len(d.pending) > 0 {
			frag := d.pending[0]
			d.pending = d.pending[1:]
			return frag, nil
		}
		if d.isDone() {
			return "", ErrDone
		}
		n, err := d.r.Read(d.read)
		if n > 0 {
			d.pending = d.feed(d.read[:n])
			continue
		}
		if err != nil {
			d.markDone()
			if errors.Is(err, io.EOF) {
				return "", ErrDone
			}
			// A broken connection must not settle a truncated answer as a
			// normal one.
			log.Warn().Err(err).Str("component", "sse").Msg("stream read failed")
			return "", errors.Wrap(err, "sse: read stream")
		}
	}
}

// feed appends a raw chunk to the buffer and extracts every complete event,
// returning the content fragments they carry in arrival order. Exposed to
// the tests through the decoder so chunk-split behavior can be exercised
// without a reader.
func (d *Decoder) feed(chunk []byte) []string {
	if d.isDone() {
		return nil
	}
	d.buf.Write(chunk)
	var frags []string
	for {
		raw := d.buf.String()
		sep := strings.Index(raw, eventSeparator)
		if sep < 0 {
			break
		}
		event := raw[:sep]
		d.buf.Reset()
		d.buf.WriteString(raw[sep+len(eventSeparator):])

		payload, ok := eventData(event)
		if !ok {
			continue
		}
		if payload == doneSentinel {
			d.markDone()
			break
		}
		var p chunkPayload
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			log.Warn().Err(err).Str("component", "sse").Msg("skipping malformed event payload")
			continue
		}
		if len(p.Choices) == 0 {
			continue
		}
		if c := p.Choices[0].Delta.Content; c != "" {
			frags = append(frags, c)
		}
	}
	return frags
}

// eventData extracts the payload of an event, which may span multiple lines
// each carrying the data marker.
func eventData(event string) (string, bool) {
	var parts []string
	for _, line := range strings.Split(event, "\n") {
		if strings.HasPrefix(line, dataPrefix) {
			parts = append(parts, line[len(dataPrefix):])
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, "\n"), true
}

func (d *Decoder) isDone() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.done
}

func (d *Decoder) markDone() {
	d.mu.Lock()
	d.done = true
	d.mu.Unlock()
}

// Close releases the underlying source. Idempotent and safe to call from
// any state, including mid-stream.
func (d *Decoder) Close() error {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	d.done = true
	d.mu.Unlock()
	if d.r == nil {
		return nil
	}
	return d.r.Close()
}
