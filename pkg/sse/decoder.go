package sse

import (
	"bytes"
	"encoding/json"
)

const (
	dataPrefix = "data:"
	sentinel   = "[DONE]"
)

type Kind int

const (
	// Delta carries an incremental content fragment.
	Delta Kind = iota + 1
	// Done marks the sentinel terminator. Nothing follows it.
	Done
	// Unparseable marks a line whose payload is not a completion chunk.
	Unparseable
)

func (k Kind) String() string {
	switch k {
	case Delta:
		return "delta"
	case Done:
		return "done"
	case Unparseable:
		return "unparseable"
	default:
		return "unknown"
	}
}

// Frame is one decoded protocol event.
type Frame struct {
	Kind    Kind
	Content string
}

// chunk is the only part of a completion event the decoder looks at.
type chunk struct {
	Choices []struct {
		Delta struct {
			Content *string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Decoder turns arbitrarily split byte chunks into frames. Bytes are held
// until a line terminator arrives, so a rune split across two chunks is only
// decoded once it is whole. A Decoder is single use.
type Decoder struct {
	buf  []byte
	done bool
}

func NewDecoder() *Decoder {
	return &Decoder{}
}

// Done reports whether the sentinel terminator has been seen.
func (d *Decoder) Done() bool {
	return d.done
}

// Buffered returns the number of bytes waiting for a line terminator.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Feed consumes one transport chunk and returns the frames completed by it.
// Once Done has been produced every further call returns nil.
func (d *Decoder) Feed(p []byte) []Frame {
	if d.done {
		return nil
	}
	d.buf = append(d.buf, p...)

	var frames []Frame
	for !d.done {
		i := bytes.IndexByte(d.buf, '\n')
		if i < 0 {
			break
		}
		line := d.buf[:i]
		frames = d.appendLine(frames, line)
		d.buf = d.buf[i+1:]
	}

	if d.done {
		d.buf = nil
	} else if len(d.buf) == 0 {
		// drop the backing array once a chunk ends on a line boundary
		d.buf = nil
	}
	return frames
}

// Flush handles a final line that was never terminated. It is meant to be
// called once the transport reports end of input.
func (d *Decoder) Flush() []Frame {
	if d.done || len(d.buf) == 0 {
		return nil
	}
	line := d.buf
	d.buf = nil
	return d.appendLine(nil, line)
}

func (d *Decoder) appendLine(frames []Frame, line []byte) []Frame {
	f, ok := d.decodeLine(line)
	if !ok {
		return frames
	}
	if f.Kind == Done {
		d.done = true
	}
	return append(frames, f)
}

// decodeLine returns false for lines that carry no frame: blank lines and
// valid events without content (role-only or finish-reason-only chunks).
func (d *Decoder) decodeLine(line []byte) (Frame, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Frame{}, false
	}

	payload := line
	if bytes.HasPrefix(payload, []byte(dataPrefix)) {
		payload = bytes.TrimPrefix(payload[len(dataPrefix):], []byte(" "))
	}

	if string(payload) == sentinel {
		return Frame{Kind: Done}, true
	}

	var c chunk
	if err := json.Unmarshal(payload, &c); err != nil {
		return Frame{Kind: Unparseable}, true
	}
	if len(c.Choices) == 0 || c.Choices[0].Delta.Content == nil {
		return Frame{}, false
	}
	return Frame{Kind: Delta, Content: *c.Choices[0].Delta.Content}, true
}
