package sse

import (
	"errors"
	"io"
	"iter"
)

const defaultReadSize = 4 << 10

// ErrTruncated is returned when input ends before the sentinel terminator.
var ErrTruncated = io.ErrUnexpectedEOF

// Reader pulls chunks from r on demand and yields frames one at a time.
// Each Read call on r is treated as one transport chunk.
type Reader struct {
	r       io.Reader
	dec     *Decoder
	pending []Frame
	chunk   []byte
	err     error
}

func NewReader(r io.Reader) *Reader {
	return &Reader{
		r:     r,
		dec:   NewDecoder(),
		chunk: make([]byte, defaultReadSize),
	}
}

// Next returns the next frame. It returns io.EOF after the Done frame has
// been returned, ErrTruncated if the input ends without one, and any read
// error from the underlying reader otherwise.
func (s *Reader) Next() (Frame, error) {
	for len(s.pending) == 0 {
		if s.err != nil {
			return Frame{}, s.err
		}
		if s.dec.Done() {
			s.err = io.EOF
			return Frame{}, s.err
		}

		n, err := s.r.Read(s.chunk)
		if n > 0 {
			s.pending = s.dec.Feed(s.chunk[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.pending = append(s.pending, s.dec.Flush()...)
			}
			switch {
			case s.dec.Done():
				// anything after the sentinel is irrelevant, errors included
				s.err = io.EOF
			case errors.Is(err, io.EOF):
				s.err = ErrTruncated
			default:
				s.err = err
			}
		}
	}

	f := s.pending[0]
	s.pending = s.pending[1:]
	return f, nil
}

// Frames ranges over the frames of r. A non-nil error is yielded at most
// once, as the last element; a clean end after Done yields no error.
func Frames(r io.Reader) iter.Seq2[Frame, error] {
	return func(yield func(Frame, error) bool) {
		rd := NewReader(r)
		for {
			f, err := rd.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(Frame{}, err)
				return
			}
			if !yield(f, nil) {
				return
			}
		}
	}
}
