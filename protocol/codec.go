package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

const (
	// DefaultMaxMessageSize bounds a single line, terminator excluded
	DefaultMaxMessageSize = 4096

	readChunkSize = 1024
)

var ErrMessageTooLarge = errors.New("message too large")

// FramingError reports a complete line that is not a JSON object. It is
// fatal for the connection it was read from.
type FramingError struct {
	Line []byte
	Err  error
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("malformed message %q: %v", e.Line, e.Err)
}

func (e *FramingError) Unwrap() error {
	return e.Err
}

// Marshal encodes v as a single newline-terminated JSON line
func Marshal(v interface{}) ([]byte, error) {
	line, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "marshal message")
	}
	return append(line, '\n'), nil
}

type Encoder struct {
	w io.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Encode writes v as one line, in a single write
func (enc *Encoder) Encode(v interface{}) error {
	line, err := Marshal(v)
	if err != nil {
		return err
	}
	if _, err := enc.w.Write(line); err != nil {
		return errors.Wrap(err, "write message")
	}
	return nil
}

// Splitter accumulates bytes from a stream and cuts them into lines. Partial
// trailing lines are kept until a later Feed completes them.
type Splitter struct {
	buf     []byte
	maxSize int
}

// NewSplitter creates a Splitter refusing lines longer than maxSize bytes;
// maxSize <= 0 means unlimited.
func NewSplitter(maxSize int) *Splitter {
	return &Splitter{maxSize: maxSize}
}

// Feed appends p and returns every line it completes, skipping blank lines
func (s *Splitter) Feed(p []byte) ([][]byte, error) {
	s.buf = append(s.buf, p...)

	var lines [][]byte
	for {
		i := bytes.IndexByte(s.buf, '\n')
		if i < 0 {
			break
		}

		line := s.buf[:i]
		s.buf = s.buf[i+1:]

		if s.maxSize > 0 && len(line) > s.maxSize {
			return lines, errors.Wrapf(ErrMessageTooLarge, "%d bytes", len(line))
		}
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		lines = append(lines, append([]byte(nil), line...))
	}

	if s.maxSize > 0 && len(s.buf) > s.maxSize {
		return lines, errors.Wrapf(ErrMessageTooLarge, "over %d bytes without a terminator", s.maxSize)
	}

	// Drop the consumed prefix so the buffer does not grow without bound
	if len(s.buf) == 0 {
		s.buf = s.buf[:0:0]
	}
	return lines, nil
}

// Buffered returns the bytes of the incomplete trailing line
func (s *Splitter) Buffered() []byte {
	return s.buf
}

// Decoder reads newline-delimited JSON messages from a stream
type Decoder struct {
	r        io.Reader
	splitter *Splitter
	pending  [][]byte
	chunk    []byte
	err      error
}

func NewDecoder(r io.Reader, maxSize int) *Decoder {
	return &Decoder{
		r:        r,
		splitter: NewSplitter(maxSize),
		chunk:    make([]byte, readChunkSize),
	}
}

// Next blocks until a complete message is available. It returns io.EOF once
// the stream ends; an unterminated trailing line is discarded.
func (dec *Decoder) Next() (*Message, error) {
	for len(dec.pending) == 0 {
		if dec.err != nil {
			return nil, dec.err
		}

		n, err := dec.r.Read(dec.chunk)
		if n > 0 {
			lines, splitErr := dec.splitter.Feed(dec.chunk[:n])
			dec.pending = append(dec.pending, lines...)
			if splitErr != nil {
				err = splitErr
			}
		}
		if err != nil {
			dec.err = err
		}
	}

	line := dec.pending[0]
	dec.pending = dec.pending[1:]

	msg := &Message{Raw: line}
	if err := json.Unmarshal(line, msg); err != nil {
		return nil, &FramingError{Line: line, Err: err}
	}
	return msg, nil
}
