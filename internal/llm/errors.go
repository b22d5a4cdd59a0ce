package llm

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrIncompleteStream is reported when the backend closes the stream before
// sending the done frame.
var ErrIncompleteStream = errors.New("stream ended before completion")

// TransportError reports a failed backend call: connection failures,
// non-200 responses, timeouts, and streams that end early.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("ollama %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("ollama %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// maxFrameExcerpt bounds, in bytes, how much of a bad line an error quotes.
const maxFrameExcerpt = 120

// MalformedFrameError reports a stream line that is not a valid frame.
type MalformedFrameError struct {
	Line string
	Err  error
}

func (e *MalformedFrameError) Error() string {
	line := e.Line
	if len(line) > maxFrameExcerpt {
		cut := maxFrameExcerpt
		for cut > 0 && !utf8.RuneStart(line[cut]) {
			cut--
		}
		line = line[:cut] + "..."
	}
	return fmt.Sprintf("malformed frame %q: %v", line, e.Err)
}

func (e *MalformedFrameError) Unwrap() error {
	return e.Err
}

// IsMalformedFrame reports whether err is a *MalformedFrameError.
func IsMalformedFrame(err error) bool {
	var mfe *MalformedFrameError
	return errors.As(err, &mfe)
}
