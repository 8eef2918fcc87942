// Package transfer implements the get/put file-transfer steps, the
// filename prompt, the help text, and their shared end-of-payload framing.
package transfer

import (
	"bufio"
	"io"
)

// sentinel is the exact two-byte end-of-payload marker: a newline
// followed by a NUL byte. It terminates both a put upload and a get
// download; since it can appear nowhere else in the stream (a lone '\n'
// not followed by '\0' is passed through untouched), it is never
// ambiguous with file content unless the file itself contains that exact
// byte pair, a known limitation carried over unchanged from the original
// protocol.
var sentinel = [2]byte{'\n', 0}

// WriteSentinel writes the exact two-byte \n\0 end-of-payload marker.
func WriteSentinel(w io.Writer) error {
	_, err := w.Write(sentinel[:])
	return err
}

// CopyUntilSentinel copies bytes from r to w until the \n\0 sentinel is
// read (the sentinel itself is consumed but not written) or r returns an
// error. It returns the number of payload bytes written.
func CopyUntilSentinel(r *bufio.Reader, w io.Writer) (int64, error) {
	var written int64
	for {
		b, err := r.ReadByte()
		if err != nil {
			return written, err
		}
		if b == '\n' {
			next, peekErr := r.Peek(1)
			if peekErr == nil && len(next) == 1 && next[0] == 0 {
				_, _ = r.Discard(1)
				return written, nil
			}
			if _, werr := w.Write([]byte{'\n'}); werr != nil {
				return written, werr
			}
			written++
			continue
		}
		if _, werr := w.Write([]byte{b}); werr != nil {
			return written, werr
		}
		written++
	}
}
