package transfer

import (
	"bufio"
	"fmt"
	"io"

	"github.com/7etsuo/shellserve/internal/shellserveerr"
)

// HelpText is the help built-in's fixed response, listing the
// server-recognized verbs.
const HelpText = "get\nput\nhelp\nexit\n"

// ChunkSize is the maximum amount streamed per write when sending a file
// to the client; it matches the original protocol's read-chunk size. A
// caller with a reusable scratch buffer (such as an IOContext's) should
// pass a slice of at least this length into Get.
const ChunkSize = 4095

// ReadFilename prompts "filename: " (no trailing newline) and reads one
// line for the answer.
func ReadFilename(w io.Writer, r *bufio.Reader) (string, error) {
	if _, err := fmt.Fprint(w, "filename: "); err != nil {
		return "", shellserveerr.New(shellserveerr.KindIO, "transfer.ReadFilename", err)
	}
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return "", shellserveerr.New(shellserveerr.KindIO, "transfer.ReadFilename", err)
	}
	return trimEOL(line), nil
}

func trimEOL(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// Get streams src to w in len(buf)-sized pieces, followed by the \n\0
// sentinel, and returns the number of bytes sent. The caller is
// responsible for opening src (typically by retargeting an IOContext's
// Read field to the source file for the duration of the call) and for
// supplying buf (typically the IOContext's own scratch buffer, sliced to
// ChunkSize).
func Get(w io.Writer, src io.Reader, buf []byte) (int64, error) {
	var total int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return total, shellserveerr.New(shellserveerr.KindIO, "transfer.Get", werr)
			}
			total += int64(n)
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return total, shellserveerr.New(shellserveerr.KindIO, "transfer.Get", rerr)
		}
	}

	if err := WriteSentinel(w); err != nil {
		return total, shellserveerr.New(shellserveerr.KindIO, "transfer.Get", err)
	}
	return total, nil
}

// Put reads from r until the \n\0 sentinel and writes the payload to dst,
// returning the number of bytes written. The caller is responsible for
// opening dst (typically by retargeting an IOContext's Write field to an
// owner-only (0600), created-and-truncated destination file for the
// duration of the call).
func Put(r *bufio.Reader, dst io.Writer) (int64, error) {
	n, err := CopyUntilSentinel(r, dst)
	if err != nil {
		return n, shellserveerr.New(shellserveerr.KindIO, "transfer.Put", err)
	}
	return n, nil
}
