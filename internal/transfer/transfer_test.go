package transfer

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
)

func TestWriteSentinelIsExactlyTwoBytes(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSentinel(&buf); err != nil {
		t.Fatalf("WriteSentinel() error = %v", err)
	}
	got := buf.Bytes()
	want := []byte{'\n', 0}
	if !bytes.Equal(got, want) {
		t.Errorf("sentinel = %v, want %v", got, want)
	}
}

func TestCopyUntilSentinel(t *testing.T) {
	t.Run("stops at sentinel and excludes it from output", func(t *testing.T) {
		src := bufio.NewReader(bytes.NewReader([]byte("hello world\n\x00trailing garbage")))
		var out bytes.Buffer
		n, err := CopyUntilSentinel(src, &out)
		if err != nil {
			t.Fatalf("CopyUntilSentinel() error = %v", err)
		}
		if out.String() != "hello world" {
			t.Errorf("out = %q, want %q", out.String(), "hello world")
		}
		if n != int64(len("hello world")) {
			t.Errorf("n = %d, want %d", n, len("hello world"))
		}
	})

	t.Run("passes through a lone newline not followed by NUL", func(t *testing.T) {
		src := bufio.NewReader(bytes.NewReader([]byte("line1\nline2\n\x00")))
		var out bytes.Buffer
		if _, err := CopyUntilSentinel(src, &out); err != nil {
			t.Fatalf("CopyUntilSentinel() error = %v", err)
		}
		if out.String() != "line1\nline2" {
			t.Errorf("out = %q, want %q", out.String(), "line1\nline2")
		}
	})

	t.Run("propagates EOF when sentinel never arrives", func(t *testing.T) {
		src := bufio.NewReader(bytes.NewReader([]byte("no sentinel here")))
		var out bytes.Buffer
		_, err := CopyUntilSentinel(src, &out)
		if err == nil {
			t.Error("expected an error when the stream ends without a sentinel")
		}
	})
}

func TestGetStreamsSourceThenSentinel(t *testing.T) {
	src := strings.NewReader("the contents")
	var out bytes.Buffer
	buf := make([]byte, ChunkSize)

	n, err := Get(&out, src, buf)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if n != int64(len("the contents")) {
		t.Errorf("n = %d, want %d", n, len("the contents"))
	}

	want := append([]byte("the contents"), '\n', 0)
	if !bytes.Equal(out.Bytes(), want) {
		t.Errorf("out = %v, want %v", out.Bytes(), want)
	}
}

func TestGetPropagatesSourceError(t *testing.T) {
	var out bytes.Buffer
	buf := make([]byte, ChunkSize)
	if _, err := Get(&out, &erroringReader{}, buf); err == nil {
		t.Error("expected error propagated from a failing source reader")
	}
}

func TestPutWritesPayloadUntilSentinel(t *testing.T) {
	payload := "binary-ish payload with some\nnewlines\nin it"
	src := bufio.NewReader(bytes.NewReader([]byte(payload + "\n\x00")))

	var dst bytes.Buffer
	n, err := Put(src, &dst)
	if err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if n != int64(len(payload)) {
		t.Errorf("n = %d, want %d", n, len(payload))
	}
	if dst.String() != payload {
		t.Errorf("dst = %q, want %q", dst.String(), payload)
	}
}

type erroringReader struct{}

func (e *erroringReader) Read(p []byte) (int, error) {
	return 0, bufio.ErrBufferFull
}
