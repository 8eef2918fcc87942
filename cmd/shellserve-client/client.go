package main

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
)

func runClient(address, username, password string) error {
	conn, err := net.Dial("tcp", address)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", address, err)
	}
	defer conn.Close()

	server := bufio.NewReader(conn)
	stdin := bufio.NewReader(os.Stdin)

	if err := readUntilPrompt(server, "Username: "); err != nil {
		return fmt.Errorf("waiting for username prompt: %w", err)
	}
	if username == "" {
		username = promptLine(stdin, "Username: ")
	}
	if _, err := fmt.Fprintln(conn, username); err != nil {
		return fmt.Errorf("sending username: %w", err)
	}

	if err := readUntilPrompt(server, "Password: "); err != nil {
		return fmt.Errorf("waiting for password prompt: %w", err)
	}
	if password == "" {
		password = promptLine(stdin, "Password: ")
	}
	if _, err := fmt.Fprintln(conn, password); err != nil {
		return fmt.Errorf("sending password: %w", err)
	}

	banner, err := server.ReadString('\n')
	if err != nil {
		return fmt.Errorf("reading login response: %w", err)
	}
	fmt.Print(banner)
	if strings.Contains(banner, "login failed") {
		return fmt.Errorf("authentication rejected by server")
	}

	return repl(server, stdin, conn)
}

// repl drives the interactive command loop: read the "server> " prompt,
// read one line of local input, send it, then mirror the get/put
// sentinel-framed transfer directions or pass any other response through
// until the next prompt.
func repl(server *bufio.Reader, stdin *bufio.Reader, conn net.Conn) error {
	// The first "server> " prompt follows the welcome line runClient
	// already consumed; every subsequent prompt is consumed at the end
	// of the previous iteration below, so each pass starts by printing
	// one it has already read.
	if err := readUntilPrompt(server, "server> "); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("waiting for command prompt: %w", err)
	}

	for {
		fmt.Print("server> ")

		line, err := stdin.ReadString('\n')
		if err != nil {
			return nil
		}
		line = strings.TrimRight(line, "\r\n")

		if _, err := fmt.Fprintln(conn, line); err != nil {
			return fmt.Errorf("sending command: %w", err)
		}

		switch line {
		case "get":
			if err := clientGet(server, stdin, conn); err != nil {
				fmt.Fprintln(os.Stderr, "get failed:", err)
			}
		case "put":
			if err := clientPut(server, stdin, conn); err != nil {
				fmt.Fprintln(os.Stderr, "put failed:", err)
			}
		case "exit":
			return nil
		default:
			if err := echoUntilPrompt(server); err != nil {
				if err == io.EOF {
					return nil
				}
				return err
			}
			continue
		}

		if err := readUntilPrompt(server, "server> "); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("waiting for command prompt: %w", err)
		}
	}
}

// newsaveSuffix is appended to the remote filename when saving a get's
// downloaded contents locally, so a download never silently overwrites a
// same-named file already sitting in the client's working directory.
const newsaveSuffix = ".newsave"

// clientGet answers the server's "filename: " prompt, then copies the
// remote file's contents (up to the \n\0 sentinel) into a local file
// named after the remote one with the .newsave suffix appended.
func clientGet(server *bufio.Reader, stdin *bufio.Reader, conn net.Conn) error {
	if err := readUntilPrompt(server, "filename: "); err != nil {
		return err
	}
	filename := promptLine(stdin, "filename: ")
	if _, err := fmt.Fprintln(conn, filename); err != nil {
		return err
	}

	localName := filename + newsaveSuffix
	f, err := os.OpenFile(localName, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	n, err := copyUntilSentinel(server, f)
	if err != nil {
		return err
	}
	fmt.Printf("received %d bytes into %s\n", n, localName)
	return nil
}

// clientPut answers the server's "filename: " prompt, then streams a
// local file's contents followed by the \n\0 sentinel.
func clientPut(server *bufio.Reader, stdin *bufio.Reader, conn net.Conn) error {
	if err := readUntilPrompt(server, "filename: "); err != nil {
		return err
	}
	filename := promptLine(stdin, "filename: ")
	if _, err := fmt.Fprintln(conn, filename); err != nil {
		return err
	}

	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	n, err := io.Copy(conn, f)
	if err != nil {
		return err
	}
	if _, err := conn.Write([]byte{'\n', 0}); err != nil {
		return err
	}
	fmt.Printf("sent %d bytes from %s\n", n, filename)
	return nil
}

// copyUntilSentinel mirrors the server's own sentinel framing on the
// client side: it copies bytes until the \n\0 marker, discarding the
// marker itself.
func copyUntilSentinel(r *bufio.Reader, w io.Writer) (int64, error) {
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

// readUntilPrompt consumes bytes from r until the exact suffix prompt has
// been seen, echoing everything read along the way. Server prompts have
// no trailing newline, so line-oriented reads cannot detect them.
func readUntilPrompt(r *bufio.Reader, prompt string) error {
	var seen strings.Builder
	suffix := []byte(prompt)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		seen.WriteByte(b)
		if hasSuffix(seen.String(), suffix) {
			text := seen.String()
			fmt.Print(text[:len(text)-len(suffix)])
			return nil
		}
	}
}

// echoUntilPrompt prints server output up to (but not including) the next
// "server> " prompt.
func echoUntilPrompt(r *bufio.Reader) error {
	return readUntilPrompt(r, "server> ")
}

func hasSuffix(s string, suffix []byte) bool {
	return strings.HasSuffix(s, string(suffix))
}

func promptLine(stdin *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := stdin.ReadString('\n')
	return strings.TrimRight(line, "\r\n")
}
