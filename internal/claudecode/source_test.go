package claudecode

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"path/filepath"
	"testing"
	"time"
)

// startFakeRunner listens on a socket under dir and answers each
// connection by decoding the query request and streaming the given
// records. It returns the socket path.
func startFakeRunner(t *testing.T, records []string, gotRequests chan<- queryRequest) string {
	t.Helper()

	socketPath := filepath.Join(t.TempDir(), "agent.sock")
	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() {
		_ = listener.Close()
	})

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()

				reader := bufio.NewReader(conn)
				line, err := reader.ReadBytes('\n')
				if err != nil {
					return
				}

				var req queryRequest
				if err := json.Unmarshal(line, &req); err != nil {
					return
				}
				if gotRequests != nil {
					gotRequests <- req
				}

				for _, record := range records {
					if _, err := conn.Write([]byte(record + "\n")); err != nil {
						return
					}
				}
			}(conn)
		}
	}()

	return socketPath
}

func TestSocketSourceDefaultPath(t *testing.T) {
	source := NewSocketSource("")
	if source.Path() != DefaultSocketPath {
		t.Errorf("path = %q, want %q", source.Path(), DefaultSocketPath)
	}
}

func TestSocketSourceMissingSocket(t *testing.T) {
	source := NewSocketSource(filepath.Join(t.TempDir(), "absent.sock"))

	_, err := source.Open(context.Background(), "hello", QueryOptions{})
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("error = %v, want NotFoundError", err)
	}
}

func TestSocketSourceRoundtrip(t *testing.T) {
	requests := make(chan queryRequest, 1)
	socketPath := startFakeRunner(t, []string{
		`{"type":"system","subtype":"init"}`,
		`{"type":"assistant","message":{"content":[{"type":"text","text":"done"}]}}`,
		`{"type":"exit","exit_code":0}`,
	}, requests)

	source := NewSocketSource(socketPath)
	opts := QueryOptions{Cwd: "/srv/work", PermissionMode: "acceptEdits", MaxTurns: 5}

	stream, err := source.Open(context.Background(), "run the tests", opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer stream.Close()

	select {
	case req := <-requests:
		if req.Prompt != "run the tests" {
			t.Errorf("prompt = %q", req.Prompt)
		}
		if req.Options.Cwd != "/srv/work" || req.Options.MaxTurns != 5 {
			t.Errorf("options = %+v", req.Options)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("runner never received the query")
	}

	ctx := context.Background()
	var types []string
	for {
		msg, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		types = append(types, TypeName(msg))
	}

	if len(types) != 2 || types[0] != "system" || types[1] != "assistant" {
		t.Errorf("types = %v", types)
	}
}

func TestSocketSourceRunnerFailure(t *testing.T) {
	socketPath := startFakeRunner(t, []string{
		`{"type":"exit","exit_code":1,"stderr":"agent crashed"}`,
	}, nil)

	source := NewSocketSource(socketPath)
	stream, err := source.Open(context.Background(), "hello", QueryOptions{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer stream.Close()

	_, err = stream.Next(context.Background())
	var exitErr *ProcessExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("error = %v, want ProcessExitError", err)
	}
	if exitErr.ExitCode != 1 || exitErr.Stderr != "agent crashed" {
		t.Errorf("exit error = %#v", exitErr)
	}
}
