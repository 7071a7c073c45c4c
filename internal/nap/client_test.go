package nap_test

import (
	"context"
	"encoding/binary"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chengmaomao/sendblessings/internal/nap"
)

// startServer runs a one-shot in-process NAP server. It reads one upload,
// reports it on the returned channel, and answers with remotePath.
type upload struct {
	name string
	data []byte
}

func startServer(t *testing.T, remotePath string) (host string, port int, uploads <-chan upload) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	ch := make(chan upload, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		var nameLen uint32
		if err := binary.Read(conn, binary.BigEndian, &nameLen); err != nil {
			return
		}
		name := make([]byte, nameLen)
		if _, err := io.ReadFull(conn, name); err != nil {
			return
		}

		var size uint64
		if err := binary.Read(conn, binary.BigEndian, &size); err != nil {
			return
		}
		data := make([]byte, size)
		if _, err := io.ReadFull(conn, data); err != nil {
			return
		}

		ch <- upload{name: string(name), data: data}

		reply := []byte(remotePath)
		if err := binary.Write(conn, binary.BigEndian, uint32(len(reply))); err != nil {
			return
		}
		conn.Write(reply)
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return addr.IP.String(), addr.Port, ch
}

func TestSendRelaysFileAndReturnsRemotePath(t *testing.T) {
	t.Parallel()

	content := []byte("fake image bytes")
	local := filepath.Join(t.TempDir(), "blessing_image_20260101_080000_deadbeef.png")
	if err := os.WriteFile(local, content, 0o644); err != nil {
		t.Fatal(err)
	}

	host, port, uploads := startServer(t, "/srv/nap/blessing_image_20260101_080000_deadbeef.png")
	client := nap.NewClient(host, port, 5*time.Second, nil)

	remote, err := client.Send(context.Background(), local)
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if remote != "/srv/nap/blessing_image_20260101_080000_deadbeef.png" {
		t.Errorf("Send() = %q, want server-reported path", remote)
	}

	select {
	case got := <-uploads:
		if got.name != filepath.Base(local) {
			t.Errorf("server received name %q, want %q", got.name, filepath.Base(local))
		}
		if string(got.data) != string(content) {
			t.Errorf("server received %d bytes %q, want %q", len(got.data), got.data, content)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server never received the upload")
	}
}

func TestSendRejectsInvalidReplyLength(t *testing.T) {
	t.Parallel()

	local := filepath.Join(t.TempDir(), "blessing_image_x.png")
	if err := os.WriteFile(local, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		// Drain the upload, then answer with a zero-length path.
		io.Copy(io.Discard, io.LimitReader(conn, 4+int64(len("blessing_image_x.png"))+8+1))
		binary.Write(conn, binary.BigEndian, uint32(0))
	}()

	addr := ln.Addr().(*net.TCPAddr)
	client := nap.NewClient(addr.IP.String(), addr.Port, 2*time.Second, nil)

	if _, err := client.Send(context.Background(), local); err == nil {
		t.Fatal("Send() accepted a zero-length remote path")
	}
}

func TestSendFailsWhenFileMissing(t *testing.T) {
	t.Parallel()

	client := nap.NewClient("127.0.0.1", 1, time.Second, nil)
	if _, err := client.Send(context.Background(), filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Fatal("Send() succeeded for a missing file")
	}
}
