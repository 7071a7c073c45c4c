// Package nap implements the client side of the NAP file relay protocol,
// used when the bot process and the chat protocol client run on different
// hosts. The protocol is a single TCP exchange: the client sends the file
// name (u32 big-endian length prefix), the file size (u64 big-endian), and
// the file bytes; the server answers with the absolute path the file was
// stored under (u32 big-endian length prefix).
package nap

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"
)

// Client relays files to a NAP server.
type Client struct {
	address string
	timeout time.Duration
	log     *slog.Logger
}

// NewClient creates a relay client for the given host and port.
func NewClient(host string, port int, timeout time.Duration, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		address: net.JoinHostPort(host, fmt.Sprintf("%d", port)),
		timeout: timeout,
		log:     log.With("component", "nap_client"),
	}
}

// Send transfers the file at path to the NAP server and returns the remote
// absolute path reported back by the server.
func (c *Client) Send(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file for relay: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat file for relay: %w", err)
	}

	dialer := &net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.address)
	if err != nil {
		return "", fmt.Errorf("failed to connect to nap server %s: %w", c.address, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetDeadline(deadline); err != nil {
		return "", fmt.Errorf("failed to set connection deadline: %w", err)
	}

	name := []byte(filepath.Base(path))
	if err := binary.Write(conn, binary.BigEndian, uint32(len(name))); err != nil {
		return "", fmt.Errorf("failed to send file name length: %w", err)
	}
	if _, err := conn.Write(name); err != nil {
		return "", fmt.Errorf("failed to send file name: %w", err)
	}
	if err := binary.Write(conn, binary.BigEndian, uint64(info.Size())); err != nil {
		return "", fmt.Errorf("failed to send file size: %w", err)
	}
	if _, err := io.Copy(conn, f); err != nil {
		return "", fmt.Errorf("failed to send file content: %w", err)
	}

	var pathLen uint32
	if err := binary.Read(conn, binary.BigEndian, &pathLen); err != nil {
		return "", fmt.Errorf("failed to read remote path length: %w", err)
	}
	if pathLen == 0 || pathLen > 4096 {
		return "", fmt.Errorf("nap server returned invalid path length %d", pathLen)
	}

	remote := make([]byte, pathLen)
	if _, err := io.ReadFull(conn, remote); err != nil {
		return "", fmt.Errorf("failed to read remote path: %w", err)
	}

	c.log.InfoContext(ctx, "File relayed to nap server", "file", filepath.Base(path), "remote_path", string(remote))
	return string(remote), nil
}
