package transport

import (
	"io"
	"net"
	"testing"
	"time"
)

func pipeConns(t *testing.T) (*Conn, net.Conn) {
	t.Helper()
	client, server := net.Pipe()
	return &Conn{nc: client}, server
}

func TestWriteRead(t *testing.T) {
	c, server := pipeConns(t)
	defer server.Close()

	go func() {
		buf := make([]byte, 5)
		io.ReadFull(server, buf)
		server.Write(buf)
	}()

	if err := c.Write([]byte("hello")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := c.Read(5)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("got %q", got)
	}
}

func TestReadAfterCloseIsLostConnection(t *testing.T) {
	c, server := pipeConns(t)
	server.Close()
	c.Close()

	if _, err := c.Read(1); err == nil {
		t.Fatal("expected error reading from a closed connection")
	}
}

func TestPingTimeoutMeansAlive(t *testing.T) {
	c, server := pipeConns(t)
	defer server.Close()

	if err := c.Ping(20 * time.Millisecond); err != nil {
		t.Errorf("Ping on idle-but-alive connection returned error: %v", err)
	}
}

func TestPingDeadConnection(t *testing.T) {
	c, server := pipeConns(t)
	server.Close()
	// A synchronous net.Pipe reports EOF, not a timeout, once the peer
	// closes — Ping must surface that as a non-nil error.
	if err := c.Ping(20 * time.Millisecond); err == nil {
		t.Error("Ping on a closed peer connection should return an error")
	}
}
