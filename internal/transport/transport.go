// Package transport implements the TCP (optionally TLS-upgraded) connection
// to a PostgreSQL backend: blocking, loop-until-complete reads and writes,
// an optional whole-operation timeout, and the SSLRequest preamble.
package transport

import (
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/tinypg/tinypg/internal/wire"
)

const sslRequestCode = 80877103

// Conn wraps a net.Conn with the loop-until-complete read/write semantics
// the protocol engine depends on, and implements wire.Reader/wire.Writer.
type Conn struct {
	nc      net.Conn
	timeout time.Duration
}

// Dial opens a TCP connection to addr. If timeout is nonzero it governs
// both the dial and every subsequent Read/Write call.
func Dial(addr string, timeout time.Duration) (*Conn, error) {
	d := net.Dialer{Timeout: timeout}
	nc, err := d.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}
	return &Conn{nc: nc, timeout: timeout}, nil
}

// NegotiateTLS sends the SSLRequest preamble and, if the server agrees,
// upgrades the connection in place. conf may be nil to use defaults other
// than InsecureSkipVerify, which callers must set explicitly if needed.
func (c *Conn) NegotiateTLS(conf *tls.Config) error {
	req := wire.BintToBytes(8)
	req = append(req, wire.BintToBytes(sslRequestCode)...)
	if err := c.Write(req); err != nil {
		return fmt.Errorf("transport: sending SSLRequest: %w", err)
	}

	resp, err := c.Read(1)
	if err != nil {
		return fmt.Errorf("transport: reading SSLRequest reply: %w", err)
	}
	if resp[0] != 'S' {
		return fmt.Errorf("transport: server refuses SSL")
	}

	tlsConf := conf
	if tlsConf == nil {
		tlsConf = &tls.Config{}
	}
	tlsConn := tls.Client(c.nc, tlsConf)
	if c.timeout > 0 {
		tlsConn.SetDeadline(time.Now().Add(c.timeout))
	}
	if err := tlsConn.Handshake(); err != nil {
		if c.timeout > 0 {
			tlsConn.SetDeadline(time.Time{})
		}
		return fmt.Errorf("transport: TLS handshake: %w", err)
	}
	if c.timeout > 0 {
		tlsConn.SetDeadline(time.Time{})
	}
	c.nc = tlsConn
	return nil
}

// Read blocks until exactly n bytes have been read, looping over partial
// reads. A closed or reset connection surfaces as an error the caller
// should treat as "lost connection".
func (c *Conn) Read(n int) ([]byte, error) {
	if c.nc == nil {
		return nil, fmt.Errorf("transport: lost connection")
	}
	if c.timeout > 0 {
		c.nc.SetReadDeadline(time.Now().Add(c.timeout))
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(c.nc, buf); err != nil {
		return nil, fmt.Errorf("transport: can't recv packets: %w", err)
	}
	return buf, nil
}

// Write blocks until all of b has been written, looping over partial
// writes (net.Conn.Write already guarantees this for a single call, but
// the explicit loop documents and protects the invariant).
func (c *Conn) Write(b []byte) error {
	if c.nc == nil {
		return fmt.Errorf("transport: lost connection")
	}
	if c.timeout > 0 {
		c.nc.SetWriteDeadline(time.Now().Add(c.timeout))
	}
	n := 0
	for n < len(b) {
		m, err := c.nc.Write(b[n:])
		if err != nil {
			return fmt.Errorf("transport: write: %w", err)
		}
		n += m
	}
	return nil
}

// Ping performs a lightweight liveness probe: a 1-byte read with a short
// deadline. A timeout means the connection is alive with nothing pending;
// any other error means it is dead. Only safe between statements, never
// mid-protocol-exchange.
func (c *Conn) Ping(probe time.Duration) error {
	if c.nc == nil {
		return fmt.Errorf("transport: lost connection")
	}
	c.nc.SetReadDeadline(time.Now().Add(probe))
	buf := make([]byte, 1)
	_, err := c.nc.Read(buf)
	c.nc.SetReadDeadline(time.Time{})
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return nil
		}
		return err
	}
	return nil
}

// Close closes the underlying network connection.
func (c *Conn) Close() error {
	if c.nc == nil {
		return nil
	}
	err := c.nc.Close()
	c.nc = nil
	return err
}

// Closed reports whether the connection has already been torn down.
func (c *Conn) Closed() bool {
	return c.nc == nil
}
