package tinypg

import (
	"net"
	"strconv"
	"strings"
	"testing"

	"github.com/tinypg/tinypg/internal/wire"
)

// fakeBackend is a minimal server-side stand-in driving the same framing
// internal/transport.Conn uses, letting connection.go be exercised
// end-to-end over a real loopback socket without a live PostgreSQL server.
type fakeBackend struct {
	t    *testing.T
	conn net.Conn
}

func (b fakeBackend) rw() pipeRW { return pipeRW{b.conn} }

type pipeRW struct{ net.Conn }

func (p pipeRW) Read(n int) ([]byte, error) {
	buf := make([]byte, n)
	got := 0
	for got < n {
		m, err := p.Conn.Read(buf[got:])
		got += m
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func (p pipeRW) Write(b []byte) error {
	_, err := p.Conn.Write(b)
	return err
}

func (b fakeBackend) send(typ byte, payload []byte) {
	b.t.Helper()
	if err := wire.WriteFrame(b.rw(), typ, payload); err != nil {
		b.t.Fatalf("backend: writing %q: %v", typ, err)
	}
}

func (b fakeBackend) acceptStartupTrust() {
	b.t.Helper()
	if _, err := wire.ReadStartupFrame(b.rw()); err != nil {
		b.t.Fatalf("backend: reading startup: %v", err)
	}
	b.send('R', wire.BintToBytes(0))
	b.send('S', []byte("server_encoding\x00UTF8\x00"))
	b.send('S', []byte("server_version\x0016.1\x00"))
	b.send('K', append(wire.BintToBytes(42), wire.BintToBytes(99)...))
	b.send('Z', []byte{'I'})
}

func (b fakeBackend) expectQueryContaining(t *testing.T, substr string) string {
	t.Helper()
	frame, err := wire.ReadFrame(b.rw())
	if err != nil {
		t.Fatalf("backend: reading query: %v", err)
	}
	if frame.Type != 'Q' {
		t.Fatalf("backend: expected Query, got %q", frame.Type)
	}
	got := string(frame.Payload)
	if !strings.Contains(got, substr) {
		t.Fatalf("backend: query %q does not contain %q", got, substr)
	}
	sync, err := wire.ReadFrame(b.rw())
	if err != nil {
		t.Fatalf("backend: reading trailing sync: %v", err)
	}
	if sync.Type != 'S' {
		t.Fatalf("backend: expected trailing Sync, got %q", sync.Type)
	}
	return got
}

// listenBackend starts a loopback listener and runs handle in a goroutine
// for the first accepted connection, returning the dial address.
func listenBackend(t *testing.T, handle func(fakeBackend)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() {
		conn, err := ln.Accept()
		ln.Close()
		if err != nil {
			return
		}
		defer conn.Close()
		handle(fakeBackend{t: t, conn: conn})
	}()
	return ln.Addr().String()
}

func hostPort(t *testing.T, addr string) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("split host port: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parsing port: %v", err)
	}
	return host, port
}

func TestConnectTrustAuth(t *testing.T) {
	addr := listenBackend(t, func(b fakeBackend) {
		b.acceptStartupTrust()
		// BEGIN for the implicit transaction of the first execute, then
		// the query itself, then autocommit COMMIT+BEGIN.
		b.expectQueryContaining(t, "BEGIN")
		b.send('C', []byte("BEGIN\x00"))
		b.send('Z', []byte{'T'})

		b.expectQueryContaining(t, "SELECT")
		rd := buildTestRowDescription(t, "?column?", 23, 4, -1)
		b.send('T', rd)
		b.send('D', buildTestDataRow(t, []byte("1")))
		b.send('C', []byte("SELECT 1\x00"))
		b.send('Z', []byte{'T'})

		b.expectQueryContaining(t, "COMMIT")
		b.send('C', []byte("COMMIT\x00"))
		b.send('Z', []byte{'I'})
		b.expectQueryContaining(t, "BEGIN")
		b.send('C', []byte("BEGIN\x00"))
		b.send('Z', []byte{'T'})
	})

	host, port := hostPort(t, addr)
	conn, err := Connect(host, port, "alice", "", "testdb", WithAutocommit(true))
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer conn.Close()

	if conn.ServerVersion() != 160100 {
		t.Errorf("ServerVersion = %d, want 160100", conn.ServerVersion())
	}

	cur := conn.Cursor()
	if err := cur.Execute("SELECT 1"); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	row, err := cur.FetchOne()
	if err != nil {
		t.Fatalf("FetchOne: %v", err)
	}
	if row[0] != int64(1) {
		t.Errorf("row[0] = %v, want 1", row[0])
	}
	if cur.RowCount() != 1 {
		t.Errorf("RowCount = %d, want 1", cur.RowCount())
	}
}

func TestConnectSyntaxErrorBecomesProgrammingError(t *testing.T) {
	addr := listenBackend(t, func(b fakeBackend) {
		b.acceptStartupTrust()
		b.expectQueryContaining(t, "BEGIN")
		b.send('C', []byte("BEGIN\x00"))
		b.send('Z', []byte{'T'})

		b.expectQueryContaining(t, "BAD")
		var payload []byte
		payload = append(payload, 'C')
		payload = append(payload, "42601"...)
		payload = append(payload, 0)
		payload = append(payload, 'M')
		payload = append(payload, `syntax error at or near "BAD"`...)
		payload = append(payload, 0, 0)
		b.send('E', payload)
		b.send('Z', []byte{'E'})
	})

	host, port := hostPort(t, addr)
	conn, err := Connect(host, port, "alice", "", "testdb")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer conn.Close()

	cur := conn.Cursor()
	err = cur.Execute("BAD STATEMENT")
	if err == nil {
		t.Fatal("expected error")
	}
	progErr, ok := err.(*ProgrammingError)
	if !ok {
		t.Fatalf("expected *ProgrammingError, got %T: %v", err, err)
	}
	want := `42601:syntax error at or near "BAD"`
	if progErr.Error() != want {
		t.Errorf("message = %q, want %q", progErr.Error(), want)
	}
}

// TestDefaultAutocommitIsFalse verifies Connect's default matches
// micropg.py's Connection.__init__ (autocommit=False): a successful
// statement leaves the connection inside the transaction it opened
// rather than issuing an automatic COMMIT.
func TestDefaultAutocommitIsFalse(t *testing.T) {
	addr := listenBackend(t, func(b fakeBackend) {
		b.acceptStartupTrust()
		b.expectQueryContaining(t, "BEGIN")
		b.send('C', []byte("BEGIN\x00"))
		b.send('Z', []byte{'T'})

		b.expectQueryContaining(t, "SELECT")
		rd := buildTestRowDescription(t, "?column?", 23, 4, -1)
		b.send('T', rd)
		b.send('D', buildTestDataRow(t, []byte("1")))
		b.send('C', []byte("SELECT 1\x00"))
		b.send('Z', []byte{'T'})
	})

	host, port := hostPort(t, addr)
	conn, err := Connect(host, port, "alice", "", "testdb")
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer conn.Close()

	cur := conn.Cursor()
	if err := cur.Execute("SELECT 1"); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if conn.IsolationLevel() != 'T' {
		t.Errorf("IsolationLevel = %q, want 'T' (no automatic commit)", conn.IsolationLevel())
	}
}

func buildTestRowDescription(t *testing.T, name string, oid uint32, size int16, modifier int32) []byte {
	t.Helper()
	var buf []byte
	buf = append(buf, wire.BintToBytes(1)[2:]...)
	buf = append(buf, name...)
	buf = append(buf, 0)
	buf = append(buf, wire.BintToBytes(0)...)
	buf = append(buf, wire.BintToBytes(0)[2:]...)
	buf = append(buf, wire.BintToBytes(oid)...)
	buf = append(buf, byte(size>>8), byte(size))
	buf = append(buf, wire.BintToBytes(uint32(modifier))...)
	buf = append(buf, 0, 0)
	return buf
}

func buildTestDataRow(t *testing.T, values ...[]byte) []byte {
	t.Helper()
	var buf []byte
	buf = append(buf, wire.BintToBytes(uint32(len(values)))[2:]...)
	for _, v := range values {
		buf = append(buf, wire.BintToBytes(uint32(len(v)))...)
		buf = append(buf, v...)
	}
	return buf
}
