// Package tinypg is a minimal PostgreSQL client driver: connect, get a
// cursor, execute text SQL through the simple query protocol, fetch
// decoded rows. It speaks protocol v3.0 directly — no cgo, no external
// driver dependency.
package tinypg

import (
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tinypg/tinypg/internal/metrics"
	"github.com/tinypg/tinypg/internal/protocol"
	"github.com/tinypg/tinypg/internal/transport"
	"github.com/tinypg/tinypg/internal/wire"
)

// DB-API-shaped module constants.
const (
	APILevel     = "2.0"
	ThreadSafety = 1
	ParamStyle   = "format"
)

// Connection owns one protocol-v3.0 session with a PostgreSQL backend. It
// is the sole writer of the wire stream; callers must serialize cursor
// use on a shared Connection themselves.
type Connection struct {
	mu sync.Mutex

	host     string
	port     int
	user     string
	password string
	database string

	opts connectOptions

	conn *transport.Conn

	encoding      string
	serverVersion int
	timezone      string
	txStatus      byte
	autocommit    bool
	closed        bool

	escapers map[reflect.Kind]Escaper
	metrics  *metrics.Collector
}

// Connect opens a TCP connection to host:port, optionally upgrades to
// TLS, performs the startup and authentication exchange, and drains the
// initial ParameterStatus/BackendKeyData/ReadyForQuery sequence.
func Connect(host string, port int, user, password, database string, options ...Option) (*Connection, error) {
	var o connectOptions
	for _, opt := range options {
		opt(&o)
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	conn, err := transport.Dial(addr, o.timeout)
	if err != nil {
		return nil, &OperationalError{DatabaseError{Error{Message: fmt.Sprintf("connecting to %s: %v", addr, err), Code: "08001"}}}
	}

	if o.tlsConfig != nil {
		if err := conn.NegotiateTLS(o.tlsConfig); err != nil {
			conn.Close()
			return nil, &OperationalError{DatabaseError{Error{Message: err.Error(), Code: "08001"}}}
		}
	}

	escapers := make(map[reflect.Kind]Escaper, len(defaultEscapers))
	for k, v := range defaultEscapers {
		escapers[k] = v
	}
	for k, v := range o.escapers {
		escapers[k] = v
	}

	c := &Connection{
		host:       host,
		port:       port,
		user:       user,
		password:   password,
		database:   database,
		opts:       o,
		conn:       conn,
		encoding:   "UTF8",
		autocommit: o.autocommit,
		escapers:   escapers,
		metrics:    o.metrics,
	}

	if err := c.startup(); err != nil {
		conn.Close()
		return nil, err
	}

	if c.metrics != nil {
		c.metrics.ConnectionOpened(database)
	}

	return c, nil
}

func (c *Connection) startup() error {
	start := time.Now()
	body := buildStartupMessage(c.user, c.database)
	params := protocol.AuthParams{User: c.user, Password: c.password}

	paramStatus, _, _, txStatus, err := protocol.Startup(c.conn, params, body)
	if err != nil {
		if se, ok := err.(*protocol.ServerError); ok {
			return serverError(se.Fields)
		}
		return &OperationalError{DatabaseError{Error{Message: err.Error(), Code: "08003"}}}
	}

	if enc, ok := paramStatus["server_encoding"]; ok {
		c.encoding = enc
	}
	if tz, ok := paramStatus["TimeZone"]; ok {
		c.timezone = tz
	}
	if ver, ok := paramStatus["server_version"]; ok {
		c.serverVersion = parseServerVersion(ver)
	}
	c.txStatus = txStatus

	if c.metrics != nil {
		c.metrics.AuthDuration(c.database, "startup", time.Since(start))
		c.metrics.SetTransactionStatus(c.database, c.txStatus)
	}

	slog.Info("tinypg: connected", "host", c.host, "port", c.port, "database", c.database, "encoding", c.encoding, "server_version", c.serverVersion)
	return nil
}

// parseServerVersion parses up to three dot-separated components into
// major*10000 + minor*100 + patch, PostgreSQL's traditional integer
// version encoding.
func parseServerVersion(v string) int {
	// Trim anything past the numeric prefix, e.g. "16.1 (Debian ...)".
	if i := strings.IndexAny(v, " ("); i >= 0 {
		v = v[:i]
	}
	parts := strings.SplitN(v, ".", 3)
	var nums [3]int
	for i, p := range parts {
		if i >= 3 {
			break
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			continue
		}
		nums[i] = n
	}
	return nums[0]*10000 + nums[1]*100 + nums[2]
}

// IsDirty reports whether the connection is currently inside a
// transaction (open or failed).
func (c *Connection) IsDirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.txStatus != protocol.TxIdle
}

// IsolationLevel reports the transaction status byte: 'I', 'T', or 'E'.
func (c *Connection) IsolationLevel() byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.txStatus
}

// ServerVersion returns the server's version as major*10000+minor*100+patch.
func (c *Connection) ServerVersion() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.serverVersion
}

// SetAutocommit toggles whether execute() commits immediately after each
// statement.
func (c *Connection) SetAutocommit(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autocommit = v
}

// Cursor returns a new Cursor bound to this connection.
func (c *Connection) Cursor() *Cursor {
	return &Cursor{conn: c, arraysize: 1}
}

// Close sends Terminate and closes the socket. Safe to call more than
// once.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	wire.WriteFrame(c.conn, 'X', nil)
	err := c.conn.Close()
	if c.metrics != nil {
		c.metrics.ConnectionClosed(c.database)
	}
	return err
}

// Closed reports whether Close has been called.
func (c *Connection) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Reopen closes the current socket (if any) and performs a fresh
// connect+startup against the same endpoint and credentials.
func (c *Connection) Reopen() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
	}

	addr := fmt.Sprintf("%s:%d", c.host, c.port)
	conn, err := transport.Dial(addr, c.opts.timeout)
	if err != nil {
		return &OperationalError{DatabaseError{Error{Message: fmt.Sprintf("reconnecting to %s: %v", addr, err), Code: "08001"}}}
	}
	if c.opts.tlsConfig != nil {
		if err := conn.NegotiateTLS(c.opts.tlsConfig); err != nil {
			conn.Close()
			return &OperationalError{DatabaseError{Error{Message: err.Error(), Code: "08001"}}}
		}
	}

	c.conn = conn
	c.closed = false
	if err := c.startup(); err != nil {
		return err
	}

	if c.metrics != nil {
		c.metrics.Reconnected(c.database)
	}
	return nil
}

// Ping verifies the connection is still usable by running a trivial
// statement, without disturbing autocommit or transaction-bracketing
// behavior for the caller's own statements. It is the liveness probe
// internal/reconnect.Watcher drives.
func (c *Connection) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errConnectionClosed()
	}
	_, err := c.runQuery("SELECT 1")
	return err
}

// Begin issues BEGIN, rolling back first if the connection is in a
// failed-transaction state.
func (c *Connection) Begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.begin()
}

func (c *Connection) begin() error {
	if c.txStatus == protocol.TxFailed {
		if _, err := c.runQuery("ROLLBACK"); err != nil {
			return err
		}
	}
	_, err := c.runQuery("BEGIN")
	return err
}

// Commit sends COMMIT, then immediately opens a new transaction so that,
// per the connection state-machine invariant, the state byte is 'T'
// between statements even with autocommit disabled.
func (c *Connection) Commit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.runQuery("COMMIT"); err != nil {
		return err
	}
	return c.begin()
}

// Rollback sends ROLLBACK, then opens a new transaction.
func (c *Connection) Rollback() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.runQuery("ROLLBACK"); err != nil {
		return err
	}
	return c.begin()
}

// execute runs q through the message loop, filling sink, honoring the
// implicit-transaction and autocommit rules of §4.8.
func (c *Connection) execute(q string, sink protocol.Sink) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errConnectionClosed()
	}
	if c.txStatus != protocol.TxOpen {
		if err := c.begin(); err != nil {
			return err
		}
	}

	start := time.Now()
	txStatus, err := protocol.Query(c.conn, q, sink, c.encoding)
	c.txStatus = txStatus
	if c.metrics != nil {
		c.metrics.QueryDuration(c.database, time.Since(start))
		c.metrics.SetTransactionStatus(c.database, c.txStatus)
	}

	if err != nil {
		if se, ok := err.(*protocol.ServerError); ok {
			if c.metrics != nil && len(se.Fields.SQLState()) >= 2 {
				c.metrics.ServerError(c.database, se.Fields.SQLState()[:2])
			}
			err = serverError(se.Fields)
		} else {
			err = &OperationalError{DatabaseError{Error{Message: err.Error(), Code: "08003"}}}
		}
	}

	if err == nil && c.autocommit {
		if cerr := c.commitLocked(); cerr != nil {
			return cerr
		}
	}

	return err
}

func (c *Connection) commitLocked() error {
	if _, err := c.runQuery("COMMIT"); err != nil {
		return err
	}
	return c.begin()
}

// runQuery issues a bare statement with a throwaway sink, used internally
// by the transaction bracketing logic (BEGIN/COMMIT/ROLLBACK) and by Ping
// (SELECT 1).
func (c *Connection) runQuery(q string) (byte, error) {
	sink := &discardSink{}
	txStatus, err := protocol.Query(c.conn, q, sink, c.encoding)
	c.txStatus = txStatus
	if err != nil {
		if se, ok := err.(*protocol.ServerError); ok {
			return txStatus, serverError(se.Fields)
		}
		return txStatus, &OperationalError{DatabaseError{Error{Message: err.Error(), Code: "08003"}}}
	}
	return txStatus, nil
}

type discardSink struct{}

func (discardSink) SetDescription(cols []protocol.ColumnDescriptor) {}
func (discardSink) AppendRow(row []any)                             {}
func (discardSink) SetRowCount(n int64)                             {}
