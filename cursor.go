package tinypg

import (
	"io"

	"github.com/tinypg/tinypg/internal/protocol"
)

// Description mirrors protocol.ColumnDescriptor in the public API so
// callers never need to import internal/protocol.
type Description struct {
	Name      string
	OID       int
	Size      int32
	Precision int32
	Scale     int32
}

// Cursor is a short-lived, non-concurrency-safe view bound to a
// Connection: submit SQL, then fetch decoded rows.
type Cursor struct {
	conn   *Connection
	closed bool

	description []Description
	rows        [][]any
	rowIdx      int
	rowcount    int64
	arraysize   int
	lastQuery   string

	// copyReader/copyWriter back ReadCopyData/WriteCopyData when the
	// cursor is used as a COPY sink; nil unless set by the caller.
	copyReader io.Reader
	copyWriter io.Writer
}

// Description returns the column descriptors of the last executed query.
func (cur *Cursor) Description() []Description { return cur.description }

// RowCount returns the rowcount of the last executed statement: rows
// returned for SELECT, rows affected for UPDATE/DELETE/INSERT, 1 for
// SHOW, -1 when not applicable.
func (cur *Cursor) RowCount() int64 { return cur.rowcount }

// Closed reports whether Close has been called on this cursor.
func (cur *Cursor) Closed() bool { return cur.closed }

// QueryText returns the last SQL text submitted via Execute, after
// parameter substitution.
func (cur *Cursor) QueryText() string { return cur.lastQuery }

// ArraySize is the fetchmany default batch size hint.
func (cur *Cursor) ArraySize() int { return cur.arraysize }

// SetArraySize sets the fetchmany default batch size hint.
func (cur *Cursor) SetArraySize(n int) { cur.arraysize = n }

// Close detaches the cursor from its connection. Subsequent Execute or
// fetch calls return a ProgrammingError.
func (cur *Cursor) Close() error {
	cur.closed = true
	return nil
}

// Execute escapes args into q at %s placeholders, submits the resulting
// SQL, and resets description/rows/rowcount for the new result.
func (cur *Cursor) Execute(q string, args ...any) error {
	if cur.closed {
		return errCursorClosed()
	}
	if cur.conn.Closed() {
		return errConnectionClosed()
	}

	final, err := substituteParams(q, args, cur.conn.escapers)
	if err != nil {
		return err
	}

	cur.description = nil
	cur.rows = nil
	cur.rowIdx = 0
	cur.rowcount = -1
	cur.lastQuery = final

	return cur.conn.execute(final, cur)
}

// ExecuteMany runs Execute once per element of argSets, accumulating the
// total rowcount across all statements.
func (cur *Cursor) ExecuteMany(q string, argSets [][]any) error {
	var total int64
	for _, args := range argSets {
		if err := cur.Execute(q, args...); err != nil {
			return err
		}
		if cur.rowcount > 0 {
			total += cur.rowcount
		}
	}
	cur.rowcount = total
	return nil
}

// FetchOne returns the next row, or nil if the buffer is exhausted.
func (cur *Cursor) FetchOne() ([]any, error) {
	if cur.closed {
		return nil, errCursorClosed()
	}
	if cur.rowIdx >= len(cur.rows) {
		return nil, nil
	}
	row := cur.rows[cur.rowIdx]
	cur.rowIdx++
	return row, nil
}

// FetchMany returns up to n rows from the buffer.
func (cur *Cursor) FetchMany(n int) ([][]any, error) {
	if cur.closed {
		return nil, errCursorClosed()
	}
	if n <= 0 {
		n = cur.arraysize
	}
	end := cur.rowIdx + n
	if end > len(cur.rows) {
		end = len(cur.rows)
	}
	out := cur.rows[cur.rowIdx:end]
	cur.rowIdx = end
	return out, nil
}

// FetchAll drains the remaining rows in the buffer.
func (cur *Cursor) FetchAll() ([][]any, error) {
	if cur.closed {
		return nil, errCursorClosed()
	}
	out := cur.rows[cur.rowIdx:]
	cur.rowIdx = len(cur.rows)
	return out, nil
}

// Next implements row-at-a-time iteration: ok is false once exhausted.
func (cur *Cursor) Next() (row []any, ok bool) {
	if cur.rowIdx >= len(cur.rows) {
		return nil, false
	}
	row = cur.rows[cur.rowIdx]
	cur.rowIdx++
	return row, true
}

// SetDescription implements protocol.Sink.
func (cur *Cursor) SetDescription(cols []protocol.ColumnDescriptor) {
	desc := make([]Description, len(cols))
	for i, c := range cols {
		desc[i] = Description{
			Name:      c.Name,
			OID:       int(c.OID),
			Size:      c.Size,
			Precision: c.Precision,
			Scale:     c.Scale,
		}
	}
	cur.description = desc
}

// AppendRow implements protocol.Sink.
func (cur *Cursor) AppendRow(row []any) {
	cur.rows = append(cur.rows, row)
}

// SetRowCount implements protocol.Sink.
func (cur *Cursor) SetRowCount(n int64) {
	cur.rowcount = n
}

// WriteCopyData implements protocol.CopySink for COPY OUT/BOTH: server
// data is forwarded to the io.Writer set by SetCopyWriter.
func (cur *Cursor) WriteCopyData(data []byte) error {
	if cur.copyWriter == nil {
		return nil
	}
	_, err := cur.copyWriter.Write(data)
	return err
}

// ReadCopyData implements protocol.CopySink for COPY IN: chunks are
// pulled from the io.Reader set by SetCopyReader until EOF.
func (cur *Cursor) ReadCopyData(max int) (data []byte, ok bool) {
	if cur.copyReader == nil {
		return nil, false
	}
	buf := make([]byte, max)
	n, err := cur.copyReader.Read(buf)
	if n == 0 && err != nil {
		return nil, false
	}
	return buf[:n], true
}

// SetCopyReader supplies the data source for a COPY IN (client-to-server)
// statement executed next.
func (cur *Cursor) SetCopyReader(r io.Reader) { cur.copyReader = r }

// SetCopyWriter supplies the sink for a COPY OUT (server-to-client)
// statement executed next.
func (cur *Cursor) SetCopyWriter(w io.Writer) { cur.copyWriter = w }
