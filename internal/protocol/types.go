// Package protocol implements the PostgreSQL simple-query message loop:
// frame dispatch, row/column parsing, and SQLSTATE classification. It sits
// above internal/wire and internal/auth and is driven by the root tinypg
// package, which supplies a Sink to receive parsed results.
package protocol

import "github.com/tinypg/tinypg/internal/decode"

// Message type codes used in the dispatch switch (protocol v3.0).
const (
	TypeAuthentication     byte = 'R'
	TypeParameterStatus    byte = 'S'
	TypeBackendKeyData     byte = 'K'
	TypeReadyForQuery      byte = 'Z'
	TypeRowDescription     byte = 'T'
	TypeDataRow            byte = 'D'
	TypeCommandComplete    byte = 'C'
	TypeNoticeResponse     byte = 'N'
	TypeErrorResponse      byte = 'E'
	TypeCopyOutResponse    byte = 'H'
	TypeCopyData           byte = 'd'
	TypeCopyDone           byte = 'c'
	TypeCopyInResponse     byte = 'G'
)

// Transaction status bytes, the payload of ReadyForQuery.
const (
	TxIdle    byte = 'I'
	TxOpen    byte = 'T'
	TxFailed  byte = 'E'
)

// ColumnDescriptor mirrors the 7-field record PostgreSQL's RowDescription
// carries per column. Only Name, OID, Size, Precision, and Scale are ever
// populated from the wire; DisplaySize and Modifier are placeholders kept
// for shape-compatibility with callers expecting all seven fields.
type ColumnDescriptor struct {
	Name        string
	OID         decode.OID
	DisplaySize int32
	Size        int32
	Precision   int32
	Scale       int32
	Modifier    int32
}

// Sink receives the parsed results of one simple-query batch. The root
// package's Cursor implements this to accumulate description, rows, and
// rowcount.
type Sink interface {
	SetDescription(cols []ColumnDescriptor)
	AppendRow(row []any)
	SetRowCount(n int64)
}

// CopySink is implemented by a Sink that also wants to participate in a
// COPY exchange: WriteCopyData receives data pushed by CopyOut/CopyBoth,
// and ReadCopyData supplies data to push for CopyIn, returning ok=false
// once exhausted.
type CopySink interface {
	WriteCopyData(data []byte) error
	ReadCopyData(max int) (data []byte, ok bool)
}
