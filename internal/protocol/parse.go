package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tinypg/tinypg/internal/decode"
	"github.com/tinypg/tinypg/internal/wire"
)

// ParseRowDescription parses a RowDescription payload into column
// descriptors. Per column: NUL-terminated name, 4-byte table OID, 2-byte
// column attribute number, 4-byte type OID, 2-byte size, 4-byte type
// modifier, 2-byte format code.
func ParseRowDescription(payload []byte) ([]ColumnDescriptor, error) {
	if len(payload) < 2 {
		return nil, fmt.Errorf("protocol: RowDescription payload too short")
	}
	count := int(wire.BytesToBint(append([]byte{0, 0}, payload[0:2]...)))
	cols := make([]ColumnDescriptor, 0, count)
	pos := 2

	for i := 0; i < count; i++ {
		nameEnd := pos
		for nameEnd < len(payload) && payload[nameEnd] != 0 {
			nameEnd++
		}
		if nameEnd >= len(payload) {
			return nil, fmt.Errorf("protocol: RowDescription column name not NUL-terminated")
		}
		name := string(payload[pos:nameEnd])
		pos = nameEnd + 1

		if pos+18 > len(payload) {
			return nil, fmt.Errorf("protocol: RowDescription column %d truncated", i)
		}
		// table OID (4) + attr number (2) are skipped.
		typeOID := decode.OID(wire.BytesToBint(payload[pos+6 : pos+10]))
		rawSize := int16(wire.BytesToBint(append([]byte{0, 0}, payload[pos+10:pos+12]...)))
		modifier := int32(wire.BytesToBint(payload[pos+12 : pos+16]))
		pos += 18

		var size, precision, scale int32
		switch typeOID {
		case decode.Varchar:
			size = modifier - 4
			precision, scale = -1, -1
		case decode.Numeric:
			size = int32(rawSize)
			precision = modifier >> 16
			scale = precision - (modifier & 0xFFFF)
		default:
			size = int32(rawSize)
			precision, scale = -1, -1
		}

		cols = append(cols, ColumnDescriptor{
			Name:        name,
			OID:         typeOID,
			DisplaySize: -1,
			Size:        size,
			Precision:   precision,
			Scale:       scale,
			Modifier:    0,
		})
	}

	return cols, nil
}

// ParseDataRow parses a DataRow payload into raw column byte slices (nil
// for SQL NULL), ready for decode.Column.
func ParseDataRow(payload []byte) ([][]byte, error) {
	if len(payload) < 2 {
		return nil, fmt.Errorf("protocol: DataRow payload too short")
	}
	count := int(wire.BytesToBint(append([]byte{0, 0}, payload[0:2]...)))
	row := make([][]byte, 0, count)
	pos := 2

	for i := 0; i < count; i++ {
		if pos+4 > len(payload) {
			return nil, fmt.Errorf("protocol: DataRow column %d truncated", i)
		}
		if payload[pos] == 0xFF && payload[pos+1] == 0xFF && payload[pos+2] == 0xFF && payload[pos+3] == 0xFF {
			row = append(row, nil)
			pos += 4
			continue
		}
		n := int(wire.BytesToBint(payload[pos : pos+4]))
		pos += 4
		if n < 0 || pos+n > len(payload) {
			return nil, fmt.Errorf("protocol: DataRow column %d has invalid length %d", i, n)
		}
		row = append(row, payload[pos:pos+n])
		pos += n
	}

	return row, nil
}

// ParseCommandComplete extracts the rowcount from a CommandComplete tag:
// the final whitespace-separated integer for SELECT/UPDATE/DELETE/INSERT
// (and MOVE/FETCH/COPY), or 1 for SHOW. Other commands, and tags whose
// final field is not an integer, report -1.
func ParseCommandComplete(payload []byte) int64 {
	tag := strings.TrimRight(string(payload), "\x00")
	fields := strings.Fields(tag)
	if len(fields) == 0 {
		return -1
	}

	switch fields[0] {
	case "SHOW":
		return 1
	case "SELECT", "UPDATE", "DELETE", "INSERT", "MOVE", "FETCH", "COPY":
		last := fields[len(fields)-1]
		n, err := strconv.ParseInt(last, 10, 64)
		if err != nil {
			return -1
		}
		return n
	default:
		return -1
	}
}

// ErrorFields is an ErrorResponse payload parsed by field tag, never by
// positional index — see internal/wire.ParseErrorFields for why.
type ErrorFields map[byte]string

// SQLState returns the SQLSTATE ('C') field.
func (f ErrorFields) SQLState() string { return f['C'] }

// Message returns the primary human-readable message ('M') field.
func (f ErrorFields) Message() string { return f['M'] }

// ParseErrorResponse parses an ErrorResponse or NoticeResponse payload.
func ParseErrorResponse(payload []byte) ErrorFields {
	return ErrorFields(wire.ParseErrorFields(payload))
}
