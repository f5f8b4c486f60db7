package protocol

import (
	"reflect"
	"testing"

	"github.com/tinypg/tinypg/internal/decode"
	"github.com/tinypg/tinypg/internal/wire"
)

func buildRowDescription(t *testing.T, name string, oid decode.OID, size int16, modifier int32) []byte {
	t.Helper()
	var buf []byte
	buf = append(buf, wire.BintToBytes(1)[2:]...) // 2-byte column count
	buf = append(buf, name...)
	buf = append(buf, 0)
	buf = append(buf, wire.BintToBytes(0)...)           // table OID
	buf = append(buf, wire.BintToBytes(0)[2:]...)        // attr number
	buf = append(buf, wire.BintToBytes(uint32(oid))...) // type OID
	buf = append(buf, byte(size>>8), byte(size))
	buf = append(buf, wire.BintToBytes(uint32(modifier))...)
	buf = append(buf, 0, 0) // format code
	return buf
}

func TestParseRowDescriptionPlain(t *testing.T) {
	payload := buildRowDescription(t, "id", decode.Int4, 4, -1)
	cols, err := ParseRowDescription(payload)
	if err != nil {
		t.Fatal(err)
	}
	if len(cols) != 1 || cols[0].Name != "id" || cols[0].OID != decode.Int4 {
		t.Fatalf("got %+v", cols)
	}
}

func TestParseRowDescriptionVarchar(t *testing.T) {
	payload := buildRowDescription(t, "name", decode.Varchar, 0, 24) // modifier-4 = 20
	cols, err := ParseRowDescription(payload)
	if err != nil {
		t.Fatal(err)
	}
	if cols[0].Size != 20 {
		t.Errorf("size = %d, want 20", cols[0].Size)
	}
}

func TestParseDataRowWithNull(t *testing.T) {
	var payload []byte
	payload = append(payload, wire.BintToBytes(2)[2:]...)
	payload = append(payload, 0xFF, 0xFF, 0xFF, 0xFF) // null
	value := []byte("42")
	payload = append(payload, wire.BintToBytes(uint32(len(value)))...)
	payload = append(payload, value...)

	row, err := ParseDataRow(payload)
	if err != nil {
		t.Fatal(err)
	}
	if row[0] != nil {
		t.Errorf("row[0] = %v, want nil", row[0])
	}
	if !reflect.DeepEqual(row[1], value) {
		t.Errorf("row[1] = %v, want %v", row[1], value)
	}
}

func TestParseCommandComplete(t *testing.T) {
	cases := map[string]int64{
		"SELECT 3":    3,
		"INSERT 0 1":  1,
		"UPDATE 5":    5,
		"DELETE 0":    0,
		"SHOW":        1,
		"BEGIN":       -1,
		"COMMIT":      -1,
	}
	for tag, want := range cases {
		got := ParseCommandComplete([]byte(tag))
		if got != want {
			t.Errorf("ParseCommandComplete(%q) = %d, want %d", tag, got, want)
		}
	}
}

func TestParseErrorResponse(t *testing.T) {
	var payload []byte
	payload = append(payload, 'S')
	payload = append(payload, "ERROR"...)
	payload = append(payload, 0)
	payload = append(payload, 'C')
	payload = append(payload, "42601"...)
	payload = append(payload, 0)
	payload = append(payload, 'M')
	payload = append(payload, "syntax error"...)
	payload = append(payload, 0)
	payload = append(payload, 0)

	fields := ParseErrorResponse(payload)
	if fields.SQLState() != "42601" {
		t.Errorf("SQLState = %q", fields.SQLState())
	}
	if fields.Message() != "syntax error" {
		t.Errorf("Message = %q", fields.Message())
	}
	if ClassifySQLState(fields.SQLState()) != KindProgramming {
		t.Errorf("classification = %v, want KindProgramming", ClassifySQLState(fields.SQLState()))
	}
}

func TestClassifySQLStateTable(t *testing.T) {
	cases := map[string]Kind{
		"00000": KindDatabase,
		"0A000": KindNotSupported,
		"42601": KindProgramming,
		"22001": KindData,
		"23505": KindIntegrity,
		"25000": KindInternal,
		"XX000": KindInternal,
		"28000": KindOperational,
		"57014": KindOperational,
	}
	for code, want := range cases {
		if got := ClassifySQLState(code); got != want {
			t.Errorf("ClassifySQLState(%q) = %v, want %v", code, got, want)
		}
	}
}
