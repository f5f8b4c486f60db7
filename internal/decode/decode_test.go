package decode

import (
	"reflect"
	"testing"
)

func TestColumnNull(t *testing.T) {
	v, err := Column(nil, Int4, "UTF8")
	if err != nil || v != nil {
		t.Fatalf("Column(nil) = %v, %v; want nil, nil", v, err)
	}
}

func TestColumnBool(t *testing.T) {
	cases := map[string]bool{"t": true, "f": false}
	for text, want := range cases {
		v, err := Column([]byte(text), Bool, "UTF8")
		if err != nil {
			t.Fatalf("Column(%q): %v", text, err)
		}
		if v != want {
			t.Errorf("Column(%q) = %v, want %v", text, v, want)
		}
	}
}

func TestColumnIntegers(t *testing.T) {
	for _, oid := range []OID{Int2, Int4, Int8, OIDType} {
		v, err := Column([]byte("-42"), oid, "UTF8")
		if err != nil {
			t.Fatalf("oid %d: %v", oid, err)
		}
		if v != int64(-42) {
			t.Errorf("oid %d: got %v, want -42", oid, v)
		}
	}
}

func TestColumnFloat(t *testing.T) {
	v, err := Column([]byte("1.5"), Float8, "UTF8")
	if err != nil {
		t.Fatal(err)
	}
	if v != 1.5 {
		t.Errorf("got %v, want 1.5", v)
	}
}

func TestColumnBytea(t *testing.T) {
	v, err := Column([]byte(`\x0102`), Bytea, "UTF8")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(v, []byte{1, 2}) {
		t.Errorf("got %v, want [1 2]", v)
	}
}

func TestColumnByteaMissingPrefix(t *testing.T) {
	if _, err := Column([]byte("0102"), Bytea, "UTF8"); err == nil {
		t.Fatal("expected error for bytea payload without \\x prefix")
	}
}

func TestColumnText(t *testing.T) {
	for _, oid := range []OID{Text, Varchar, BPChar, Name, Char, JSON, JSONB} {
		v, err := Column([]byte("hello"), oid, "UTF8")
		if err != nil {
			t.Fatalf("oid %d: %v", oid, err)
		}
		if v != "hello" {
			t.Errorf("oid %d: got %v", oid, v)
		}
	}
}

func TestColumnIntArray(t *testing.T) {
	v, err := Column([]byte("{1,2,3}"), Int4Array, "UTF8")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(v, []int64{1, 2, 3}) {
		t.Errorf("got %v", v)
	}
}

func TestColumnEmptyIntArray(t *testing.T) {
	v, err := Column([]byte("{}"), Int4Array, "UTF8")
	if err != nil {
		t.Fatal(err)
	}
	if len(v.([]int64)) != 0 {
		t.Errorf("got %v, want empty", v)
	}
}

func TestColumnTextArray(t *testing.T) {
	v, err := Column([]byte("{a,b,c}"), TextArray, "UTF8")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(v, []string{"a", "b", "c"}) {
		t.Errorf("got %v", v)
	}
}

func TestColumnFloatArray(t *testing.T) {
	v, err := Column([]byte("{1.1,2.2}"), Float4Array, "UTF8")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(v, []float64{1.1, 2.2}) {
		t.Errorf("got %v", v)
	}
}

func TestColumnInt2Vector(t *testing.T) {
	v, err := Column([]byte("1 2 3"), Int2Vec, "UTF8")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(v, []int64{1, 2, 3}) {
		t.Errorf("got %v", v)
	}
}

func TestColumnPoint(t *testing.T) {
	v, err := Column([]byte("(1.5,2.5)"), PointOID, "UTF8")
	if err != nil {
		t.Fatal(err)
	}
	if v != (Point{X: 1.5, Y: 2.5}) {
		t.Errorf("got %v", v)
	}
}

func TestColumnCircle(t *testing.T) {
	v, err := Column([]byte("<(1,2),3.5>"), CircleOID, "UTF8")
	if err != nil {
		t.Fatal(err)
	}
	want := Circle{Center: Point{X: 1, Y: 2}, Radius: 3.5}
	if v != want {
		t.Errorf("got %v, want %v", v, want)
	}
}

func TestColumnGeometryPassThrough(t *testing.T) {
	for _, oid := range []OID{LSeg, Path, Box, Polygon, Line} {
		v, err := Column([]byte("((0,0),(1,1))"), oid, "UTF8")
		if err != nil {
			t.Fatalf("oid %d: %v", oid, err)
		}
		if v != "((0,0),(1,1))" {
			t.Errorf("oid %d: got %v", oid, v)
		}
	}
}

func TestColumnUnknownOIDPassesThroughText(t *testing.T) {
	v, err := Column([]byte("whatever"), OID(999999), "UTF8")
	if err != nil {
		t.Fatal(err)
	}
	if v != "whatever" {
		t.Errorf("got %v", v)
	}
}
