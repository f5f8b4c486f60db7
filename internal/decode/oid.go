// Package decode converts PostgreSQL server text-format column values into
// native Go values, dispatching on the column's type OID.
package decode

// OID is a PostgreSQL Object Identifier naming a built-in or user type.
type OID int

// Built-in type OIDs, from postgresql/src/include/catalog/pg_type.h. Only
// a subset has dedicated conversions below; the rest fall through to
// session-encoded text.
const (
	Bool      OID = 16
	Bytea     OID = 17
	Char      OID = 18
	Name      OID = 19
	Int8      OID = 20
	Int2      OID = 21
	Int2Vec   OID = 22
	Int4      OID = 23
	RegProc   OID = 24
	Text      OID = 25
	OIDType   OID = 26
	Tid       OID = 27
	Xid       OID = 28
	Cid       OID = 29
	VectorOID OID = 30
	JSON      OID = 114
	XML       OID = 142
	PGNodeTree OID = 194
	PointOID  OID = 600
	LSeg      OID = 601
	Path      OID = 602
	Box       OID = 603
	Polygon   OID = 604
	Line      OID = 628
	Float4    OID = 700
	Float8    OID = 701
	AbsTime   OID = 702
	RelTime   OID = 703
	TInterval OID = 704
	Unknown   OID = 705
	CircleOID OID = 718
	Cash      OID = 790
	MacAddr   OID = 829
	Inet      OID = 869
	Cidr      OID = 650
	NameArray   OID = 1003
	Int2Array   OID = 1005
	Int4Array   OID = 1007
	TextArray   OID = 1009
	ArrayOID    OID = 1028
	Float4Array OID = 1021
	ACLItem     OID = 1033
	CStringArray OID = 1263
	BPChar    OID = 1042
	Varchar   OID = 1043
	Date      OID = 1082
	Time      OID = 1083
	Timestamp OID = 1114
	TimestampTZ OID = 1184
	Interval  OID = 1186
	TimeTZ    OID = 1266
	Bit       OID = 1560
	VarBit    OID = 1562
	Numeric   OID = 1700
	RefCursor OID = 1790
	JSONB     OID = 3802
	UUID      OID = 2950
	TSVector  OID = 3614
	TSQuery   OID = 3615
)
