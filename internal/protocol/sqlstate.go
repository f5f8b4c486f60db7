package protocol

// Kind classifies a server-reported SQLSTATE into the DB-API-shaped error
// hierarchy used by the root package.
type Kind int

const (
	KindDatabase Kind = iota // generic DatabaseError — fallback
	KindNotSupported
	KindProgramming
	KindData
	KindIntegrity
	KindInternal
	KindOperational
)

// ClassifySQLState maps a 5-character SQLSTATE to an error Kind using the
// class-prefix table from the PostgreSQL error-codes appendix, matching
// the "which DatabaseError subclass does this deserve" judgement calls a
// driver has to make since PostgreSQL itself doesn't encode that.
func ClassifySQLState(code string) Kind {
	if len(code) < 2 {
		return KindDatabase
	}
	class := code[:2]

	switch class {
	case "0A":
		return KindNotSupported
	case "20", "21", "3D", "3F", "40", "42", "44":
		return KindProgramming
	case "22":
		return KindData
	case "23":
		return KindIntegrity
	case "24", "25", "2B", "2D", "2F", "38", "39", "3B":
		return KindInternal
	case "26", "27", "28", "34":
		return KindOperational
	}

	switch class[0] {
	case 'P', 'X', 'F':
		return KindInternal
	case '5', 'H':
		return KindOperational
	}

	return KindDatabase
}
