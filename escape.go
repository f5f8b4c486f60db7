package tinypg

import (
	"fmt"
	"reflect"
	"strings"
)

// Escaper converts a Go value into a SQL literal suitable for splicing
// into query text. Registered per reflect.Kind so callers can override
// the handling of a type without touching the built-in table.
type Escaper func(v any) (string, error)

var defaultEscapers = map[reflect.Kind]Escaper{
	reflect.String: escapeString,
	reflect.Bool:   escapeBool,
}

// escapeSlice escapes its elements through defaultEscapers, so it is
// registered here rather than in the literal above to avoid an
// initialization cycle.
func init() {
	defaultEscapers[reflect.Slice] = escapeSlice
}

func escapeString(v any) (string, error) {
	s := v.(string)
	return "'" + strings.ReplaceAll(s, "'", "''") + "'", nil
}

func escapeBool(v any) (string, error) {
	if v.(bool) {
		return "TRUE", nil
	}
	return "FALSE", nil
}

func escapeBytes(b []byte) string {
	var sb strings.Builder
	sb.WriteString("'")
	for _, c := range b {
		fmt.Fprintf(&sb, `\%03o`, c)
	}
	sb.WriteString("'::bytea")
	return sb.String()
}

func escapeSlice(v any) (string, error) {
	if b, ok := v.([]byte); ok {
		return escapeBytes(b), nil
	}
	rv := reflect.ValueOf(v)
	parts := make([]string, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		escaped, err := escapeValue(rv.Index(i).Interface(), defaultEscapers)
		if err != nil {
			return "", fmt.Errorf("escaping array element %d: %w", i, err)
		}
		parts[i] = escaped
	}
	return "ARRAY[" + strings.Join(parts, ",") + "]", nil
}

// escapeValue renders one parameter as a SQL literal. nil becomes NULL;
// registered kinds use their Escaper; anything else — including numeric
// kinds, which have no dedicated category in spec.md §4.5 — falls back to
// a quoted string of its default formatting.
func escapeValue(v any, table map[reflect.Kind]Escaper) (string, error) {
	if v == nil {
		return "NULL", nil
	}
	rv := reflect.ValueOf(v)
	if esc, ok := table[rv.Kind()]; ok {
		return esc(v)
	}
	return "'" + strings.ReplaceAll(fmt.Sprintf("%v", v), "'", "''") + "'", nil
}

// substituteParams splices escaped args into q at %s placeholders. Literal
// '%' characters are protected by doubling them before substitution and
// un-doubling anything substitution left behind, tolerating '%' that
// appears inside the SQL text itself (e.g. LIKE patterns).
func substituteParams(q string, args []any, escapers map[reflect.Kind]Escaper) (string, error) {
	if len(args) == 0 {
		return q, nil
	}

	protected := strings.ReplaceAll(q, "%", "%%")
	protected = strings.ReplaceAll(protected, "%%s", "%s")

	placeholders := strings.Count(protected, "%s")
	if placeholders != len(args) {
		return "", errParamCountMismatch(placeholders, len(args))
	}

	escaped := make([]string, len(args))
	for i, a := range args {
		lit, err := escapeValue(a, escapers)
		if err != nil {
			return "", fmt.Errorf("escaping parameter %d: %w", i, err)
		}
		escaped[i] = strings.ReplaceAll(lit, "%", "%%")
	}

	return spliceOrdered(protected, escaped)
}

// spliceOrdered replaces successive "%s" occurrences in q with the
// corresponding entries of escaped, in order, without invoking fmt's
// variadic verb machinery (which would choke on literal '%' left inside
// already-escaped literals).
func spliceOrdered(q string, escaped []string) (string, error) {
	var sb strings.Builder
	idx := 0
	for i := 0; i < len(q); {
		if q[i] == '%' && i+1 < len(q) && q[i+1] == 's' {
			if idx >= len(escaped) {
				return "", errParamCountMismatch(idx, len(escaped))
			}
			sb.WriteString(escaped[idx])
			idx++
			i += 2
			continue
		}
		sb.WriteByte(q[i])
		i++
	}
	return strings.ReplaceAll(sb.String(), "%%", "%"), nil
}
