package wire

// ParseErrorFields parses an ErrorResponse/NoticeResponse payload: a
// sequence of <tag-byte><NUL-terminated string> entries terminated by a
// final NUL. Fields are indexed by tag, never by position — two versions
// of the original driver this was ported from disagreed on the positional
// index of the SQLSTATE and message fields, which is exactly the bug that
// tag-based parsing avoids.
func ParseErrorFields(payload []byte) map[byte]string {
	fields := make(map[byte]string)
	i := 0
	for i < len(payload) {
		tag := payload[i]
		if tag == 0 {
			break
		}
		i++
		start := i
		for i < len(payload) && payload[i] != 0 {
			i++
		}
		fields[tag] = string(payload[start:i])
		i++ // skip the field's terminating NUL
	}
	return fields
}
