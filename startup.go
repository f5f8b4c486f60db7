package tinypg

// buildStartupMessage builds the payload of a StartupMessage: protocol
// version 3.0 followed by NUL-terminated key/value pairs, terminated by a
// final NUL.
func buildStartupMessage(user, database string) []byte {
	var buf []byte
	buf = append(buf, 0, 3, 0, 0) // protocol version 3.0

	buf = appendParam(buf, "user", user)
	if database != "" {
		buf = appendParam(buf, "database", database)
	}
	buf = append(buf, 0)
	return buf
}

func appendParam(buf []byte, key, value string) []byte {
	buf = append(buf, key...)
	buf = append(buf, 0)
	buf = append(buf, value...)
	buf = append(buf, 0)
	return buf
}
