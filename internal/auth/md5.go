// Package auth implements the PostgreSQL client authentication exchanges:
// MD5 and SASL/SCRAM-SHA-256.
package auth

import (
	"crypto/md5"
	"encoding/hex"
)

// MD5Password computes the PostgreSQL MD5 password response:
// "md5" || hex(md5(hex(md5(password||user)) || salt)).
func MD5Password(user, password string, salt []byte) string {
	h1 := md5.Sum([]byte(password + user))
	hex1 := hex.EncodeToString(h1[:])
	h2 := md5.Sum(append([]byte(hex1), salt...))
	return "md5" + hex.EncodeToString(h2[:])
}
