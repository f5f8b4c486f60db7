package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	"github.com/tinypg/tinypg/internal/wire"
)

const nonceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
const nonceLength = 24

// authSelector* mirror the PostgreSQL Authentication message subtypes
// relevant to the SASL/SCRAM-SHA-256 exchange.
const (
	authSelectorSASLContinue = 11
	authSelectorSASLFinal    = 12
)

// ScramSHA256 drives the SASL/SCRAM-SHA-256 exchange with a PostgreSQL
// backend. saslPayload is the body of the AuthenticationSASL (type 10)
// message that triggered the exchange: a NUL-terminated list of offered
// mechanisms. On return, the caller should expect an AuthenticationOk to
// follow in the normal message stream — this function consumes the
// SASLContinue and SASLFinal frames itself (verifying the server
// signature in SASLFinal), since they are part of this multi-round-trip
// exchange rather than the outer message loop's one-frame dispatch.
func ScramSHA256(rw interface {
	wire.Reader
	wire.Writer
}, user, password string, saslPayload []byte) error {
	if !offersSCRAMSHA256(saslPayload) {
		return fmt.Errorf("auth: server does not offer SCRAM-SHA-256")
	}

	clientNonce, err := generateNonce(nonceLength)
	if err != nil {
		return fmt.Errorf("auth: generating client nonce: %w", err)
	}

	// gs2-header "n,," (no channel binding, no authzid); the username
	// field in client-first-message-bare is left empty — PostgreSQL
	// already knows the user from the startup message.
	clientFirstBare := "n=,r=" + clientNonce
	clientFirst := "n,,n=,r=" + clientNonce
	if err := sendPasswordMessage(rw, saslInitialResponse("SCRAM-SHA-256", clientFirst)); err != nil {
		return fmt.Errorf("auth: sending SASLInitialResponse: %w", err)
	}

	serverFirst, err := readAuthFrame(rw, authSelectorSASLContinue)
	if err != nil {
		return fmt.Errorf("auth: reading server-first-message: %w", err)
	}

	serverNonce, salt, iterations, err := parseServerFirst(string(serverFirst))
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if !strings.HasPrefix(serverNonce, clientNonce) {
		return fmt.Errorf("auth: server nonce does not begin with client nonce")
	}

	saltedPassword := pbkdf2.Key([]byte(password), salt, iterations, 32, sha256.New)
	clientKey := hmacSHA256(saltedPassword, []byte("Client Key"))
	storedKey := sha256Sum(clientKey)

	clientFinalWithoutProof := "c=biws,r=" + serverNonce
	authMessage := clientFirstBare + "," + string(serverFirst) + "," + clientFinalWithoutProof

	clientSignature := hmacSHA256(storedKey, []byte(authMessage))
	clientProof := xorBytes(clientKey, clientSignature)

	clientFinal := clientFinalWithoutProof + ",p=" + base64.StdEncoding.EncodeToString(clientProof)
	if err := sendPasswordMessage(rw, []byte(clientFinal)); err != nil {
		return fmt.Errorf("auth: sending SASLResponse: %w", err)
	}

	serverFinal, err := readAuthFrame(rw, authSelectorSASLFinal)
	if err != nil {
		return fmt.Errorf("auth: reading server-final-message: %w", err)
	}

	serverKey := hmacSHA256(saltedPassword, []byte("Server Key"))
	expectedSig := hmacSHA256(serverKey, []byte(authMessage))
	expected := "v=" + base64.StdEncoding.EncodeToString(expectedSig)
	if string(serverFinal) != expected {
		return fmt.Errorf("auth: server signature mismatch")
	}

	return nil
}

func offersSCRAMSHA256(payload []byte) bool {
	for _, mech := range splitNulTerminated(payload) {
		if mech == "SCRAM-SHA-256" {
			return true
		}
	}
	return false
}

func splitNulTerminated(data []byte) []string {
	var out []string
	start := 0
	for i, b := range data {
		if b == 0 {
			if i > start {
				out = append(out, string(data[start:i]))
			}
			start = i + 1
		}
	}
	return out
}

func generateNonce(n int) (string, error) {
	raw := make([]byte, n)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	out := make([]byte, n)
	for i, b := range raw {
		out[i] = nonceAlphabet[int(b)%len(nonceAlphabet)]
	}
	return string(out), nil
}

func parseServerFirst(msg string) (nonce string, salt []byte, iterations int, err error) {
	for _, part := range strings.Split(msg, ",") {
		switch {
		case strings.HasPrefix(part, "r="):
			nonce = part[2:]
		case strings.HasPrefix(part, "s="):
			salt, err = base64.StdEncoding.DecodeString(part[2:])
			if err != nil {
				return "", nil, 0, fmt.Errorf("decoding salt: %w", err)
			}
		case strings.HasPrefix(part, "i="):
			iterations, err = strconv.Atoi(part[2:])
			if err != nil {
				return "", nil, 0, fmt.Errorf("parsing iteration count: %w", err)
			}
		}
	}
	if nonce == "" || salt == nil || iterations == 0 {
		return "", nil, 0, fmt.Errorf("incomplete server-first-message: %q", msg)
	}
	return nonce, salt, iterations, nil
}

func saslInitialResponse(mechanism, clientFirst string) []byte {
	var payload []byte
	payload = append(payload, mechanism...)
	payload = append(payload, 0)
	payload = append(payload, wire.BintToBytes(uint32(len(clientFirst)))...)
	payload = append(payload, clientFirst...)
	return payload
}

func sendPasswordMessage(w wire.Writer, payload []byte) error {
	return wire.WriteFrame(w, 'p', payload)
}

// readAuthFrame reads the next Authentication frame and verifies its
// subtype matches want. An ErrorResponse in this position is surfaced as
// a plain error carrying the server's message.
func readAuthFrame(r wire.Reader, want uint32) ([]byte, error) {
	frame, err := wire.ReadFrame(r)
	if err != nil {
		return nil, err
	}
	if frame.Type == 'E' {
		fields := wire.ParseErrorFields(frame.Payload)
		return nil, fmt.Errorf("server error: %s", fields['M'])
	}
	if frame.Type != 'R' {
		return nil, fmt.Errorf("expected Authentication message, got %q", frame.Type)
	}
	if len(frame.Payload) < 4 {
		return nil, fmt.Errorf("authentication message too short")
	}
	selector := wire.BytesToBint(frame.Payload[:4])
	if selector != want {
		return nil, fmt.Errorf("expected authentication subtype %d, got %d", want, selector)
	}
	return frame.Payload[4:], nil
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

func sha256Sum(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

func xorBytes(a, b []byte) []byte {
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out
}
