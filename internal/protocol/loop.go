package protocol

import (
	"fmt"

	"github.com/tinypg/tinypg/internal/auth"
	"github.com/tinypg/tinypg/internal/decode"
	"github.com/tinypg/tinypg/internal/wire"
)

// RW is the minimal transport contract the loop needs: a frame-capable
// reader/writer pair, exactly what internal/transport.Conn provides.
type RW interface {
	wire.Reader
	wire.Writer
}

// AuthParams carries what the loop needs to answer an authentication
// challenge. Password may be empty if the server never asks for one
// (trust/peer auth).
type AuthParams struct {
	User     string
	Password string
}

// ServerError is returned when the backend sends an ErrorResponse. SQLState
// lets the caller classify it with ClassifySQLState without re-parsing the
// field map.
type ServerError struct {
	Fields ErrorFields
}

func (e *ServerError) Error() string {
	if msg := e.Fields.Message(); msg != "" {
		return fmt.Sprintf("server error [%s]: %s", e.Fields.SQLState(), msg)
	}
	return fmt.Sprintf("server error [%s]", e.Fields.SQLState())
}

// Startup sends the StartupMessage and drives the authentication exchange
// to completion (AuthenticationOk), returning the BackendKeyData fields
// and the ParameterStatus values the server reports along the way. It reads
// through the initial ReadyForQuery and returns its transaction status byte.
func Startup(rw RW, params AuthParams, startupBody []byte) (paramStatus map[string]string, backendPID, backendKey uint32, txStatus byte, err error) {
	if err := wire.WriteStartupFrame(rw, startupBody); err != nil {
		return nil, 0, 0, 0, fmt.Errorf("protocol: sending startup message: %w", err)
	}

	paramStatus = make(map[string]string)

	for {
		frame, err := wire.ReadFrame(rw)
		if err != nil {
			return nil, 0, 0, 0, fmt.Errorf("protocol: reading startup response: %w", err)
		}

		switch frame.Type {
		case TypeAuthentication:
			done, authErr := handleAuthentication(rw, params, frame.Payload)
			if authErr != nil {
				return nil, 0, 0, 0, authErr
			}
			if done {
				continue
			}

		case TypeParameterStatus:
			name, value := parseParameterStatus(frame.Payload)
			paramStatus[name] = value

		case TypeBackendKeyData:
			if len(frame.Payload) < 8 {
				return nil, 0, 0, 0, fmt.Errorf("protocol: BackendKeyData payload too short")
			}
			backendPID = wire.BytesToBint(frame.Payload[0:4])
			backendKey = wire.BytesToBint(frame.Payload[4:8])

		case TypeErrorResponse:
			return nil, 0, 0, 0, &ServerError{Fields: ParseErrorResponse(frame.Payload)}

		case TypeNoticeResponse:
			// Notices during startup are informational; drop them.

		case TypeReadyForQuery:
			if len(frame.Payload) < 1 {
				return nil, 0, 0, 0, fmt.Errorf("protocol: ReadyForQuery payload empty")
			}
			return paramStatus, backendPID, backendKey, frame.Payload[0], nil

		default:
			return nil, 0, 0, 0, fmt.Errorf("protocol: unexpected message %q during startup", frame.Type)
		}
	}
}

// handleAuthentication dispatches one Authentication subtype. done is true
// once AuthenticationOk has been received.
func handleAuthentication(rw RW, params AuthParams, payload []byte) (done bool, err error) {
	if len(payload) < 4 {
		return false, fmt.Errorf("protocol: Authentication payload too short")
	}
	selector := wire.BytesToBint(payload[0:4])

	switch selector {
	case 0: // AuthenticationOk
		return true, nil

	case 3: // AuthenticationCleartextPassword
		if err := wire.WriteFrame(rw, 'p', append([]byte(params.Password), 0)); err != nil {
			return false, fmt.Errorf("protocol: sending cleartext password: %w", err)
		}
		return false, nil

	case 5: // AuthenticationMD5Password
		if len(payload) < 8 {
			return false, fmt.Errorf("protocol: AuthenticationMD5Password payload too short")
		}
		salt := payload[4:8]
		response := auth.MD5Password(params.User, params.Password, salt)
		if err := wire.WriteFrame(rw, 'p', append([]byte(response), 0)); err != nil {
			return false, fmt.Errorf("protocol: sending MD5 password: %w", err)
		}
		return false, nil

	case 10: // AuthenticationSASL
		if err := auth.ScramSHA256(rw, params.User, params.Password, payload[4:]); err != nil {
			return false, fmt.Errorf("protocol: SCRAM exchange: %w", err)
		}
		// auth.ScramSHA256 consumes SASLContinue/SASLFinal itself; the
		// AuthenticationOk that follows arrives as the next frame in the
		// outer loop.
		return false, nil

	default:
		return false, fmt.Errorf("protocol: unsupported authentication method %d", selector)
	}
}

func parseParameterStatus(payload []byte) (name, value string) {
	nul := indexByte(payload, 0)
	if nul < 0 {
		return string(payload), ""
	}
	name = string(payload[:nul])
	rest := payload[nul+1:]
	end := indexByte(rest, 0)
	if end < 0 {
		end = len(rest)
	}
	value = string(rest[:end])
	return name, value
}

func indexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}

// Query sends a simple-query message and drains the response into sink,
// returning the final transaction status byte (TxIdle/TxOpen/TxFailed)
// from ReadyForQuery. The first ErrorResponse encountered is returned as
// the error, but the loop keeps draining frames through ReadyForQuery so
// the connection is left in a usable state for the next query.
//
// If sink also implements CopySink, COPY exchanges are serviced; otherwise
// a COPY request from the server surfaces as an error.
func Query(rw RW, sql string, sink Sink, encoding string) (txStatus byte, err error) {
	if err := wire.WriteFrame(rw, 'Q', append([]byte(sql), 0)); err != nil {
		return 0, fmt.Errorf("protocol: sending query: %w", err)
	}
	if err := wire.WriteFrame(rw, 'S', nil); err != nil {
		return 0, fmt.Errorf("protocol: sending sync: %w", err)
	}

	var firstErr error
	var lastCols []ColumnDescriptor
	copySink, _ := sink.(CopySink)

	for {
		frame, ferr := wire.ReadFrame(rw)
		if ferr != nil {
			return 0, fmt.Errorf("protocol: reading query response: %w", ferr)
		}

		switch frame.Type {
		case TypeParameterStatus:
			name, value := parseParameterStatus(frame.Payload)
			if name == "client_encoding" {
				encoding = value
			}

		case TypeRowDescription:
			cols, perr := ParseRowDescription(frame.Payload)
			if perr != nil {
				if firstErr == nil {
					firstErr = perr
				}
				continue
			}
			sink.SetDescription(cols)
			lastCols = cols

		case TypeDataRow:
			raw, perr := ParseDataRow(frame.Payload)
			if perr != nil {
				if firstErr == nil {
					firstErr = perr
				}
				continue
			}
			row := make([]any, len(raw))
			for i, col := range raw {
				var oid decode.OID
				if i < len(lastCols) {
					oid = lastCols[i].OID
				}
				v, derr := decode.Column(col, oid, encoding)
				if derr != nil {
					if firstErr == nil {
						firstErr = derr
					}
					row[i] = nil
					continue
				}
				row[i] = v
			}
			sink.AppendRow(row)

		case TypeCommandComplete:
			sink.SetRowCount(ParseCommandComplete(frame.Payload))

		case TypeCopyOutResponse, TypeCopyInResponse:
			if copySink == nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("protocol: server requested COPY but sink does not support it")
				}
				continue
			}
			if frame.Type == TypeCopyInResponse {
				if cerr := serviceCopyIn(rw, copySink); cerr != nil && firstErr == nil {
					firstErr = cerr
				}
			}

		case TypeCopyData:
			if copySink != nil {
				if werr := copySink.WriteCopyData(frame.Payload); werr != nil && firstErr == nil {
					firstErr = werr
				}
			}

		case TypeCopyDone:
			// nothing to do; CommandComplete follows.

		case TypeNoticeResponse:
			// informational; the caller's logger, not this loop, surfaces it.

		case TypeErrorResponse:
			if firstErr == nil {
				firstErr = &ServerError{Fields: ParseErrorResponse(frame.Payload)}
			}

		case TypeReadyForQuery:
			if len(frame.Payload) < 1 {
				return 0, fmt.Errorf("protocol: ReadyForQuery payload empty")
			}
			return frame.Payload[0], firstErr

		default:
			// Unrecognized message types are ignored rather than fatal, so
			// that a newer server speaking a superset of this protocol
			// version doesn't break an otherwise-working exchange.
		}
	}
}

// serviceCopyIn feeds CopyData frames from the sink to the server until
// ReadCopyData reports exhaustion, then sends CopyDone followed by Sync.
func serviceCopyIn(rw RW, sink CopySink) error {
	const chunkSize = 8192
	for {
		data, ok := sink.ReadCopyData(chunkSize)
		if !ok {
			if err := wire.WriteFrame(rw, 'c', nil); err != nil {
				return fmt.Errorf("protocol: writing CopyDone: %w", err)
			}
			return wire.WriteFrame(rw, 'S', nil)
		}
		if err := wire.WriteFrame(rw, 'd', data); err != nil {
			return fmt.Errorf("protocol: writing CopyData: %w", err)
		}
	}
}
