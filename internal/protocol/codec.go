package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"unicode/utf8"

	"mesh_chat/internal/dataType"
)

var (
	ErrMalformedEncoding = errors.New("malformed encoding")
	ErrMissingField      = errors.New("missing field")
	ErrInvalidValue      = errors.New("invalid value")
)

// DecodeError describes why a datagram was rejected. Kind is one of the
// Err* sentinels above and is what errors.Is matches against.
type DecodeError struct {
	Kind   error
	Field  string
	Reason string
}

func (e *DecodeError) Error() string {
	switch {
	case e.Field == "":
		return fmt.Sprintf("%v: %s", e.Kind, e.Reason)
	case e.Reason == "":
		return fmt.Sprintf("%v: %s", e.Kind, e.Field)
	default:
		return fmt.Sprintf("%v: %s %s", e.Kind, e.Field, e.Reason)
	}
}

func (e *DecodeError) Unwrap() error {
	return e.Kind
}

// ErrorKind maps a decode error to a short label for logs and metrics.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrMalformedEncoding):
		return "malformed"
	case errors.Is(err, ErrMissingField):
		return "missing_field"
	case errors.Is(err, ErrInvalidValue):
		return "invalid_value"
	default:
		return "unknown"
	}
}

// requiredFields in wire order.
var requiredFields = []string{"mid", "ts", "ttl", "kind", "src", "dst", "body"}

// Encode renders m as compact JSON with the seven wire keys in a fixed order.
func Encode(m dataType.Message) ([]byte, error) {
	if math.IsNaN(m.Timestamp) || math.IsInf(m.Timestamp, 0) {
		return nil, fmt.Errorf("encode message %s: non-finite timestamp", m.ID)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("encode message %s: %w", m.ID, err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Decode parses a datagram into a Message. Field values are copied verbatim.
// Unknown keys are ignored.
func Decode(buf []byte) (dataType.Message, error) {
	var msg dataType.Message

	if !utf8.Valid(buf) {
		return msg, &DecodeError{Kind: ErrMalformedEncoding, Reason: "payload is not valid UTF-8"}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(buf, &raw); err != nil {
		return msg, &DecodeError{Kind: ErrMalformedEncoding, Reason: err.Error()}
	}
	if raw == nil {
		return msg, &DecodeError{Kind: ErrMalformedEncoding, Reason: "payload is not a JSON object"}
	}

	for _, field := range requiredFields {
		if _, ok := raw[field]; !ok {
			return msg, &DecodeError{Kind: ErrMissingField, Field: field}
		}
	}

	var err error
	if msg.ID, err = stringField(raw, "mid", false); err != nil {
		return dataType.Message{}, err
	}
	if msg.Timestamp, err = timestampField(raw, "ts"); err != nil {
		return dataType.Message{}, err
	}
	if msg.TTL, err = ttlField(raw, "ttl"); err != nil {
		return dataType.Message{}, err
	}
	kind, err := stringField(raw, "kind", false)
	if err != nil || !dataType.Kind(kind).Valid() {
		return dataType.Message{}, invalid("kind", "must be 'CHAT' or 'PING'")
	}
	msg.Kind = dataType.Kind(kind)
	if msg.Src, err = stringField(raw, "src", false); err != nil {
		return dataType.Message{}, err
	}
	if msg.Dst, err = stringField(raw, "dst", true); err != nil {
		return dataType.Message{}, err
	}
	if msg.Body, err = stringField(raw, "body", true); err != nil {
		return dataType.Message{}, err
	}

	return msg, nil
}

func invalid(field, reason string) error {
	return &DecodeError{Kind: ErrInvalidValue, Field: field, Reason: reason}
}

func stringField(raw map[string]json.RawMessage, field string, allowEmpty bool) (string, error) {
	value := bytes.TrimSpace(raw[field])
	if len(value) == 0 || value[0] != '"' {
		return "", invalid(field, "must be a string")
	}
	var s string
	if err := json.Unmarshal(value, &s); err != nil {
		return "", invalid(field, "must be a string")
	}
	if !allowEmpty && s == "" {
		return "", invalid(field, "must be a non-empty string")
	}
	return s, nil
}

// numberToken returns the literal JSON number in value, rejecting strings,
// booleans, null and composite values.
func numberToken(value json.RawMessage) (string, bool) {
	value = bytes.TrimSpace(value)
	if len(value) == 0 {
		return "", false
	}
	if c := value[0]; c != '-' && (c < '0' || c > '9') {
		return "", false
	}
	var n json.Number
	if err := json.Unmarshal(value, &n); err != nil {
		return "", false
	}
	return n.String(), true
}

// timestampField rejects values that overflow float64. Encode cannot emit
// them, so accepting one would make the message impossible to forward.
func timestampField(raw map[string]json.RawMessage, field string) (float64, error) {
	token, ok := numberToken(raw[field])
	if !ok {
		return 0, invalid(field, "must be a non-negative number")
	}
	ts, err := strconv.ParseFloat(token, 64)
	if err != nil || ts < 0 || math.IsInf(ts, 0) {
		return 0, invalid(field, "must be a non-negative number")
	}
	return ts, nil
}

func ttlField(raw map[string]json.RawMessage, field string) (int, error) {
	token, ok := numberToken(raw[field])
	if !ok {
		return 0, invalid(field, "must be a non-negative integer")
	}
	ttl, err := strconv.ParseInt(token, 10, 0)
	if err != nil || ttl < 0 {
		return 0, invalid(field, "must be a non-negative integer")
	}
	return int(ttl), nil
}
