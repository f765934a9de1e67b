package client

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// envelope is a processor response decoded field by field. Values are kept
// raw until a caller asks for them so that missing, null and mistyped fields
// are all distinguishable.
type envelope map[string]json.RawMessage

func decodeEnvelope(body []byte) (envelope, bool) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return nil, false
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, false
	}
	// Every processor answer carries a return code or a message.
	if !env.has("cabbage_return_code") && !env.has("message") {
		return nil, false
	}
	return env, true
}

func (e envelope) has(key string) bool {
	raw, ok := e[key]
	return ok && !bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// str reads a string field, accepting JSON numbers as their literal text.
func (e envelope) str(key string) string {
	raw, ok := e[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func (e envelope) decimal(key string) (decimal.Decimal, bool) {
	s := e.str(key)
	if s == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

func (e envelope) code() string    { return e.str("cabbage_return_code") }
func (e envelope) message() string { return e.str("message") }

func (e envelope) succeeded() bool {
	return e.code() == "pk1998"
}

// acknowledged is the looser check used by link and exchange, where the
// processor may omit the return code and only report message "success".
func (e envelope) acknowledged() bool {
	return e.succeeded() || strings.EqualFold(e.message(), "success")
}
