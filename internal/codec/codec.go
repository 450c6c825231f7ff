// Package codec converts between wire payloads and model events.
//
// Inbound trades are validated strictly: every schema field must be present
// with the right JSON type. Unknown fields are ignored.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"

	"rsi-engine/internal/model"

	"github.com/tidwall/gjson"
)

var (
	// ErrEmptyPayload is returned for a message that carried no body.
	ErrEmptyPayload = errors.New("empty payload")

	// ErrNotText is returned for a body that is not valid UTF-8.
	ErrNotText = errors.New("payload is not valid UTF-8 text")

	// ErrMalformedJSON is returned for a body that is not a JSON object.
	ErrMalformedJSON = errors.New("malformed JSON")

	// ErrSchema is returned when a required field is missing or mistyped.
	ErrSchema = errors.New("schema mismatch")
)

// field describes one required member of a JSON object.
type field struct {
	name string
	typ  gjson.Type
}

var tradeFields = []field{
	{"token_address", gjson.String},
	{"price_in_sol", gjson.Number},
	{"block_time", gjson.String},
	{"tx_hash", gjson.String},
	{"pool_address", gjson.String},
}

var indicatorFields = []field{
	{"token_address", gjson.String},
	{"rsi", gjson.Number},
	{"timestamp", gjson.String},
	{"price", gjson.Number},
}

// CheckText reports whether payload is present and decodable as text.
func CheckText(payload []byte) error {
	if payload == nil {
		return ErrEmptyPayload
	}
	if !utf8.Valid(payload) {
		return ErrNotText
	}
	return nil
}

// DecodeTrade parses one inbound trade payload.
func DecodeTrade(payload []byte) (model.TradeEvent, error) {
	if err := CheckText(payload); err != nil {
		return model.TradeEvent{}, err
	}
	fields, err := lookup(payload, tradeFields)
	if err != nil {
		return model.TradeEvent{}, err
	}
	return model.TradeEvent{
		TokenAddress: fields[0].Str,
		PriceInSol:   fields[1].Float(),
		BlockTime:    fields[2].Str,
		TxHash:       fields[3].Str,
		PoolAddress:  fields[4].Str,
	}, nil
}

// DecodeIndicator parses one outbound RSI payload (gateway side).
func DecodeIndicator(payload []byte) (model.IndicatorEvent, error) {
	if err := CheckText(payload); err != nil {
		return model.IndicatorEvent{}, err
	}
	fields, err := lookup(payload, indicatorFields)
	if err != nil {
		return model.IndicatorEvent{}, err
	}
	return model.IndicatorEvent{
		TokenAddress: fields[0].Str,
		RSI:          fields[1].Float(),
		Timestamp:    fields[2].Str,
		Price:        fields[3].Float(),
	}, nil
}

// EncodeIndicator serializes an outbound RSI event.
// Fails for non-finite RSI or price values, which JSON cannot represent.
func EncodeIndicator(ev model.IndicatorEvent) ([]byte, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode indicator %s: %w", ev.TokenAddress, err)
	}
	return b, nil
}

// EncodeTrade serializes an inbound trade (replay tool side).
func EncodeTrade(tr model.TradeEvent) ([]byte, error) {
	b, err := json.Marshal(tr)
	if err != nil {
		return nil, fmt.Errorf("encode trade %s: %w", tr.TokenAddress, err)
	}
	return b, nil
}

func lookup(payload []byte, want []field) ([]gjson.Result, error) {
	if !gjson.ValidBytes(payload) {
		return nil, ErrMalformedJSON
	}
	root := gjson.ParseBytes(payload)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: top-level value is not an object", ErrMalformedJSON)
	}

	out := make([]gjson.Result, len(want))
	for i, f := range want {
		v := root.Get(f.name)
		if !v.Exists() {
			return nil, fmt.Errorf("%w: missing field %q", ErrSchema, f.name)
		}
		if v.Type != f.typ {
			return nil, fmt.Errorf("%w: field %q is %s, want %s", ErrSchema, f.name, v.Type, f.typ)
		}
		if v.Type == gjson.Number {
			if _, err := strconv.ParseFloat(v.Raw, 64); err != nil {
				return nil, fmt.Errorf("%w: field %q: %v", ErrSchema, f.name, err)
			}
		}
		out[i] = v
	}
	return out, nil
}
