package table

import (
	"encoding"
	"fmt"
	"math/big"
	"time"
	"unicode/utf8"

	"github.com/goccy/go-json"
)

// Kind tags the category of a cell value, decided once at ingestion
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindText
	KindTimestamp
	KindStructured
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindText:
		return "text"
	case KindTimestamp:
		return "timestamp"
	default:
		return "structured"
	}
}

// numeric is implemented by exact decimals that print as their own text
type numeric interface {
	NumericText() string
}

// Value is a tagged cell value as delivered by a result stream
type Value struct {
	Kind Kind
	raw  any
}

// ValueOf classifies an arbitrary driver value
func ValueOf(v any) Value {
	switch x := v.(type) {
	case nil:
		return Value{Kind: KindNull}
	case Value:
		return x
	case bool:
		return Value{Kind: KindBool, raw: x}
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, *big.Int, *big.Float:
		return Value{Kind: KindNumber, raw: x}
	case numeric:
		return Value{Kind: KindNumber, raw: x}
	case string:
		return Value{Kind: KindText, raw: x}
	case []byte:
		if utf8.Valid(x) {
			return Value{Kind: KindText, raw: string(x)}
		}
		return Value{Kind: KindStructured, raw: x}
	case time.Time:
		return Value{Kind: KindTimestamp, raw: x}
	case *time.Time:
		if x == nil {
			return Value{Kind: KindNull}
		}
		return Value{Kind: KindTimestamp, raw: *x}
	default:
		return Value{Kind: KindStructured, raw: x}
	}
}

// Raw returns the underlying value
func (v Value) Raw() any {
	return v.raw
}

// String renders the value the way it is printed in a cell.
// Text is unchanged, timestamps are ISO-8601 UTC with milliseconds,
// everything else is JSON.
func (v Value) String() string {
	switch v.Kind {
	case KindText:
		return v.raw.(string)
	case KindTimestamp:
		return v.raw.(time.Time).UTC().Format("2006-01-02T15:04:05.000Z")
	case KindNumber:
		if n, ok := v.raw.(numeric); ok {
			return n.NumericText()
		}
	}
	return stringify(v.raw)
}

func stringify(v any) string {
	b, err := json.MarshalWithOption(v, json.DisableHTMLEscape())
	if err == nil {
		return string(b)
	}
	if tm, ok := v.(encoding.TextMarshaler); ok {
		if text, err := tm.MarshalText(); err == nil {
			return string(text)
		}
	}
	return fmt.Sprint(v)
}
