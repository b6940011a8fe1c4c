package tableservice

import (
	"strconv"
	"time"
)

// Value é um parâmetro tipado de query, no formato aceito pelo gateway
type Value struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

func Utf8(s string) Value    { return Value{Type: "Utf8", Value: s} }
func Double(f float64) Value { return Value{Type: "Double", Value: f} }

// Uint64 serializa como string, seguindo a convenção JSON de proto pra 64 bits
func Uint64(n uint64) Value {
	return Value{Type: "Uint64", Value: strconv.FormatUint(n, 10)}
}

// Timestamp vira microssegundos desde a época
func Timestamp(t time.Time) Value {
	return Value{Type: "Timestamp", Value: strconv.FormatInt(t.UnixMicro(), 10)}
}

func OptionalUtf8(s string) Value {
	if s == "" {
		return Value{Type: "Optional<Utf8>", Value: nil}
	}
	return Value{Type: "Optional<Utf8>", Value: s}
}

func OptionalDouble(f *float64) Value {
	if f == nil {
		return Value{Type: "Optional<Double>", Value: nil}
	}
	return Value{Type: "Optional<Double>", Value: *f}
}

func OptionalTimestamp(t *time.Time) Value {
	if t == nil {
		return Value{Type: "Optional<Timestamp>", Value: nil}
	}
	return Value{Type: "Optional<Timestamp>", Value: strconv.FormatInt(t.UnixMicro(), 10)}
}

// Cell é uma célula tipada de uma linha. Três estados de nulidade:
// valor presente, marcador explícito de NULL (nullFlagValue) ou célula
// completamente vazia (coluna ausente na linha).
type Cell struct {
	TextValue   *string  `json:"textValue,omitempty"`
	DoubleValue *float64 `json:"doubleValue,omitempty"`
	Uint64Value *string  `json:"uint64Value,omitempty"`
	NullFlag    *string  `json:"nullFlagValue,omitempty"`
}

// IsNull cobre tanto o marcador explícito quanto a célula vazia/ausente
func (c *Cell) IsNull() bool {
	if c == nil || c.NullFlag != nil {
		return true
	}
	return c.TextValue == nil && c.DoubleValue == nil && c.Uint64Value == nil
}

func (c *Cell) Text() (string, bool) {
	if c.IsNull() || c.TextValue == nil {
		return "", false
	}
	return *c.TextValue, true
}

func (c *Cell) Double() (float64, bool) {
	if c.IsNull() || c.DoubleValue == nil {
		return 0, false
	}
	return *c.DoubleValue, true
}

func (c *Cell) Uint64() (uint64, bool) {
	if c.IsNull() || c.Uint64Value == nil {
		return 0, false
	}
	n, err := strconv.ParseUint(*c.Uint64Value, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// TimestampValue interpreta a célula como microssegundos desde a época
func (c *Cell) TimestampValue() (time.Time, bool) {
	n, ok := c.Uint64()
	if !ok {
		return time.Time{}, false
	}
	return time.UnixMicro(int64(n)).UTC(), true
}
