package models

import "strconv"

// SignalKind classifies the value type of a signal.
type SignalKind string

const (
	SignalNumber SignalKind = "number"
	SignalBool   SignalKind = "bool"
	SignalString SignalKind = "string"
)

// SignalValue is a single typed evidence value.
type SignalValue struct {
	Kind   SignalKind
	Number float64
	Bool   bool
	Str    string
}

// Signals is the typed evidence bag attached to an observation.
// Keys are signal names declared by the playbook for the observation type.
type Signals map[string]SignalValue

// Num creates a numeric signal value.
func Num(v float64) SignalValue {
	return SignalValue{Kind: SignalNumber, Number: v}
}

// Bool creates a boolean signal value.
func Bool(v bool) SignalValue {
	return SignalValue{Kind: SignalBool, Bool: v}
}

// Str creates a string signal value.
func Str(v string) SignalValue {
	return SignalValue{Kind: SignalString, Str: v}
}

// Number returns the numeric value of the named signal.
// Boolean signals coerce to 1/0 so that threshold gates can use them.
func (s Signals) NumberValue(name string) (float64, bool) {
	v, ok := s[name]
	if !ok {
		return 0, false
	}
	switch v.Kind {
	case SignalNumber:
		return v.Number, true
	case SignalBool:
		if v.Bool {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// BoolValue returns the boolean value of the named signal.
func (s Signals) BoolValue(name string) (bool, bool) {
	v, ok := s[name]
	if !ok || v.Kind != SignalBool {
		return false, false
	}
	return v.Bool, true
}

// StringValue returns the string value of the named signal.
func (s Signals) StringValue(name string) (string, bool) {
	v, ok := s[name]
	if !ok || v.Kind != SignalString {
		return "", false
	}
	return v.Str, true
}

// Has reports whether the named signal is present.
func (s Signals) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Format renders the signal value for rationale templates and summaries.
func (v SignalValue) Format() string {
	switch v.Kind {
	case SignalNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case SignalBool:
		return strconv.FormatBool(v.Bool)
	default:
		return v.Str
	}
}

// SignalsFromRaw converts a decoded JSON/YAML map into a typed signal bag.
// Unknown value types are dropped rather than erroring; missing evidence
// degrades confidence downstream instead of failing the pipeline.
func SignalsFromRaw(raw map[string]interface{}) Signals {
	signals := make(Signals, len(raw))
	for name, value := range raw {
		switch v := value.(type) {
		case float64:
			signals[name] = Num(v)
		case int:
			signals[name] = Num(float64(v))
		case int64:
			signals[name] = Num(float64(v))
		case bool:
			signals[name] = Bool(v)
		case string:
			signals[name] = Str(v)
		}
	}
	return signals
}
