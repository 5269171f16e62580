package kxci

import (
	"math"
	"strconv"
	"strings"
)

// ParamType identifies the variant held by a Parameter.
type ParamType uint8

const (
	// IntParam holds a signed integer value.
	IntParam ParamType = iota
	// FloatParam holds a floating-point value.
	FloatParam
	// StringParam holds a string value, passed through verbatim or quoted
	// depending on the target module.
	StringParam
	// OutputParam is an output-array placeholder. It renders as an empty
	// token in the call string; the instrument fills the slot and the
	// values are fetched afterwards with a GP query.
	OutputParam
)

// String returns the string representation of the parameter type.
func (t ParamType) String() string {
	switch t {
	case IntParam:
		return "int"
	case FloatParam:
		return "float"
	case StringParam:
		return "string"
	case OutputParam:
		return "array"
	default:
		return "unknown"
	}
}

// Parameter is one positional argument of a user-library module call.
//
// Parameter order is fixed by the target module's native signature;
// reordering corrupts the call.
type Parameter struct {
	typ ParamType
	i   int64
	f   float64
	s   string
}

// Int creates an integer parameter.
func Int(v int64) Parameter { return Parameter{typ: IntParam, i: v} }

// Float creates a floating-point parameter.
func Float(v float64) Parameter { return Parameter{typ: FloatParam, f: v} }

// String creates a string parameter.
func String(s string) Parameter { return Parameter{typ: StringParam, s: s} }

// OutputArray creates an output-array placeholder parameter.
func OutputArray() Parameter { return Parameter{typ: OutputParam} }

// Type returns the variant held by the parameter.
func (p Parameter) Type() ParamType { return p.typ }

// IntValue returns the integer value. It is only meaningful for IntParam.
func (p Parameter) IntValue() int64 { return p.i }

// FloatValue returns the float value. It is only meaningful for FloatParam.
func (p Parameter) FloatValue() float64 { return p.f }

// StringValue returns the string value. It is only meaningful for StringParam.
func (p Parameter) StringValue() string { return p.s }

// Encode renders the parameter in the instrument's call-string grammar.
// quoteStrings controls whether string parameters are wrapped in double
// quotes; the requirement varies per module.
func (p Parameter) Encode(quoteStrings bool) string {
	switch p.typ {
	case IntParam:
		return strconv.FormatInt(p.i, 10)
	case FloatParam:
		return encodeFloat(p.f)
	case StringParam:
		if quoteStrings {
			return `"` + p.s + `"`
		}
		return p.s
	case OutputParam:
		return ""
	default:
		return ""
	}
}

// encodeFloat renders a float per the KXCI numeric grammar:
//
//   - 0.0 renders as "0".
//   - Magnitudes in [1, 1e6) render in plain notation, as a bare integer
//     when the value is integral, otherwise with trailing zeros stripped.
//   - Everything else renders in uppercase scientific notation with an
//     explicit exponent sign and no leading zero in the exponent, e.g.
//     "1.50E-7". The instrument's command parser rejects "1.50E-07".
func encodeFloat(v float64) string {
	if v == 0 {
		return "0"
	}

	abs := math.Abs(v)
	if abs >= 1.0 && abs < 1e6 {
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10)
		}
		s := strconv.FormatFloat(v, 'f', -1, 64)
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
		return s
	}

	s := strconv.FormatFloat(v, 'E', 2, 64)
	mantissa, exp, _ := strings.Cut(s, "E")

	sign := "+"
	if exp[0] == '+' || exp[0] == '-' {
		sign = string(exp[0])
		exp = exp[1:]
	}
	exp = strings.TrimLeft(exp, "0")
	if exp == "" {
		exp = "0"
	}

	return mantissa + "E" + sign + exp
}
