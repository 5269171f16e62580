package kxci

import "strings"

// Command models one user-library module call: the compiled module name,
// the function within it, and its positional parameters in the module's
// native signature order.
type Command struct {
	Module   string
	Function string
	Params   []Parameter
}

// CallString renders the command in the EX call grammar:
//
//	EX <module> <function>(<p1>,<p2>,...,<pn>)
//
// Parameters are comma-joined with no surrounding spaces; output-array
// placeholders render as empty tokens, so consecutive commas with nothing
// between them are expected, e.g.
//
//	EX A_Iv_Sweep smu_ivsweep(5,-5,20,1,,21,,21)
//
// quoteStrings controls double-quoting of string parameters and is
// module-dependent.
func (c Command) CallString(quoteStrings bool) string {
	var sb strings.Builder
	sb.WriteString("EX ")
	sb.WriteString(c.Module)
	sb.WriteByte(' ')
	sb.WriteString(c.Function)
	sb.WriteByte('(')
	for i, p := range c.Params {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(p.Encode(quoteStrings))
	}
	sb.WriteByte(')')

	return sb.String()
}

// OutputPositions returns the 1-based positions of the output-array
// placeholders in the parameter list, in signature order.
func (c Command) OutputPositions() []int {
	var positions []int
	for i, p := range c.Params {
		if p.Type() == OutputParam {
			positions = append(positions, i+1)
		}
	}
	return positions
}
