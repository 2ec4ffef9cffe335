// Package truth holds 2-input truth tables and the reference tables for
// AND and OR gates. It has no hardware dependencies.
package truth

import "strings"

// Table is the output of a 2-input gate for each input combination.
// Index i corresponds to Combinations[i]: 2*a + b.
type Table [4]bool

// Reference tables.
var (
	AND = Table{false, false, false, true}
	OR  = Table{false, true, true, true}
)

// Combination is one pair of input levels.
type Combination struct {
	A bool
	B bool
}

// Combinations lists the input pairs in drive order:
// (0,0), (0,1), (1,0), (1,1).
var Combinations = [4]Combination{
	{A: false, B: false},
	{A: false, B: true},
	{A: true, B: false},
	{A: true, B: true},
}

// Index returns the table position for inputs (a, b).
func Index(a, b bool) int {
	i := 0
	if a {
		i += 2
	}
	if b {
		i++
	}
	return i
}

// FromFunc builds the table produced by a boolean function.
func FromFunc(fn func(a, b bool) bool) Table {
	var t Table
	for i, c := range Combinations {
		t[i] = fn(c.A, c.B)
	}
	return t
}

// Equal reports whether two tables match element-wise.
func (t Table) Equal(o Table) bool {
	return t == o
}

// String renders the table as four binary digits in combination order,
// e.g. "0001" for AND.
func (t Table) String() string {
	var b strings.Builder
	for _, v := range t {
		if v {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// Shape classifies an observed table against the reference tables.
// Both fields are false when the table matches neither.
type Shape struct {
	OR  bool
	AND bool
}

// Classify reports which reference table t matches.
func Classify(t Table) Shape {
	return Shape{
		OR:  t.Equal(OR),
		AND: t.Equal(AND),
	}
}

// Name returns "OR", "AND" or "UNKNOWN".
func (s Shape) Name() string {
	switch {
	case s.OR:
		return "OR"
	case s.AND:
		return "AND"
	}
	return "UNKNOWN"
}
