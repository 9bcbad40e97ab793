package flow

import (
	"strconv"
	"strings"

	"AgentFlow/entity"
)

// EvalCondition evaluates a condition node's operator over the bound context
// value and the literal value. Numeric comparisons with non-numeric operands
// are false, never an error: a broken condition degrades to the false branch.
func EvalCondition(d entity.ConditionData, context map[string]string) bool {
	left := context[d.Variable]

	switch d.Operator {
	case entity.OpEquals:
		return left == d.Value
	case entity.OpContains:
		return strings.Contains(left, d.Value)
	case entity.OpGt:
		l, r, ok := parseNumbers(left, d.Value)
		return ok && l > r
	case entity.OpLt:
		l, r, ok := parseNumbers(left, d.Value)
		return ok && l < r
	}
	return false
}

func parseNumbers(a, b string) (float64, float64, bool) {
	l, err := strconv.ParseFloat(strings.TrimSpace(a), 64)
	if err != nil {
		return 0, 0, false
	}
	r, err := strconv.ParseFloat(strings.TrimSpace(b), 64)
	if err != nil {
		return 0, 0, false
	}
	return l, r, true
}
