package flow

import (
	"testing"

	"AgentFlow/entity"

	"github.com/stretchr/testify/require"
)

func TestEvalCondition(t *testing.T) {
	t.Parallel()

	ctx := map[string]string{
		"plan":  "premium",
		"age":   "42",
		"score": " 3.5 ",
	}

	tests := []struct {
		name     string
		variable string
		operator entity.ConditionOperator
		value    string
		want     bool
	}{
		{"equals match", "plan", entity.OpEquals, "premium", true},
		{"equals is exact", "plan", entity.OpEquals, "Premium", false},
		{"contains", "plan", entity.OpContains, "prem", true},
		{"contains miss", "plan", entity.OpContains, "basic", false},
		{"gt true", "age", entity.OpGt, "18", true},
		{"gt false", "age", entity.OpGt, "99", false},
		{"gt float with spaces", "score", entity.OpGt, "3", true},
		{"lt true", "age", entity.OpLt, "99", true},
		{"numeric against non-numeric value", "age", entity.OpGt, "old", false},
		{"non-numeric bound value", "plan", entity.OpLt, "10", false},
		{"unbound variable equals empty", "missing", entity.OpEquals, "", true},
		{"unbound variable gt", "missing", entity.OpGt, "1", false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			d := entity.ConditionData{Variable: tc.variable, Operator: tc.operator, Value: tc.value}
			require.Equal(t, tc.want, EvalCondition(d, ctx))
		})
	}
}
