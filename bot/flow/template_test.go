package flow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	t.Parallel()

	ctx := map[string]string{"name": "Ada", "city": "London"}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no placeholders", "hello", "hello"},
		{"single", "Hi {{name}}", "Hi Ada"},
		{"spaced braces", "Hi {{ name }}", "Hi Ada"},
		{"multiple", "{{name}} from {{city}}", "Ada from London"},
		{"unbound renders empty", "Hi {{nickname}}!", "Hi !"},
		{"repeated key", "{{name}} {{name}}", "Ada Ada"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, Render(tc.in, ctx))
		})
	}
}

func TestUnboundVars(t *testing.T) {
	t.Parallel()

	ctx := map[string]string{"name": "Ada"}

	require.Empty(t, UnboundVars("Hi {{name}}", ctx))
	require.Equal(t, []string{"city"}, UnboundVars("{{name}} in {{city}}", ctx))
	// Duplicates are reported once.
	require.Equal(t, []string{"city"}, UnboundVars("{{city}} {{city}}", ctx))
}

func TestNormalizeText(t *testing.T) {
	t.Parallel()

	require.Equal(t, "hello", NormalizeText("  HeLLo \n"))
	require.Equal(t, "", NormalizeText("   "))
}
