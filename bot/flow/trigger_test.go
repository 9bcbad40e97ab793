package flow

import (
	"testing"
	"time"

	"AgentFlow/entity"

	"github.com/stretchr/testify/require"
)

func wfWithKeywords(id, keywords string, activatedAt time.Time) *entity.WorkflowDefinition {
	return &entity.WorkflowDefinition{
		ID:             id,
		TriggerKeyword: keywords,
		IsActive:       true,
		ActivatedAt:    activatedAt,
	}
}

func TestMatchTrigger(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	active := []*entity.WorkflowDefinition{
		wfWithKeywords("support", "help, support", base),
		wfWithKeywords("sales", "pricing,buy", base.Add(time.Hour)),
	}

	tests := []struct {
		name string
		text string
		want string
	}{
		{"exact keyword", "help", "support"},
		{"case insensitive", "HELP", "support"},
		{"surrounding whitespace", "  pricing  ", "sales"},
		{"second keyword in list", "buy", "sales"},
		{"no match", "hello there", ""},
		{"empty text", "   ", ""},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := MatchTrigger(tc.text, active)
			if tc.want == "" {
				require.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			require.Equal(t, tc.want, got.ID)
		})
	}
}

func TestMatchTrigger_MostRecentlyActivatedWins(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	older := wfWithKeywords("older", "start", base)
	newer := wfWithKeywords("newer", "start", base.Add(time.Minute))

	// Order in the active set must not matter.
	require.Equal(t, "newer", MatchTrigger("start", []*entity.WorkflowDefinition{older, newer}).ID)
	require.Equal(t, "newer", MatchTrigger("start", []*entity.WorkflowDefinition{newer, older}).ID)
}
