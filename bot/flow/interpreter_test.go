package flow

import (
	"testing"

	"AgentFlow/entity"

	"github.com/stretchr/testify/require"
)

func mustCompile(t *testing.T, nodes []entity.Node, edges []entity.Edge) *Graph {
	t.Helper()
	g, err := Compile(testDef(nodes, edges))
	require.NoError(t, err)
	return g
}

func startSession(g *Graph) *entity.Session {
	return entity.NewSession("contact-1", g.Definition().ID, g.Start())
}

func TestStep_MessageAndInputFlow(t *testing.T) {
	t.Parallel()

	g := mustCompile(t,
		[]entity.Node{
			testNode("start", entity.NodeTrigger, `{"triggerKeyword":"hi"}`),
			testNode("greet", entity.NodeMessage, `{"label":"Hi {{name}}"}`),
			testNode("ask", entity.NodeInput, `{"question":"What is your name?","variable":"name"}`),
			testNode("bye", entity.NodeMessage, `{"label":"Bye {{name}}"}`),
		},
		[]entity.Edge{
			testEdge("start", "", "greet"),
			testEdge("greet", "", "ask"),
			testEdge("ask", "", "bye"),
		},
	)
	interp := NewInterpreter(3)
	s := startSession(g)

	res := interp.Step(g, s, Event{Kind: EventSessionStart})
	require.False(t, res.Terminated)
	require.Len(t, res.Actions, 2)
	// Unbound {{name}} renders empty and is reported, the flow keeps going.
	require.Equal(t, "Hi ", res.Actions[0].Text)
	require.Equal(t, []string{"name"}, res.UnboundVars)
	require.Equal(t, "What is your name?", res.Actions[1].Text)
	require.Equal(t, entity.AwaitInput, s.Awaiting.Kind)
	require.Equal(t, "ask", s.Awaiting.NodeID)

	res = interp.Step(g, s, Event{Kind: EventUserReply, Text: "Bob"})
	require.True(t, res.Terminated)
	require.Equal(t, "flow completed", res.Reason)
	require.Len(t, res.Actions, 1)
	require.Equal(t, "Bye Bob", res.Actions[0].Text)
	require.Equal(t, "Bob", s.Var("name"))
}

func TestStep_StaleEventsIgnored(t *testing.T) {
	t.Parallel()

	g := mustCompile(t,
		[]entity.Node{
			testNode("start", entity.NodeTrigger, `{"triggerKeyword":"hi"}`),
			testNode("ask", entity.NodeInput, `{"question":"Name?","variable":"name"}`),
		},
		[]entity.Edge{testEdge("start", "", "ask")},
	)
	interp := NewInterpreter(3)
	s := startSession(g)
	interp.Step(g, s, Event{Kind: EventSessionStart})

	// A selection while awaiting free text must not touch the session.
	res := interp.Step(g, s, Event{Kind: EventChoiceSelected, Choice: 0})
	require.True(t, res.Ignored)
	require.Empty(t, res.Actions)
	require.Equal(t, entity.AwaitInput, s.Awaiting.Kind)
}

func buttonGraph(t *testing.T) *Graph {
	t.Helper()
	return mustCompile(t,
		[]entity.Node{
			testNode("start", entity.NodeTrigger, `{"triggerKeyword":"hi"}`),
			testNode("btn", entity.NodeButton, `{"label":"Pick","options":["Red","Blue"]}`),
			testNode("red", entity.NodeMessage, `{"label":"red it is"}`),
			testNode("blue", entity.NodeMessage, `{"label":"blue it is"}`),
		},
		[]entity.Edge{
			testEdge("start", "", "btn"),
			testEdge("btn", OptionHandle(0), "red"),
			testEdge("btn", OptionHandle(1), "blue"),
		},
	)
}

func TestStep_ButtonRouting(t *testing.T) {
	t.Parallel()

	g := buttonGraph(t)
	interp := NewInterpreter(3)
	s := startSession(g)

	res := interp.Step(g, s, Event{Kind: EventSessionStart})
	require.Len(t, res.Actions, 1)
	require.Equal(t, []string{"Red", "Blue"}, res.Actions[0].Options)
	require.Equal(t, entity.AwaitChoice, s.Awaiting.Kind)

	res = interp.Step(g, s, Event{Kind: EventChoiceSelected, Choice: 1})
	require.True(t, res.Terminated)
	require.Len(t, res.Actions, 1)
	require.Equal(t, "blue it is", res.Actions[0].Text)
}

func TestStep_UnmatchedChoiceRetriesThenTerminates(t *testing.T) {
	t.Parallel()

	g := buttonGraph(t)
	interp := NewInterpreter(3)
	s := startSession(g)
	interp.Step(g, s, Event{Kind: EventSessionStart})

	// Two retries re-emit the prompt and keep the session suspended.
	for attempt := 1; attempt <= 2; attempt++ {
		res := interp.Step(g, s, Event{Kind: EventChoiceSelected, Choice: 7})
		require.False(t, res.Terminated)
		require.Len(t, res.Actions, 1)
		require.Equal(t, []string{"Red", "Blue"}, res.Actions[0].Options)
		require.Equal(t, attempt, s.ChoiceRetries)
		require.Equal(t, entity.AwaitChoice, s.Awaiting.Kind)
	}

	// The third unmatched choice exhausts the budget.
	res := interp.Step(g, s, Event{Kind: EventChoiceSelected, Choice: 7})
	require.True(t, res.Terminated)
	require.Equal(t, "choice retries exceeded", res.Reason)

	// A valid choice after retries resets the counter on resume.
	s2 := startSession(g)
	interp.Step(g, s2, Event{Kind: EventSessionStart})
	interp.Step(g, s2, Event{Kind: EventChoiceSelected, Choice: 9})
	res = interp.Step(g, s2, Event{Kind: EventChoiceSelected, Choice: 0})
	require.True(t, res.Terminated)
	require.Equal(t, 0, s2.ChoiceRetries)
}

func conditionGraph(t *testing.T, operator, value string) *Graph {
	t.Helper()
	return mustCompile(t,
		[]entity.Node{
			testNode("start", entity.NodeTrigger, `{"triggerKeyword":"hi"}`),
			testNode("ask", entity.NodeInput, `{"question":"Age?","variable":"age"}`),
			testNode("cond", entity.NodeCondition, `{"variable":"age","operator":"`+operator+`","value":"`+value+`"}`),
			testNode("yes", entity.NodeMessage, `{"label":"yes"}`),
			testNode("no", entity.NodeMessage, `{"label":"no"}`),
		},
		[]entity.Edge{
			testEdge("start", "", "ask"),
			testEdge("ask", "", "cond"),
			testEdge("cond", HandleTrue, "yes"),
			testEdge("cond", HandleFalse, "no"),
		},
	)
}

func TestStep_ConditionBranching(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"numeric greater", "30", "yes"},
		{"numeric smaller", "10", "no"},
		{"non-numeric operand is false", "thirty", "no"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			g := conditionGraph(t, "gt", "18")
			interp := NewInterpreter(3)
			s := startSession(g)
			interp.Step(g, s, Event{Kind: EventSessionStart})

			res := interp.Step(g, s, Event{Kind: EventUserReply, Text: tc.reply})
			require.True(t, res.Terminated)
			require.Len(t, res.Actions, 1)
			require.Equal(t, tc.want, res.Actions[0].Text)
		})
	}
}

func TestStep_LoopRunsBodyCountTimes(t *testing.T) {
	t.Parallel()

	g := mustCompile(t,
		[]entity.Node{
			testNode("start", entity.NodeTrigger, `{"triggerKeyword":"hi"}`),
			testNode("loop", entity.NodeLoop, `{"count":3}`),
			testNode("body", entity.NodeMessage, `{"label":"tick"}`),
			testNode("done", entity.NodeMessage, `{"label":"done"}`),
		},
		[]entity.Edge{
			testEdge("start", "", "loop"),
			testEdge("loop", "", "body"),
			testEdge("loop", "", "done"),
			testEdge("body", "", "loop"),
		},
	)
	interp := NewInterpreter(3)
	s := startSession(g)

	res := interp.Step(g, s, Event{Kind: EventSessionStart})
	require.True(t, res.Terminated)
	require.Len(t, res.Actions, 4)
	for i := 0; i < 3; i++ {
		require.Equal(t, "tick", res.Actions[i].Text)
	}
	require.Equal(t, "done", res.Actions[3].Text)
	// The counter resets on exit so a later visit loops again.
	require.Equal(t, 0, s.LoopCounters["loop"])
}

func TestStep_DelaySuspendsUntilMatchingTimer(t *testing.T) {
	t.Parallel()

	g := mustCompile(t,
		[]entity.Node{
			testNode("start", entity.NodeTrigger, `{"triggerKeyword":"hi"}`),
			testNode("wait", entity.NodeDelay, `{"delayTime":5,"unit":"min"}`),
			testNode("after", entity.NodeMessage, `{"label":"welcome back"}`),
		},
		[]entity.Edge{
			testEdge("start", "", "wait"),
			testEdge("wait", "", "after"),
		},
	)
	interp := NewInterpreter(3)
	s := startSession(g)

	res := interp.Step(g, s, Event{Kind: EventSessionStart})
	require.False(t, res.Terminated)
	require.Len(t, res.Timers, 1)
	require.Equal(t, "wait", res.Timers[0].NodeID)
	require.Equal(t, entity.AwaitTimer, s.Awaiting.Kind)
	timerID := s.Awaiting.TimerID
	require.Equal(t, res.Timers[0].TimerID, timerID)

	// A timer from an earlier suspension must not resume the session.
	stale := interp.Step(g, s, Event{Kind: EventTimerFired, TimerID: "old-timer"})
	require.True(t, stale.Ignored)
	require.Equal(t, entity.AwaitTimer, s.Awaiting.Kind)

	res = interp.Step(g, s, Event{Kind: EventTimerFired, TimerID: timerID})
	require.True(t, res.Terminated)
	require.Len(t, res.Actions, 1)
	require.Equal(t, "welcome back", res.Actions[0].Text)
}

func TestStep_NestedLoopsRunToCompletion(t *testing.T) {
	t.Parallel()

	// Two nested count-20 loops: the inner body must run 400 times before
	// the outer loop exits.
	g := mustCompile(t,
		[]entity.Node{
			testNode("start", entity.NodeTrigger, `{"triggerKeyword":"hi"}`),
			testNode("outer", entity.NodeLoop, `{"count":20}`),
			testNode("inner", entity.NodeLoop, `{"count":20}`),
			testNode("tick", entity.NodeMessage, `{"label":"tick"}`),
			testNode("done", entity.NodeMessage, `{"label":"done"}`),
		},
		[]entity.Edge{
			testEdge("start", "", "outer"),
			testEdge("outer", "", "inner"), // body
			testEdge("outer", "", "done"),  // exit
			testEdge("inner", "", "tick"),  // body
			testEdge("inner", "", "outer"), // exit, back to the outer loop
			testEdge("tick", "", "inner"),
		},
	)
	interp := NewInterpreter(3)
	s := startSession(g)

	res := interp.Step(g, s, Event{Kind: EventSessionStart})
	require.True(t, res.Terminated)
	require.Equal(t, "flow completed", res.Reason)
	require.Len(t, res.Actions, 401)
	for i := 0; i < 400; i++ {
		require.Equal(t, "tick", res.Actions[i].Text)
	}
	require.Equal(t, "done", res.Actions[400].Text)
	require.Equal(t, 0, s.LoopCounters["outer"])
	require.Equal(t, 0, s.LoopCounters["inner"])
}
