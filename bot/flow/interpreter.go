package flow

import (
	"fmt"
	"time"

	"AgentFlow/entity"

	"github.com/google/uuid"
)

// Branch handle names used by condition nodes.
const (
	HandleTrue  = "true"
	HandleFalse = "false"
)

// OptionHandle builds the source handle name for a button/menu branch.
func OptionHandle(index int) string {
	return fmt.Sprintf("option-%d", index)
}

// EventKind identifies the kind of event driving an interpreter step.
type EventKind string

const (
	EventSessionStart   EventKind = "session_start"
	EventUserReply      EventKind = "user_reply"
	EventChoiceSelected EventKind = "choice_selected"
	EventTimerFired     EventKind = "timer_fired"
)

// Event is one input to the interpreter's step function.
type Event struct {
	Kind    EventKind
	Text    string
	Choice  int
	TimerID string
}

// TimerRequest asks the timer service to arm a one-shot delay timer.
type TimerRequest struct {
	TimerID  string
	NodeID   string
	Duration time.Duration
}

// Result is the outcome of one interpreter step.
type Result struct {
	Actions    []entity.Action
	Timers     []TimerRequest
	Terminated bool
	// Reason explains a termination for logs and operator events.
	Reason string
	// Ignored marks a stale or mismatched event: the session was left
	// untouched and nothing was emitted.
	Ignored bool
	// UnboundVars collects placeholder keys that rendered empty, for the
	// template render warning.
	UnboundVars []string
}

// Interpreter is the stateless step function over compiled graphs. It does
// no I/O: persistence, timers and delivery belong to the session manager.
type Interpreter struct {
	// MaxChoiceRetries bounds prompt re-emission on unmatched choices
	// before the session is terminated.
	MaxChoiceRetries int
}

// NewInterpreter creates an interpreter with the given retry bound.
func NewInterpreter(maxChoiceRetries int) *Interpreter {
	if maxChoiceRetries < 1 {
		maxChoiceRetries = 3
	}
	return &Interpreter{MaxChoiceRetries: maxChoiceRetries}
}

// Step consumes one event against a session and its compiled graph. The
// session is mutated in place; the caller owns it and serializes calls per
// contact. Suspension points are exactly the awaiting states.
func (i *Interpreter) Step(g *Graph, s *entity.Session, ev Event) Result {
	var res Result

	switch s.Awaiting.Kind {
	case entity.AwaitNone:
		if ev.Kind != EventSessionStart {
			res.Ignored = true
			return res
		}
		i.run(g, s, s.CurrentNodeID, &res)

	case entity.AwaitInput:
		if ev.Kind != EventUserReply {
			res.Ignored = true
			return res
		}
		s.SetVar(s.Awaiting.Variable, ev.Text)
		from := s.Awaiting.NodeID
		s.ClearAwaiting()
		i.advance(g, s, from, &res)

	case entity.AwaitChoice:
		if ev.Kind != EventChoiceSelected {
			res.Ignored = true
			return res
		}
		i.resumeChoice(g, s, ev.Choice, &res)

	case entity.AwaitTimer:
		if ev.Kind != EventTimerFired || ev.TimerID != s.Awaiting.TimerID {
			res.Ignored = true
			return res
		}
		from := s.Awaiting.NodeID
		s.ClearAwaiting()
		i.advance(g, s, from, &res)
	}

	return res
}

// resumeChoice routes a selection to its option edge. An out-of-range
// selection leaves the session suspended: the prompt is re-emitted up to
// MaxChoiceRetries times, then the session terminates.
func (i *Interpreter) resumeChoice(g *Graph, s *entity.Session, choice int, res *Result) {
	nodeID := s.Awaiting.NodeID
	target, ok := g.handleTarget(nodeID, OptionHandle(choice))
	if !ok {
		s.ChoiceRetries++
		if s.ChoiceRetries >= i.MaxChoiceRetries {
			res.Terminated = true
			res.Reason = "choice retries exceeded"
			return
		}
		if n, exists := g.nodes[nodeID]; exists {
			res.Actions = append(res.Actions, i.promptAction(s, n))
		}
		return
	}
	s.ClearAwaiting()
	i.run(g, s, target, res)
}

// advance follows the sole outgoing edge of a node, terminating on dead ends.
func (i *Interpreter) advance(g *Graph, s *entity.Session, nodeID string, res *Result) {
	target, ok := g.next(nodeID)
	if !ok {
		res.Terminated = true
		res.Reason = "flow completed"
		return
	}
	i.run(g, s, target, res)
}

// run walks auto-advancing nodes synchronously until it reaches a suspending
// node or a dead end. The step guard bounds runaway traversal by the budget
// the graph's loop nodes admit.
func (i *Interpreter) run(g *Graph, s *entity.Session, nodeID string, res *Result) {
	for steps := 0; steps < g.stepBudget; steps++ {
		n, ok := g.nodes[nodeID]
		if !ok {
			res.Terminated = true
			res.Reason = "node not in graph"
			return
		}
		s.CurrentNodeID = nodeID

		switch d := n.payload.(type) {
		case entity.TriggerData:
			// Entry point only, nothing to emit.

		case entity.MessageData:
			res.UnboundVars = append(res.UnboundVars, UnboundVars(d.Text, s.Context)...)
			res.Actions = append(res.Actions, entity.Action{
				ContactID: s.ContactID,
				Text:      Render(d.Text, s.Context),
			})

		case entity.InputData:
			res.Actions = append(res.Actions, entity.Action{
				ContactID: s.ContactID,
				Text:      Render(d.Question, s.Context),
			})
			s.Awaiting = entity.Awaiting{
				Kind:     entity.AwaitInput,
				NodeID:   nodeID,
				Variable: d.Variable,
			}
			return

		case entity.ButtonData:
			res.Actions = append(res.Actions, i.promptAction(s, n))
			s.Awaiting = entity.Awaiting{
				Kind:    entity.AwaitChoice,
				NodeID:  nodeID,
				Handles: optionHandles(len(d.Options)),
			}
			return

		case entity.MenuData:
			res.Actions = append(res.Actions, i.promptAction(s, n))
			s.Awaiting = entity.Awaiting{
				Kind:    entity.AwaitChoice,
				NodeID:  nodeID,
				Handles: optionHandles(len(d.Options)),
			}
			return

		case entity.ConditionData:
			handle := HandleFalse
			if EvalCondition(d, s.Context) {
				handle = HandleTrue
			}
			target, ok := g.handleTarget(nodeID, handle)
			if !ok {
				// Validated at activation; a missing branch here is a
				// terminal failure, not an engine fault.
				res.Terminated = true
				res.Reason = "missing condition branch"
				return
			}
			nodeID = target
			continue

		case entity.LoopData:
			if s.LoopCounters == nil {
				s.LoopCounters = make(map[string]int)
			}
			s.LoopCounters[nodeID]++
			var target string
			if s.LoopCounters[nodeID] <= d.Count {
				target = n.out[0].Target // body
			} else {
				target = n.out[1].Target // exit
				s.LoopCounters[nodeID] = 0
			}
			nodeID = target
			continue

		case entity.DelayData:
			timerID := uuid.NewString()
			res.Timers = append(res.Timers, TimerRequest{
				TimerID:  timerID,
				NodeID:   nodeID,
				Duration: delayDuration(d),
			})
			s.Awaiting = entity.Awaiting{
				Kind:    entity.AwaitTimer,
				NodeID:  nodeID,
				TimerID: timerID,
			}
			return
		}

		target, ok := g.next(nodeID)
		if !ok {
			res.Terminated = true
			res.Reason = "flow completed"
			return
		}
		nodeID = target
	}

	// Guard tripped: treat as a terminal failure rather than spinning.
	res.Terminated = true
	res.Reason = "traversal guard tripped"
}

// promptAction rebuilds the outbound prompt for a choice node, used both on
// first visit and on retry re-emission.
func (i *Interpreter) promptAction(s *entity.Session, n *compiledNode) entity.Action {
	switch d := n.payload.(type) {
	case entity.ButtonData:
		return entity.Action{
			ContactID: s.ContactID,
			Text:      Render(d.Label, s.Context),
			Options:   d.Options,
		}
	case entity.MenuData:
		return entity.Action{
			ContactID: s.ContactID,
			Text:      Render(d.Body, s.Context),
			Menu: &entity.MenuContent{
				Header: d.Header,
				Body:   Render(d.Body, s.Context),
				Footer: d.Footer,
				Button: d.Button,
				Items:  d.Options,
			},
		}
	}
	return entity.Action{ContactID: s.ContactID}
}

func optionHandles(count int) []string {
	handles := make([]string, count)
	for i := range handles {
		handles[i] = OptionHandle(i)
	}
	return handles
}

func delayDuration(d entity.DelayData) time.Duration {
	switch d.Unit {
	case entity.UnitMin:
		return time.Duration(d.Duration) * time.Minute
	case entity.UnitHour:
		return time.Duration(d.Duration) * time.Hour
	default:
		return time.Duration(d.Duration) * time.Second
	}
}
