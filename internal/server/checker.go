package server

import (
	"mesh_chat/internal/action"
	"mesh_chat/internal/check"
	"mesh_chat/internal/dataType"
)

type CheckFunc func(dataType.Message, *check.Env, *action.Decision)

// admissionChecks run in order; the first drop ends evaluation. Duplicate
// runs first so de-duplication dominates the TTL floor.
var admissionChecks = []CheckFunc{
	check.Duplicate,
	check.TTLFloor,
}

// evaluate decides the fate of an inbound message and, when it is admitted,
// records its id as seen. Caller holds procMu.
func (n *Node) evaluate(msg dataType.Message) *action.Decision {
	decision := action.NewDecision()
	if !n.admit(msg, decision) {
		return decision
	}

	n.seen.MarkIfAbsent(msg.ID, n.now())
	n.metrics.SeenEntries.Set(float64(n.seen.Len()))

	check.Display(msg, n.env, decision)
	return decision
}

// shouldForward reports whether msg passes admission, without recording it.
func (n *Node) shouldForward(msg dataType.Message) bool {
	return n.admit(msg, action.NewDecision())
}

// admit runs the admission checks into decision.
func (n *Node) admit(msg dataType.Message, decision *action.Decision) bool {
	for _, checkFunc := range admissionChecks {
		checkFunc(msg, n.env, decision)
		if decision.State == action.Done {
			return false
		}
	}
	return true
}

func (n *Node) shouldDisplay(msg dataType.Message) bool {
	decision := action.NewDecision()
	check.Display(msg, n.env, decision)
	return decision.Display
}
