package check

import (
	"mesh_chat/internal/action"
	"mesh_chat/internal/dataType"
)

// Display decides local visibility. Pings are never shown; a chat is shown
// when broadcast or when dst equals this node's label exactly.
func Display(msg dataType.Message, env *Env, decision *action.Decision) {
	switch {
	case msg.IsPing():
		decision.Display = false
	case msg.IsBroadcast():
		decision.Display = true
	default:
		decision.Display = msg.Dst == env.Label
	}
}
