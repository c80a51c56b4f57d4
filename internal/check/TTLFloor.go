package check

import (
	"mesh_chat/internal/action"
	"mesh_chat/internal/dataType"
)

// TTLFloor drops a message with no hop budget left.
func TTLFloor(msg dataType.Message, env *Env, decision *action.Decision) {
	if msg.TTL <= 0 {
		decision.Drop(action.ReasonTTLExpired)
		return
	}
	decision.Set(action.Continue)
}
