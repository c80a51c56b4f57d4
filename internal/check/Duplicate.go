package check

import (
	"mesh_chat/internal/action"
	"mesh_chat/internal/dataType"
)

// Duplicate drops a message whose id is already in the seen-set, whatever its TTL.
func Duplicate(msg dataType.Message, env *Env, decision *action.Decision) {
	if env.Seen.Contains(msg.ID) {
		decision.Drop(action.ReasonDuplicate)
		return
	}
	decision.Set(action.Continue)
}
