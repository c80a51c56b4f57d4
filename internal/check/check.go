package check

import "mesh_chat/internal/dataType"

// Env is the node state the checks read from.
type Env struct {
	Label string
	Seen  *dataType.SeenSet
}
