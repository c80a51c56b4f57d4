package action

type State int

const (
	Continue State = iota // 0: keep evaluating
	Done                  // 1: verdict reached, message dropped
)

// Reason records why a message was dropped.
type Reason string

const (
	ReasonNone       Reason = ""
	ReasonDuplicate  Reason = "duplicate"
	ReasonTTLExpired Reason = "ttl_expired"
)

// Decision saves the result of the flood decision for one message
type Decision struct {
	State   State
	Reason  Reason
	Display bool
}

func NewDecision() *Decision {
	return &Decision{State: Continue}
}

func (d *Decision) Set(new State) {
	d.State = new
}

// Drop ends evaluation with the given reason.
func (d *Decision) Drop(reason Reason) {
	d.State = Done
	d.Reason = reason
}

// Admitted reports whether the message passed every check so far.
func (d *Decision) Admitted() bool {
	return d.State == Continue
}
