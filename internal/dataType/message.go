package dataType

type Kind string

const (
	KindChat Kind = "CHAT"
	KindPing Kind = "PING"
)

// Valid reports whether k is one of the protocol message kinds.
func (k Kind) Valid() bool {
	return k == KindChat || k == KindPing
}

type Message struct {
	ID        string  `json:"mid"`  // random UUID, de-duplication key
	Timestamp float64 `json:"ts"`   // seconds since epoch at creation
	TTL       int     `json:"ttl"`  // remaining hop budget
	Kind      Kind    `json:"kind"` // CHAT or PING
	Src       string  `json:"src"`  // originating node label (host:port)
	Dst       string  `json:"dst"`  // destination label, empty for broadcast
	Body      string  `json:"body"`
}

func (m Message) IsBroadcast() bool {
	return m.Dst == ""
}

func (m Message) IsPing() bool {
	return m.Kind == KindPing
}

func (m Message) IsChat() bool {
	return m.Kind == KindChat
}

// WithTTL returns a copy of m carrying the given hop budget.
func (m Message) WithTTL(ttl int) Message {
	m.TTL = ttl
	return m
}
