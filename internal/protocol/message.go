package protocol

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"mesh_chat/internal/dataType"
)

const DefaultPingTTL = 4

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}

// NewChat creates a CHAT message with a fresh id. An empty dst broadcasts.
func NewChat(src, body string, ttl int, dst string) dataType.Message {
	return dataType.Message{
		ID:        uuid.New().String(),
		Timestamp: nowSeconds(),
		TTL:       ttl,
		Kind:      dataType.KindChat,
		Src:       src,
		Dst:       dst,
		Body:      body,
	}
}

// NewPing creates a liveness message. Pings are always broadcast and carry no body.
func NewPing(src string, ttl int) dataType.Message {
	return dataType.Message{
		ID:        uuid.New().String(),
		Timestamp: nowSeconds(),
		TTL:       ttl,
		Kind:      dataType.KindPing,
		Src:       src,
	}
}

// ParseAddressed turns a typed line into a CHAT message.
//
//	"hello world"                  broadcast, body "hello world"
//	"@127.0.0.1:9003 hello world"  dst "127.0.0.1:9003", body "hello world"
//
// Only the single space after the destination is consumed; the rest of the
// body is kept verbatim.
func ParseAddressed(text, src string, ttl int) dataType.Message {
	text = strings.TrimSpace(text)

	rest, addressed := strings.CutPrefix(text, "@")
	if !addressed {
		return NewChat(src, text, ttl, "")
	}
	dst, body, _ := strings.Cut(rest, " ")
	return NewChat(src, body, ttl, dst)
}
