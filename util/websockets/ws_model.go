package websockets

import (
	"github.com/bwise1/clarity/internal/model"
	"github.com/gorilla/websocket"
)

// Message types
const (
	MsgTypeSubscribe   = "subscribe"
	MsgTypeUnsubscribe = "unsubscribe"
)

// Client represents a connected WebSocket user. disputes is only touched by
// the manager's Run loop.
type Client struct {
	Conn     *websocket.Conn
	UserID   string
	disputes map[string]struct{}
}

// Message is what clients send: subscribe to or leave a dispute's updates.
type Message struct {
	Type      string `json:"type"`
	DisputeID string `json:"dispute_id"`
}

// Update is pushed to every client subscribed to the dispute.
type Update struct {
	Type      string        `json:"type"`
	DisputeID string        `json:"dispute_id"`
	Dispute   model.Dispute `json:"dispute"`
}

type subscription struct {
	conn      *websocket.Conn
	disputeID string
	active    bool
}

type outbound struct {
	disputeID string
	payload   []byte
}
