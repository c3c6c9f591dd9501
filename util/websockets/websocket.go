package websockets

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/bwise1/clarity/internal/metrics"
	"github.com/bwise1/clarity/internal/model"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketManager fans dispute updates out to subscribed connections. All
// client bookkeeping and writes happen on the Run goroutine.
type WebSocketManager struct {
	clients    map[*websocket.Conn]*Client
	register   chan *Client
	unregister chan *websocket.Conn
	subscribe  chan subscription
	publish    chan outbound
	done       chan struct{}
	logger     *zap.SugaredLogger
}

func NewWebSocketManager(logger *zap.SugaredLogger) *WebSocketManager {
	return &WebSocketManager{
		clients:    make(map[*websocket.Conn]*Client),
		register:   make(chan *Client),
		unregister: make(chan *websocket.Conn),
		subscribe:  make(chan subscription),
		publish:    make(chan outbound, 256),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run serves the manager until ctx is cancelled, then closes every connection.
func (manager *WebSocketManager) Run(ctx context.Context) {
	defer close(manager.done)
	for {
		select {
		case <-ctx.Done():
			for conn := range manager.clients {
				conn.Close()
				delete(manager.clients, conn)
			}
			metrics.LiveSubscribers.Set(0)
			return

		case client := <-manager.register:
			manager.clients[client.Conn] = client
			metrics.LiveSubscribers.Set(float64(len(manager.clients)))

		case conn := <-manager.unregister:
			manager.drop(conn)

		case sub := <-manager.subscribe:
			client, ok := manager.clients[sub.conn]
			if !ok {
				continue
			}
			if sub.active {
				client.disputes[sub.disputeID] = struct{}{}
			} else {
				delete(client.disputes, sub.disputeID)
			}

		case msg := <-manager.publish:
			for conn, client := range manager.clients {
				if _, ok := client.disputes[msg.disputeID]; !ok {
					continue
				}
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, msg.payload); err != nil {
					manager.logger.Debugw("dropping websocket client", "user_id", client.UserID, "error", err)
					manager.drop(conn)
				}
			}
		}
	}
}

func (manager *WebSocketManager) drop(conn *websocket.Conn) {
	client, exists := manager.clients[conn]
	if !exists {
		return
	}
	delete(manager.clients, conn)
	conn.Close()
	metrics.LiveSubscribers.Set(float64(len(manager.clients)))
	manager.logger.Debugw("websocket client disconnected", "user_id", client.UserID)
}

// HandleConnections upgrades the request and subscribes the connection to
// disputeID. Clients may subscribe to further disputes by sending
// {"type":"subscribe","dispute_id":"..."}.
func (manager *WebSocketManager) HandleConnections(w http.ResponseWriter, r *http.Request, userID, disputeID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		manager.logger.Warnw("websocket upgrade failed", "error", err)
		return
	}
	// The http server's deadlines outlive the upgrade.
	conn.SetReadDeadline(time.Time{})

	client := &Client{Conn: conn, UserID: userID, disputes: map[string]struct{}{disputeID: {}}}
	select {
	case manager.register <- client:
	case <-manager.done:
		conn.Close()
		return
	}
	defer func() {
		select {
		case manager.unregister <- conn:
		case <-manager.done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		sub, ok := parseSubscription(raw)
		if !ok {
			manager.logger.Debugw("ignoring websocket message", "user_id", userID)
			continue
		}
		sub.conn = conn
		select {
		case manager.subscribe <- sub:
		case <-manager.done:
			return
		}
	}
}

// parseSubscription accepts subscribe and unsubscribe messages naming a valid
// dispute id, returned in canonical form so it matches published updates.
func parseSubscription(raw []byte) (subscription, bool) {
	var message Message
	if err := json.Unmarshal(raw, &message); err != nil {
		return subscription{}, false
	}
	if message.Type != MsgTypeSubscribe && message.Type != MsgTypeUnsubscribe {
		return subscription{}, false
	}
	id, err := uuid.Parse(message.DisputeID)
	if err != nil {
		return subscription{}, false
	}
	return subscription{disputeID: id.String(), active: message.Type == MsgTypeSubscribe}, true
}

// PublishDispute queues an update for subscribers of d. Updates are dropped
// rather than blocking the caller when the queue is full.
func (manager *WebSocketManager) PublishDispute(event string, d model.Dispute) {
	payload, err := json.Marshal(Update{Type: event, DisputeID: d.ID.String(), Dispute: d})
	if err != nil {
		manager.logger.Errorw("encoding live update failed", "dispute_id", d.ID, "error", err)
		return
	}
	select {
	case manager.publish <- outbound{disputeID: d.ID.String(), payload: payload}:
	default:
		manager.logger.Warnw("live update queue full, dropping update", "dispute_id", d.ID, "event", event)
	}
}
