package http

import (
	"context"
	"encoding/json"
	"time"

	"restate/internal/auth/domain/model"
	"restate/internal/auth/provider"
	"restate/internal/shared/eventbus"
	"restate/internal/shared/fetchstate"
	"restate/internal/shared/logger"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Message types sent over /ws/session
const (
	MessageTypeSession = "session"
	MessageTypeAlert   = "alert"
	MessageTypeRefetch = "refetch"
	MessageTypeError   = "error"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsWriteTimeout = 10 * time.Second
	wsSendBuffer   = 16

	wsRefetchTimeout = 30 * time.Second
)

// WebSocketMessage is the envelope of every frame in both directions.
type WebSocketMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// SessionWebSocketHandler streams session snapshots and alerts to connected UIs.
type SessionWebSocketHandler struct {
	provider *provider.GlobalProvider
	bus      eventbus.EventBusInterface
	log      logger.Logger
}

// NewSessionWebSocketHandler creates the websocket handler.
func NewSessionWebSocketHandler(p *provider.GlobalProvider, bus eventbus.EventBusInterface, log logger.Logger) *SessionWebSocketHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &SessionWebSocketHandler{
		provider: p,
		bus:      bus,
		log:      log.WithComponent("session_ws"),
	}
}

// RegisterRoutes registers GET /ws/session.
func (h *SessionWebSocketHandler) RegisterRoutes(router fiber.Router) {
	ws := router.Group("/ws")
	ws.Use("/session", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	ws.Get("/session", websocket.New(h.handleConnection))
}

func (h *SessionWebSocketHandler) handleConnection(conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clientID := uuid.NewString()
	log := h.log.WithFields(map[string]interface{}{"client_id": clientID})
	log.Info("Session websocket connected")

	outbox := make(chan WebSocketMessage, wsSendBuffer)
	enqueue := func(msg WebSocketMessage) {
		select {
		case outbox <- msg:
		default:
			log.Warnf("Dropping %s message for slow client", msg.Type)
		}
	}

	sessionSub := h.bus.Subscribe(eventbus.EventTypeSessionChanged, func(_ context.Context, event eventbus.Event) error {
		if snap, ok := event.Data().(fetchstate.Snapshot[*model.User]); ok {
			enqueue(WebSocketMessage{Type: MessageTypeSession, Data: provider.StateFromSnapshot(snap)})
		}
		return nil
	})
	alertSub := h.bus.Subscribe(eventbus.EventTypeAlert, func(_ context.Context, event eventbus.Event) error {
		enqueue(WebSocketMessage{Type: MessageTypeAlert, Data: event.Data()})
		return nil
	})
	defer func() {
		h.bus.Unsubscribe(sessionSub)
		h.bus.Unsubscribe(alertSub)
		log.Info("Session websocket closed")
	}()

	enqueue(WebSocketMessage{Type: MessageTypeSession, Data: h.provider.State()})

	go h.writeLoop(ctx, conn, outbox, log)

	for {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warnf("Session websocket error: %v", err)
			}
			return
		}

		var msg WebSocketMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			enqueue(WebSocketMessage{Type: MessageTypeError, Data: "invalid message"})
			continue
		}
		switch msg.Type {
		case MessageTypeRefetch:
			// the refreshed state reaches this client through the bus
			go func() {
				refetchCtx, cancel := context.WithTimeout(context.Background(), wsRefetchTimeout)
				defer cancel()
				h.provider.Refetch(refetchCtx)
			}()
		default:
			enqueue(WebSocketMessage{Type: MessageTypeError, Data: "unknown message type " + msg.Type})
		}
	}
}

func (h *SessionWebSocketHandler) writeLoop(ctx context.Context, conn *websocket.Conn, outbox <-chan WebSocketMessage, log logger.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-outbox:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				log.Warnf("Failed to write %s message: %v", msg.Type, err)
				return
			}
		}
	}
}
