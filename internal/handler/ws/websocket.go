package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	chathandler "github.com/zhouzirui/aria/backend/internal/handler/chat"
	"github.com/zhouzirui/aria/backend/internal/middleware"
	"github.com/zhouzirui/aria/backend/internal/model/persona"
	"github.com/zhouzirui/aria/backend/internal/service/conversation"
)

const (
	defaultReadTimeout  = 60 * time.Second
	defaultPingInterval = 54 * time.Second
	writeTimeout        = 10 * time.Second
)

// Pipeline answers one inbound message.
type Pipeline interface {
	Handle(ctx context.Context, in conversation.Inbound) (conversation.Reply, error)
}

// Handler WebSocket文本聊天处理器
type Handler struct {
	pipeline Pipeline
	personas persona.Store
	upgrader websocket.Upgrader

	// readTimeout bounds the wait for the next client frame; pingInterval
	// must stay below it.
	readTimeout  time.Duration
	pingInterval time.Duration
}

// New 创建WebSocket处理器
func New(pipeline Pipeline, personas persona.Store) *Handler {
	return &Handler{
		pipeline: pipeline,
		personas: personas,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		readTimeout:  defaultReadTimeout,
		pingInterval: defaultPingInterval,
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// TextMessage 文本消息
type TextMessage struct {
	Text string `json:"text"`
}

// ConfigMessage 切换当前连接使用的角色
type ConfigMessage struct {
	PersonaID string `json:"personaId"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// connection serialises writes; gorilla allows one concurrent writer.
type connection struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	userID    string
	username  string
	personaID string
}

func (c *connection) send(msgType string, data interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteJSON(outgoingMessage{Type: msgType, Data: data, Timestamp: time.Now().UnixMilli()})
}

func (c *connection) sendError(message string) {
	if err := c.send("error", map[string]string{"message": message}); err != nil {
		log.Printf("[websocket] failed to send error: %v", err)
	}
}

func (c *connection) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

// handleWebSocket 处理WebSocket连接
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	if userID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	c := &connection{
		conn:      conn,
		userID:    userID,
		username:  middleware.Username(r.Context()),
		personaID: r.URL.Query().Get("personaId"),
	}
	log.Printf("[websocket] new connection for user: %s", userID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(h.readTimeout))
		return nil
	})

	go h.pingLoop(ctx, c)

	if err := c.send("connected", map[string]any{"persona": c.personaID}); err != nil {
		return
	}

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read error: %v", err)
			}
			return
		}

		// 流水线可能跨多个慢 provider，处理完再计算下一帧的等待时间
		h.handleMessage(ctx, c, &msg)
		conn.SetReadDeadline(time.Now().Add(h.readTimeout))
	}
}

func (h *Handler) handleMessage(ctx context.Context, c *connection, msg *inboundMessage) {
	switch msg.Type {
	case "text":
		var text TextMessage
		if err := json.Unmarshal(msg.Data, &text); err != nil {
			c.sendError("invalid text payload")
			return
		}
		h.processUserText(ctx, c, text.Text)
	case "config":
		var cfg ConfigMessage
		if err := json.Unmarshal(msg.Data, &cfg); err != nil {
			c.sendError("invalid config payload")
			return
		}
		h.applyConfig(c, cfg)
	default:
		c.sendError("unsupported message type: " + msg.Type)
	}
}

func (h *Handler) processUserText(ctx context.Context, c *connection, text string) {
	reply, err := h.pipeline.Handle(ctx, conversation.Inbound{
		UserID:      c.userID,
		DisplayName: c.username,
		PersonaID:   c.personaID,
		Text:        text,
	})
	if err != nil {
		_, message := chathandler.MapError(err)
		c.sendError(message)
		return
	}
	if err := c.send("result", reply); err != nil {
		log.Printf("[websocket] failed to send result: %v", err)
	}
}

func (h *Handler) applyConfig(c *connection, cfg ConfigMessage) {
	if cfg.PersonaID == "" {
		return
	}
	if h.personas != nil {
		if _, ok := h.personas.FindByID(cfg.PersonaID); !ok {
			c.sendError("persona not found")
			return
		}
	}
	c.personaID = cfg.PersonaID
	if err := c.send("config", map[string]string{"persona": c.personaID}); err != nil {
		log.Printf("[websocket] failed to ack config: %v", err)
	}
}

// pingLoop 定期发送ping消息
func (h *Handler) pingLoop(ctx context.Context, c *connection) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}
