package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Broadcast scopes. Every connection also belongs to ScopeAll; students
// additionally join ScopeStudent and their poll's scope, teachers join
// ScopeTeacher.
const (
	ScopeAll     = "all"
	ScopeTeacher = "teacher"
	ScopeStudent = "student"
)

// PollScope names the broadcast scope for a single poll's room.
func PollScope(pollID uuid.UUID) string {
	return "poll:" + pollID.String()
}

// Publisher publishes scope events to other instances.
type Publisher interface {
	PublishScopeEvent(scope string, event EventType, payload []byte, origin string) error
}

// Subscriber subscribes to a scope's channel and invokes handler for events
// originating on other instances.
type Subscriber interface {
	SubscribeScope(scope string, origin string, handler func(event EventType, payload []byte)) (cancel func(), err error)
}

// Hub maintains the connection registry grouped into broadcast scopes. Scope
// membership is idempotent: joining a scope twice never duplicates delivery.
// With a Redis bridge attached, broadcasts also fan out to other instances.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client            // clientID -> client
	scopes  map[string]map[string]*Client // scope -> clientID -> client
	subs    map[string]func()             // scope -> cancel Redis subscription

	instanceID string
	pub        Publisher
	sub        Subscriber
	logger     *zap.Logger
}

// NewHub creates a websocket hub. pub/sub may be nil for single-instance use.
func NewHub(logger *zap.Logger, pub Publisher, sub Subscriber) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		scopes:     make(map[string]map[string]*Client),
		subs:       make(map[string]func()),
		instanceID: uuid.New().String(),
		pub:        pub,
		sub:        sub,
		logger:     logger,
	}
}

// Register adds a client to the registry and the all-clients scope.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
	h.Join(ScopeAll, c)
	h.logger.Debug("client connected", zap.String("client_id", c.ID), zap.String("role", c.Role))
}

// Unregister removes a client from the registry and every scope it joined.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.ID)
	for scope, members := range h.scopes {
		if _, ok := members[c.ID]; !ok {
			continue
		}
		delete(members, c.ID)
		if len(members) == 0 {
			delete(h.scopes, scope)
			if cancel, ok := h.subs[scope]; ok {
				cancel()
				delete(h.subs, scope)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client disconnected", zap.String("client_id", c.ID))
}

// Join adds a client to a scope, subscribing the scope's Redis channel when
// its first member arrives.
func (h *Hub) Join(scope string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.scopes[scope] == nil {
		h.scopes[scope] = make(map[string]*Client)
		if h.sub != nil {
			cancel, err := h.sub.SubscribeScope(scope, h.instanceID, func(event EventType, payload []byte) {
				h.broadcastLocal(scope, event, json.RawMessage(payload))
			})
			if err != nil {
				h.logger.Warn("scope subscribe failed", zap.String("scope", scope), zap.Error(err))
			} else {
				h.subs[scope] = cancel
			}
		}
	}
	h.scopes[scope][c.ID] = c
}

// Leave removes a client from a scope. A no-op when not a member.
func (h *Hub) Leave(scope string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.scopes[scope]
	if !ok {
		return
	}
	delete(members, c.ID)
	if len(members) == 0 {
		delete(h.scopes, scope)
		if cancel, ok := h.subs[scope]; ok {
			cancel()
			delete(h.subs, scope)
		}
	}
}

// Broadcast delivers an event to every local member of a scope and publishes
// it for other instances.
func (h *Hub) Broadcast(scope string, event EventType, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("marshal broadcast payload", zap.String("event", string(event)), zap.Error(err))
		return
	}
	h.broadcastLocal(scope, event, data)
	if h.pub != nil {
		if err := h.pub.PublishScopeEvent(scope, event, data, h.instanceID); err != nil {
			h.logger.Warn("publish scope event", zap.String("scope", scope), zap.Error(err))
		}
	}
}

func (h *Hub) broadcastLocal(scope string, event EventType, data json.RawMessage) {
	msg := Message{Event: event, Data: data}
	h.mu.RLock()
	members := h.scopes[scope]
	clients := make([]*Client, 0, len(members))
	for _, c := range members {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		c.trySend(msg)
	}
}

// Send delivers an event to one client only, for request/response exchanges.
func (h *Hub) Send(c *Client, event EventType, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("marshal send payload", zap.String("event", string(event)), zap.Error(err))
		return
	}
	c.trySend(Message{Event: event, Data: data})
}

// DisconnectSession notifies and force-closes every connection belonging to
// a student session. Used when the teacher removes a student.
func (h *Hub) DisconnectSession(sessionID string) {
	h.mu.RLock()
	var targets []*Client
	for _, c := range h.clients {
		if c.SessionID == sessionID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range targets {
		c.trySend(Message{Event: EventStudentRemoved})
		c.close()
	}
}

// ScopeSize returns the number of local members in a scope.
func (h *Hub) ScopeSize(scope string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.scopes[scope])
}
