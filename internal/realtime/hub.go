package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/orgkudos/backend/internal/models"
)

const (
	// PingInterval and PongWait are used for heartbeat, in seconds.
	PingInterval = 30
	PongWait     = 60
)

// EventKudo is broadcast to an organization's feed when a kudo is created.
const EventKudo = "kudo"

// Hub maintains org_id -> set of connections and broadcasts feed events.
// Uses Redis pub/sub so every instance delivers to its own local clients.
type Hub struct {
	// orgID -> map[clientID]*Client
	orgs     map[uuid.UUID]map[string]*Client
	subs     map[uuid.UUID]func() // cancel Redis subscription per org
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    OrgPublisher
	redisSub OrgSubscriber
}

// OrgPublisher publishes feed events to Redis for cross-instance broadcast.
type OrgPublisher interface {
	PublishOrgEvent(orgID uuid.UUID, event string, payload []byte) error
}

// OrgSubscriber subscribes to org channels and invokes handler for incoming events.
type OrgSubscriber interface {
	SubscribeOrg(orgID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new kudos feed hub.
func NewHub(logger *zap.Logger, redisPub OrgPublisher, redisSub OrgSubscriber) *Hub {
	return &Hub{
		orgs:     make(map[uuid.UUID]map[string]*Client),
		subs:     make(map[uuid.UUID]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// Register adds a client to its organization's room. Starts the Redis
// subscription for the org when the first client joins.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.orgs[c.OrgID] == nil {
		h.orgs[c.OrgID] = make(map[string]*Client)
		if h.redisSub != nil {
			cancel, err := h.redisSub.SubscribeOrg(c.OrgID, func(event string, payload []byte) {
				h.broadcastLocal(c.OrgID, event, json.RawMessage(payload))
			})
			if err == nil {
				h.subs[c.OrgID] = cancel
			}
		}
	}
	h.orgs[c.OrgID][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client joined feed", zap.String("client_id", c.ID), zap.String("org_id", c.OrgID.String()))
}

// Unregister removes a client. Cancels the Redis subscription when the last
// client of the org leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.orgs[c.OrgID]; ok {
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.orgs, c.OrgID)
			if cancel, ok := h.subs[c.OrgID]; ok {
				cancel()
				delete(h.subs, c.OrgID)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client left feed", zap.String("client_id", c.ID), zap.String("org_id", c.OrgID.String()))
}

// PublishKudo publishes a created kudo to the organization's feed. With
// Redis attached it publishes only, so the subscriber callback performs the
// broadcast exactly once per instance (including this one); without Redis it
// broadcasts locally.
func (h *Hub) PublishKudo(orgID uuid.UUID, k *models.Kudo) {
	data, err := json.Marshal(k)
	if err != nil {
		return
	}
	if h.redis != nil {
		_ = h.redis.PublishOrgEvent(orgID, EventKudo, data)
		return
	}
	h.broadcastLocal(orgID, EventKudo, json.RawMessage(data))
}

// broadcastLocal sends a message to all connected clients of the org on this
// instance. The client set is copied under the lock; Register and Unregister
// mutate the same map, so iterating it unlocked would race.
func (h *Hub) broadcastLocal(orgID uuid.UUID, event string, data json.RawMessage) {
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.orgs[orgID]))
	for _, c := range h.orgs[orgID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// ConnectedCount returns the number of connected clients for an org.
func (h *Hub) ConnectedCount(orgID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.orgs[orgID])
}
