package socket

import (
	"context"
	"net/http"
	"sync"
	"time"

	"hebedit/internal/editor/model"
	"hebedit/internal/editor/repository"
	"hebedit/pkg/logger"
)

type Options struct {
	QuietPeriod    time.Duration
	StatusReset    time.Duration
	IndicatorReset time.Duration
	ConfirmTimeout time.Duration
	// AllowedOrigins limits which pages may open a socket. "*" or an empty
	// list allows any.
	AllowedOrigins []string
}

// Hub tracks the live editor of every user. A user has at most one: a newer
// connection replaces the older one, since both would persist under the
// same key.
type Hub struct {
	Clients    map[string]*Client
	Register   chan *Client
	Unregister chan *Client

	store repository.Store
	opts  Options
	mu    sync.Mutex
	done  chan struct{}
}

func NewHub(store repository.Store, opts Options) *Hub {
	return &Hub{
		Clients:    make(map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		store:      store,
		opts:       opts,
		done:       make(chan struct{}),
	}
}

// StoreKey is the persistence key of a user's editor.
func StoreKey(userID string) string {
	return model.StoreKey + ":" + userID
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for userID, client := range h.Clients {
				client.close()
				delete(h.Clients, userID)
			}
			h.mu.Unlock()
			return

		case client := <-h.Register:
			h.mu.Lock()
			if old, ok := h.Clients[client.UserID]; ok && old != client {
				logger.Sugar.Infof("Replacing editor %s of user %s with %s", old.ID, client.UserID, client.ID)
				old.close()
			}
			h.Clients[client.UserID] = client
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			// A replaced client unregisters after its successor registered.
			if h.Clients[client.UserID] == client {
				delete(h.Clients, client.UserID)
				logger.Sugar.Infof("Closed editor %s of user %s", client.ID, client.UserID)
			}
			h.mu.Unlock()
			client.close()
		}
	}
}

// Lookup returns the live editor of a user.
func (h *Hub) Lookup(userID string) (*Client, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.Clients[userID]
	return c, ok
}

// Store returns the store sessions persist to.
func (h *Hub) Store() repository.Store {
	return h.store
}

func (h *Hub) register(c *Client) bool {
	select {
	case h.Register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregister(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.opts.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range h.opts.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logger.Sugar.Warnf("Rejected socket from origin %s", origin)
	return false
}
