package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/comanda-app/api/internal/enum"
	"github.com/comanda-app/api/internal/notify"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// branchEvent routes an event to one branch room
type branchEvent struct {
	BranchID uuid.UUID
	Event    notify.Event
}

// Hub maintains the set of active clients per branch and broadcasts events
// to them. It implements notify.Notifier.
type Hub struct {
	// Registered clients by branch ID
	rooms map[uuid.UUID]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	// Outbound events to broadcast
	broadcast chan *branchEvent

	// Closed when Run returns
	done chan struct{}

	mu  sync.RWMutex
	log *zap.Logger
}

// NewHub creates a new Hub instance
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *branchEvent, 256),
		done:       make(chan struct{}),
		log:        log,
	}
}

// Run starts the hub's main loop until ctx is cancelled, then disconnects
// every client. Call it as a goroutine: go hub.Run(ctx)
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for branchID, clients := range h.rooms {
				for client := range clients {
					close(client.send)
				}
				delete(h.rooms, branchID)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.branchID] == nil {
				h.rooms[client.branchID] = make(map[*Client]bool)
			}
			h.rooms[client.branchID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case ev := <-h.broadcast:
			// Marshal once per event
			message, err := json.Marshal(ev.Event)
			if err != nil {
				h.log.Error("marshal ws event", zap.String("type", ev.Event.Type), zap.Error(err))
				continue
			}

			h.mu.Lock()
			for client := range h.rooms[ev.BranchID] {
				select {
				case client.send <- message:
				default:
					// Slow consumer, drop it
					h.log.Warn("ws client buffer full, disconnecting",
						zap.String("branch_id", ev.BranchID.String()),
						zap.String("user_id", client.userID.String()),
					)
					h.remove(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// remove unregisters client and drops its room once empty. Callers hold mu.
func (h *Hub) remove(client *Client) {
	clients, ok := h.rooms[client.branchID]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.branchID)
	}
}

func (h *Hub) join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// ClientCount returns the number of clients connected to a branch room.
func (h *Hub) ClientCount(branchID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[branchID])
}

// Publish queues ev for every client of the branch. Once the hub has stopped
// the event is dropped.
func (h *Hub) Publish(ctx context.Context, branchID uuid.UUID, ev notify.Event) error {
	select {
	case h.broadcast <- &branchEvent{BranchID: branchID, Event: ev}:
		return nil
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DeliveryReady tells the branch screens that a delivery order is waiting
// for a courier.
func (h *Hub) DeliveryReady(ctx context.Context, ticket notify.DeliveryTicket) error {
	ev, err := notify.NewEvent(enum.EventDeliveryReady, ticket)
	if err != nil {
		return err
	}
	return h.Publish(ctx, ticket.BranchID, ev)
}
