package ws

import (
	"sync"

	"go.uber.org/zap"
)

type Hub struct {
	clients            map[string]*UserClient
	rooms              map[string]map[string]bool // conversationId -> set of userIds
	Register           chan *UserClient
	Unregister         chan *UserClient
	mu                 sync.RWMutex
	log                *zap.SugaredLogger
	OnClientUnregister func(client *UserClient) error
}

func NewHub(log *zap.SugaredLogger) *Hub {
	return &Hub{
		clients:    make(map[string]*UserClient),
		rooms:      make(map[string]map[string]bool),
		Register:   make(chan *UserClient),
		Unregister: make(chan *UserClient),
		log:        log,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			// A newer connection for the same user replaces the old one.
			if prev, ok := h.clients[client.UserId]; ok && prev != client {
				close(prev.send)
			}
			h.clients[client.UserId] = client
			h.mu.Unlock()
			h.log.Infow("client connected", "userId", client.UserId)

		case client := <-h.Unregister:
			h.mu.Lock()
			if cur, ok := h.clients[client.UserId]; ok && cur == client {
				delete(h.clients, client.UserId)
				close(client.send)
				h.log.Infow("client disconnected", "userId", client.UserId)
			}
			h.mu.Unlock()

			if h.OnClientUnregister != nil {
				if err := h.OnClientUnregister(client); err != nil {
					h.log.Errorw("unregister callback failed", "userId", client.UserId, "err", err)
				}
			}
		}
	}
}

// JoinRoom adds a user to a conversation room. Joining a room the user is
// already in is a no-op.
func (h *Hub) JoinRoom(conversationId, userId string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[conversationId]
	if !ok {
		members = make(map[string]bool)
		h.rooms[conversationId] = members
	}
	members[userId] = true
}

func (h *Hub) LeaveRoom(conversationId, userId string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[conversationId]; ok {
		delete(members, userId)
		if len(members) == 0 {
			delete(h.rooms, conversationId)
		}
	}
}

func (h *Hub) RoomMembers(conversationId string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	members := h.rooms[conversationId]
	out := make([]string, 0, len(members))
	for userId := range members {
		out = append(out, userId)
	}
	return out
}

func (h *Hub) SendToClient(userID string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	client, exists := h.clients[userID]
	if exists {
		select {
		case client.send <- message:
		default:
			h.log.Warnw("send queue full, dropping frame", "userId", userID)
		}
	}
}

// BroadcastRoom delivers a frame to every room member except one, usually
// the sender.
func (h *Hub) BroadcastRoom(conversationId, exceptUserId string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for userId := range h.rooms[conversationId] {
		if userId == exceptUserId {
			continue
		}
		client, exists := h.clients[userId]
		if !exists {
			continue
		}
		select {
		case client.send <- message:
		default:
			h.log.Warnw("send queue full, dropping frame", "userId", userId)
		}
	}
}

func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) RegisterClient(client *UserClient) {
	h.Register <- client
}

func (h *Hub) UnregisterClient(client *UserClient) {
	h.Unregister <- client
}

func (h *Hub) SetOnClientUnregister(callback func(client *UserClient) error) {
	h.OnClientUnregister = callback
}
