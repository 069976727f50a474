package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisHub routes frames between server instances over Redis pub/sub so a
// conversation can span users connected to different servers. Room
// membership lives in Redis sets; local connections stay in memory.
type RedisHub struct {
	clients map[string]*UserClient
	mu      sync.RWMutex

	redisClient *redis.Client
	pubsub      *redis.PubSub
	serverID    string
	log         *zap.SugaredLogger

	Register   chan *UserClient
	Unregister chan *UserClient

	OnClientUnregister func(client *UserClient) error
}

type relayFrame struct {
	FromServerID string `json:"fromServerId"`
	ToUserID     string `json:"toUserId"`
	Payload      []byte `json:"payload"`
}

func NewRedisHub(redisAddr, serverID string, log *zap.SugaredLogger) *RedisHub {
	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	hub := &RedisHub{
		clients:     make(map[string]*UserClient),
		redisClient: rdb,
		serverID:    serverID,
		log:         log,
		Register:    make(chan *UserClient),
		Unregister:  make(chan *UserClient),
	}

	hub.pubsub = rdb.PSubscribe(context.Background(), "frames:*")

	return hub
}

func (h *RedisHub) Run() {
	go h.subscribeRedis()

	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if prev, ok := h.clients[client.UserId]; ok && prev != client {
				close(prev.send)
			}
			h.clients[client.UserId] = client
			h.mu.Unlock()

			h.redisClient.Set(
				context.Background(),
				"user:"+client.UserId+":server",
				h.serverID,
				0,
			)
			h.log.Infow("client connected", "serverId", h.serverID, "userId", client.UserId)

		case client := <-h.Unregister:
			h.mu.Lock()
			if cur, ok := h.clients[client.UserId]; ok && cur == client {
				delete(h.clients, client.UserId)
				close(client.send)

				h.redisClient.Del(
					context.Background(),
					"user:"+client.UserId+":server",
				)
				h.log.Infow("client disconnected", "serverId", h.serverID, "userId", client.UserId)
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

func (h *RedisHub) subscribeRedis() {
	ch := h.pubsub.Channel()

	h.log.Infow("redis subscriber started", "serverId", h.serverID)

	for msg := range ch {
		var frame relayFrame
		if err := json.Unmarshal([]byte(msg.Payload), &frame); err != nil {
			h.log.Errorw("malformed relay frame", "err", err)
			continue
		}

		if frame.FromServerID == h.serverID {
			continue
		}

		h.mu.RLock()
		_, existsLocally := h.clients[frame.ToUserID]
		h.mu.RUnlock()
		if !existsLocally {
			continue
		}

		h.SendToClient(frame.ToUserID, frame.Payload)
	}
}

func (h *RedisHub) JoinRoom(conversationId, userId string) {
	h.redisClient.SAdd(context.Background(), "room:"+conversationId, userId)
}

func (h *RedisHub) LeaveRoom(conversationId, userId string) {
	h.redisClient.SRem(context.Background(), "room:"+conversationId, userId)
}

func (h *RedisHub) RoomMembers(conversationId string) []string {
	members, err := h.redisClient.SMembers(context.Background(), "room:"+conversationId).Result()
	if err != nil {
		h.log.Errorw("room members lookup failed", "conversationId", conversationId, "err", err)
		return nil
	}
	return members
}

// SendToClient delivers locally when the user is connected to this server,
// otherwise relays over Redis for the owning server to pick up.
func (h *RedisHub) SendToClient(userID string, message []byte) {
	h.mu.RLock()
	client, existsLocally := h.clients[userID]
	h.mu.RUnlock()

	if existsLocally {
		select {
		case client.send <- message:
		default:
			h.log.Warnw("send queue full, dropping frame", "userId", userID)
		}
		return
	}
	h.publishToRedis(userID, message)
}

func (h *RedisHub) BroadcastRoom(conversationId, exceptUserId string, message []byte) {
	for _, userId := range h.RoomMembers(conversationId) {
		if userId == exceptUserId {
			continue
		}
		h.SendToClient(userId, message)
	}
}

func (h *RedisHub) publishToRedis(userID string, message []byte) {
	ctx := context.Background()

	frame := relayFrame{
		FromServerID: h.serverID,
		ToUserID:     userID,
		Payload:      message,
	}

	frameBytes, err := json.Marshal(frame)
	if err != nil {
		h.log.Errorw("marshal relay frame failed", "err", err)
		return
	}

	if err := h.redisClient.Publish(ctx, "frames:"+userID, frameBytes).Err(); err != nil {
		h.log.Errorw("redis publish failed", "userId", userID, "err", err)
	}
}

func (h *RedisHub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *RedisHub) RegisterClient(client *UserClient) {
	h.Register <- client
}

func (h *RedisHub) UnregisterClient(client *UserClient) {
	h.Unregister <- client
}

func (h *RedisHub) SetOnClientUnregister(callback func(client *UserClient) error) {
	h.OnClientUnregister = callback
}
