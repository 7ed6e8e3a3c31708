package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"JamLoop/db"
	"JamLoop/model"

	"github.com/redis/go-redis/v9"
)

const (
	roomLoopsKey = "room:%s:loops" // String: JSON-encoded loop list
	// Short TTL keeps the room view fresh while absorbing the poll traffic
	// of everyone sitting in the room.
	roomLoopsTTL = 5 * time.Second
)

// LoopCache caches per-room loop listings.
type LoopCache struct {
	client *redis.Client
}

// NewLoopCache creates a loop cache over the global Redis client.
func NewLoopCache() *LoopCache {
	return &LoopCache{client: db.RedisClient}
}

// GetRoomLoops returns the cached loop list for a room, or (nil, nil) on a miss.
func (c *LoopCache) GetRoomLoops(ctx context.Context, roomID string) ([]*model.LoopWithUser, error) {
	if c.client == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	key := fmt.Sprintf(roomLoopsKey, roomID)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached loops: %w", err)
	}

	var loops []*model.LoopWithUser
	if err := json.Unmarshal(data, &loops); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached loops: %w", err)
	}
	return loops, nil
}

// SetRoomLoops caches a room's loop list.
func (c *LoopCache) SetRoomLoops(ctx context.Context, roomID string, loops []*model.LoopWithUser) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	data, err := json.Marshal(loops)
	if err != nil {
		return fmt.Errorf("failed to marshal loops: %w", err)
	}

	key := fmt.Sprintf(roomLoopsKey, roomID)
	return c.client.Set(ctx, key, data, roomLoopsTTL).Err()
}

// InvalidateRoomLoops drops the cached loop list after a mutation.
func (c *LoopCache) InvalidateRoomLoops(ctx context.Context, roomID string) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	key := fmt.Sprintf(roomLoopsKey, roomID)
	return c.client.Del(ctx, key).Err()
}
