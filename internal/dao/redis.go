package dao

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"highseas/internal/combat"
	"highseas/internal/world"
	"highseas/pkg/config"
)

var RDB *redis.Client

const (
	KeyRoomPrefix  = "room:"  // Hash: room:{id} -> { token, created_at }
	KeyShipsSuffix = ":ships" // Hash: room:{id}:ships -> { ship id: json state }
	KeyShotsSuffix = ":shots" // Channel: room:{id}:shots
	roomTTL        = 24 * time.Hour
)

// NewRedis connects and pings.
func NewRedis(cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis connect: %w", err)
	}
	return rdb, nil
}

func InitRedis(cfg config.RedisConfig) error {
	rdb, err := NewRedis(cfg)
	if err != nil {
		return err
	}
	RDB = rdb
	return nil
}

func roomKey(roomID string) string  { return KeyRoomPrefix + roomID }
func shipsKey(roomID string) string { return KeyRoomPrefix + roomID + KeyShipsSuffix }
func shotsKey(roomID string) string { return KeyRoomPrefix + roomID + KeyShotsSuffix }

// RemoteStore is the room-scoped Redis view: ship state KV, server time and
// the shot fan-out channel.
type RemoteStore struct {
	rdb *redis.Client
}

func NewRemoteStore(rdb *redis.Client) *RemoteStore {
	return &RemoteStore{rdb: rdb}
}

// EnsureRoom returns the room token, creating the room if needed.
func (s *RemoteStore) EnsureRoom(ctx context.Context, roomID string) (string, error) {
	key := roomKey(roomID)
	token := uuid.NewString()

	pipe := s.rdb.TxPipeline()
	pipe.HSetNX(ctx, key, "token", token)
	pipe.HSetNX(ctx, key, "created_at", time.Now().Unix())
	pipe.Expire(ctx, key, roomTTL)
	get := pipe.HGet(ctx, key, "token")
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("ensure room %s: %w", roomID, err)
	}
	return get.Val(), nil
}

// ValidateRoomToken checks whether the given token matches the stored room token.
func (s *RemoteStore) ValidateRoomToken(ctx context.Context, roomID, token string) (bool, error) {
	val, err := s.rdb.HGet(ctx, roomKey(roomID), "token").Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return val == token, nil
}

type shipRecord struct {
	Type      string  `json:"type"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	Health    int     `json:"health"`
	MaxHealth int     `json:"max_health"`
	Sunk      bool    `json:"sunk"`
}

func (s *RemoteStore) SaveShipState(ctx context.Context, roomID string, st world.ShipState) error {
	data, err := json.Marshal(shipRecord{
		Type: st.Type, X: st.Position.X, Y: st.Position.Y, Z: st.Position.Z,
		Health: st.Health, MaxHealth: st.MaxHealth, Sunk: st.IsSunk,
	})
	if err != nil {
		return err
	}
	pipe := s.rdb.Pipeline()
	pipe.HSet(ctx, shipsKey(roomID), st.ID, data)
	pipe.Expire(ctx, shipsKey(roomID), roomTTL)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RemoteStore) RemoveShipState(ctx context.Context, roomID, shipID string) error {
	return s.rdb.HDel(ctx, shipsKey(roomID), shipID).Err()
}

// LoadShipState returns every stored ship of the room.
func (s *RemoteStore) LoadShipState(ctx context.Context, roomID string) ([]world.ShipState, error) {
	raw, err := s.rdb.HGetAll(ctx, shipsKey(roomID)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]world.ShipState, 0, len(raw))
	for id, data := range raw {
		var rec shipRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("decode ship %s: %w", id, err)
		}
		out = append(out, world.ShipState{
			ID:        id,
			Type:      rec.Type,
			Position:  world.Vec3{X: rec.X, Y: rec.Y, Z: rec.Z},
			Health:    rec.Health,
			MaxHealth: rec.MaxHealth,
			IsSunk:    rec.Sunk,
		})
	}
	return out, nil
}

// ServerTime is the store's clock, shared by every participant.
func (s *RemoteStore) ServerTime(ctx context.Context) (time.Time, error) {
	return s.rdb.Time(ctx).Result()
}

// ClockSkew estimates how far the store's clock runs ahead of the local one.
func (s *RemoteStore) ClockSkew(ctx context.Context) (time.Duration, error) {
	sent := time.Now()
	server, err := s.ServerTime(ctx)
	if err != nil {
		return 0, err
	}
	return skew(sent, server, time.Now()), nil
}

// skew assumes the server read its clock halfway through the round trip.
func skew(sentAt, serverAt, receivedAt time.Time) time.Duration {
	return serverAt.Sub(sentAt.Add(receivedAt.Sub(sentAt) / 2))
}

type shotMessage struct {
	ActionID int64  `json:"action_id"`
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
	Hit      bool   `json:"hit"`
	FiredAt  int64  `json:"fired_at"`
}

func encodeShot(shot combat.Shot) ([]byte, error) {
	return json.Marshal(shotMessage{
		ActionID: shot.ActionID,
		SourceID: shot.SourceID,
		TargetID: shot.TargetID,
		Hit:      shot.Hit,
		FiredAt:  shot.FiredAt.UnixMilli(),
	})
}

func decodeShot(payload string) (combat.Shot, error) {
	var m shotMessage
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return combat.Shot{}, err
	}
	return combat.Shot{
		ActionID: m.ActionID,
		SourceID: m.SourceID,
		TargetID: m.TargetID,
		Hit:      m.Hit,
		FiredAt:  time.UnixMilli(m.FiredAt),
	}, nil
}

func (s *RemoteStore) PublishShot(ctx context.Context, roomID string, shot combat.Shot) error {
	data, err := encodeShot(shot)
	if err != nil {
		return err
	}
	return s.rdb.Publish(ctx, shotsKey(roomID), data).Err()
}

// SubscribeShots delivers shots fired in the room until ctx is done. The
// returned channel is closed when the subscription ends.
func (s *RemoteStore) SubscribeShots(ctx context.Context, roomID string) (<-chan combat.Shot, error) {
	pubsub := s.rdb.Subscribe(ctx, shotsKey(roomID))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", roomID, err)
	}

	out := make(chan combat.Shot, 32)
	go func() {
		defer close(out)
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				shot, err := decodeShot(msg.Payload)
				if err != nil {
					continue
				}
				select {
				case out <- shot:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// ShotChannel binds a RemoteStore to one room as a combat.ShotBroadcaster.
type ShotChannel struct {
	Store  *RemoteStore
	RoomID string
}

func (c ShotChannel) BroadcastShot(ctx context.Context, shot combat.Shot) error {
	return c.Store.PublishShot(ctx, c.RoomID, shot)
}
