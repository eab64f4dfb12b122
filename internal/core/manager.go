package core

import (
	"context"
	"sync"
	"time"
)

const (
	cleanupInterval = 30 * time.Second
	idleRoomTTL     = 60 * time.Second
)

var (
	Rooms = make(map[string]*Room)
	mu    sync.RWMutex

	roomRules     Rules
	roomPublisher Publisher
	roomStore     StateStore
)

// Configure sets what new rooms are created with. Call before serving.
func Configure(rules Rules, publisher Publisher, store StateStore) {
	mu.Lock()
	defer mu.Unlock()
	roomRules = rules
	roomPublisher = publisher
	roomStore = store
}

// StartCleanupTask stops rooms that stayed empty too long, until ctx is done.
func StartCleanupTask(ctx context.Context) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			CleanupEmptyRooms(time.Now())
		}
	}
}

func CleanupEmptyRooms(now time.Time) int {
	mu.Lock()
	defer mu.Unlock()

	removed := 0
	for id, room := range Rooms {
		room.Mutex.RLock()
		playerCount := len(room.Players)
		lastActive := room.LastActiveTime
		room.Mutex.RUnlock()

		if playerCount == 0 && now.Unix()-lastActive > int64(idleRoomTTL/time.Second) {
			room.Stop()
			delete(Rooms, id)
			removed++
		}
	}
	return removed
}

func GetRoom(roomID string) *Room {
	mu.RLock()
	defer mu.RUnlock()
	return Rooms[roomID]
}

func CreateRoom(roomID string) *Room {
	mu.Lock()
	defer mu.Unlock()
	if room, ok := Rooms[roomID]; ok {
		return room
	}
	room := NewRoom(roomID, roomRules, roomPublisher, roomStore)
	room.onEmpty = forget
	Rooms[roomID] = room
	go room.Run()
	return room
}

// RemoveRoom forgets the room and stops it.
func RemoveRoom(roomID string) {
	mu.Lock()
	room, ok := Rooms[roomID]
	delete(Rooms, roomID)
	mu.Unlock()
	if ok {
		room.Stop()
	}
}

// forget drops room from the registry unless it has already been replaced.
func forget(room *Room) {
	mu.Lock()
	defer mu.Unlock()
	if Rooms[room.ID] == room {
		delete(Rooms, room.ID)
	}
}
