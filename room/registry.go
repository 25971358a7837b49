// room/registry.go
package room

import (
	"sync"
	"time"

	"github.com/wfunc/hangman/models"
)

// RemoveOptions controls what the registry keeps about a leaving player.
type RemoveOptions struct {
	// RememberForReconnect stores the player's points so a later join into the
	// same room restores them.
	RememberForReconnect bool
}

// Registry 管理所有房间，以及玩家到房间的索引。
// 锁顺序总是先 Registry 再 Room。
type Registry struct {
	rooms    map[string]*Room
	byPlayer map[string]*Room
	removed  map[string]models.RemovedPlayer // playerID -> 离开时的记录
	ids      IDGenerator
	teardown Scheduler
	grace    time.Duration
	mutex    sync.RWMutex
}

// NewRegistry 创建房间注册表。teardown 为 nil 或 grace 不大于 0 时，空房间会被立即删除。
func NewRegistry(ids IDGenerator, teardown Scheduler, grace time.Duration) *Registry {
	return &Registry{
		rooms:    make(map[string]*Room),
		byPlayer: make(map[string]*Room),
		removed:  make(map[string]models.RemovedPlayer),
		ids:      ids,
		teardown: teardown,
		grace:    grace,
	}
}

// CreateRoom 创建房间。调用者已经在某个房间中时直接返回该房间。
func (m *Registry) CreateRoom(playerID, name string) *Room {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if room, exists := m.byPlayer[playerID]; exists {
		return room
	}

	id := m.ids.Generate()
	for m.rooms[id] != nil {
		id = m.ids.Generate()
	}
	room := NewRoom(id, playerID, name)
	m.rooms[id] = room
	m.byPlayer[playerID] = room
	return room
}

// AddPlayer 把玩家加入房间，取消房间的延迟删除，并恢复重连玩家的分数。
// 加入导致回合重新分配时 turn 为新的回合持有人，否则为空。
func (m *Registry) AddPlayer(roomID, playerID, name string) (player models.Player, turn string, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	room, exists := m.rooms[roomID]
	if !exists {
		return models.Player{}, "", ErrRoomNotFound
	}
	if other, ok := m.byPlayer[playerID]; ok && other != room {
		return models.Player{}, "", ErrAlreadyInRoom
	}

	if m.teardown != nil {
		m.teardown.Cancel(roomID)
	}

	points := 0
	if returning, ok := m.removed[playerID]; ok && returning.RoomID == roomID {
		points = returning.Player.Points
		delete(m.removed, playerID)
	}

	room.Exec(func(r *Room) error {
		player = r.AddPlayer(playerID, name, points)
		r.UpdateMaster()
		turn = repairedTurn(r)
		return nil
	})
	m.byPlayer[playerID] = room
	return player, turn, nil
}

func repairedTurn(r *Room) string {
	if turn, changed := r.RepairTurn(); changed {
		return turn
	}
	return ""
}

// RemovePlayer 从房间移除玩家，并在同一次加锁中恢复回合。房间变空时安排删除。
// 回合重新分配给其他玩家时 turn 为新的回合持有人，否则为空。
func (m *Registry) RemovePlayer(roomID, playerID string, opts RemoveOptions) (leaving models.PlayerLeaving, turn string, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	room, exists := m.rooms[roomID]
	if !exists {
		return models.PlayerLeaving{}, "", ErrRoomNotFound
	}

	var (
		wasMaster bool
		round     int
		empty     bool
	)
	err = room.Exec(func(r *Room) error {
		wasMaster = r.IsMaster(playerID)
		player, err := r.RemovePlayer(playerID)
		if err != nil {
			return err
		}
		leaving = models.PlayerLeaving{Player: player, Master: r.Master()}
		turn = repairedTurn(r)
		round = r.Round()
		empty = r.PlayerCount() == 0
		return nil
	})
	if err != nil {
		return models.PlayerLeaving{}, "", err
	}

	if m.byPlayer[playerID] == room {
		delete(m.byPlayer, playerID)
	}
	if opts.RememberForReconnect {
		m.removed[playerID] = models.RemovedPlayer{
			Player:    leaving.Player,
			RoomID:    roomID,
			Round:     round,
			WasMaster: wasMaster,
		}
	}
	if empty {
		m.scheduleTeardown(roomID)
	}
	return leaving, turn, nil
}

// scheduleTeardown 调用时必须持有 m.mutex
func (m *Registry) scheduleTeardown(roomID string) {
	if m.teardown == nil || m.grace <= 0 {
		m.deleteRoom(roomID)
		return
	}
	m.teardown.Schedule(roomID, m.grace, func() {
		m.expire(roomID)
	})
}

// expire 删除仍然为空的房间
func (m *Registry) expire(roomID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	room, exists := m.rooms[roomID]
	if !exists {
		return
	}
	empty := false
	room.Exec(func(r *Room) error {
		empty = r.PlayerCount() == 0
		return nil
	})
	if empty {
		m.deleteRoom(roomID)
	}
}

// deleteRoom 调用时必须持有 m.mutex
func (m *Registry) deleteRoom(roomID string) {
	room := m.rooms[roomID]
	delete(m.rooms, roomID)
	for playerID, r := range m.byPlayer {
		if r == room {
			delete(m.byPlayer, playerID)
		}
	}
	for playerID, returning := range m.removed {
		if returning.RoomID == roomID {
			delete(m.removed, playerID)
		}
	}
}

// GetRoomByID 按ID查找房间
func (m *Registry) GetRoomByID(roomID string) (*Room, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, exists := m.rooms[roomID]
	if !exists {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// GetRoomByPlayerID returns the room the player currently occupies, if any.
func (m *Registry) GetRoomByPlayerID(playerID string) (*Room, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	room, exists := m.byPlayer[playerID]
	return room, exists
}

// ReturningPlayer returns what was remembered about a player that left.
func (m *Registry) ReturningPlayer(playerID string) (models.RemovedPlayer, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	returning, exists := m.removed[playerID]
	return returning, exists
}

// RoomCount 当前房间数量（包括等待删除的空房间）
func (m *Registry) RoomCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.rooms)
}

// Rooms returns every registered room.
func (m *Registry) Rooms() []*Room {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	rooms := make([]*Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}
