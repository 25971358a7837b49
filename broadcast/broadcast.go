// broadcast/broadcast.go
package broadcast

import (
	"github.com/wfunc/hangman/logger"
	"github.com/wfunc/hangman/network"
	"github.com/wfunc/hangman/room"
	"github.com/wfunc/hangman/session"
)

// 广播接口
type Broadcaster interface {
	room.Notifier
	BroadcastToPlayers(playerIDs []string, msg network.Envelope)
}

// RoomLookup 是广播器需要的注册表能力
type RoomLookup interface {
	GetRoomByID(roomID string) (*room.Room, error)
}

// 基于房间的广播器，发给房间内每个玩家的所有会话
type RoomBroadcaster struct {
	rooms    RoomLookup
	sessions *session.Manager
}

var _ Broadcaster = (*RoomBroadcaster)(nil)

func NewRoomBroadcaster(rooms RoomLookup, sessions *session.Manager) *RoomBroadcaster {
	return &RoomBroadcaster{
		rooms:    rooms,
		sessions: sessions,
	}
}

// Notify 不能在持有房间锁时调用
func (b *RoomBroadcaster) Notify(roomID string, event string, payload any) {
	r, err := b.rooms.GetRoomByID(roomID)
	if err != nil {
		logger.Log.Debugf("skip %s broadcast, room %s is gone", event, roomID)
		return
	}

	var playerIDs []string
	r.Exec(func(r *room.Room) error {
		playerIDs = r.PlayerIDs()
		return nil
	})
	b.BroadcastToPlayers(playerIDs, network.OK(event, payload))
}

func (b *RoomBroadcaster) BroadcastToPlayers(playerIDs []string, msg network.Envelope) {
	for _, playerID := range playerIDs {
		for _, s := range b.sessions.GetByPlayerID(playerID) {
			if err := s.Send(msg); err != nil {
				// 连接的读循环会发现错误并清理会话
				logger.Log.Warnf("send %s to session %s failed: %v", msg.Event, s.GetID(), err)
			}
		}
	}
}
