// services/game_service.go
package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wfunc/hangman/logger"
	"github.com/wfunc/hangman/models"
	"github.com/wfunc/hangman/monitor"
	"github.com/wfunc/hangman/network"
	"github.com/wfunc/hangman/persistence"
	"github.com/wfunc/hangman/room"
)

// GameService 把房间操作和广播、统计、历史记录串起来。
// 房间状态都在 Room.Exec 内修改，广播和写库都在释放房间锁之后进行。
type GameService struct {
	registry *room.Registry
	notifier room.Notifier
	db       persistence.Database
	monitor  *monitor.Monitor
	now      func() time.Time
}

// NewGameService 任何依赖为 nil 时对应功能被关闭
func NewGameService(registry *room.Registry, notifier room.Notifier, db persistence.Database, mon *monitor.Monitor) *GameService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &GameService{
		registry: registry,
		notifier: notifier,
		db:       db,
		monitor:  mon,
		now:      time.Now,
	}
}

type nopNotifier struct{}

func (nopNotifier) Notify(string, string, any) {}

// notification 是释放锁之后要广播的一条事件
type notification struct {
	event   string
	payload any
}

func (s *GameService) notify(roomID string, batch []notification) {
	for _, n := range batch {
		s.notifier.Notify(roomID, n.event, n.payload)
	}
}

// rule 是操作前对调用者的检查，在房间锁内执行
type rule func(r *room.Room, callerID string) bool

func member(r *room.Room, callerID string) bool {
	return r.IsPresent(callerID)
}

func master(r *room.Room, callerID string) bool {
	return r.IsMaster(callerID)
}

func turnHolder(r *room.Room, callerID string) bool {
	return r.IsPresent(callerID) && r.IsTurn(callerID)
}

func masterOrTurnHolder(r *room.Room, callerID string) bool {
	return r.IsMaster(callerID) || r.IsTurn(callerID)
}

func masterInTurn(r *room.Room, callerID string) bool {
	return r.IsMaster(callerID) && r.IsTurn(callerID)
}

// exec 查找房间，检查调用者，然后在房间锁内执行 fn
func (s *GameService) exec(roomID, callerID string, allowed rule, fn func(r *room.Room) error) error {
	if callerID == "" {
		return ErrNoCaller
	}
	rm, err := s.registry.GetRoomByID(roomID)
	if err != nil {
		return err
	}
	return rm.Exec(func(r *room.Room) error {
		if !allowed(r, callerID) {
			return ErrForbidden
		}
		return fn(r)
	})
}

// --- 房间与玩家 ---

// CreateRoom 创建房间；调用者已在房间中时返回该房间
func (s *GameService) CreateRoom(ctx context.Context, callerID, name string) (models.RoomSnapshot, error) {
	if callerID == "" {
		return models.RoomSnapshot{}, ErrNoCaller
	}
	rm := s.registry.CreateRoom(callerID, name)

	var snapshot models.RoomSnapshot
	rm.Exec(func(r *room.Room) error {
		snapshot = r.Snapshot()
		return nil
	})
	logger.Log.Infof("player %s created room %s", callerID, snapshot.ID)
	return snapshot, nil
}

// GetRoom returns a snapshot of the room.
func (s *GameService) GetRoom(ctx context.Context, roomID string) (models.RoomSnapshot, error) {
	rm, err := s.registry.GetRoomByID(roomID)
	if err != nil {
		return models.RoomSnapshot{}, err
	}
	var snapshot models.RoomSnapshot
	rm.Exec(func(r *room.Room) error {
		snapshot = r.Snapshot()
		return nil
	})
	return snapshot, nil
}

// RoomOf 返回玩家当前所在的房间ID
func (s *GameService) RoomOf(callerID string) (string, error) {
	if callerID == "" {
		return "", ErrNoCaller
	}
	rm, ok := s.registry.GetRoomByPlayerID(callerID)
	if !ok {
		return "", ErrNotInRoom
	}
	return rm.ID(), nil
}

// ReturningPlayer reports what was remembered about a disconnected player.
func (s *GameService) ReturningPlayer(callerID string) (models.RemovedPlayer, bool) {
	return s.registry.ReturningPlayer(callerID)
}

// JoinRoom 加入房间并广播 player-join。重新加入一个等待删除的房间时回合可能被重新分配，
// 此时再广播 new-turn。
func (s *GameService) JoinRoom(ctx context.Context, roomID, callerID, name string) (models.Player, error) {
	if callerID == "" {
		return models.Player{}, ErrNoCaller
	}
	player, turn, err := s.registry.AddPlayer(roomID, callerID, name)
	if err != nil {
		return models.Player{}, err
	}
	logger.Log.Infof("player %s joined room %s", callerID, roomID)
	s.notify(roomID, turnChanged([]notification{{network.EventPlayerJoin, player}}, turn))
	return player, nil
}

func turnChanged(batch []notification, turn string) []notification {
	if turn == "" {
		return batch
	}
	return append(batch, notification{network.EventNewTurn, turn})
}

// LeaveRoom 调用者离开房间。remember 为 true 时保留分数，重新加入同一房间时恢复。
func (s *GameService) LeaveRoom(ctx context.Context, roomID, callerID string, remember bool) (models.PlayerLeaving, error) {
	if callerID == "" {
		return models.PlayerLeaving{}, ErrNoCaller
	}
	return s.leave(roomID, callerID, room.RemoveOptions{RememberForReconnect: remember})
}

// RemovePlayer 移除 playerID，只有本人或出题人可以操作
func (s *GameService) RemovePlayer(ctx context.Context, roomID, callerID, playerID string) (models.PlayerLeaving, error) {
	if callerID == "" {
		return models.PlayerLeaving{}, ErrNoCaller
	}
	if callerID != playerID {
		allowed, err := s.IsCallerMaster(roomID, callerID)
		if err != nil {
			return models.PlayerLeaving{}, err
		}
		if !allowed {
			return models.PlayerLeaving{}, ErrForbidden
		}
	}
	return s.leave(roomID, playerID, room.RemoveOptions{})
}

func (s *GameService) leave(roomID, playerID string, opts room.RemoveOptions) (models.PlayerLeaving, error) {
	leaving, turn, err := s.registry.RemovePlayer(roomID, playerID, opts)
	if err != nil {
		return models.PlayerLeaving{}, err
	}
	logger.Log.Infof("player %s left room %s, master is now %q", playerID, roomID, leaving.Master)
	s.notify(roomID, turnChanged([]notification{{network.EventPlayerLeave, leaving}}, turn))
	return leaving, nil
}

// --- 对局 ---

// InitGame 还没有出题且没有人持有回合时交给出题人，并广播 go-to-start
func (s *GameService) InitGame(ctx context.Context, roomID, callerID string) (models.RoomSnapshot, error) {
	var snapshot models.RoomSnapshot
	err := s.exec(roomID, callerID, master, func(r *room.Room) error {
		r.StartTurn()
		snapshot = r.Snapshot()
		return nil
	})
	if err != nil {
		return models.RoomSnapshot{}, err
	}
	s.notifier.Notify(roomID, network.EventGoToStart, snapshot)
	return snapshot, nil
}

// RestartGame 开始新的一局，出题人轮换
func (s *GameService) RestartGame(ctx context.Context, roomID, callerID string) (models.RoomSnapshot, error) {
	var snapshot models.RoomSnapshot
	err := s.exec(roomID, callerID, masterOrTurnHolder, func(r *room.Room) error {
		if err := r.RestartGame(); err != nil {
			return err
		}
		snapshot = r.Snapshot()
		return nil
	})
	if err != nil {
		return models.RoomSnapshot{}, err
	}
	logger.Log.Infof("room %s restarted, round %d, master %s", roomID, snapshot.Round, snapshot.Master)
	s.notifier.Notify(roomID, network.EventRestartGame, snapshot)
	return snapshot, nil
}

// TransferMaster 出题人把出题权交给房间中的另一个玩家
func (s *GameService) TransferMaster(ctx context.Context, roomID, callerID, newMaster string) (models.RoomSnapshot, error) {
	var (
		snapshot models.RoomSnapshot
		batch    []notification
	)
	err := s.exec(roomID, callerID, master, func(r *room.Room) error {
		prevTurn := r.CurrentTurn()
		if err := r.HandOffMaster(newMaster); err != nil {
			return err
		}
		batch = append(batch, notification{network.EventNewMaster, r.Master()})
		if turn := r.CurrentTurn(); turn != prevTurn {
			batch = append(batch, notification{network.EventNewTurn, turn})
		}
		snapshot = r.Snapshot()
		return nil
	})
	if err != nil {
		return models.RoomSnapshot{}, err
	}
	s.notify(roomID, batch)
	return snapshot, nil
}

// SetWord 出题人设置单词，然后回合交给下一个玩家
func (s *GameService) SetWord(ctx context.Context, roomID, callerID, word string) ([]models.LetterSlot, error) {
	var (
		slots []models.LetterSlot
		turn  string
	)
	err := s.exec(roomID, callerID, masterInTurn, func(r *room.Room) error {
		if r.Phase() == models.PhaseFinished {
			return room.ErrRoundFinished
		}
		var err error
		if slots, err = r.SetWord(word); err != nil {
			return err
		}
		turn, err = r.UpdateNextTurn()
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Log.Infof("room %s word set by %s, %d slots", roomID, callerID, len(slots))
	s.notify(roomID, []notification{
		{network.EventSetWord, slots},
		{network.EventNewTurn, turn},
	})
	return slots, nil
}

// NewGuess 持有回合的玩家猜一个字母。本局结束时揭示剩余字母并广播结果，否则传递回合。
func (s *GameService) NewGuess(ctx context.Context, roomID, callerID, letter string) (models.GuessRecord, error) {
	var (
		guess  models.GuessRecord
		batch  []notification
		record *models.GameRecord
	)
	err := s.exec(roomID, callerID, turnHolder, func(r *room.Room) error {
		normalized, err := room.NormalizeLetter(letter)
		if err != nil {
			return err
		}
		if r.CheckGuessIsPresent(normalized) {
			return fmt.Errorf("%w: %q", room.ErrAlreadyGuessed, normalized)
		}
		if guess, err = r.AddGuess(normalized); err != nil {
			return err
		}
		batch = append(batch, notification{network.EventNewGuess, guess})

		var finished []notification
		if finished, record = s.finish(r); record == nil {
			turn, err := r.UpdateNextTurn()
			if err != nil {
				return err
			}
			finished = []notification{{network.EventNewTurn, turn}}
		}
		batch = append(batch, finished...)
		return nil
	})
	if err != nil {
		return models.GuessRecord{}, err
	}

	s.monitor.ObserveGuess(guess.Hit())
	s.notify(roomID, batch)
	s.save(ctx, record)
	return guess, nil
}

// NewWordGuess 房间中的任何玩家都可以猜整个单词，猜错不计入错误次数
func (s *GameService) NewWordGuess(ctx context.Context, roomID, callerID, word string) (models.WordGuess, error) {
	var (
		echo   models.WordGuess
		batch  []notification
		record *models.GameRecord
	)
	err := s.exec(roomID, callerID, member, func(r *room.Room) error {
		if strings.TrimSpace(word) == "" {
			return room.ErrEmptyWord
		}
		if _, err := r.CheckWordGuess(callerID, word); err != nil {
			return err
		}
		echo = models.WordGuess{PlayerID: callerID, Word: strings.ToUpper(word)}
		batch = append(batch, notification{network.EventNewWordGuesses, echo})

		var finished []notification
		finished, record = s.finish(r)
		batch = append(batch, finished...)
		return nil
	})
	if err != nil {
		return models.WordGuess{}, err
	}

	s.notify(roomID, batch)
	s.save(ctx, record)
	return echo, nil
}

// finish 检查本局是否结束。结束时揭示剩余字母，并生成要广播的事件和历史记录。
// 调用时必须持有房间锁。
func (s *GameService) finish(r *room.Room) ([]notification, *models.GameRecord) {
	outcome := r.IsGameFinished()
	if outcome == nil {
		return nil, nil
	}

	var batch []notification
	for _, reveal := range r.RevealRemaining() {
		batch = append(batch, notification{network.EventNewGuess, reveal})
	}
	batch = append(batch,
		notification{network.EventFinishGame, *outcome},
		notification{network.EventUpdatePlayer, outcome.Player},
	)

	s.monitor.ObserveRound(outcome.Win)
	logger.Log.Infof("room %s round %d finished, player %s credited, win=%t",
		r.ID(), r.Round(), outcome.Player.ID, outcome.Win)

	return batch, &models.GameRecord{
		RoomID:     r.ID(),
		Round:      r.Round(),
		Word:       r.Secret(),
		WinnerID:   outcome.Player.ID,
		Win:        outcome.Win,
		Errors:     r.Errors(),
		Players:    r.Players(),
		FinishedAt: s.now(),
	}
}

// save 写入历史记录，失败只记录日志
func (s *GameService) save(ctx context.Context, record *models.GameRecord) {
	if record == nil || s.db == nil {
		return
	}
	if err := s.db.SaveGameRecord(ctx, *record); err != nil {
		logger.Log.Errorf("save game record of room %s round %d failed: %v", record.RoomID, record.Round, err)
	}
}

// --- 权限判断 ---

// IsCallersTurn reports whether callerID may submit a letter guess.
func (s *GameService) IsCallersTurn(roomID, callerID string) (bool, error) {
	return s.check(roomID, callerID, turnHolder)
}

// IsCallerMaster reports whether callerID is the room's master.
func (s *GameService) IsCallerMaster(roomID, callerID string) (bool, error) {
	return s.check(roomID, callerID, master)
}

func (s *GameService) check(roomID, callerID string, allowed rule) (bool, error) {
	rm, err := s.registry.GetRoomByID(roomID)
	if err != nil {
		return false, err
	}
	var ok bool
	rm.Exec(func(r *room.Room) error {
		ok = allowed(r, callerID)
		return nil
	})
	return ok, nil
}

// --- 历史 ---

// GameHistory 返回房间已结束的对局
func (s *GameService) GameHistory(ctx context.Context, roomID string) ([]models.GameRecord, error) {
	if s.db == nil {
		return []models.GameRecord{}, nil
	}
	return s.db.GameRecords(ctx, roomID)
}

// PlayerStats 按历史记录统计玩家
func (s *GameService) PlayerStats(ctx context.Context, playerID string) (models.PlayerStats, error) {
	if s.db == nil {
		return models.PlayerStats{PlayerID: playerID}, nil
	}
	return s.db.PlayerStats(ctx, playerID)
}

// RoomCount 当前房间数量
func (s *GameService) RoomCount() int {
	return s.registry.RoomCount()
}

// ListRooms returns a snapshot of every room.
func (s *GameService) ListRooms(ctx context.Context) []models.RoomSnapshot {
	rooms := s.registry.Rooms()
	snapshots := make([]models.RoomSnapshot, 0, len(rooms))
	for _, rm := range rooms {
		rm.Exec(func(r *room.Room) error {
			snapshots = append(snapshots, r.Snapshot())
			return nil
		})
	}
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].ID < snapshots[j].ID
	})
	return snapshots
}
