package persistence

import (
	"context"
	"sync"

	"github.com/wfunc/hangman/models"
)

// Memory 进程内实现，默认驱动，也用于测试
type Memory struct {
	records []models.GameRecord
	mutex   sync.RWMutex
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) SaveGameRecord(ctx context.Context, record models.GameRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	record.Players = append([]models.Player{}, record.Players...)

	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.records = append(m.records, record)
	return nil
}

func (m *Memory) GameRecords(ctx context.Context, roomID string) ([]models.GameRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	result := []models.GameRecord{}
	for _, r := range m.records {
		if r.RoomID == roomID {
			r.Players = append([]models.Player{}, r.Players...)
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *Memory) PlayerStats(ctx context.Context, playerID string) (models.PlayerStats, error) {
	if err := ctx.Err(); err != nil {
		return models.PlayerStats{}, err
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()

	played, wins := 0, 0
	for _, r := range m.records {
		if !hasPlayer(r.Players, playerID) {
			continue
		}
		played++
		if r.WinnerID == playerID {
			wins++
		}
	}
	return newPlayerStats(playerID, played, wins), nil
}

func (m *Memory) Close() error {
	return nil
}

func hasPlayer(players []models.Player, playerID string) bool {
	for _, p := range players {
		if p.ID == playerID {
			return true
		}
	}
	return false
}
