// persistence/interface.go
package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wfunc/hangman/models"
)

// Database 保存结束的对局，并按玩家统计
type Database interface {
	SaveGameRecord(ctx context.Context, record models.GameRecord) error
	GameRecords(ctx context.Context, roomID string) ([]models.GameRecord, error)
	PlayerStats(ctx context.Context, playerID string) (models.PlayerStats, error)
	Close() error
}

// 错误定义
var (
	ErrRecordNotFound = fmt.Errorf("record not found")
	ErrUnknownDriver  = fmt.Errorf("unknown database driver")
)

// playerStatsSQL 两种 postgres 实现共用，第二个参数是 containsPlayer 生成的 jsonb。
// GORM 使用 ? 占位符，lib/pq 使用 $n。
const playerStatsSQL = `
	SELECT
		COUNT(*) AS rounds_played,
		COALESCE(SUM(CASE WHEN winner_id = %s THEN 1 ELSE 0 END), 0) AS wins
	FROM game_records
	WHERE deleted_at IS NULL AND players @> %s::jsonb`

var (
	gormPlayerStatsSQL = fmt.Sprintf(playerStatsSQL, "?", "?")
	pqPlayerStatsSQL   = fmt.Sprintf(playerStatsSQL, "$1", "$2")
)

// containsPlayer builds the jsonb containment argument matching a player id.
func containsPlayer(playerID string) (string, error) {
	data, err := json.Marshal([]map[string]string{{"id": playerID}})
	return string(data), err
}

// Wins 计为玩家得分的对局：猜中单词，或者作为出题人让所有人猜错。其余参与的对局都算输。
func newPlayerStats(playerID string, played, wins int) models.PlayerStats {
	return models.PlayerStats{
		PlayerID:     playerID,
		RoundsPlayed: played,
		Wins:         wins,
		Losses:       played - wins,
	}
}
