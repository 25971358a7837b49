// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL 驱动

	"github.com/wfunc/hangman/models"
)

// PostgreSQL 数据库实现
type PostgreSQL struct {
	db *sql.DB
}

// NewPostgreSQL 创建 PostgreSQL 数据库连接
func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	// 设置连接池参数
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(ctx, db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

// initTables 建表，列与 GORM 实现的 AutoMigrate 结果一致
func initTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
        CREATE TABLE IF NOT EXISTS game_records (
            id BIGSERIAL PRIMARY KEY,
            created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
            deleted_at TIMESTAMPTZ,
            room_id TEXT NOT NULL,
            round BIGINT NOT NULL,
            word TEXT NOT NULL,
            winner_id TEXT,
            win BOOLEAN NOT NULL,
            errors BIGINT DEFAULT 0,
            players JSONB,
            finished_at TIMESTAMPTZ
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
        CREATE INDEX IF NOT EXISTS idx_game_records_room_id ON game_records(room_id);
        CREATE INDEX IF NOT EXISTS idx_game_records_winner_id ON game_records(winner_id);
        CREATE INDEX IF NOT EXISTS idx_game_records_deleted_at ON game_records(deleted_at);
    `)
	return err
}

// SaveGameRecord 保存游戏记录
func (p *PostgreSQL) SaveGameRecord(ctx context.Context, record models.GameRecord) error {
	players, err := json.Marshal(record.Players)
	if err != nil {
		return err
	}

	query := `
        INSERT INTO game_records (room_id, round, word, winner_id, win, errors, players, finished_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	_, err = p.db.ExecContext(ctx, query,
		record.RoomID, record.Round, record.Word, record.WinnerID,
		record.Win, record.Errors, string(players), record.FinishedAt)
	return err
}

// GameRecords 加载房间的历史记录
func (p *PostgreSQL) GameRecords(ctx context.Context, roomID string) ([]models.GameRecord, error) {
	query := `
        SELECT room_id, round, word, COALESCE(winner_id, ''), win, errors, players, finished_at
        FROM game_records
        WHERE room_id = $1 AND deleted_at IS NULL
        ORDER BY finished_at
    `
	rows, err := p.db.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []models.GameRecord{}
	for rows.Next() {
		var (
			r       models.GameRecord
			players []byte
		)
		if err := rows.Scan(&r.RoomID, &r.Round, &r.Word, &r.WinnerID, &r.Win, &r.Errors, &players, &r.FinishedAt); err != nil {
			return nil, err
		}
		if len(players) > 0 {
			if err := json.Unmarshal(players, &r.Players); err != nil {
				return nil, err
			}
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// PlayerStats 统计玩家的对局
func (p *PostgreSQL) PlayerStats(ctx context.Context, playerID string) (models.PlayerStats, error) {
	contains, err := containsPlayer(playerID)
	if err != nil {
		return models.PlayerStats{}, err
	}

	var played, wins int
	err = p.db.QueryRowContext(ctx, pqPlayerStatsSQL, playerID, contains).Scan(&played, &wins)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.PlayerStats{}, ErrRecordNotFound
		}
		return models.PlayerStats{}, err
	}
	return newPlayerStats(playerID, played, wins), nil
}

// Close 关闭数据库连接
func (p *PostgreSQL) Close() error {
	return p.db.Close()
}
