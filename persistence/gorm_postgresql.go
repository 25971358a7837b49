// persistence/gorm_postgresql.go
package persistence

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wfunc/hangman/models"
)

// GormPostgreSQL 使用GORM的PostgreSQL实现
type GormPostgreSQL struct {
	db *gorm.DB
}

// NewGormPostgreSQL 创建GORM PostgreSQL数据库连接
func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	// 配置GORM日志
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Second,
			LogLevel:      logger.Warn,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}
	return newGormPostgreSQL(db)
}

func newGormPostgreSQL(db *gorm.DB) (*GormPostgreSQL, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置连接池
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&models.GormGameRecord{}); err != nil {
		return nil, err
	}
	return &GormPostgreSQL{db: db}, nil
}

// SaveGameRecord 保存游戏记录
func (p *GormPostgreSQL) SaveGameRecord(ctx context.Context, record models.GameRecord) error {
	return p.db.WithContext(ctx).Create(models.NewGormGameRecord(record)).Error
}

// GameRecords 按结束时间返回房间的全部记录
func (p *GormPostgreSQL) GameRecords(ctx context.Context, roomID string) ([]models.GameRecord, error) {
	var rows []models.GormGameRecord
	err := p.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("finished_at").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	records := make([]models.GameRecord, len(rows))
	for i := range rows {
		records[i] = rows[i].Record()
	}
	return records, nil
}

// PlayerStats 使用原生SQL统计
func (p *GormPostgreSQL) PlayerStats(ctx context.Context, playerID string) (models.PlayerStats, error) {
	contains, err := containsPlayer(playerID)
	if err != nil {
		return models.PlayerStats{}, err
	}

	var row struct {
		RoundsPlayed int
		Wins         int
	}
	if err := p.db.WithContext(ctx).Raw(gormPlayerStatsSQL, playerID, contains).Scan(&row).Error; err != nil {
		return models.PlayerStats{}, err
	}
	return newPlayerStats(playerID, row.RoundsPlayed, row.Wins), nil
}

// Close 关闭数据库连接
func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
