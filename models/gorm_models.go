// models/gorm_models.go
package models

import (
	"time"

	"gorm.io/gorm"
)

// GormGameRecord 游戏记录模型
type GormGameRecord struct {
	gorm.Model
	RoomID     string   `gorm:"index;not null"`
	Round      int      `gorm:"not null"`
	Word       string   `gorm:"not null"`
	WinnerID   string   `gorm:"index"`
	Win        bool     `gorm:"not null"`
	Errors     int      `gorm:"default:0"`
	Players    []Player `gorm:"serializer:json;type:jsonb"`
	FinishedAt time.Time
}

// TableName keeps the table shared with the raw SQL implementation.
func (GormGameRecord) TableName() string {
	return "game_records"
}

// NewGormGameRecord converts a record into its row form.
func NewGormGameRecord(r GameRecord) *GormGameRecord {
	return &GormGameRecord{
		RoomID:     r.RoomID,
		Round:      r.Round,
		Word:       r.Word,
		WinnerID:   r.WinnerID,
		Win:        r.Win,
		Errors:     r.Errors,
		Players:    r.Players,
		FinishedAt: r.FinishedAt,
	}
}

// Record converts the row back into a GameRecord.
func (g *GormGameRecord) Record() GameRecord {
	return GameRecord{
		RoomID:     g.RoomID,
		Round:      g.Round,
		Word:       g.Word,
		WinnerID:   g.WinnerID,
		Win:        g.Win,
		Errors:     g.Errors,
		Players:    g.Players,
		FinishedAt: g.FinishedAt,
	}
}
