// models/models.go
package models

import (
	"time"
)

// Player 是房间中的一个参与者。ID 由调用方提供，断线重连后保持不变。
type Player struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Points int    `json:"points"`
}

// LetterSlot 是秘密单词中的一个位置。空格的 Letter 为空串，且一开始就是已猜中状态。
type LetterSlot struct {
	ID        string `json:"id"`
	Letter    string `json:"letter,omitempty"`
	IsGuessed bool   `json:"isGuessed"`
}

// IsBlank reports whether the slot stands for a space.
func (l LetterSlot) IsBlank() bool {
	return l.Letter == ""
}

// GuessRecord 记录一次字母猜测，IDs 为空表示没猜中
type GuessRecord struct {
	Letter string   `json:"letter"`
	IDs    []string `json:"ids"`
}

// Hit reports whether the guess revealed at least one slot.
func (g GuessRecord) Hit() bool {
	return len(g.IDs) > 0
}

// Outcome 是一局的结果。Win 为 false 表示错误次数用尽，Player 为出题人。
type Outcome struct {
	Player Player `json:"player"`
	Win    bool   `json:"win"`
}

// Phase 是房间当前一局所处的阶段
type Phase string

const (
	PhaseWaiting  Phase = "waiting"
	PhaseGuessing Phase = "guessing"
	PhaseFinished Phase = "finished"
)

// RoomSnapshot 是房间状态的只读副本，用于返回给客户端和广播
type RoomSnapshot struct {
	ID          string        `json:"id"`
	Round       int           `json:"round"`
	Phase       Phase         `json:"phase"`
	Master      string        `json:"master"`
	CurrentTurn string        `json:"currentTurn"`
	Players     []Player      `json:"players"`
	CurrentWord []LetterSlot  `json:"currentWord"`
	Guesses     []GuessRecord `json:"guesses"`
	WordGuesses []string      `json:"wordGuesses"`
	Errors      int           `json:"errors"`
	Outcome     *Outcome      `json:"status"`
}

// PlayerLeaving is broadcast when a player leaves a room.
type PlayerLeaving struct {
	Player Player `json:"player"`
	Master string `json:"master"`
}

// RemovedPlayer 记录离开房间的玩家，以便重连时恢复分数
type RemovedPlayer struct {
	Player    Player `json:"player"`
	RoomID    string `json:"roomId"`
	Round     int    `json:"round"`
	WasMaster bool   `json:"wasMaster"`
}

// WordGuess echoes a full-word guess back to the room.
type WordGuess struct {
	PlayerID string `json:"playerId"`
	Word     string `json:"word"`
}

// GameRecord 一局结束后的历史记录
type GameRecord struct {
	RoomID     string    `json:"room_id"`
	Round      int       `json:"round"`
	Word       string    `json:"word"`
	WinnerID   string    `json:"winner_id"`
	Win        bool      `json:"win"`
	Errors     int       `json:"errors"`
	Players    []Player  `json:"players"`
	FinishedAt time.Time `json:"finished_at"`
}

// PlayerStats 玩家统计信息
type PlayerStats struct {
	PlayerID     string `json:"player_id"`
	RoundsPlayed int    `json:"rounds_played"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
}
