// room/room.go
package room

import (
	"strconv"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/wfunc/hangman/models"
)

// ErrorBudget 是一局允许的错误次数，第 6 次猜错时本局失败
const ErrorBudget = 6

// Room 是一个游戏房间的状态机。
//
// Room 的方法本身不加锁；同一房间可能被多个 goroutine 访问时，必须通过 Exec 调用。
// 不同房间之间完全独立，不需要跨房间加锁。
type Room struct {
	id          string
	master      string
	currentTurn string
	players     []*models.Player // 加入顺序，决定轮转顺序
	currentWord []models.LetterSlot
	guesses     []models.GuessRecord
	wordGuesses []string
	errors      int
	outcome     *models.Outcome
	round       int
	mu          sync.Mutex
}

// NewRoom 创建房间，创建者是唯一玩家，同时是出题人
func NewRoom(id, masterID, masterName string) *Room {
	r := &Room{id: id}
	r.resetGame()
	r.AddPlayer(masterID, masterName, 0)
	r.master = masterID
	return r
}

// Exec runs fn while holding the room's lock.
func (r *Room) Exec(fn func(r *Room) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(r)
}

// ID 返回房间ID
func (r *Room) ID() string {
	return r.id
}

// Master returns the id of the player choosing the word, or "" for an empty room.
func (r *Room) Master() string {
	return r.master
}

// CurrentTurn returns the id of the player whose guess is accepted, or "".
func (r *Room) CurrentTurn() string {
	return r.currentTurn
}

// Round 每次 resetGame 都会加一
func (r *Room) Round() int {
	return r.round
}

// Errors returns the wrong letter guesses of the current round.
func (r *Room) Errors() int {
	return r.errors
}

// IsTurn reports whether playerID holds the current turn.
func (r *Room) IsTurn(playerID string) bool {
	return playerID != "" && r.currentTurn == playerID
}

// IsMaster reports whether playerID is the current master.
func (r *Room) IsMaster(playerID string) bool {
	return playerID != "" && r.master == playerID
}

// Phase 从房间字段推导当前阶段
func (r *Room) Phase() models.Phase {
	switch {
	case r.outcome != nil:
		return models.PhaseFinished
	case len(r.currentWord) > 0:
		return models.PhaseGuessing
	default:
		return models.PhaseWaiting
	}
}

// --- 玩家 ---

func (r *Room) indexOf(playerID string) int {
	for i, p := range r.players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}

func (r *Room) find(playerID string) *models.Player {
	if i := r.indexOf(playerID); i >= 0 {
		return r.players[i]
	}
	return nil
}

// IsPresent reports whether playerID is in the room.
func (r *Room) IsPresent(playerID string) bool {
	return r.indexOf(playerID) >= 0
}

// Player 返回玩家的副本
func (r *Room) Player(playerID string) (models.Player, bool) {
	if p := r.find(playerID); p != nil {
		return *p, true
	}
	return models.Player{}, false
}

// Players returns a copy of the players in join order.
func (r *Room) Players() []models.Player {
	players := make([]models.Player, len(r.players))
	for i, p := range r.players {
		players[i] = *p
	}
	return players
}

// PlayerIDs returns the ids of the players in join order.
func (r *Room) PlayerIDs() []string {
	ids := make([]string, len(r.players))
	for i, p := range r.players {
		ids[i] = p.ID
	}
	return ids
}

// PlayerCount 房间人数
func (r *Room) PlayerCount() int {
	return len(r.players)
}

// AddPlayer 将玩家追加到末尾。玩家已存在时原样返回已有记录，不修改名字和分数。
// points 用于恢复重连玩家的分数。
func (r *Room) AddPlayer(playerID, name string, points int) models.Player {
	if p := r.find(playerID); p != nil {
		return *p
	}
	if points < 0 {
		points = 0
	}
	p := &models.Player{ID: playerID, Name: name, Points: points}
	r.players = append(r.players, p)
	return *p
}

// RemovePlayer 移除玩家并保持其余玩家的相对顺序，然后更新出题人。
// 如果被移除的玩家持有回合，由调用方负责推进回合。
func (r *Room) RemovePlayer(playerID string) (models.Player, error) {
	i := r.indexOf(playerID)
	if i < 0 {
		return models.Player{}, ErrPlayerNotFound
	}
	removed := *r.players[i]
	r.players = append(r.players[:i:i], r.players[i+1:]...)
	r.UpdateMaster()
	return removed, nil
}

// UpdateMaster 房间为空时清空出题人；出题人已不在房间时由第一个玩家接任。
func (r *Room) UpdateMaster() {
	if len(r.players) == 0 {
		r.master = ""
		return
	}
	if !r.IsPresent(r.master) {
		r.master = r.players[0].ID
	}
}

// HandOffMaster makes playerID the master. While no word is set the turn follows
// the master; while guessing a new master that held the turn passes it on.
func (r *Room) HandOffMaster(playerID string) error {
	if !r.IsPresent(playerID) {
		return ErrPlayerNotFound
	}
	r.master = playerID
	switch r.Phase() {
	case models.PhaseWaiting:
		r.currentTurn = playerID
	case models.PhaseGuessing:
		if r.currentTurn == playerID {
			if _, err := r.UpdateNextTurn(); err != nil {
				return err
			}
		}
	}
	return nil
}

// --- 回合 ---

// UpdateNextTurn 把回合交给列表中当前玩家之后的下一个玩家（循环），并跳过出题人。
// 只剩一个玩家时回合总是属于他。
func (r *Room) UpdateNextTurn() (string, error) {
	n := len(r.players)
	if n == 0 {
		return "", ErrNoPlayers
	}
	if n == 1 {
		r.currentTurn = r.players[0].ID
		return r.currentTurn, nil
	}

	idx := r.indexOf(r.currentTurn)
	for i := 0; i < n; i++ {
		idx = (idx + 1) % n
		if id := r.players[idx].ID; id != r.master {
			r.currentTurn = id
			return id, nil
		}
	}
	// every slot is the master, which a list of distinct ids cannot produce
	r.currentTurn = r.players[0].ID
	return r.currentTurn, nil
}

// RepairTurn 在玩家加入或离开后恢复回合：回合持有人已离开，离开的出题人把出题权交给了
// 正在猜的玩家，或者房间被清空后有人在猜词阶段重新加入。返回新的回合持有人，以及回合是否改变。
// 等待阶段没有人持有回合时保持为空，由 StartTurn 交给出题人。
func (r *Room) RepairTurn() (string, bool) {
	prev := r.currentTurn
	switch phase := r.Phase(); {
	case len(r.players) == 0:
		r.currentTurn = ""
	case phase == models.PhaseWaiting:
		if prev != "" && !r.IsPresent(prev) {
			r.currentTurn = r.master
		}
	case prev == "":
		if phase == models.PhaseGuessing {
			r.UpdateNextTurn()
		}
	case !r.IsPresent(prev) || (prev == r.master && len(r.players) > 1):
		r.UpdateNextTurn()
	}
	return r.currentTurn, r.currentTurn != prev
}

// StartTurn hands the turn to the master when nobody holds it. Only a round
// that has no word yet starts with the master.
func (r *Room) StartTurn() string {
	if r.Phase() != models.PhaseWaiting {
		return r.currentTurn
	}
	if r.currentTurn == "" || !r.IsPresent(r.currentTurn) {
		r.currentTurn = r.master
	}
	return r.currentTurn
}

// --- 单词与猜测 ---

// SetWord 将单词转为大写并按位置拆分。空格位置没有字母，直接视为已猜中。
func (r *Room) SetWord(word string) ([]models.LetterSlot, error) {
	if strings.TrimSpace(word) == "" {
		return nil, ErrEmptyWord
	}
	slots := make([]models.LetterSlot, 0, len(word))
	for _, c := range strings.ToUpper(word) {
		slot := models.LetterSlot{ID: strconv.Itoa(len(slots))}
		if unicode.IsSpace(c) {
			slot.IsGuessed = true
		} else {
			slot.Letter = string(c)
		}
		slots = append(slots, slot)
	}
	r.currentWord = slots
	return r.Word(), nil
}

// Word returns a copy of the current letter slots.
func (r *Room) Word() []models.LetterSlot {
	return append([]models.LetterSlot{}, r.currentWord...)
}

// secret 重建秘密单词，保留空格
func (r *Room) secret() string {
	var b strings.Builder
	for _, l := range r.currentWord {
		if l.IsBlank() {
			b.WriteByte(' ')
		} else {
			b.WriteString(l.Letter)
		}
	}
	return b.String()
}

// Secret returns the word as it was set, uppercased.
func (r *Room) Secret() string {
	return r.secret()
}

// NormalizeLetter uppercases a guess and checks it is a single non-space character.
func NormalizeLetter(letter string) (string, error) {
	upper := strings.ToUpper(letter)
	if utf8.RuneCountInString(upper) != 1 {
		return "", ErrInvalidLetter
	}
	c, _ := utf8.DecodeRuneInString(upper)
	if c == utf8.RuneError || unicode.IsSpace(c) {
		return "", ErrInvalidLetter
	}
	return upper, nil
}

// CheckGuessIsPresent reports whether the letter was already guessed this round.
func (r *Room) CheckGuessIsPresent(letter string) bool {
	normalized, err := NormalizeLetter(letter)
	if err != nil {
		return false
	}
	for _, g := range r.guesses {
		if g.Letter == normalized {
			return true
		}
	}
	return false
}

// AddGuess 揭示所有与字母相同的位置；没有命中时错误次数加一
func (r *Room) AddGuess(letter string) (models.GuessRecord, error) {
	normalized, err := NormalizeLetter(letter)
	if err != nil {
		return models.GuessRecord{}, err
	}
	switch {
	case r.outcome != nil:
		return models.GuessRecord{}, ErrRoundFinished
	case len(r.currentWord) == 0:
		return models.GuessRecord{}, ErrNoWord
	case r.CheckGuessIsPresent(normalized):
		return models.GuessRecord{}, ErrAlreadyGuessed
	}

	guess := models.GuessRecord{Letter: normalized, IDs: []string{}}
	for i := range r.currentWord {
		if r.currentWord[i].Letter == normalized {
			r.currentWord[i].IsGuessed = true
			guess.IDs = append(guess.IDs, r.currentWord[i].ID)
		}
	}
	if !guess.Hit() {
		r.errors++
	}
	r.guesses = append(r.guesses, guess)
	return guess, nil
}

func (r *Room) wordComplete() bool {
	if len(r.currentWord) == 0 {
		return false
	}
	for _, l := range r.currentWord {
		if !l.IsBlank() && !l.IsGuessed {
			return false
		}
	}
	return true
}

// IsGameFinished 检查本局是否结束，第一次检测到结束时记录结果并加分。
// 结果一旦确定，直到下一局之前都不会改变，也不会重复加分。
func (r *Room) IsGameFinished() *models.Outcome {
	if r.outcome == nil {
		switch {
		case r.wordComplete():
			r.commit(r.currentTurn, true)
		case r.errors >= ErrorBudget:
			r.commit(r.master, false)
		}
	}
	if r.outcome == nil {
		return nil
	}
	outcome := *r.outcome
	return &outcome
}

func (r *Room) commit(playerID string, win bool) {
	credited := models.Player{ID: playerID}
	if p := r.find(playerID); p != nil {
		p.Points++
		credited = *p
	}
	r.outcome = &models.Outcome{Player: credited, Win: win}
}

// CheckWordGuess 记录一次整词猜测（包括猜错的），猜中时猜测者获胜。
// 整词猜测不要求持有回合，也不影响错误次数。
func (r *Room) CheckWordGuess(playerID, word string) (bool, error) {
	switch {
	case r.outcome != nil:
		return false, ErrRoundFinished
	case len(r.currentWord) == 0:
		return false, ErrNoWord
	case !r.IsPresent(playerID):
		return false, ErrPlayerNotFound
	}

	normalized := strings.ToUpper(word)
	r.wordGuesses = append(r.wordGuesses, normalized)
	if normalized != r.secret() {
		return false, nil
	}
	r.commit(playerID, true)
	return true, nil
}

// RevealRemaining 揭示所有剩余字母，每个字母生成一条猜测记录
func (r *Room) RevealRemaining() []models.GuessRecord {
	var revealed []models.GuessRecord
	for i := range r.currentWord {
		letter := r.currentWord[i].Letter
		if r.currentWord[i].IsGuessed || letter == "" {
			continue
		}
		guess := models.GuessRecord{Letter: letter, IDs: []string{}}
		for j := i; j < len(r.currentWord); j++ {
			if r.currentWord[j].Letter == letter && !r.currentWord[j].IsGuessed {
				r.currentWord[j].IsGuessed = true
				guess.IDs = append(guess.IDs, r.currentWord[j].ID)
			}
		}
		r.guesses = append(r.guesses, guess)
		revealed = append(revealed, guess)
	}
	return revealed
}

// Snapshot 返回房间状态的深拷贝
func (r *Room) Snapshot() models.RoomSnapshot {
	guesses := make([]models.GuessRecord, len(r.guesses))
	for i, g := range r.guesses {
		guesses[i] = models.GuessRecord{Letter: g.Letter, IDs: append([]string{}, g.IDs...)}
	}
	var outcome *models.Outcome
	if r.outcome != nil {
		o := *r.outcome
		outcome = &o
	}
	return models.RoomSnapshot{
		ID:          r.id,
		Round:       r.round,
		Phase:       r.Phase(),
		Master:      r.master,
		CurrentTurn: r.currentTurn,
		Players:     r.Players(),
		CurrentWord: r.Word(),
		Guesses:     guesses,
		WordGuesses: append([]string{}, r.wordGuesses...),
		Errors:      r.errors,
		Outcome:     outcome,
	}
}
