package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/hangman/models"
	"github.com/wfunc/hangman/persistence"
	"github.com/wfunc/hangman/room"
	"github.com/wfunc/hangman/timer"
)

const roomID = "ROOM01"

type fixedID string

func (f fixedID) Generate() string { return string(f) }

type sent struct {
	roomID  string
	event   string
	payload any
}

// recordingNotifier keeps every notification in order.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sent
}

func (n *recordingNotifier) Notify(roomID, event string, payload any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sent{roomID, event, payload})
}

// take returns and clears what was sent so far.
func (n *recordingNotifier) take() []sent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.sent
	n.sent = nil
	return out
}

func events(batch []sent) []string {
	names := make([]string, len(batch))
	for i, s := range batch {
		names[i] = s.event
	}
	return names
}

type failingDB struct {
	persistence.Memory
}

func (f *failingDB) SaveGameRecord(context.Context, models.GameRecord) error {
	return errors.New("connection refused")
}

func newTestService(t *testing.T, players ...string) (*GameService, *recordingNotifier, *persistence.Memory) {
	t.Helper()
	notifier := &recordingNotifier{}
	db := persistence.NewMemory()
	svc := NewGameService(room.NewRegistry(fixedID(roomID), nil, 0), notifier, db, nil)

	ctx := context.Background()
	if len(players) > 0 {
		_, err := svc.CreateRoom(ctx, players[0], "name-"+players[0])
		require.NoError(t, err)
		for _, id := range players[1:] {
			_, err := svc.JoinRoom(ctx, roomID, id, "name-"+id)
			require.NoError(t, err)
		}
	}
	notifier.take()
	return svc, notifier, db
}

// startRound lets the master A set the word; B then holds the turn.
func startRound(t *testing.T, svc *GameService, n *recordingNotifier, word string) {
	t.Helper()
	ctx := context.Background()
	_, err := svc.InitGame(ctx, roomID, "A")
	require.NoError(t, err)
	_, err = svc.SetWord(ctx, roomID, "A", word)
	require.NoError(t, err)
	n.take()
}

func TestGameService_CreateAndGetRoom(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateRoom(ctx, "", "nobody")
	assert.ErrorIs(t, err, ErrNoCaller)

	created, err := svc.CreateRoom(ctx, "A", "Alice")
	require.NoError(t, err)
	assert.Equal(t, roomID, created.ID)
	assert.Equal(t, "A", created.Master)
	assert.Equal(t, models.PhaseWaiting, created.Phase)

	again, err := svc.CreateRoom(ctx, "A", "Alice")
	require.NoError(t, err)
	assert.Equal(t, created, again)

	got, err := svc.GetRoom(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	_, err = svc.GetRoom(ctx, "missing")
	assert.ErrorIs(t, err, room.ErrNotFound)
}

func TestGameService_JoinRoom(t *testing.T) {
	svc, n, _ := newTestService(t, "A")
	ctx := context.Background()

	player, err := svc.JoinRoom(ctx, roomID, "B", "Bob")
	require.NoError(t, err)

	assert.Equal(t, models.Player{ID: "B", Name: "Bob"}, player)
	assert.Equal(t, []sent{{roomID, "player-join", player}}, n.take())

	got, err := svc.RoomOf("B")
	require.NoError(t, err)
	assert.Equal(t, roomID, got)
	_, err = svc.RoomOf("Z")
	assert.ErrorIs(t, err, room.ErrNotFound)

	_, err = svc.JoinRoom(ctx, "missing", "C", "Carol")
	assert.ErrorIs(t, err, room.ErrNotFound)
}

func TestGameService_WinningRound(t *testing.T) {
	svc, n, db := newTestService(t, "A", "B", "C")
	ctx := context.Background()

	snap, err := svc.InitGame(ctx, roomID, "A")
	require.NoError(t, err)
	assert.Equal(t, "A", snap.CurrentTurn)
	assert.Equal(t, []string{"go-to-start"}, events(n.take()))

	_, err = svc.SetWord(ctx, roomID, "B", "cat")
	assert.ErrorIs(t, err, ErrForbidden)

	slots, err := svc.SetWord(ctx, roomID, "A", "cat")
	require.NoError(t, err)
	assert.Len(t, slots, 3)
	assert.Equal(t, []sent{
		{roomID, "set-word", slots},
		{roomID, "new-turn", "B"},
	}, n.take())

	_, err = svc.NewGuess(ctx, roomID, "C", "c")
	assert.ErrorIs(t, err, ErrForbidden, "C does not hold the turn")

	guess, err := svc.NewGuess(ctx, roomID, "B", "c")
	require.NoError(t, err)
	assert.Equal(t, models.GuessRecord{Letter: "C", IDs: []string{"0"}}, guess)
	assert.Equal(t, []sent{
		{roomID, "new-guess", guess},
		{roomID, "new-turn", "C"},
	}, n.take())

	_, err = svc.NewGuess(ctx, roomID, "C", "C")
	assert.ErrorIs(t, err, room.ErrAlreadyGuessed)
	assert.ErrorIs(t, err, room.ErrInvalidState)
	assert.Empty(t, n.take())

	_, err = svc.NewGuess(ctx, roomID, "C", "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"new-guess", "new-turn"}, events(n.take()))

	_, err = svc.NewGuess(ctx, roomID, "B", "t")
	require.NoError(t, err)

	winner := models.Player{ID: "B", Name: "name-B", Points: 1}
	batch := n.take()
	assert.Equal(t, []string{"new-guess", "finish-game", "update-player"}, events(batch))
	assert.Equal(t, models.Outcome{Player: winner, Win: true}, batch[1].payload)
	assert.Equal(t, winner, batch[2].payload)

	history, err := svc.GameHistory(ctx, roomID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "CAT", history[0].Word)
	assert.Equal(t, "B", history[0].WinnerID)
	assert.True(t, history[0].Win)

	stats, err := svc.PlayerStats(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Wins)
	records, err := db.GameRecords(ctx, roomID)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestGameService_LosingRoundRevealsWord(t *testing.T) {
	svc, n, _ := newTestService(t, "A", "B", "C")
	ctx := context.Background()
	startRound(t, svc, n, "ab")

	turn := "B"
	for _, letter := range []string{"c", "d", "e", "f", "g"} {
		_, err := svc.NewGuess(ctx, roomID, turn, letter)
		require.NoError(t, err)
		batch := n.take()
		require.Equal(t, []string{"new-guess", "new-turn"}, events(batch))
		turn = batch[1].payload.(string)
	}

	_, err := svc.NewGuess(ctx, roomID, turn, "h")
	require.NoError(t, err)

	batch := n.take()
	assert.Equal(t, []string{"new-guess", "new-guess", "new-guess", "finish-game", "update-player"}, events(batch))
	assert.Equal(t, models.GuessRecord{Letter: "A", IDs: []string{"0"}}, batch[1].payload)
	assert.Equal(t, models.GuessRecord{Letter: "B", IDs: []string{"1"}}, batch[2].payload)
	assert.Equal(t, models.Outcome{Player: models.Player{ID: "A", Name: "name-A", Points: 1}, Win: false}, batch[3].payload)

	snap, err := svc.GetRoom(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseFinished, snap.Phase)
	assert.Equal(t, room.ErrorBudget, snap.Errors)
	want := []models.LetterSlot{
		{ID: "0", Letter: "A", IsGuessed: true},
		{ID: "1", Letter: "B", IsGuessed: true},
	}
	if diff := cmp.Diff(want, snap.CurrentWord); diff != "" {
		t.Errorf("revealed word mismatch (-want +got):\n%s", diff)
	}

	_, err = svc.NewGuess(ctx, roomID, snap.CurrentTurn, "z")
	assert.ErrorIs(t, err, room.ErrRoundFinished)
}

func TestGameService_WordGuess(t *testing.T) {
	svc, n, _ := newTestService(t, "A", "B", "C")
	ctx := context.Background()
	startRound(t, svc, n, "cat")

	echo, err := svc.NewWordGuess(ctx, roomID, "C", "dog")
	require.NoError(t, err)
	assert.Equal(t, models.WordGuess{PlayerID: "C", Word: "DOG"}, echo)
	assert.Equal(t, []sent{{roomID, "new-word-guesses", echo}}, n.take())

	_, err = svc.NewWordGuess(ctx, roomID, "D", "cat")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.NewWordGuess(ctx, roomID, "C", "  ")
	assert.ErrorIs(t, err, room.ErrEmptyWord)

	_, err = svc.NewWordGuess(ctx, roomID, "C", "cat")
	require.NoError(t, err)
	batch := n.take()
	assert.Equal(t, []string{
		"new-word-guesses", "new-guess", "new-guess", "new-guess", "finish-game", "update-player",
	}, events(batch))
	assert.Equal(t, models.Outcome{Player: models.Player{ID: "C", Name: "name-C", Points: 1}, Win: true}, batch[4].payload)

	snap, err := svc.GetRoom(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, []string{"DOG", "CAT"}, snap.WordGuesses)
	assert.Zero(t, snap.Errors)
}

func TestGameService_LeaveRoomPassesTurn(t *testing.T) {
	svc, n, _ := newTestService(t, "A", "B", "C")
	ctx := context.Background()
	startRound(t, svc, n, "cat")

	leaving, err := svc.LeaveRoom(ctx, roomID, "B", true)
	require.NoError(t, err)

	assert.Equal(t, models.PlayerLeaving{Player: models.Player{ID: "B", Name: "name-B"}, Master: "A"}, leaving)
	assert.Equal(t, []sent{
		{roomID, "player-leave", leaving},
		{roomID, "new-turn", "C"},
	}, n.take())
	_, ok := svc.ReturningPlayer("B")
	assert.True(t, ok)

	_, err = svc.LeaveRoom(ctx, roomID, "", false)
	assert.ErrorIs(t, err, ErrNoCaller)
	_, err = svc.LeaveRoom(ctx, roomID, "B", false)
	assert.ErrorIs(t, err, room.ErrNotFound)
}

func TestGameService_RejoinRescuedRoomMidRound(t *testing.T) {
	ctx := context.Background()
	timers := timer.NewTimerManager(0)
	t.Cleanup(timers.Stop)
	n := &recordingNotifier{}
	svc := NewGameService(room.NewRegistry(fixedID(roomID), timers, 10*time.Minute), n, persistence.NewMemory(), nil)

	_, err := svc.CreateRoom(ctx, "A", "Alice")
	require.NoError(t, err)
	_, err = svc.JoinRoom(ctx, roomID, "B", "Bob")
	require.NoError(t, err)
	startRound(t, svc, n, "cat")

	_, err = svc.LeaveRoom(ctx, roomID, "B", true)
	require.NoError(t, err)
	_, err = svc.LeaveRoom(ctx, roomID, "A", true)
	require.NoError(t, err)
	require.True(t, timers.Pending(roomID))
	n.take()

	_, err = svc.JoinRoom(ctx, roomID, "A", "Alice")
	require.NoError(t, err)
	_, err = svc.JoinRoom(ctx, roomID, "B", "Bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"player-join", "new-turn", "player-join", "new-turn"}, events(n.take()))

	snap, err := svc.GetRoom(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, models.PhaseGuessing, snap.Phase)
	assert.Equal(t, "A", snap.Master)
	assert.Equal(t, "B", snap.CurrentTurn)

	snap, err = svc.InitGame(ctx, roomID, "A")
	require.NoError(t, err)
	assert.Equal(t, "B", snap.CurrentTurn, "init does not hand a started round to the master")

	_, err = svc.NewGuess(ctx, roomID, "A", "c")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.NewGuess(ctx, roomID, "B", "c")
	assert.NoError(t, err)
}

func TestGameService_RemovedPlayerLosesTheTurn(t *testing.T) {
	svc, n, _ := newTestService(t, "A", "B", "C")
	ctx := context.Background()
	startRound(t, svc, n, "cat")

	_, err := svc.RemovePlayer(ctx, roomID, "A", "B")
	require.NoError(t, err)
	assert.Equal(t, []sent{
		{roomID, "player-leave", models.PlayerLeaving{Player: models.Player{ID: "B", Name: "name-B"}, Master: "A"}},
		{roomID, "new-turn", "C"},
	}, n.take())

	_, err = svc.NewGuess(ctx, roomID, "B", "c")
	assert.ErrorIs(t, err, ErrForbidden)

	// a turn naming a player that is gone never passes the guard
	rm, err := svc.registry.GetRoomByID(roomID)
	require.NoError(t, err)
	require.NoError(t, rm.Exec(func(r *room.Room) error {
		_, err := r.RemovePlayer("C")
		return err
	}))
	require.Equal(t, "C", rm.CurrentTurn())
	ok, err := svc.IsCallersTurn(roomID, "C")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGameService_LastPlayerLeaves(t *testing.T) {
	svc, n, _ := newTestService(t, "A")
	ctx := context.Background()

	_, err := svc.LeaveRoom(ctx, roomID, "A", false)
	require.NoError(t, err)

	assert.Equal(t, []string{"player-leave"}, events(n.take()))
	_, err = svc.GetRoom(ctx, roomID)
	assert.ErrorIs(t, err, room.ErrNotFound, "no grace window is configured")
}

func TestGameService_RemovePlayer(t *testing.T) {
	svc, _, _ := newTestService(t, "A", "B", "C")
	ctx := context.Background()

	_, err := svc.RemovePlayer(ctx, roomID, "B", "C")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.RemovePlayer(ctx, roomID, "A", "C")
	require.NoError(t, err)
	_, err = svc.RemovePlayer(ctx, roomID, "B", "B")
	require.NoError(t, err)

	snap, err := svc.GetRoom(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, []models.Player{{ID: "A", Name: "name-A"}}, snap.Players)
}

func TestGameService_RestartGame(t *testing.T) {
	svc, n, _ := newTestService(t, "A", "B")
	ctx := context.Background()
	_, err := svc.InitGame(ctx, roomID, "A")
	require.NoError(t, err)
	n.take()

	_, err = svc.RestartGame(ctx, roomID, "B")
	assert.ErrorIs(t, err, ErrForbidden)

	snap, err := svc.RestartGame(ctx, roomID, "A")
	require.NoError(t, err)
	assert.Equal(t, "B", snap.Master)
	assert.Equal(t, "B", snap.CurrentTurn)
	assert.Equal(t, 2, snap.Round)
	assert.Equal(t, []sent{{roomID, "restart-game", snap}}, n.take())
}

func TestGameService_TransferMaster(t *testing.T) {
	svc, n, _ := newTestService(t, "A", "B", "C")
	ctx := context.Background()

	_, err := svc.TransferMaster(ctx, roomID, "B", "C")
	assert.ErrorIs(t, err, ErrForbidden)

	snap, err := svc.TransferMaster(ctx, roomID, "A", "C")
	require.NoError(t, err)
	assert.Equal(t, "C", snap.Master)
	assert.Equal(t, []sent{
		{roomID, "new-master", "C"},
		{roomID, "new-turn", "C"},
	}, n.take())

	_, err = svc.TransferMaster(ctx, roomID, "C", "Z")
	assert.ErrorIs(t, err, room.ErrNotFound)
}

func TestGameService_Predicates(t *testing.T) {
	svc, n, _ := newTestService(t, "A", "B")
	startRound(t, svc, n, "cat")

	ok, err := svc.IsCallersTurn(roomID, "B")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.IsCallerMaster(roomID, "B")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.IsCallersTurn("missing", "B")
	assert.ErrorIs(t, err, room.ErrNotFound)
}

func TestGameService_HistoryFailureDoesNotFailTheGuess(t *testing.T) {
	notifier := &recordingNotifier{}
	svc := NewGameService(room.NewRegistry(fixedID(roomID), nil, 0), notifier, &failingDB{}, nil)
	ctx := context.Background()
	_, err := svc.CreateRoom(ctx, "A", "Alice")
	require.NoError(t, err)
	_, err = svc.JoinRoom(ctx, roomID, "B", "Bob")
	require.NoError(t, err)
	startRound(t, svc, notifier, "a")

	_, err = svc.NewGuess(ctx, roomID, "B", "a")
	assert.NoError(t, err)
	assert.Contains(t, events(notifier.take()), "finish-game")
}
