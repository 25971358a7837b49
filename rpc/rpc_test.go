package rpc

import (
	"context"
	"net/rpc"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/hangman/models"
	"github.com/wfunc/hangman/persistence"
	"github.com/wfunc/hangman/room"
	"github.com/wfunc/hangman/services"
)

type fixedID string

func (f fixedID) Generate() string { return string(f) }

func startServer(t *testing.T) (*services.GameService, *rpc.Client) {
	t.Helper()
	games := services.NewGameService(room.NewRegistry(fixedID("ROOM01"), nil, 0), nil, persistence.NewMemory(), nil)
	server, err := NewServer("127.0.0.1:0", games)
	require.NoError(t, err)
	go server.Start()
	t.Cleanup(server.Stop)

	client, err := rpc.Dial("tcp", server.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return games, client
}

func TestGameService_GetRoom(t *testing.T) {
	games, client := startServer(t)
	_, err := games.CreateRoom(context.Background(), "A", "Alice")
	require.NoError(t, err)

	var reply GetRoomReply
	require.NoError(t, client.Call("GameService.GetRoom", &GetRoomArgs{RoomID: "ROOM01"}, &reply))
	assert.Equal(t, "A", reply.Room.Master)

	err = client.Call("GameService.GetRoom", &GetRoomArgs{RoomID: "missing"}, &GetRoomReply{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestGameService_ListRooms(t *testing.T) {
	games, client := startServer(t)

	var reply ListRoomsReply
	require.NoError(t, client.Call("GameService.ListRooms", &ListRoomsArgs{}, &reply))
	assert.Empty(t, reply.Rooms)

	_, err := games.CreateRoom(context.Background(), "A", "Alice")
	require.NoError(t, err)
	require.NoError(t, client.Call("GameService.ListRooms", &ListRoomsArgs{}, &reply))
	require.Len(t, reply.Rooms, 1)
	assert.Equal(t, "ROOM01", reply.Rooms[0].ID)

	var guessing ListRoomsReply
	require.NoError(t, client.Call("GameService.ListRooms", &ListRoomsArgs{Phase: models.PhaseGuessing}, &guessing))
	assert.Empty(t, guessing.Rooms)
}

func TestGameService_PlayerStats(t *testing.T) {
	games, client := startServer(t)
	ctx := context.Background()
	_, err := games.CreateRoom(ctx, "A", "Alice")
	require.NoError(t, err)
	_, err = games.JoinRoom(ctx, "ROOM01", "B", "Bob")
	require.NoError(t, err)
	_, err = games.LeaveRoom(ctx, "ROOM01", "B", true)
	require.NoError(t, err)

	var reply PlayerStatsReply
	require.NoError(t, client.Call("GameService.PlayerStats", &PlayerStatsArgs{PlayerID: "B"}, &reply))
	assert.Equal(t, "B", reply.Stats.PlayerID)
	require.NotNil(t, reply.Returning)
	assert.Equal(t, "ROOM01", reply.Returning.RoomID)
}
