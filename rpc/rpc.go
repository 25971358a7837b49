package rpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"

	"github.com/wfunc/hangman/logger"
	"github.com/wfunc/hangman/models"
	"github.com/wfunc/hangman/services"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	rpc      *rpc.Server
}

// NewServer 监听 addr 并注册 GameService
func NewServer(addr string, games *services.GameService) (*Server, error) {
	server := rpc.NewServer()
	if err := server.RegisterName("GameService", NewGameService(games)); err != nil {
		return nil, err
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		rpc:      server,
	}, nil
}

// Addr returns the bound address, useful when listening on port 0.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Start begins listening for RPC requests.
func (s *Server) Start() {
	logger.Log.Infof("RPC server listening on %s", s.listener.Addr())
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeConn(conn)
	}
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
	}
}

// GameService 是只读的管理接口。
// 方法签名遵循 net/rpc 的要求：参数和返回值都是导出类型，第二个参数是指针，返回 error。
type GameService struct {
	games *services.GameService
}

func NewGameService(games *services.GameService) *GameService {
	return &GameService{games: games}
}

type GetRoomArgs struct {
	RoomID string
}

type GetRoomReply struct {
	Room models.RoomSnapshot
}

func (gs *GameService) GetRoom(args *GetRoomArgs, reply *GetRoomReply) error {
	snapshot, err := gs.games.GetRoom(context.Background(), args.RoomID)
	if err != nil {
		return err
	}
	reply.Room = snapshot
	return nil
}

// ListRoomsArgs 的 Phase 为空时返回所有房间
type ListRoomsArgs struct {
	Phase models.Phase
}

type ListRoomsReply struct {
	Rooms []models.RoomSnapshot
}

func (gs *GameService) ListRooms(args *ListRoomsArgs, reply *ListRoomsReply) error {
	reply.Rooms = reply.Rooms[:0]
	for _, snapshot := range gs.games.ListRooms(context.Background()) {
		if args.Phase == "" || snapshot.Phase == args.Phase {
			reply.Rooms = append(reply.Rooms, snapshot)
		}
	}
	return nil
}

type PlayerStatsArgs struct {
	PlayerID string
}

type PlayerStatsReply struct {
	Stats models.PlayerStats
	// Returning 玩家断线后等待重连时的记录
	Returning *models.RemovedPlayer
}

func (gs *GameService) PlayerStats(args *PlayerStatsArgs, reply *PlayerStatsReply) error {
	stats, err := gs.games.PlayerStats(context.Background(), args.PlayerID)
	if err != nil {
		return err
	}
	reply.Stats = stats
	if returning, ok := gs.games.ReturningPlayer(args.PlayerID); ok {
		reply.Returning = &returning
	}
	return nil
}
