package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/wfunc/hangman/logger"
	"github.com/wfunc/hangman/network"
	"github.com/wfunc/hangman/services"
	"github.com/wfunc/hangman/session"
)

var (
	errRateLimited  = errors.New("too many messages")
	errUnknownEvent = errors.New("unknown event")
)

// roomEvents 作用于玩家当前所在的房间
var roomEvents = map[string]bool{
	network.EventGetState:     true,
	network.EventLeaveRoom:    true,
	network.EventInitGame:     true,
	network.EventRestartGame:  true,
	network.EventSetWord:      true,
	network.EventNewGuess:     true,
	network.EventNewWordGuess: true,
	network.EventSetMaster:    true,
}

// handleWebSocket 玩家ID通过 ?id= 传入，在整个连接期间不变
func (s *GameServer) handleWebSocket(ctx *gin.Context) {
	playerID := strings.TrimSpace(ctx.Query("id"))
	if playerID == "" {
		abortWithError(ctx, services.ErrNoCaller)
		return
	}

	conn, err := s.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		logger.Log.Infof("Failed to upgrade connection: %v", err)
		return
	}
	s.handleConnection(playerID, network.NewWSConnection(conn))
}

func (s *GameServer) limiter() *rate.Limiter {
	limit := rate.Inf
	if s.cfg.MessageRate > 0 {
		limit = rate.Limit(s.cfg.MessageRate)
	}
	burst := s.cfg.MessageBurst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(limit, burst)
}

func (s *GameServer) handleConnection(playerID string, wsConn *network.WSConnection) {
	sess := session.NewSession(uuid.New().String(), playerID, wsConn)
	s.sessions.Add(sess)
	s.monitor.IncOnlineSessions()
	if s.cfg.Heartbeat > 0 {
		wsConn.SetHeartbeat(s.cfg.Heartbeat)
	}

	logger.Log.Infof("New connection from %s, player %s, session ID: %s", wsConn.RemoteAddr(), playerID, sess.GetID())

	done := make(chan struct{})
	go s.keepAlive(wsConn, done)

	defer func() {
		close(done)
		wsConn.Close()
		s.monitor.DecOnlineSessions()
		logger.Log.Infof("Connection closed from %s, session ID: %s", wsConn.RemoteAddr(), sess.GetID())
		if s.sessions.Remove(sess.GetID()) {
			s.disconnect(playerID)
		}
	}()

	limiter := s.limiter()
	for {
		packet, err := wsConn.ReadPacket()
		invalid := errors.Is(err, network.ErrInvalidPacket)
		if err != nil && !invalid {
			return
		}
		sess.Touch()
		s.monitor.IncMessagesReceived()

		// 无效的帧也占用配额
		if !limiter.Allow() {
			event := network.EventError
			if packet != nil {
				event = packet.Event
			}
			sess.Send(network.Fail(event, errRateLimited))
			continue
		}
		if invalid {
			sess.Send(network.Fail(network.EventError, err))
			continue
		}

		start := time.Now()
		reply := s.dispatch(playerID, packet)
		s.monitor.ObserveMessageLatency(time.Since(start))
		if err := sess.Send(reply); err != nil {
			return
		}
	}
}

// keepAlive 定时发送 ping，服务关闭时断开连接
func (s *GameServer) keepAlive(wsConn *network.WSConnection, done <-chan struct{}) {
	var tick <-chan time.Time
	if s.cfg.Heartbeat > 0 {
		ticker := time.NewTicker(s.cfg.Heartbeat)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case <-done:
			return
		case <-s.shutdownChan:
			wsConn.Close()
			return
		case <-tick:
			if err := wsConn.Ping(); err != nil {
				wsConn.Close()
				return
			}
		}
	}
}

// disconnect 玩家最后一个连接断开时离开房间，保留分数以便重连
func (s *GameServer) disconnect(playerID string) {
	roomID, err := s.games.RoomOf(playerID)
	if err != nil {
		return
	}
	if _, err := s.games.LeaveRoom(context.Background(), roomID, playerID, true); err != nil {
		logger.Log.Warnf("player %s disconnect from room %s: %v", playerID, roomID, err)
	}
}

func decode(packet *network.Packet, req any) error {
	if err := packet.Bind(req); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if err := binding.Validator.ValidateStruct(req); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// dispatch 处理一条消息，回复使用同一个事件名
func (s *GameServer) dispatch(playerID string, packet *network.Packet) network.Envelope {
	data, err := s.handle(context.Background(), playerID, packet)
	if err != nil {
		logger.Log.Debugf("player %s %s rejected: %v", playerID, packet.Event, err)
		return network.Fail(packet.Event, err)
	}
	return network.OK(packet.Event, data)
}

func (s *GameServer) handle(ctx context.Context, playerID string, packet *network.Packet) (any, error) {
	switch packet.Event {
	case network.EventPing:
		return "pong", nil

	case network.EventCreateRoom:
		var req nameRequest
		if err := decode(packet, &req); err != nil {
			return nil, err
		}
		return s.games.CreateRoom(ctx, playerID, req.Name)

	case network.EventJoinRoom:
		var req joinRequest
		if err := decode(packet, &req); err != nil {
			return nil, err
		}
		if _, err := s.games.JoinRoom(ctx, req.RoomID, playerID, req.Name); err != nil {
			return nil, err
		}
		return s.games.GetRoom(ctx, req.RoomID)
	}

	if !roomEvents[packet.Event] {
		return nil, fmt.Errorf("%w: %s", errUnknownEvent, packet.Event)
	}
	roomID, err := s.games.RoomOf(playerID)
	if err != nil {
		return nil, err
	}

	switch packet.Event {
	case network.EventGetState:
		return s.games.GetRoom(ctx, roomID)

	case network.EventLeaveRoom:
		return s.games.LeaveRoom(ctx, roomID, playerID, false)

	case network.EventInitGame:
		return s.games.InitGame(ctx, roomID, playerID)

	case network.EventRestartGame:
		return s.games.RestartGame(ctx, roomID, playerID)

	case network.EventSetWord:
		var req wordRequest
		if err := decode(packet, &req); err != nil {
			return nil, err
		}
		return s.games.SetWord(ctx, roomID, playerID, req.Word)

	case network.EventNewGuess:
		var req letterRequest
		if err := decode(packet, &req); err != nil {
			return nil, err
		}
		return s.games.NewGuess(ctx, roomID, playerID, req.Letter)

	case network.EventNewWordGuess:
		var req wordRequest
		if err := decode(packet, &req); err != nil {
			return nil, err
		}
		return s.games.NewWordGuess(ctx, roomID, playerID, req.Word)

	case network.EventSetMaster:
		var req masterRequest
		if err := decode(packet, &req); err != nil {
			return nil, err
		}
		return s.games.TransferMaster(ctx, roomID, playerID, req.PlayerID)
	}
	return nil, fmt.Errorf("%w: %s", errUnknownEvent, packet.Event)
}
