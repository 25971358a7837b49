package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/wfunc/hangman/services"
)

// PlayerIDHeader 携带调用者的玩家ID
const PlayerIDHeader = "player-id"

const callerKey = "caller"

type nameRequest struct {
	Name string `json:"name" binding:"required"`
}

type joinRequest struct {
	RoomID string `json:"roomId" binding:"required"`
	Name   string `json:"name" binding:"required"`
}

type wordRequest struct {
	Word string `json:"word" binding:"required"`
}

type letterRequest struct {
	Letter string `json:"letter" binding:"required"`
}

type masterRequest struct {
	PlayerID string `json:"playerId" binding:"required"`
}

// requireCaller 读取 player-id 头，缺失时返回 401
func requireCaller() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id := strings.TrimSpace(ctx.GetHeader(PlayerIDHeader))
		if id == "" {
			abortWithError(ctx, services.ErrNoCaller)
			return
		}
		ctx.Set(callerKey, id)
		ctx.Next()
	}
}

func callerID(ctx *gin.Context) string {
	return ctx.GetString(callerKey)
}

func bind(ctx *gin.Context, req any) bool {
	if err := ctx.ShouldBindJSON(req); err != nil {
		abortWithError(ctx, fmt.Errorf("%w: %v", errBadRequest, err))
		return false
	}
	return true
}

// respond 写入结果，err 不为 nil 时按错误分类返回
func respond(ctx *gin.Context, status int, data any, err error) {
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(status, data)
}

func (s *GameServer) createRoom(ctx *gin.Context) {
	var req nameRequest
	if !bind(ctx, &req) {
		return
	}
	snapshot, err := s.games.CreateRoom(ctx.Request.Context(), callerID(ctx), req.Name)
	respond(ctx, http.StatusCreated, snapshot, err)
}

func (s *GameServer) getRoom(ctx *gin.Context) {
	snapshot, err := s.games.GetRoom(ctx.Request.Context(), ctx.Param("roomId"))
	respond(ctx, http.StatusOK, snapshot, err)
}

func (s *GameServer) roomHistory(ctx *gin.Context) {
	roomID := ctx.Param("roomId")
	if _, err := s.games.GetRoom(ctx.Request.Context(), roomID); err != nil {
		abortWithError(ctx, err)
		return
	}
	records, err := s.games.GameHistory(ctx.Request.Context(), roomID)
	respond(ctx, http.StatusOK, records, err)
}

func (s *GameServer) playerStats(ctx *gin.Context) {
	stats, err := s.games.PlayerStats(ctx.Request.Context(), ctx.Param("playerId"))
	respond(ctx, http.StatusOK, stats, err)
}

func (s *GameServer) restartGame(ctx *gin.Context) {
	snapshot, err := s.games.RestartGame(ctx.Request.Context(), ctx.Param("roomId"), callerID(ctx))
	respond(ctx, http.StatusOK, snapshot, err)
}

func (s *GameServer) initGame(ctx *gin.Context) {
	snapshot, err := s.games.InitGame(ctx.Request.Context(), ctx.Param("roomId"), callerID(ctx))
	respond(ctx, http.StatusOK, snapshot, err)
}

func (s *GameServer) transferMaster(ctx *gin.Context) {
	var req masterRequest
	if !bind(ctx, &req) {
		return
	}
	snapshot, err := s.games.TransferMaster(ctx.Request.Context(), ctx.Param("roomId"), callerID(ctx), req.PlayerID)
	respond(ctx, http.StatusOK, snapshot, err)
}

func (s *GameServer) joinRoom(ctx *gin.Context) {
	var req nameRequest
	if !bind(ctx, &req) {
		return
	}
	player, err := s.games.JoinRoom(ctx.Request.Context(), ctx.Param("roomId"), callerID(ctx), req.Name)
	respond(ctx, http.StatusCreated, player, err)
}

func (s *GameServer) removePlayer(ctx *gin.Context) {
	leaving, err := s.games.RemovePlayer(ctx.Request.Context(), ctx.Param("roomId"), callerID(ctx), ctx.Param("playerId"))
	respond(ctx, http.StatusOK, leaving.Player, err)
}

func (s *GameServer) setWord(ctx *gin.Context) {
	var req wordRequest
	if !bind(ctx, &req) {
		return
	}
	slots, err := s.games.SetWord(ctx.Request.Context(), ctx.Param("roomId"), callerID(ctx), req.Word)
	respond(ctx, http.StatusCreated, slots, err)
}

func (s *GameServer) newGuess(ctx *gin.Context) {
	var req letterRequest
	if !bind(ctx, &req) {
		return
	}
	guess, err := s.games.NewGuess(ctx.Request.Context(), ctx.Param("roomId"), callerID(ctx), req.Letter)
	respond(ctx, http.StatusCreated, guess, err)
}

func (s *GameServer) newWordGuess(ctx *gin.Context) {
	var req wordRequest
	if !bind(ctx, &req) {
		return
	}
	echo, err := s.games.NewWordGuess(ctx.Request.Context(), ctx.Param("roomId"), callerID(ctx), req.Word)
	respond(ctx, http.StatusCreated, echo, err)
}
