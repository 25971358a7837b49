package server

import (
	"context"
	"errors"
	"expvar"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/wfunc/hangman/config"
	"github.com/wfunc/hangman/logger"
	"github.com/wfunc/hangman/monitor"
	"github.com/wfunc/hangman/services"
	"github.com/wfunc/hangman/session"
	hangmanrpc "github.com/wfunc/hangman/rpc"
)

type GameServer struct {
	cfg          config.ServerConfig
	games        *services.GameService
	sessions     *session.Manager
	monitor      *monitor.Monitor
	rpcServer    *hangmanrpc.Server
	upgrader     websocket.Upgrader
	httpServer   *http.Server
	shutdownChan chan struct{}
	closeOnce    sync.Once
}

// NewGameServer 组装 HTTP 和 websocket 服务。mon 和 rpcServer 可以为 nil。
func NewGameServer(cfg config.ServerConfig, games *services.GameService, sessions *session.Manager,
	mon *monitor.Monitor, rpcServer *hangmanrpc.Server) *GameServer {
	s := &GameServer{
		cfg:          cfg,
		games:        games,
		sessions:     sessions,
		monitor:      mon,
		rpcServer:    rpcServer,
		shutdownChan: make(chan struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	s.httpServer = &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// checkOrigin 没有 Origin 头的客户端（命令行）总是允许
func (s *GameServer) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || slices.Contains(s.cfg.AllowedOrigins, "*") || slices.Contains(s.cfg.AllowedOrigins, origin)
}

func (s *GameServer) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", PlayerIDHeader},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(s.cfg.AllowedOrigins) == 0 || slices.Contains(s.cfg.AllowedOrigins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.cfg.AllowedOrigins
	}
	return cfg
}

// Router 注册所有路由
func (s *GameServer) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.Use(cors.New(s.corsConfig()))

	r.GET("/health", s.health)
	if s.monitor != nil {
		r.GET("/metrics", gin.WrapH(s.monitor.Handler()))
	}
	r.GET("/debug/vars", gin.WrapH(expvar.Handler()))
	r.GET("/ws", s.handleWebSocket)

	game := r.Group("/game")
	game.GET("/rooms/:roomId", s.getRoom)
	game.GET("/rooms/:roomId/history", s.roomHistory)
	game.GET("/players/:playerId/stats", s.playerStats)

	player := game.Group("", requireCaller())
	player.POST("/rooms", s.createRoom)
	player.PUT("/rooms/:roomId/restart-game", s.restartGame)
	player.PUT("/rooms/:roomId/init-game", s.initGame)
	player.PUT("/rooms/:roomId/master", s.transferMaster)
	player.POST("/rooms/:roomId/players", s.joinRoom)
	player.DELETE("/rooms/:roomId/players/:playerId", s.removePlayer)
	player.POST("/rooms/:roomId/word", s.setWord)
	player.POST("/rooms/:roomId/guesses", s.newGuess)
	player.POST("/rooms/:roomId/word-guesses", s.newWordGuess)

	return r
}

func (s *GameServer) Start() error {
	if s.rpcServer != nil {
		go s.rpcServer.Start()
	}

	logger.Log.Infof("Game server listening on %s", s.cfg.HTTPAddress)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown 关闭所有 websocket 连接和监听
func (s *GameServer) Shutdown(ctx context.Context) error {
	s.closeOnce.Do(func() {
		close(s.shutdownChan)
	})
	if s.rpcServer != nil {
		s.rpcServer.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *GameServer) health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"ok": true,
		"data": gin.H{
			"rooms":    s.games.RoomCount(),
			"sessions": s.sessions.Count(),
		},
	})
}

// requestLogger 用 zap 记录每个请求
func requestLogger() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()
		logger.Log.Debugf("%s %s %d %s", ctx.Request.Method, ctx.Request.URL.Path,
			ctx.Writer.Status(), time.Since(start))
	}
}
