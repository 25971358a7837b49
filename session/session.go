// session/session.go
package session

import (
	"sync"
	"time"

	"github.com/wfunc/hangman/network"
)

// Session 是一条 websocket 连接。同一个玩家可以同时打开多个会话。
type Session struct {
	ID         string
	PlayerID   string
	Conn       network.Connection
	CreatedAt  time.Time
	lastActive time.Time
	mutex      sync.RWMutex
}

func NewSession(id, playerID string, conn network.Connection) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		PlayerID:   playerID,
		Conn:       conn,
		CreatedAt:  now,
		lastActive: now,
	}
}

// Touch 记录最近一次活动时间
func (s *Session) Touch() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.lastActive = time.Now()
}

func (s *Session) LastActive() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.lastActive
}

func (s *Session) Send(msg network.Envelope) error {
	return s.Conn.Send(msg)
}

func (s *Session) GetID() string {
	return s.ID
}

func (s *Session) Close() error {
	return s.Conn.Close()
}

// Session管理器，按会话ID和玩家ID索引
type Manager struct {
	sessions map[string]*Session
	byPlayer map[string]map[string]*Session
	mutex    sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		byPlayer: make(map[string]map[string]*Session),
	}
}

func (m *Manager) Add(session *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sessions[session.ID] = session
	if m.byPlayer[session.PlayerID] == nil {
		m.byPlayer[session.PlayerID] = make(map[string]*Session)
	}
	m.byPlayer[session.PlayerID][session.ID] = session
}

// Remove 删除会话，返回该玩家是否已经没有其他会话
func (m *Manager) Remove(sessionID string) (last bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return false
	}
	delete(m.sessions, sessionID)

	owned := m.byPlayer[session.PlayerID]
	delete(owned, sessionID)
	if len(owned) == 0 {
		delete(m.byPlayer, session.PlayerID)
		return true
	}
	return false
}

func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	session, exists := m.sessions[sessionID]
	return session, exists
}

func (m *Manager) GetByPlayerID(playerID string) []*Session {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	owned := m.byPlayer[playerID]
	result := make([]*Session, 0, len(owned))
	for _, session := range owned {
		result = append(result, session)
	}
	return result
}

// Count 当前在线会话数
func (m *Manager) Count() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.sessions)
}
