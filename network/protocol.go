package network

import "encoding/json"

// 客户端发来的事件
const (
	EventPing         = "ping"
	EventCreateRoom   = "create-room"
	EventJoinRoom     = "join-room"
	EventLeaveRoom    = "leave-room"
	EventGetState     = "get-state"
	EventInitGame     = "init-game"
	EventSetWord      = "set-word"
	EventNewGuess     = "new-guess"
	EventNewWordGuess = "new-word-guess"
	EventRestartGame  = "restart-game"
	EventSetMaster    = "set-master"
)

// 服务端广播的事件
const (
	EventPlayerJoin     = "player-join"
	EventPlayerLeave    = "player-leave"
	EventNewTurn        = "new-turn"
	EventGoToStart      = "go-to-start"
	EventFinishGame     = "finish-game"
	EventNewWordGuesses = "new-word-guesses"
	EventUpdatePlayer   = "update-player"
	EventNewMaster      = "new-master"
	EventError          = "error"
)

// Packet 是客户端发来的一条消息
type Packet struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Bind decodes the packet payload into v. An empty payload leaves v untouched.
func (p *Packet) Bind(v any) error {
	if len(p.Data) == 0 {
		return nil
	}
	return json.Unmarshal(p.Data, v)
}

// Envelope 是服务端发出的每条消息的外层结构
type Envelope struct {
	Event string `json:"event"`
	OK    bool   `json:"ok"`
	Data  any    `json:"data"`
}

// OK wraps a successful result.
func OK(event string, data any) Envelope {
	return Envelope{Event: event, OK: true, Data: data}
}

// Fail wraps an error message.
func Fail(event string, err error) Envelope {
	return Envelope{Event: event, OK: false, Data: err.Error()}
}
