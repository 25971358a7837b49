package services

import (
	"errors"
	"fmt"

	"github.com/wfunc/hangman/room"
)

var (
	// ErrNoCaller 请求没有带玩家ID
	ErrNoCaller = errors.New("missing player id")
	// ErrForbidden 调用者当前不允许执行该操作
	ErrForbidden = errors.New("action not allowed for this player")

	ErrNotInRoom = fmt.Errorf("%w: player is not in a room", room.ErrNotFound)
)
