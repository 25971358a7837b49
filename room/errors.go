package room

import (
	"errors"
	"fmt"
)

// 错误分类，调用方用 errors.Is 判断
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrConflict     = errors.New("conflict")
)

var (
	ErrRoomNotFound   = fmt.Errorf("%w: room", ErrNotFound)
	ErrPlayerNotFound = fmt.Errorf("%w: player", ErrNotFound)

	ErrNoPlayers      = fmt.Errorf("%w: there are no players", ErrInvalidState)
	ErrAlreadyGuessed = fmt.Errorf("%w: letter already guessed", ErrInvalidState)
	ErrInvalidLetter  = fmt.Errorf("%w: a guess must be a single character", ErrInvalidState)
	ErrEmptyWord      = fmt.Errorf("%w: word is empty", ErrInvalidState)
	ErrNoWord         = fmt.Errorf("%w: no word has been set", ErrInvalidState)
	ErrRoundFinished  = fmt.Errorf("%w: round already finished", ErrInvalidState)

	ErrAlreadyInRoom = fmt.Errorf("%w: player already joined another room", ErrConflict)
)
