package availability

import "errors"

var (
	ErrOffline            = errors.New("client is offline, toggle rejected")
	ErrRoomNotFound       = errors.New("room not in the current room set")
	ErrPropertyOutOfRange = errors.New("property index out of range")
)
