package protocol

import "errors"

var (
	ErrInvalidRequestSize = errors.New("protocol: invalid request size")
	ErrPacketTooShort     = errors.New("protocol: packet too short")
)
