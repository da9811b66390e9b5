package domain

import "errors"

var (
	ErrPermissionDenied  = errors.New("microphone permission denied")
	ErrDeviceUnavailable = errors.New("no audio input device")
	ErrTransport         = errors.New("transport error")
	ErrDecode            = errors.New("decode error")
	ErrUnknownAction     = errors.New("unknown action")
	ErrInvalidParam      = errors.New("invalid parameter")
	ErrChannelNotOpen    = errors.New("channel not open")
	ErrConnectInFlight   = errors.New("connect already in flight")
	ErrSendBufferFull    = errors.New("send buffer full")
)
