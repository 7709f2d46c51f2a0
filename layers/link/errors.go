package link

import "errors"

var (
	ErrPayloadTooLarge   = errors.New("frame does not fit the maximum frame length")
	ErrFrameTooShort     = errors.New("frame is shorter than the ethernet header")
	ErrInvalidAddress    = errors.New("invalid mac address")
	ErrInterfaceNotFound = errors.New("interface not found")
	ErrSocketCreation    = errors.New("error creating packet socket")
	ErrSocketOption      = errors.New("error setting socket option")
	ErrSendFailed        = errors.New("error sending frame")
	ErrJoinFailed        = errors.New("error joining multicast group")
	ErrLeaveFailed       = errors.New("error leaving multicast group")
	ErrNotSupported      = errors.New("packet sockets are not supported on this platform")
)
