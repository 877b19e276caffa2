package socksproxy

import (
	"errors"
	"syscall"
)

// socks5ReplyFor maps a connectHost error to a SOCKS5 REP code.
func socks5ReplyFor(err error) byte {
	switch {
	case err == nil:
		return repSuccess
	case errors.Is(err, syscall.ECONNREFUSED):
		return repConnectionRefused
	case errors.Is(err, syscall.ENETUNREACH):
		return repNetworkUnreachable
	case errors.Is(err, syscall.EHOSTUNREACH):
		return repHostUnreachable
	default:
		return repGeneralFailure
	}
}
