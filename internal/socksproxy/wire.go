package socksproxy

// Protocol constants for SOCKS4/4a (the original memo) and SOCKS5 (RFC
// 1928), plus the RFC 1929 username/password sub-negotiation.
const (
	socks4Version = 0x04
	socks5Version = 0x05

	socks4CmdConnect = 0x01

	socks4Granted           = 0x5a
	socks4Rejected          = 0x5b
	socks4CannotConnectHost = 0x5c

	authVersion  = 0x01
	authNone     = 0x00
	authUserPass = 0x02
	authNoAccept = 0xFF

	cmdConnect      = 0x01
	cmdBind         = 0x02
	cmdUDPAssociate = 0x03

	atypIPv4   = 0x01
	atypDomain = 0x03
	atypIPv6   = 0x04

	repSuccess             = 0x00
	repGeneralFailure      = 0x01
	repNetworkUnreachable  = 0x03
	repHostUnreachable     = 0x04
	repConnectionRefused   = 0x05
	repCommandNotSupported = 0x07
	repAddrNotSupported    = 0x08
)

// scratchSize is the per-session header-I/O buffer. It must be at least
// 262 bytes, the largest header read: a SOCKS5 domain-name request (5
// header bytes, then up to 255 host bytes and the 2-byte port). The RFC
// 1929 username read needs at most 256 (ULEN bytes plus the PLEN byte),
// and the password is read separately. It is kept well above that, at
// 2048 bytes.
const scratchSize = 2048
