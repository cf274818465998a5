package constants

const AppName = "limitio"

// client-visible protocol headers
const (
	ProtocolRequestIDKey   = "X-Request-ID"
	ProtocolLengthLimitKey = "X-Content-Length-Limit"
)
