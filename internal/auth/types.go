package auth

// Authentication is the persisted handshake token for one device. The
// timestamp is Unix seconds at issue time; a token only authorises a
// download while it is younger than the configured maximum age.
type Authentication struct {
	StaMac    string `json:"staMac"`
	ApMac     string `json:"apMac"`
	ChipSize  string `json:"chipSize"`
	Timestamp int64  `json:"timestamp"`
}

// Presented carries the identity a device sends in its request headers.
type Presented struct {
	StaMac   string
	ApMac    string
	ChipSize string
}

// Logger is the logging interface the repository depends on.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}
