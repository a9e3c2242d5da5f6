package config

type Config struct {
	App    App    `json:"app"`
	Client Client `json:"client"`
	Target Target `json:"target"`
}

type App struct {
	LogLevel string `json:"log_level"`
	LogPath  string `json:"log_path"`
	GinMode  string `json:"gin_mode"`

	// ListenAddr is where the status/metrics server binds; empty disables it.
	ListenAddr string `json:"listen_addr"`
	// AuthTokenHash is the bcrypt hash of the token protecting /metrics and
	// the pprof endpoints.
	AuthTokenHash string `json:"auth_token_hash"`

	// ArtifactsDir receives per-client transcripts of failed runs.
	ArtifactsDir string `json:"artifacts_dir"`
}

type Client struct {
	ConnectTimeoutSecs int `json:"connect_timeout_secs"`
	SyncTimeoutSecs    int `json:"sync_timeout_secs"`
	ReadTimeoutSecs    int `json:"read_timeout_secs"`

	// SettleMillis is slept before each synchronized read, for servers known
	// not to serialize their replies. Zero for everyone else.
	SettleMillis int `json:"settle_millis"`

	// SendRate limits outgoing lines per second (0 = unlimited), to stay
	// below server flood protection.
	SendRate  float64 `json:"send_rate"`
	SendBurst int     `json:"send_burst"`
}

// Target describes the server the standalone runner checks. Go-test usage
// supplies its own controller instead and ignores this block.
type Target struct {
	Host         string   `json:"host"`
	Port         int      `json:"port"`
	TLS          bool     `json:"tls"`
	WebSocketURL string   `json:"websocket_url"`
	Nick         string   `json:"nick"`
	Ident        string   `json:"ident"`
	Channel      string   `json:"channel"`
	Capabilities []string `json:"capabilities"`
	Account      string   `json:"account"`
	Password     string   `json:"password"`
}
