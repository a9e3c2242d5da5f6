package config

func (m *Manager) GetDefault() *Config {
	return &Config{
		App: App{
			LogLevel:     "info",
			LogPath:      "logs/ircheck.log",
			GinMode:      "release",
			ArtifactsDir: "artifacts",
		},
		Client: Client{
			ConnectTimeoutSecs: 10,
			SyncTimeoutSecs:    5,
			ReadTimeoutSecs:    30,
			SettleMillis:       0,
			SendRate:           0,
			SendBurst:          1,
		},
		Target: Target{
			Host:    "127.0.0.1",
			Port:    6667,
			Nick:    "ircheck",
			Ident:   "ircheck",
			Channel: "#ircheck",
		},
	}
}
