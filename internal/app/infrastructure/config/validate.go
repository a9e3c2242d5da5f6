package config

import (
	"errors"
	"fmt"
	"strings"
)

func (m *Manager) validate(cfg *Config) error {
	// app
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true, "fatal": true}
	if cfg.App.LogLevel != "" && !validLevels[cfg.App.LogLevel] {
		return fmt.Errorf("app.log_level must be one of trace, debug, info, warn, error, fatal; got %s", cfg.App.LogLevel)
	}
	if cfg.App.GinMode != "" && cfg.App.GinMode != "debug" && cfg.App.GinMode != "release" && cfg.App.GinMode != "test" {
		return fmt.Errorf("app.gin_mode must be debug, release or test; got %s", cfg.App.GinMode)
	}
	if cfg.App.ListenAddr != "" && cfg.App.AuthTokenHash == "" {
		return errors.New("app.auth_token_hash is required when the status server is enabled")
	}

	// client
	if cfg.Client.ConnectTimeoutSecs < 0 || cfg.Client.SyncTimeoutSecs < 0 || cfg.Client.ReadTimeoutSecs < 0 {
		return errors.New("client timeouts must not be negative")
	}
	if cfg.Client.SettleMillis < 0 || cfg.Client.SettleMillis > 5000 {
		return errors.New("client.settle_millis must be in [0, 5000]")
	}
	if cfg.Client.SendRate < 0 {
		return errors.New("client.send_rate must not be negative")
	}

	// target
	if cfg.Target.Port < 0 || cfg.Target.Port > 65535 {
		return fmt.Errorf("target.port out of range: %d", cfg.Target.Port)
	}
	if cfg.Target.WebSocketURL != "" &&
		!strings.HasPrefix(cfg.Target.WebSocketURL, "ws://") && !strings.HasPrefix(cfg.Target.WebSocketURL, "wss://") {
		return fmt.Errorf("target.websocket_url must start with ws:// or wss://; got %s", cfg.Target.WebSocketURL)
	}
	if cfg.Target.Password != "" {
		hasSasl := false
		for _, cap := range cfg.Target.Capabilities {
			if cap == "sasl" {
				hasSasl = true
				break
			}
		}
		if !hasSasl {
			return errors.New("target.password is set but target.capabilities does not include sasl")
		}
	}

	return nil
}
