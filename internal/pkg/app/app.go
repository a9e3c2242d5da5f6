package app

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"

	"ircheck/internal/app/adapters/driver"
	router "ircheck/internal/app/adapters/http"
	"ircheck/internal/app/infrastructure/config"
	"ircheck/internal/app/infrastructure/portalloc"
	"ircheck/pkg/logger"
)

const configPath = "config.json"

// Run wires the harness and checks the configured target server with the
// registration, capability, authentication and channel-join sequence.
func Run() error {
	manager, err := config.New(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := manager.Get()

	log := logger.New(cfg.App.LogPath)
	log.SetLogLevel(cfg.App.LogLevel)
	gin.SetMode(cfg.App.GinMode)

	if cfg.App.ListenAddr != "" {
		r, err := router.NewRouter(log, manager)
		if err != nil {
			return err
		}
		go func() {
			if err := r.Run(); err != nil {
				log.Error("Status server stopped", err)
			}
		}()
	}

	d := driver.New(log, cfg, nil, portalloc.New(os.TempDir()))
	if cfg.Target.WebSocketURL != "" {
		d.AttachWebSocket(cfg.Target.WebSocketURL)
	} else {
		d.Attach(cfg.Target.Host, cfg.Target.Port, cfg.Target.TLS)
	}
	defer d.Teardown()

	if err := checkTarget(log, d, cfg); err != nil {
		if cfg.App.ArtifactsDir != "" {
			if path, dumpErr := d.Transcripts().Dump(cfg.App.ArtifactsDir); dumpErr != nil {
				log.Warn("Writing transcript artifact", slog.String("error", dumpErr.Error()))
			} else {
				log.Info("Transcript artifact written", slog.String("path", path))
			}
		}
		return err
	}

	log.Info("Target passed the conformance sequence",
		slog.String("host", cfg.Target.Host), slog.Int("port", cfg.Target.Port))
	return nil
}

func checkTarget(log logger.Logger, d *driver.Driver, cfg *config.Config) error {
	target := cfg.Target

	err := d.ConnectClient("main", target.Nick, driver.ConnectOptions{
		Capabilities: target.Capabilities,
		Account:      target.Account,
		Password:     target.Password,
		Ident:        target.Ident,
	})
	if err != nil {
		return fmt.Errorf("registration: %w", err)
	}
	log.Info("Registered", slog.String("nick", target.Nick), slog.Int("isupport_tokens", len(d.Support)))

	if target.Channel == "" {
		return nil
	}

	if err := d.JoinChannel("main", target.Channel); err != nil {
		return fmt.Errorf("joining %s: %w", target.Channel, err)
	}

	if err := d.SendLine("main", "PRIVMSG "+target.Channel+" :connectivity check"); err != nil {
		return err
	}
	msgs, err := d.GetMessages("main", true)
	if err != nil {
		return err
	}
	log.Info("Joined", slog.String("channel", target.Channel), slog.Int("messages", len(msgs)))
	return nil
}
