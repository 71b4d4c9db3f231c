// tabletap connects to a game server session endpoint and streams frames
// and link state changes to the console. It is a debugging tap for the
// session transport.
//
// Usage: go run ./cmd/tabletap --config configs/client.example.yaml
//
// The session token can be supplied inline in the config, via a token
// file, or through environment substitution (${TABLELINK_TOKEN}).
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/feltworks/tablelink/internal/auth"
	"github.com/feltworks/tablelink/internal/config"
	"github.com/feltworks/tablelink/internal/envelope"
	"github.com/feltworks/tablelink/internal/transport"
	"github.com/feltworks/tablelink/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/client.example.yaml", "path to config file")
	frameTypes := flag.String("types", "table_state,player_action,error,recovery_response", "comma-separated frame types to print")
	verbose := flag.Bool("verbose", false, "print full frame JSON")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("tabletap", version.String())
		return
	}

	// Load config
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}

	// Setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.Log.Level),
	}))

	cred, err := loadCredential(cfg)
	if err != nil {
		logger.Error("failed to load session credential", "error", err)
		os.Exit(1)
	}
	logger.Info("loaded session credential", "token", cred.Redacted())

	opts := sessionOptions(cfg)
	mgr := transport.NewManager(opts, logger)

	// Print the frame types the user asked for
	for _, frameType := range strings.Split(*frameTypes, ",") {
		frameType = strings.TrimSpace(frameType)
		if frameType == "" {
			continue
		}
		mgr.On(frameType, func(env envelope.Envelope) {
			printFrame(env, *verbose)
		})
	}

	// Stream link state changes
	go func() {
		for change := range mgr.Notifications() {
			logger.Info("link state changed",
				"state", change.State,
				"reason", change.Reason,
				"attempt", change.Attempt,
			)
		}
	}()

	logger.Info("connecting", "url", cfg.Server.URL, "client_id", cfg.Client.ID)
	if err := mgr.Connect(cfg.Server.URL, cred); err != nil {
		logger.Error("connect failed", "error", err)
		os.Exit(1)
	}

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")
	mgr.Disconnect()
}

func loadCredential(cfg *config.ClientConfig) (*auth.Credential, error) {
	if cfg.Auth.Token != "" {
		return auth.NewCredential(cfg.Auth.Token)
	}
	return auth.LoadCredential(cfg.Auth.TokenFile)
}

func sessionOptions(cfg *config.ClientConfig) transport.Options {
	opts := transport.DefaultOptions()
	if cfg.Session.MaxRetries != nil {
		opts.MaxRetries = *cfg.Session.MaxRetries
	}
	opts.BaseDelay = cfg.Session.ReconnectBaseDelay
	opts.MaxDelay = cfg.Session.ReconnectMaxDelay
	opts.HeartbeatInterval = cfg.Session.HeartbeatInterval
	opts.HeartbeatJitter = cfg.Session.HeartbeatJitter
	opts.HeartbeatTimeout = cfg.Session.HeartbeatTimeout
	opts.MaxMissedHeartbeats = cfg.Session.MaxMissedHeartbeats
	opts.QueueCapacity = cfg.Session.QueueCapacity
	opts.WriteTimeout = cfg.Session.WriteTimeout
	opts.HandshakeTimeout = cfg.Server.HandshakeTimeout
	return opts
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func printFrame(env envelope.Envelope, verbose bool) {
	if verbose {
		data, err := json.MarshalIndent(env, "", "  ")
		if err != nil {
			fmt.Println("frame:", env.Type, "(marshal error:", err, ")")
			return
		}
		fmt.Println(string(data))
		return
	}
	fmt.Printf("%s trace=%s payload=%s\n", env.Type, env.TraceID, compactPayload(env.Payload))
}

func compactPayload(payload json.RawMessage) string {
	if len(payload) == 0 {
		return "{}"
	}
	if len(payload) > 120 {
		return string(payload[:120]) + "..."
	}
	return string(payload)
}
