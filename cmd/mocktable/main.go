// mocktable runs a mock game server for exercising the session transport
// without a real backend. It confirms or rejects authentication, answers
// liveness probes, replies to state recovery requests with a canned table
// snapshot, and can drop connections on a schedule to exercise the
// client's reconnection path.
//
// Usage: go run ./cmd/mocktable --addr :8090 --token demo-token
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/feltworks/tablelink/internal/envelope"
	"github.com/feltworks/tablelink/internal/version"
)

func main() {
	addr := flag.String("addr", ":8090", "listen address")
	path := flag.String("path", "/session", "websocket endpoint path")
	token := flag.String("token", "", "expected session token (empty accepts any)")
	reject := flag.Bool("reject", false, "reject every authentication attempt")
	dropAfter := flag.Duration("drop-after", 0, "sever each connection without a close frame after this duration (0 disables)")
	stateEvery := flag.Duration("state-every", 0, "push a table_state frame at this interval (0 disables)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("mocktable", version.String())
		return
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	table := &mockTable{
		logger:     logger,
		token:      *token,
		reject:     *reject,
		dropAfter:  *dropAfter,
		stateEvery: *stateEvery,
	}

	mux := http.NewServeMux()
	mux.HandleFunc(*path, table.handleSession)

	server := &http.Server{Addr: *addr, Handler: mux}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("mock table listening", "addr", *addr, "path", *path)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

type mockTable struct {
	logger     *slog.Logger
	token      string
	reject     bool
	dropAfter  time.Duration
	stateEvery time.Duration

	connSeq      atomic.Int64
	stateVersion atomic.Int64
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (mt *mockTable) handleSession(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		mt.logger.Warn("upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	id := mt.connSeq.Add(1)
	logger := mt.logger.With("conn", id)
	logger.Info("session opened", "remote", conn.RemoteAddr())

	done := make(chan struct{})
	defer close(done)

	if mt.dropAfter > 0 {
		go func() {
			select {
			case <-time.After(mt.dropAfter):
				logger.Info("dropping connection uncleanly")
				conn.UnderlyingConn().Close()
			case <-done:
			}
		}()
	}

	outbound := make(chan envelope.Envelope, 32)
	go mt.writeLoop(conn, outbound, done, logger)

	if mt.stateEvery > 0 {
		go mt.pushStates(outbound, done)
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			logger.Info("session closed", "error", err)
			return
		}

		env, err := envelope.Decode(data)
		if err != nil {
			logger.Warn("dropping malformed frame", "error", err)
			continue
		}
		logger.Debug("frame received", "type", env.Type, "trace_id", env.TraceID)

		switch env.Type {
		case envelope.TypeAuth:
			mt.handleAuth(env, outbound, logger)
		case envelope.TypePing:
			send(outbound, mustFrame(envelope.TypePong, nil))
		case envelope.TypeRecoveryRequest:
			mt.handleRecovery(env, outbound, logger)
		default:
			// Echo application frames back so a tap sees round trips.
			send(outbound, env)
		}
	}
}

func (mt *mockTable) handleAuth(env envelope.Envelope, outbound chan<- envelope.Envelope, logger *slog.Logger) {
	var p envelope.AuthPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		logger.Warn("bad auth payload", "error", err)
		send(outbound, mustFrame(envelope.TypeConnection, envelope.ConnectionPayload{
			State:  envelope.StateRejected,
			Reason: "malformed auth payload",
		}))
		return
	}

	if mt.reject || (mt.token != "" && p.Token != mt.token) {
		logger.Info("rejecting authentication")
		send(outbound, mustFrame(envelope.TypeConnection, envelope.ConnectionPayload{
			State:  envelope.StateRejected,
			Reason: "invalid session token",
		}))
		return
	}

	logger.Info("authentication confirmed")
	send(outbound, mustFrame(envelope.TypeConnection, envelope.ConnectionPayload{
		State: envelope.StateConnected,
	}))
}

func (mt *mockTable) handleRecovery(env envelope.Envelope, outbound chan<- envelope.Envelope, logger *slog.Logger) {
	var p envelope.RecoveryRequestPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		logger.Warn("bad recovery payload", "error", err)
		return
	}
	logger.Info("replaying table state",
		"table_id", p.TableID,
		"state_version", p.StateVersion,
		"last_action_id", p.LastActionID,
	)

	reply := mustFrame(envelope.TypeRecoveryResponse, map[string]any{
		"tableId":      p.TableID,
		"stateVersion": p.StateVersion + 1,
		"snapshot": map[string]any{
			"pot":     300,
			"street":  "turn",
			"toAct":   "seat-3",
			"players": []string{"seat-1", "seat-3", "seat-6"},
		},
	})
	reply.RequestID = env.RequestID
	send(outbound, reply)
}

func (mt *mockTable) pushStates(outbound chan<- envelope.Envelope, done <-chan struct{}) {
	ticker := time.NewTicker(mt.stateEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			v := mt.stateVersion.Add(1)
			send(outbound, mustFrame("table_state", map[string]any{
				"stateVersion": v,
				"pot":          int(v) * 25,
			}))
		case <-done:
			return
		}
	}
}

func (mt *mockTable) writeLoop(conn *websocket.Conn, outbound <-chan envelope.Envelope, done <-chan struct{}, logger *slog.Logger) {
	for {
		select {
		case env := <-outbound:
			data, err := env.Encode()
			if err != nil {
				logger.Warn("encode failed", "type", env.Type, "error", err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Debug("write failed", "error", err)
				return
			}
		case <-done:
			return
		}
	}
}

// send drops the frame if the outbound buffer is full rather than
// blocking the read loop.
func send(outbound chan<- envelope.Envelope, env envelope.Envelope) {
	select {
	case outbound <- env:
	default:
	}
}

func mustFrame(frameType string, payload any) envelope.Envelope {
	env, err := envelope.New(frameType, payload)
	if err != nil {
		panic(err)
	}
	return env
}
