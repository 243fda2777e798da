package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bloomkeepers/internal/adapter/transport/ws"
	"bloomkeepers/internal/app/relay"
	"bloomkeepers/internal/platform/logging"
	"bloomkeepers/internal/protocol"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("load .env: %v", err)
	}
	url := flag.String("ws", envOr("BLOOM_GUEST_URL", "ws://localhost:7777/ws"), "host relay websocket url")
	nick := flag.String("nick", envOr("BLOOM_GUEST_NICKNAME", "bot"), "nickname to join with")
	password := flag.String("password", os.Getenv("BLOOM_ROOM_PASSWORD"), "room password")
	duration := flag.Duration("duration", 0, "leave after this long (0 stays until interrupted)")
	step := flag.Duration("step", 500*time.Millisecond, "how often the bot moves")
	chat := flag.String("chat", "", "message to say once after joining")
	flag.Parse()

	logger := logging.New(envOr("BLOOM_LOG_LEVEL", "info"), true)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}

	joined := make(chan struct{})
	guest := relay.NewGuest(relay.GuestConfig{Nickname: *nick, Password: *password}, relay.GuestDeps{
		Dialer:  ws.Dialer{URL: *url},
		Handler: logFrame(logger),
		Status: func(s relay.Status, detail string) {
			logger.Info().Str("status", s.String()).Str("detail", detail).Msg("guest status")
			if s == relay.StatusAuthenticated {
				close(joined)
			}
		},
		Logger: logger,
	})

	go wander(ctx, guest, joined, *step, *chat, logger)

	err := guest.Run(ctx)
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		logger.Info().Msg("left the room")
		return
	}
	logger.Error().Err(err).Bool("fatal", relay.IsFatal(err)).Msg("guest stopped")
	os.Exit(1)
}

// wander walks a slow circle around the spawn point once the host accepted us.
func wander(ctx context.Context, g *relay.Guest, joined <-chan struct{}, step time.Duration, chat string, logger zerolog.Logger) {
	select {
	case <-ctx.Done():
		return
	case <-joined:
	}
	if chat != "" {
		if err := g.Send(&protocol.ChatMsg{Text: chat}); err != nil {
			logger.Warn().Err(err).Msg("chat")
		}
	}

	ticker := time.NewTicker(step)
	defer ticker.Stop()
	angle := rand.Float64() * 2 * math.Pi
	radius := 3 + rand.Float64()*4
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			angle += 0.2
			move := &protocol.Move{
				X:   radius * math.Cos(angle),
				Y:   radius * math.Sin(angle),
				Dir: direction(angle),
			}
			if err := g.Send(move); err != nil {
				if errors.Is(err, relay.ErrNotConnected) {
					return
				}
				logger.Warn().Err(err).Msg("move")
			}
		}
	}
}

func direction(angle float64) string {
	dx, dy := -math.Sin(angle), math.Cos(angle)
	if math.Abs(dx) > math.Abs(dy) {
		if dx > 0 {
			return "right"
		}
		return "left"
	}
	if dy > 0 {
		return "down"
	}
	return "up"
}

func logFrame(logger zerolog.Logger) relay.FrameHandler {
	return func(f protocol.Frame) {
		switch m := f.Msg.(type) {
		case *protocol.ChatMsg:
			logger.Info().Str("nick", m.Nick).Str("text", m.Text).Msg("chat")
		case *protocol.PlayerHeal:
			logger.Info().Int("amount", m.Amount).Msg("healed")
		case *protocol.SpawnEnemy:
			logger.Debug().Str("enemy", m.ID).Str("class", m.Class).Msg("enemy spawned")
		default:
			logger.Debug().Str("kind", string(f.Msg.Kind())).Str("from", f.From).Msg("frame")
		}
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
