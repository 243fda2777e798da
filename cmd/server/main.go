package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	httpadapter "bloomkeepers/internal/adapter/http"
	metricsinmem "bloomkeepers/internal/adapter/metrics/inmemory"
	gormrepo "bloomkeepers/internal/adapter/repo/gorm"
	"bloomkeepers/internal/adapter/repo/memory"
	"bloomkeepers/internal/adapter/transport/ws"
	"bloomkeepers/internal/adapter/world/procedural"
	"bloomkeepers/internal/app/persist"
	"bloomkeepers/internal/app/ports"
	"bloomkeepers/internal/app/session"
	"bloomkeepers/internal/platform/logging"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("load .env: %v", err)
	}
	logger := logging.New(stringEnv("BLOOM_LOG_LEVEL", "info"), boolEnv("BLOOM_LOG_PRETTY", true))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := mustBuildStore(ctx)
	saves := persist.New(persist.Config{}, persist.Deps{
		Saves:  store.saves,
		Stats:  store.stats,
		Tx:     store.tx,
		Logger: logger,
	})

	cfg := sessionConfigFromEnv()
	restore := loadSave(ctx, saves, cfg.RoomID, logger)
	applyRestore(&cfg, restore)

	terrain := procedural.New(procedural.Config{Seed: cfg.Seed, Size: cfg.WorldSize, ChunkStore: store.chunks})
	kpiRecorder := metricsinmem.NewRecorder()
	writer := persist.NewWriter(saves)
	writer.OnSaved(func(req persist.Request, err error) {
		if err == nil {
			logger.Debug().Str("world", req.WorldID).Int("tiles", len(req.State.World.Tiles)).Msg("world saved")
		}
	})

	sess := session.New(cfg, session.Deps{
		Terrain: terrain,
		Saver:   writer,
		Metrics: kpiRecorder,
		Restore: restore,
		Logger:  logger,
	})

	relayAddr := stringEnv("BLOOM_RELAY_ADDR", ":7777")
	wsCfg := ws.DefaultServerConfig()
	wsCfg.SendQueue = intEnv("BLOOM_SEND_QUEUE", wsCfg.SendQueue)
	relayServer := &http.Server{
		Addr:              relayAddr,
		Handler:           ws.NewServer(wsCfg, sess, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	opsAddr := stringEnv("BLOOM_OPS_ADDR", ":8080")
	ops := server.Default(server.WithHostPorts(opsAddr), server.WithExitWaitTime(time.Second))
	httpadapter.Handler{
		Session:     sess,
		Saves:       saves,
		Chunks:      terrain,
		KPI:         kpiRecorder,
		ActiveWorld: cfg.RoomID,
	}.RegisterRoutes(ops)

	writerCtx, stopWriter := context.WithCancel(context.Background())
	var writerDone sync.WaitGroup
	writerDone.Add(1)
	go func() {
		defer writerDone.Done()
		writer.Run(writerCtx)
	}()

	sessionDone := make(chan struct{})
	go func() {
		defer close(sessionDone)
		if err := sess.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("session stopped with error")
		}
	}()

	go func() {
		if err := relayServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("addr", relayAddr).Msg("relay listener failed")
			stop()
		}
	}()
	go func() {
		if err := ops.Run(); err != nil {
			logger.Error().Err(err).Str("addr", opsAddr).Msg("ops listener failed")
			stop()
		}
	}()

	logger.Info().
		Str("room", cfg.RoomID).
		Str("seed", cfg.Seed).
		Str("relay", relayAddr).
		Str("ops", opsAddr).
		Bool("restored", restore != nil).
		Msg("bloomkeepers host listening")

	<-ctx.Done()
	<-sessionDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := relayServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("relay shutdown")
	}
	if err := ops.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("ops shutdown")
	}
	stopWriter()
	writerDone.Wait()
	logger.Info().Msg("bye")
}

type stores struct {
	saves  ports.WorldSaveRepository
	stats  ports.MemberStatsRepository
	tx     ports.TxManager
	chunks procedural.ChunkStore
}

// mustBuildStore picks postgres when BLOOM_DB_DSN is set, then a local sqlite
// file, and falls back to memory so a host can run without any database.
func mustBuildStore(ctx context.Context) stores {
	dsn := strings.TrimSpace(os.Getenv("BLOOM_DB_DSN"))
	sqlitePath := strings.TrimSpace(os.Getenv("BLOOM_SQLITE_PATH"))
	switch {
	case dsn != "":
		db, err := gormrepo.OpenPostgres(dsn)
		if err != nil {
			log.Fatalf("open postgres: %v", err)
		}
		return mustMigrate(ctx, db)
	case sqlitePath != "":
		db, err := gormrepo.OpenSQLite(sqlitePath)
		if err != nil {
			log.Fatalf("open sqlite: %v", err)
		}
		return mustMigrate(ctx, db)
	}
	store := memory.NewStore()
	return stores{
		saves: memory.NewWorldSaveRepo(store),
		stats: memory.NewMemberStatsRepo(store),
		tx:    memory.NewTxManager(store),
	}
}

func mustMigrate(ctx context.Context, db *gorm.DB) stores {
	dir := stringEnv("BLOOM_MIGRATIONS_DIR", "db/migrations")
	if err := gormrepo.ApplyMigrations(ctx, db, dir); err != nil {
		log.Fatalf("apply migrations from %s: %v", dir, err)
	}
	return stores{
		saves:  gormrepo.NewWorldSaveRepo(db),
		stats:  gormrepo.NewMemberStatsRepo(db),
		tx:     gormrepo.NewTxManager(db),
		chunks: gormrepo.NewWorldChunkRepo(db),
	}
}

func sessionConfigFromEnv() session.Config {
	cfg := session.DefaultConfig()
	cfg.RoomID = stringEnv("BLOOM_ROOM_ID", cfg.RoomID)
	cfg.Password = os.Getenv("BLOOM_ROOM_PASSWORD")
	cfg.Seed = strings.TrimSpace(os.Getenv("BLOOM_WORLD_SEED"))
	cfg.HostNickname = stringEnv("BLOOM_HOST_NICKNAME", "keeper")
	cfg.WorldSize = intEnv("BLOOM_WORLD_SIZE", cfg.WorldSize)
	cfg.Simulation.TickPeriod = time.Duration(intEnv("BLOOM_TICK_MS", int(cfg.Simulation.TickPeriod/time.Millisecond))) * time.Millisecond
	cfg.Simulation.HordeEveryDays = intEnv("BLOOM_HORDE_EVERY_DAYS", cfg.Simulation.HordeEveryDays)
	return cfg
}

func loadSave(ctx context.Context, saves *persist.Service, roomID string, logger zerolog.Logger) *persist.Save {
	save, err := saves.Load(ctx, roomID)
	if errors.Is(err, ports.ErrNotFound) {
		logger.Info().Str("room", roomID).Msg("no save found, starting a new world")
		return nil
	}
	if err != nil {
		log.Fatalf("load save %s: %v", roomID, err)
	}
	return &save
}

// applyRestore lets a save decide the seed; the world cannot change terrain
// under existing overrides. Unset settings fall back to the saved ones.
func applyRestore(cfg *session.Config, restore *persist.Save) {
	if restore != nil {
		cfg.Seed = restore.Meta.Seed
		if cfg.Password == "" {
			cfg.Password = restore.Meta.Password
		}
		if restore.Meta.HostNickname != "" && os.Getenv("BLOOM_HOST_NICKNAME") == "" {
			cfg.HostNickname = restore.Meta.HostNickname
		}
	}
	if cfg.Seed == "" {
		cfg.Seed = uuid.NewString()
	}
}

func stringEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func intEnv(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func boolEnv(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
