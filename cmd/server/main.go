package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"corruptioncrypts.gg/internal/persistence/archive"
	"corruptioncrypts.gg/internal/persistence/indexdb"
	persistlog "corruptioncrypts.gg/internal/persistence/log"
	"corruptioncrypts.gg/internal/persistence/snapshot"
	"corruptioncrypts.gg/internal/sim/catalogs"
	"corruptioncrypts.gg/internal/sim/game"
	"corruptioncrypts.gg/internal/sim/rng"
	"corruptioncrypts.gg/internal/sim/tuning"
	"corruptioncrypts.gg/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		gameID     = flag.String("game", "crypts_1", "game id")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable indexing (turn/audit + catalogs + snapshot metadata)")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")

		fulfillEvery = flag.Duration("fulfill_every", 5*time.Second, "randomness fulfillment sweep interval")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	gameDir := filepath.Join(*dataDir, "games", *gameID)
	_ = os.MkdirAll(gameDir, 0o755)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}

	// Optional: read-model index (does not affect engine determinism).
	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(gameDir, "index.db"))
		if err != nil {
			logger.Fatalf("open index db: %v", err)
		}
		defer idx.Close()
	}

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = latestSnapshot(gameDir)
	}

	// Load tuning (required for a fresh game; optional for snapshot resumes).
	tune, tuneErr := tuning.Load(tp)
	if tuneErr != nil {
		if snapshotToLoad == "" {
			logger.Fatalf("load tuning: %v", tuneErr)
		}
		// Resume fallback: the snapshot carries the effective config; allow a missing file.
		if os.IsNotExist(tuneErr) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", tuneErr)
		}
	}

	if idx != nil {
		if err := idx.UpsertCatalogs(*configDir, cats, tune); err != nil {
			logger.Printf("index db: upsert catalogs: %v", err)
		}
	}

	oracle := rng.NewCommitRevealOracle()
	g, err := game.New(game.ConfigFromTuning(*gameID, tune), cats, oracle, game.NewMemoryCustody(), game.RealClock())
	if err != nil {
		logger.Fatalf("game: %v", err)
	}
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if snap.Header.GameID != "" && snap.Header.GameID != *gameID {
			logger.Fatalf("snapshot game id mismatch: flag=%s snap=%s", *gameID, snap.Header.GameID)
		}
		if err := g.ImportSnapshot(snap); err != nil {
			logger.Fatalf("import snapshot: %v", err)
		}
		logger.Printf("resumed from snapshot=%s turn=%d", filepath.Base(snapshotToLoad), g.CurrentTurn())
	}

	ctx, cancel := signalContext()
	defer cancel()

	turnLog := persistlog.NewTurnLogger(gameDir)
	auditLog := persistlog.NewAuditLogger(gameDir)
	defer turnLog.Close()
	defer auditLog.Close()
	g.SetTurnLogger(multiTurnLogger{a: turnLog, b: idx})
	g.SetAuditLogger(multiAuditLogger{a: auditLog, b: idx})

	// Snapshot writer.
	snapCh := make(chan snapshot.GameV1, 2)
	g.SetSnapshotSink(snapCh)
	go func() {
		var lastArchivedRound uint64
		for {
			select {
			case <-ctx.Done():
				return
			case snap := <-snapCh:
				path := filepath.Join(gameDir, "snapshots", fmt.Sprintf("%d.snap.zst", snap.Header.Turn))
				if err := snapshot.WriteSnapshot(path, snap); err != nil {
					logger.Printf("snapshot write: %v", err)
					continue
				}
				if idx != nil {
					idx.RecordSnapshot(path, snap)
				}
				round, _, ok, err := archive.ArchiveRoundSnapshot(gameDir, path, snap, lastArchivedRound)
				if err != nil {
					logger.Printf("archive round snapshot: %v", err)
					continue
				}
				if ok {
					lastArchivedRound = round
					if idx != nil {
						idx.RecordRound(round, snap.Header.Turn)
					}
				}
			}
		}
	}()

	// Randomness fulfillment sweep: commits become readable on the next
	// sweep, never in the turn that made them.
	go func() {
		ticker := time.NewTicker(*fulfillEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := oracle.Fulfill(); err != nil {
					logger.Printf("oracle fulfill: %v", err)
				}
			}
		}
	}()

	go func() {
		if err := g.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("game stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		m := fetchMetrics(g)

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP crypts_game_turn Current turn counter.\n")
		fmt.Fprintf(rw, "# TYPE crypts_game_turn gauge\n")
		fmt.Fprintf(rw, "crypts_game_turn{game=%q} %d\n", *gameID, m.Turn)

		fmt.Fprintf(rw, "# HELP crypts_game_committed_turns Committed turn count.\n")
		fmt.Fprintf(rw, "# TYPE crypts_game_committed_turns counter\n")
		fmt.Fprintf(rw, "crypts_game_committed_turns{game=%q} %d\n", *gameID, m.CommittedTurns)

		fmt.Fprintf(rw, "# HELP crypts_game_round Current round number.\n")
		fmt.Fprintf(rw, "# TYPE crypts_game_round gauge\n")
		fmt.Fprintf(rw, "crypts_game_round{game=%q} %d\n", *gameID, m.Round)

		fmt.Fprintf(rw, "# HELP crypts_game_players Known player count.\n")
		fmt.Fprintf(rw, "# TYPE crypts_game_players gauge\n")
		fmt.Fprintf(rw, "crypts_game_players{game=%q} %d\n", *gameID, m.Players)

		fmt.Fprintf(rw, "# HELP crypts_game_active_squads Active legion squads on all boards.\n")
		fmt.Fprintf(rw, "# TYPE crypts_game_active_squads gauge\n")
		fmt.Fprintf(rw, "crypts_game_active_squads{game=%q} %d\n", *gameID, m.ActiveSquads)

		fmt.Fprintf(rw, "# HELP crypts_game_legions_at_temple Legions banked toward the round threshold.\n")
		fmt.Fprintf(rw, "# TYPE crypts_game_legions_at_temple gauge\n")
		fmt.Fprintf(rw, "crypts_game_legions_at_temple{game=%q} %d\n", *gameID, m.LegionsAtTemple)

		fmt.Fprintf(rw, "# HELP crypts_game_treasure_claimed Treasure fragments claimed this round.\n")
		fmt.Fprintf(rw, "# TYPE crypts_game_treasure_claimed gauge\n")
		fmt.Fprintf(rw, "crypts_game_treasure_claimed{game=%q} %d\n", *gameID, m.TreasureClaimed)
	})

	enableAdminHTTP := envBool("CC_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP())
	enablePprofHTTP := envBool("CC_ENABLE_PPROF_HTTP", false)
	if enableAdminHTTP {
		// Local-only admin endpoints (do not affect engine determinism).
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			resp := struct {
				GameID  string       `json:"game_id"`
				Turn    uint64       `json:"turn"`
				Metrics game.Metrics `json:"metrics"`
			}{
				GameID:  *gameID,
				Turn:    g.CurrentTurn(),
				Metrics: fetchMetrics(g),
			}
			_ = json.NewEncoder(rw).Encode(resp)
		})
		mux.HandleFunc("/admin/v1/config", func(rw http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				rw.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			var cfg game.Config
			if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
				http.Error(rw, err.Error(), http.StatusBadRequest)
				return
			}
			respCh := make(chan error, 1)
			select {
			case g.ConfigCh() <- game.ConfigUpdate{Cfg: cfg, Resp: respCh}:
			case <-time.After(5 * time.Second):
				http.Error(rw, "engine busy", http.StatusServiceUnavailable)
				return
			}
			if err := <-respCh; err != nil {
				http.Error(rw, err.Error(), http.StatusBadRequest)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(map[string]any{"ok": true})
		})
	} else {
		logger.Printf("admin endpoints disabled (CC_ENABLE_ADMIN_HTTP=false)")
	}
	if enablePprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (CC_ENABLE_PPROF_HTTP=false)")
	}
	mux.HandleFunc("/v1/ws", ws.NewServer(g, logger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func fetchMetrics(g *game.Game) game.Metrics {
	respCh := make(chan game.Metrics, 1)
	select {
	case g.MetricsCh() <- game.MetricsRequest{Resp: respCh}:
	case <-time.After(time.Second):
		return game.Metrics{}
	}
	select {
	case m := <-respCh:
		return m
	case <-time.After(time.Second):
		return game.Metrics{}
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func latestSnapshot(gameDir string) string {
	dir := filepath.Join(gameDir, "snapshots")
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTurn uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		base := strings.TrimSuffix(name, ".snap.zst")
		turn, err := strconv.ParseUint(base, 10, 64)
		if err != nil {
			continue
		}
		if best == "" || turn > bestTurn {
			bestTurn = turn
			best = filepath.Join(dir, name)
		}
	}
	return best
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

type multiTurnLogger struct {
	a game.TurnLogger
	b game.TurnLogger
}

func (m multiTurnLogger) WriteTurn(entry game.TurnLogEntry) error {
	if m.a != nil {
		_ = m.a.WriteTurn(entry)
	}
	if m.b != nil {
		_ = m.b.WriteTurn(entry)
	}
	return nil
}

type multiAuditLogger struct {
	a game.AuditLogger
	b game.AuditLogger
}

func (m multiAuditLogger) WriteAudit(entry game.AuditEntry) error {
	if m.a != nil {
		_ = m.a.WriteAudit(entry)
	}
	if m.b != nil {
		_ = m.b.WriteAudit(entry)
	}
	return nil
}
