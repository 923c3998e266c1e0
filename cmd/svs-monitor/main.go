// svs-monitor is the headless client core: it logs into a station,
// runs the poll feeds through the event bridge, records activity to
// the local history store, optionally republishes events to NATS, and
// serves status plus Prometheus metrics on a local HTTP port.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/technosupport/svs-client/internal/api"
	"github.com/technosupport/svs-client/internal/bridge"
	"github.com/technosupport/svs-client/internal/config"
	"github.com/technosupport/svs-client/internal/credentials"
	"github.com/technosupport/svs-client/internal/forward"
	"github.com/technosupport/svs-client/internal/history"
	"github.com/technosupport/svs-client/internal/models"
	"github.com/technosupport/svs-client/internal/poller"
	"github.com/technosupport/svs-client/internal/services"
)

const (
	feedCameras  = "cameras"
	feedAlerts   = "alerts"
	feedHomeMode = "homemode"
)

// statusSnapshot is what /api/status serves.
type statusSnapshot struct {
	Cameras      []models.Camera      `json:"cameras"`
	HomeMode     *models.HomeModeInfo `json:"home_mode"`
	LastAlertAt  int64                `json:"last_alert_at"`
	SessionState string               `json:"session_state"`
	LastPollErr  string               `json:"last_poll_error,omitempty"`
}

// status is the UI-visible state of the monitor. Only bridge handlers
// (running on the dispatch loop) write it; the HTTP goroutines take
// read-locked snapshots.
type status struct {
	mu   sync.RWMutex
	snap statusSnapshot
}

func main() {
	cfgPath := flag.String("config", config.DefaultPath(), "config file path")
	profileName := flag.String("profile", "", "profile name (default: config default_profile)")
	flag.Parse()

	// .env is optional; ignore a missing file.
	_ = godotenv.Load()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	store := config.NewStore(cfg)

	name := *profileName
	if name == "" {
		name = cfg.DefaultProfile
	}
	profile, ok := cfg.Profiles[name]
	if !ok {
		log.Fatalf("profile %q not found in %s", name, *cfgPath)
	}

	credPath := filepath.Join(filepath.Dir(*cfgPath), "credentials.json")
	credStore, err := credentials.NewFileStore(credPath)
	if err != nil {
		log.Fatalf("credential store: %v", err)
	}
	creds, err := credStore.Get(name)
	if err != nil {
		log.Fatalf("credentials for %q: %v (run svs-login first)", name, err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sess := api.New(profile)
	if err := sess.Connect(ctx, creds); err != nil {
		log.Fatalf("connect to %s: %v", profile.BaseURL(), err)
	}
	log.Printf("[DEBUG] Monitor: connected to %s as %s", profile.BaseURL(), creds.Username)
	defer func() {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		sess.Logout(shutdownCtx)
	}()

	bus := bridge.New()
	st := &status{snap: statusSnapshot{SessionState: "authenticated"}}
	bus.Handle(st.handle)

	var hist *history.Store
	histPath := cfg.History.Path
	if histPath == "" {
		histPath = filepath.Join(filepath.Dir(*cfgPath), "history.db")
	}
	hist, err = history.Open(histPath)
	if err != nil {
		log.Printf("[ERROR] Monitor: history store disabled: %v", err)
	} else {
		defer hist.Close()
		bus.Handle(historyHandler(hist))
		if err := hist.Prune(ctx, cfg.History.KeepDays); err != nil {
			log.Printf("[ERROR] Monitor: history prune: %v", err)
		}
	}

	if cfg.NATS.Enabled {
		fwd, err := forward.New(cfg.NATS.URL, cfg.NATS.Subject)
		if err != nil {
			log.Printf("[ERROR] Monitor: NATS forwarding disabled: %v", err)
		} else {
			defer fwd.Close()
			bus.Handle(fwd.Handler())
		}
	}

	set := poller.NewSet(bus)
	set.Register(poller.Task{
		Name:     feedCameras,
		Interval: func() time.Duration { return store.PollInterval(feedCameras) },
		Fetch: func(ctx context.Context) (any, error) {
			return services.ListCameras(ctx, sess)
		},
	})
	set.Register(poller.Task{
		Name:     feedAlerts,
		Interval: func() time.Duration { return store.PollInterval(feedAlerts) },
		Fetch: func(ctx context.Context) (any, error) {
			return services.ListAlerts(ctx, sess, 50)
		},
	})
	set.Register(poller.Task{
		Name:     feedHomeMode,
		Interval: func() time.Duration { return store.PollInterval(feedHomeMode) },
		Fetch: func(ctx context.Context) (any, error) {
			return services.GetHomeMode(ctx, sess)
		},
	})
	set.StartAll()
	defer set.StopAll()

	config.Watch(ctx, *cfgPath, store, nil)

	srv := &http.Server{
		Addr:    cfg.Monitor.ListenAddr,
		Handler: router(st),
	}
	go func() {
		log.Printf("[DEBUG] Monitor: listening on %s", cfg.Monitor.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[ERROR] Monitor: http server: %v", err)
		}
	}()
	defer func() {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		srv.Shutdown(shutdownCtx)
	}()

	// The dispatch loop owns all handler execution; run it here on
	// the main goroutine until we get a signal.
	bus.Run(ctx)
	log.Printf("[DEBUG] Monitor: shutting down")
	set.StopAll()
	set.Wait()
}

// handle folds bridge events into the status snapshot.
func (st *status) handle(e bridge.Event) {
	st.mu.Lock()
	defer st.mu.Unlock()

	switch ev := e.(type) {
	case bridge.PollResult:
		if ev.Err != nil {
			st.snap.LastPollErr = fmt.Sprintf("%s: %v", ev.Feed, ev.Err)
			return
		}
		st.snap.LastPollErr = ""
		switch payload := ev.Payload.(type) {
		case []models.Camera:
			st.snap.Cameras = payload
		case models.HomeModeInfo:
			st.snap.HomeMode = &payload
		case []models.Alert:
			for _, a := range payload {
				if a.Timestamp > st.snap.LastAlertAt {
					st.snap.LastAlertAt = a.Timestamp
				}
			}
		}
	case bridge.CredentialExpired:
		st.snap.SessionState = "expired"
	}
}

func (st *status) snapshot() statusSnapshot {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.snap
}

func historyHandler(hist *history.Store) bridge.Handler {
	return func(e bridge.Event) {
		ev, ok := e.(bridge.PollResult)
		if !ok || ev.Err != nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		switch payload := ev.Payload.(type) {
		case []models.Alert:
			if err := hist.RecordAlerts(ctx, payload); err != nil {
				log.Printf("[ERROR] Monitor: record alerts: %v", err)
			}
		case []models.Event:
			if err := hist.RecordEvents(ctx, payload); err != nil {
				log.Printf("[ERROR] Monitor: record events: %v", err)
			}
		}
	}
}

func router(st *status) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/api/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		snap := st.snapshot()
		if err := json.NewEncoder(w).Encode(&snap); err != nil {
			log.Printf("[ERROR] Monitor: encode status: %v", err)
		}
	})
	return r
}
