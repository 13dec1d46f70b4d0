// Package runtime assembles the service: telemetry, bus, store, recognizer,
// AI backend, session orchestrator, and the HTTP surface.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vibeinventory/partsvoice/internal/ai"
	"github.com/vibeinventory/partsvoice/internal/bus"
	"github.com/vibeinventory/partsvoice/internal/config"
	"github.com/vibeinventory/partsvoice/internal/inventory"
	"github.com/vibeinventory/partsvoice/internal/natsserver"
	"github.com/vibeinventory/partsvoice/internal/session"
	"github.com/vibeinventory/partsvoice/internal/speech"
)

type Runtime struct {
	cfg            config.Config
	logger         *slog.Logger
	httpServer     *http.Server
	telemetryClose func(context.Context) error
	ready          atomic.Bool
	wg             sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, metricsHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.telemetryClose = shutdownTelemetry

	var embedded *natsserver.EmbeddedServer
	var busClient *bus.Client
	if r.cfg.Bus.Enabled {
		embedded, err = natsserver.Start(r.cfg.Bus, r.cfg.Store.Path, r.logger)
		if err != nil {
			return fmt.Errorf("failed to start embedded bus: %w", err)
		}
		busClient, err = bus.Connect(ctx, r.cfg.Bus, r.logger)
		if err != nil {
			embedded.Shutdown()
			return fmt.Errorf("failed to connect to bus: %w", err)
		}
	}

	store, err := inventory.Open(ctx, r.cfg.Store, r.logger)
	if err != nil {
		busClient.Close()
		embedded.Shutdown()
		return fmt.Errorf("failed to open inventory store: %w", err)
	}

	recognizer, err := buildRecognizer(r.cfg.Recognizer)
	if err != nil {
		return fmt.Errorf("failed to build recognizer: %w", err)
	}
	responder, err := buildResponder(r.cfg.AI)
	if err != nil {
		return fmt.Errorf("failed to build AI backend: %w", err)
	}
	if responder == nil {
		r.logger.Warn("AI backend not configured, voice turns will fail until a key is set")
	}

	orchestrator := session.New(ctx, r.cfg, recognizer, responder, store.Snapshot, r.logger)

	if busClient != nil {
		publisher := bus.NewPublisher(busClient, r.cfg.Bus.SubjectPrefix)
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			publisher.Run(ctx, orchestrator.Updates())
		}()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", r.handleHealth)
	mux.HandleFunc("/readyz", r.handleReady)
	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}
	newAPI(orchestrator, store, r.logger).register(mux)

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	r.ready.Store(true)
	r.logger.Info("runtime started", slog.String("addr", addr))

	<-ctx.Done()
	r.ready.Store(false)
	r.logger.Info("runtime stopping")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}

	orchestrator.Close()
	cancel()
	r.wg.Wait()

	busClient.Close()
	embedded.Shutdown()
	if err := store.Close(); err != nil {
		r.logger.Error("store close error", slog.String("error", err.Error()))
	}
	if r.telemetryClose != nil {
		if err := r.telemetryClose(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	return nil
}

// mockScript is the canned utterance replayed in mock recognizer mode.
var mockScript = []speech.Event{
	speech.Ready{},
	speech.SpeechBegin{},
	speech.AudioLevel{DB: 4},
	speech.Partial{Text: "show low"},
	speech.Partial{Text: "show low stock"},
	speech.SpeechEnd{},
	speech.Final{Text: "show low stock items"},
}

func buildRecognizer(cfg config.RecognizerConfig) (speech.Recognizer, error) {
	switch cfg.Mode {
	case "exec":
		return speech.NewExecRecognizer(cfg.Command, cfg.Language)
	default:
		return speech.NewMockRecognizer(mockScript, 200*time.Millisecond), nil
	}
}

// buildResponder returns nil when the backend is unconfigured; the orchestrator
// then fails turns with a stable message instead of calling out.
func buildResponder(cfg config.AIConfig) (ai.Responder, error) {
	if !cfg.Configured() {
		return nil, nil
	}
	switch cfg.Mode {
	case "gemini":
		return ai.NewGeminiResponder(cfg), nil
	case "exec":
		return ai.NewExecResponder(cfg.Command)
	default:
		return ai.NewMockResponder(), nil
	}
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if r.ready.Load() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}
