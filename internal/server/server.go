// Package server orchestrates all components: NATS client, storage backend,
// registry, pipe, dispatcher and the HTTP endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	comms "github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace"

	"github.com/morezero/method-pipe/internal/config"
	"github.com/morezero/method-pipe/pkg/bootstrap"
	"github.com/morezero/method-pipe/pkg/commsutil"
	"github.com/morezero/method-pipe/pkg/di"
	"github.com/morezero/method-pipe/pkg/dispatcher"
	"github.com/morezero/method-pipe/pkg/events"
	"github.com/morezero/method-pipe/pkg/mainloop"
	"github.com/morezero/method-pipe/pkg/methods"
	"github.com/morezero/method-pipe/pkg/methods/router"
	"github.com/morezero/method-pipe/pkg/methods/storage"
	"github.com/morezero/method-pipe/pkg/mock"
	"github.com/morezero/method-pipe/pkg/monitor"
	"github.com/morezero/method-pipe/pkg/pipe"
	"github.com/morezero/method-pipe/pkg/registry"
)

const logPrefix = "server:server"

// NewServerParams holds parameters for New.
type NewServerParams struct {
	Config *config.Config
	// Conn carries call envelopes and events. Nil keeps the server HTTP-only
	// and discards events.
	Conn *comms.Conn
	// Storage backs storage.* methods. Defaults to an in-memory store.
	Storage   storage.Service
	Bootstrap *bootstrap.ResolvedBootstrap
	// Metrics receives the monitor collectors and is served on /metrics. Nil
	// disables both.
	Metrics *prometheus.Registry
	// Tracer turns monitor reports into spans. May be nil.
	Tracer trace.Tracer
	// Probes are extra dependency checks reported by /health.
	Probes []registry.Probe
}

// Server is the method-pipe orchestrator.
type Server struct {
	cfg        *config.Config
	nc         *comms.Conn
	bootstrap  *bootstrap.ResolvedBootstrap
	reg        *registry.Registry
	slot       *di.Slot
	loop       *mainloop.Loop
	pipe       *pipe.Pipe
	disp       *dispatcher.Dispatcher
	metrics    *prometheus.Registry
	probes     []registry.Probe
	subs       []*comms.Subscription
	inflight   sync.WaitGroup
	httpServer *http.Server
}

// New wires the registry, DI provider, monitor, pipe and dispatcher. The main
// loop is started; Close stops it.
func New(params NewServerParams) (*Server, error) {
	cfg := params.Config
	if cfg == nil {
		return nil, fmt.Errorf("%s - config is required", logPrefix)
	}
	rb := params.Bootstrap
	if rb == nil {
		rb = bootstrap.CreateResolvedBootstrap(bootstrap.GetDefaultBootstrapConfig())
	}
	store := params.Storage
	if store == nil {
		store = storage.NewMemory()
	}

	var publisher events.EventPublisher = &events.NoOpPublisher{}
	if params.Conn != nil {
		publisher = events.NewCommsPublisher(params.Conn, &events.CommsPublisherOpts{
			EventSubjectPrefix: cfg.EventSubjectPrefix,
		})
	}

	s := &Server{
		cfg:       cfg,
		nc:        params.Conn,
		bootstrap: rb,
		metrics:   params.Metrics,
		probes:    params.Probes,
	}

	// Step 1: DI provider
	s.slot = di.NewSlot()
	s.slot.Inject(di.NewDefaultProvider(func(c *di.Container) {
		di.RegisterInstance[storage.Service](c, store)
		di.Register[router.Service](c, di.ContainerScope, func(*di.Container) router.Service {
			return router.NewEventService(publisher)
		})
	}))

	// Step 2: Global registry, one auto-registration per bootstrap scope
	s.reg = registry.NewRegistry(registry.NewRegistryParams{
		Publisher: publisher,
		Config:    registry.Config{Name: rb.Name()},
	})
	manifest := methods.Manifest()
	for _, scope := range rb.Scopes() {
		if _, err := s.reg.AutoRegisterAll(rb.Filter(manifest, scope), scope); err != nil {
			return nil, fmt.Errorf("%s - failed to register methods for scope %s: %w", logPrefix, scope, err)
		}
	}

	// Step 3: Mock chain (debug only)
	var interceptor pipe.Interceptor
	if cfg.Debug && cfg.MockRulesFile != "" {
		rules, err := mock.LoadRules(cfg.MockRulesFile)
		if err != nil {
			return nil, fmt.Errorf("%s - failed to load mock rules: %w", logPrefix, err)
		}
		interceptor = rules
		slog.Info(fmt.Sprintf("%s - Debug mode: %d mock rule(s) from %s", logPrefix, rules.Len(), cfg.MockRulesFile))
	}

	// Step 4: Monitor
	reporters := []monitor.Reporter{monitor.LogReporter{}, monitor.NewEventReporter(publisher)}
	if params.Metrics != nil {
		prom, err := monitor.NewPrometheusReporter(params.Metrics)
		if err != nil {
			return nil, fmt.Errorf("%s - failed to create metrics reporter: %w", logPrefix, err)
		}
		reporters = append(reporters, prom)
	}
	if params.Tracer != nil {
		reporters = append(reporters, monitor.NewTraceReporter(params.Tracer))
	}

	// Step 5: Main loop, pipe and dispatcher
	s.loop = mainloop.New(cfg.MainQueueSize)
	s.loop.Start()
	s.pipe = pipe.New(pipe.Params{
		Global:      s.reg,
		Slot:        s.slot,
		Main:        s.loop,
		Monitor:     monitor.New(reporters...),
		Interceptor: interceptor,
		Debug:       cfg.Debug,
		Aliases:     rb,
		Publisher:   publisher,
	})
	s.disp = dispatcher.NewDispatcher(dispatcher.NewDispatcherParams{
		Pipe:    s.pipe,
		Limiter: dispatcher.NewLimiter(cfg.RateLimit, cfg.RateBurst, 0),
		Timeout: cfg.RequestTimeout,
	})

	return s, nil
}

// Pipe returns the server's pipe.
func (s *Server) Pipe() *pipe.Pipe {
	return s.pipe
}

// Dispatcher returns the server's dispatcher.
func (s *Server) Dispatcher() *dispatcher.Dispatcher {
	return s.disp
}

// Subscribe attaches the call and container subjects. Call envelopes are
// load-balanced across instances through the queue group.
func (s *Server) Subscribe(ctx context.Context) error {
	if s.nc == nil {
		return fmt.Errorf("%s - no COMMS connection", logPrefix)
	}

	callSubject := s.cfg.CallSubject
	if callSubject == "" {
		callSubject = commsutil.SubjectCall
	}
	sub, err := s.nc.QueueSubscribe(callSubject, commsutil.QueueGroup, func(msg *comms.Msg) {
		// Messages of one subscription arrive serially; each call answers on
		// its own goroutine so a pending call never holds up the next one.
		s.inflight.Add(1)
		go func(m *comms.Msg) {
			defer s.inflight.Done()
			if err := m.Respond(s.disp.DispatchBytes(ctx, m.Data)); err != nil {
				slog.Error(fmt.Sprintf("%s - failed to respond on %s: %v", logPrefix, callSubject, err))
			}
		}(msg)
	})
	if err != nil {
		return fmt.Errorf("%s - failed to subscribe to %s: %w", logPrefix, callSubject, err)
	}
	s.subs = append(s.subs, sub)
	slog.Info(fmt.Sprintf("%s - Subscribed to %s (queue %s)", logPrefix, callSubject, commsutil.QueueGroup))

	containerSubject := s.cfg.ContainerSubject
	if containerSubject == "" {
		containerSubject = commsutil.SubjectContainer
	}
	sub, err = s.nc.Subscribe(containerSubject, s.handleContainerMsg)
	if err != nil {
		s.unsubscribe()
		return fmt.Errorf("%s - failed to subscribe to %s: %w", logPrefix, containerSubject, err)
	}
	s.subs = append(s.subs, sub)
	slog.Info(fmt.Sprintf("%s - Subscribed to %s", logPrefix, containerSubject))
	return nil
}

func (s *Server) unsubscribe() {
	for _, sub := range s.subs {
		if err := sub.Unsubscribe(); err != nil && !errors.Is(err, comms.ErrConnectionClosed) {
			slog.Warn(fmt.Sprintf("%s - unsubscribe %s: %v", logPrefix, sub.Subject, err))
		}
	}
	s.subs = nil
}

// Close stops the subscriptions, drains the main loop and closes the
// container-scope services.
func (s *Server) Close(ctx context.Context) error {
	s.unsubscribe()
	var errs []error
	if err := s.waitInflight(ctx); err != nil {
		errs = append(errs, err)
	}
	slog.Info(fmt.Sprintf("%s - stopping main loop, %d tasks pending", logPrefix, s.loop.Pending()))
	if err := s.loop.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if s.slot.Injected() {
		if err := s.slot.Provider().PipeShared().Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// waitInflight waits for calls still answering over COMMS.
func (s *Server) waitInflight(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s - failed to wait for in-flight calls: %w", logPrefix, ctx.Err())
	}
}

// Run starts the server, blocks until shutdown signal, then cleans up.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}
	setupLogging(cfg.LogLevel)

	if err := cfg.ValidateForServe(); err != nil {
		return err
	}

	slog.Info(fmt.Sprintf("%s - Starting method-pipe", logPrefix))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Step 1: Load bootstrap config
	bootstrapCfg, err := bootstrap.LoadBootstrapConfig(cfg.BootstrapFile)
	if err != nil {
		return fmt.Errorf("%s - failed to load bootstrap config: %w", logPrefix, err)
	}
	rb := bootstrap.CreateResolvedBootstrap(bootstrapCfg)
	slog.Info(fmt.Sprintf("%s - Bootstrap %s scopes=%v aliases=%d", logPrefix, rb.Name(), rb.Scopes(), len(rb.Aliases())))

	// Step 2: Tracing
	tracer, shutdownTracing, err := setupTracing(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%s - failed to set up tracing: %w", logPrefix, err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			slog.Warn(fmt.Sprintf("%s - tracing shutdown: %v", logPrefix, err))
		}
	}()

	// Step 3: Connect to NATS
	nc, err := commsutil.Connect(commsutil.ConnectParams{URL: cfg.COMMSURL, Name: cfg.COMMSName})
	if err != nil {
		return fmt.Errorf("%s - failed to connect to NATS: %w", logPrefix, err)
	}
	defer nc.Close()
	slog.Info(fmt.Sprintf("%s - Connected to NATS at %s", logPrefix, cfg.COMMSURL))

	// Step 4: Storage backend
	backend, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.close()

	var metrics *prometheus.Registry
	if cfg.MetricsEnabled {
		metrics = prometheus.NewRegistry()
	}

	// Step 5: Registry, pipe, dispatcher
	probes := append([]registry.Probe{commsProbe(nc)}, backend.probes...)
	s, err := New(NewServerParams{
		Config:    cfg,
		Conn:      nc,
		Storage:   backend.service,
		Bootstrap: rb,
		Metrics:   metrics,
		Tracer:    tracer,
		Probes:    probes,
	})
	if err != nil {
		return err
	}

	// Step 6: Subscriptions
	if err := s.Subscribe(ctx); err != nil {
		s.Close(ctx)
		return err
	}

	// Step 7: HTTP endpoint
	httpAddr := cfg.ListenAddr()
	s.httpServer = &http.Server{Addr: httpAddr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		slog.Info(fmt.Sprintf("%s - HTTP server listening on %s", logPrefix, httpAddr))
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error(fmt.Sprintf("%s - HTTP server error: %v", logPrefix, err))
		}
	}()

	slog.Info(fmt.Sprintf("%s - method-pipe is ready (%d methods)", logPrefix, s.reg.Len()))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info(fmt.Sprintf("%s - Received signal %s, shutting down", logPrefix, sig))

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer shutdownCancel()
	s.httpServer.Shutdown(shutdownCtx)
	if err := s.Close(shutdownCtx); err != nil {
		slog.Warn(fmt.Sprintf("%s - close: %v", logPrefix, err))
	}
	nc.Drain()

	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	return nil
}

func setupLogging(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func commsProbe(nc *comms.Conn) registry.Probe {
	return registry.Probe{
		Name: "comms",
		Check: func(context.Context) error {
			if !nc.IsConnected() {
				return fmt.Errorf("%s - COMMS status %s", logPrefix, nc.Status())
			}
			return nil
		},
	}
}
