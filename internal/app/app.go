package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Nishit5799/multiplayerShooting/internal/config"
	"github.com/Nishit5799/multiplayerShooting/internal/hub"
	servernet "github.com/Nishit5799/multiplayerShooting/internal/net"
	"github.com/Nishit5799/multiplayerShooting/internal/net/ws"
	"github.com/Nishit5799/multiplayerShooting/internal/proto"
	"github.com/Nishit5799/multiplayerShooting/internal/replication"
	"github.com/Nishit5799/multiplayerShooting/internal/sim"
	"github.com/Nishit5799/multiplayerShooting/internal/telemetry"
	"github.com/Nishit5799/multiplayerShooting/logging"
	replicationlog "github.com/Nishit5799/multiplayerShooting/logging/replication"
	loggingSinks "github.com/Nishit5799/multiplayerShooting/logging/sinks"
)

type Config struct {
	// ConfigPath names an optional TOML file read by config.Load.
	ConfigPath string
	// Settings skips loading when non-nil.
	Settings *config.Config
	Logger   *logrus.Logger
	// Listener replaces ListenAndServe on Settings.Server.Addr.
	Listener net.Listener
	// Ready is called with the serving address once the listener is up.
	Ready func(addr string)
}

// Run hosts one arena until ctx is cancelled or the match fails.
func Run(ctx context.Context, cfg Config) error {
	settings := cfg.Settings
	if settings == nil {
		loaded, err := config.Load(cfg.ConfigPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		settings = &loaded
	}

	logger := cfg.Logger
	if logger == nil {
		logger = telemetry.NewLogrus(settings.Logging.Level, settings.Logging.Format, os.Stderr)
	}
	telemetryLogger := telemetry.WrapLogrus(logger)

	if dsn := settings.Observability.SentryDSN; dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			Environment:      settings.Observability.SentryEnvironment,
			AttachStacktrace: true,
		}); err != nil {
			telemetryLogger.Printf("failed to initialise sentry: %v", err)
		} else {
			defer sentry.Flush(5 * time.Second)
		}
	}

	if addr := settings.Observability.StatsviewAddr; addr != "" {
		// set configurations before calling `statsview.New()`
		viewer.SetConfiguration(viewer.WithTheme(viewer.ThemeWesteros), viewer.WithAddr(addr))
		mgr := statsview.New()
		go mgr.Start()
		defer mgr.Stop()
	}

	metrics := &logging.Metrics{}
	router, closeSinks, err := newRouter(settings.Logging, logger, metrics)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := router.Close(context.Background()); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
		closeSinks()
	}()

	matchID := uuid.NewString()
	deps := sim.Deps{
		Logger:  telemetryLogger,
		Metrics: telemetry.WrapMetrics(metrics),
		Clock:   logging.ClockFunc(time.Now),
	}

	var engine *sim.Engine
	policy := replication.AuthorityLenient
	if settings.Server.Dev {
		policy = replication.AuthorityStrict
	}
	store := replication.NewStore(replication.Config{
		Role:   replication.RoleHost,
		Policy: policy,
		OnViolation: func(key string, err error) {
			var tick uint64
			if engine != nil {
				tick = engine.Context().Tick
			}
			replicationlog.AuthorityViolation(ctx, router, tick, logging.MatchRef(matchID), replicationlog.AuthorityViolationPayload{
				Key:   key,
				Error: err.Error(),
			})
			reporter := sentry.CurrentHub().Clone()
			reporter.ConfigureScope(func(scope *sentry.Scope) {
				scope.SetTag("match", matchID)
				scope.SetTag("key", key)
			})
			reporter.CaptureException(err)
		},
	})

	engineCfg := settings.EngineConfig(matchID)
	engineCfg.Store = store
	engine = sim.NewEngine(engineCfg, deps)
	engine.Match().Subscribe(sim.JournalObserver(ctx, router, matchID))

	codec, err := proto.CodecByName(settings.Server.Codec)
	if err != nil {
		return err
	}

	var sessions *hub.Hub
	loop := sim.NewLoop(engine, settings.LoopConfig(), sim.LoopHooks{
		AfterStep: func(result sim.LoopStepResult) {
			if result.ClampedDelta {
				logger.WithFields(logrus.Fields{
					"tick":     result.Tick,
					"duration": result.Duration,
					"budget":   result.Budget,
				}).Warn("tick overran its budget; delta clamped")
			}
			sessions.Broadcast(result)
		},
		OnCommandDrop: func(reason string, cmd sim.Command) {
			logger.WithFields(logrus.Fields{
				"reason": reason,
				"actor":  cmd.ActorID,
				"type":   cmd.Type,
			}).Debug("command dropped")
		},
		OnQueueWarning: func(length int) {
			logger.WithField("length", length).Warn("command queue growing")
		},
		OnError: func(err error) {
			logger.WithError(err).Error("tick failed")
		},
	})
	sessions = hub.New(hub.Config{
		Loop:     loop,
		MatchID:  matchID,
		TickRate: settings.Server.TickRate,
		Logger:   telemetryLogger,
		Metrics:  deps.Metrics,
	})

	handler := servernet.NewHTTPHandler(sessions, servernet.HTTPHandlerConfig{
		Logger: telemetryLogger,
		WS:     ws.HandlerConfig{Logger: telemetryLogger, Codec: codec},
		Failed: engine.Err,
	})
	srv := &http.Server{Addr: settings.Server.Addr, Handler: handler}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	loopErr := make(chan error, 1)
	go func() {
		defer func() {
			if recovered := recover(); recovered != nil {
				reporter := sentry.CurrentHub().Clone()
				reporter.ConfigureScope(func(scope *sentry.Scope) {
					scope.SetTag("component", "tick_loop")
					scope.SetTag("match", matchID)
				})
				reporter.Recover(recovered)
				reporter.Flush(5 * time.Second)
				loopErr <- fmt.Errorf("%w: tick loop panicked: %v", sim.ErrMatchFailed, recovered)
			}
		}()
		loopErr <- loop.Run(runCtx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		var err error
		if cfg.Listener != nil {
			logger.WithFields(logrus.Fields{"addr": cfg.Listener.Addr().String(), "match": matchID}).Info("server listening")
			if cfg.Ready != nil {
				cfg.Ready(cfg.Listener.Addr().String())
			}
			err = srv.Serve(cfg.Listener)
		} else {
			logger.WithFields(logrus.Fields{"addr": srv.Addr, "match": matchID}).Info("server listening")
			if cfg.Ready != nil {
				cfg.Ready(srv.Addr)
			}
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		serveErr <- err
	}()

	var result error
	select {
	case <-ctx.Done():
	case err := <-loopErr:
		if err != nil {
			logger.WithError(err).Error("match failed")
			result = err
		}
	case err := <-serveErr:
		if err != nil {
			result = fmt.Errorf("server failed: %w", err)
		}
	}

	cancel()
	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		telemetryLogger.Printf("failed to shut down http server: %v", err)
	}
	sessions.CloseAll()
	return result
}

func newRouter(cfg config.LoggingConfig, logger *logrus.Logger, metrics *logging.Metrics) (*logging.Router, func(), error) {
	logConfig := logging.DefaultConfig()
	if len(cfg.Sinks) > 0 {
		logConfig.EnabledSinks = cfg.Sinks
	}
	if cfg.BufferSize > 0 {
		logConfig.BufferSize = cfg.BufferSize
	}
	logConfig.JSON.FilePath = cfg.JSONPath

	closeSinks := func() {}
	var named []logging.NamedSink
	if logConfig.HasSink(logging.SinkConsole) {
		named = append(named, logging.NamedSink{Name: logging.SinkConsole, Sink: loggingSinks.NewConsoleSink(os.Stdout)})
	}
	if logConfig.HasSink(logging.SinkLogrus) {
		named = append(named, logging.NamedSink{Name: logging.SinkLogrus, Sink: loggingSinks.NewLogrusSink(logger)})
	}
	if logConfig.HasSink(logging.SinkJSON) {
		if logConfig.JSON.FilePath == "" {
			return nil, nil, errors.New("json log sink enabled without a file path")
		}
		file, err := os.OpenFile(logConfig.JSON.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open json log: %w", err)
		}
		named = append(named, logging.NamedSink{Name: logging.SinkJSON, Sink: loggingSinks.NewJSON(file, logConfig.JSON.FlushInterval)})
		closeSinks = func() { file.Close() }
	}

	router := logging.NewRouter(logging.ClockFunc(time.Now), logConfig, logger, metrics, named)
	return router, closeSinks, nil
}
