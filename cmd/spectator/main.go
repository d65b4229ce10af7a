package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Nishit5799/multiplayerShooting/internal/config"
	"github.com/Nishit5799/multiplayerShooting/internal/proto"
	"github.com/Nishit5799/multiplayerShooting/internal/replica"
	"github.com/Nishit5799/multiplayerShooting/internal/sim"
	"github.com/Nishit5799/multiplayerShooting/internal/telemetry"
	"github.com/Nishit5799/multiplayerShooting/logging"
	loggingSinks "github.com/Nishit5799/multiplayerShooting/logging/sinks"
)

func main() {
	var (
		url        string
		playerID   string
		name       string
		codecName  string
		configPath string
		report     time.Duration
	)
	flag.StringVar(&url, "url", "ws://localhost:8080/ws", "host websocket endpoint")
	flag.StringVar(&playerID, "id", "", "player id to resume")
	flag.StringVar(&name, "join", "", "join the match under this name instead of only watching")
	flag.StringVar(&codecName, "codec", "json", "wire codec: json or msgpack")
	flag.StringVar(&configPath, "config", "", "path to a TOML config file for smoothing and log settings")
	flag.DurationVar(&report, "report", 2*time.Second, "interval between scoreboard lines")
	flag.Parse()

	settings, err := config.Load(configPath)
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}
	logger := telemetry.NewLogrus(settings.Logging.Level, settings.Logging.Format, os.Stderr)

	codec, err := proto.CodecByName(codecName)
	if err != nil {
		logger.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	router := logging.NewRouter(logging.ClockFunc(time.Now), logging.DefaultConfig(), logger, &logging.Metrics{}, []logging.NamedSink{
		{Name: logging.SinkLogrus, Sink: loggingSinks.NewLogrusSink(logger)},
	})
	defer router.Close(context.Background())

	view := replica.NewView(replica.ViewConfig{
		Movement:  settings.Tuning().Movement,
		Strict:    settings.Server.Dev,
		Publisher: router,
		LocalID:   playerID,
	})

	client, err := replica.Dial(ctx, view, replica.ClientConfig{
		URL:      url,
		PlayerID: playerID,
		Codec:    codec,
		Logger:   telemetry.WrapLogrus(logger),
	})
	if err != nil {
		logger.Fatalf("%v", err)
	}
	defer client.Close()

	welcome := client.Welcome()
	logger.WithFields(logrus.Fields{"match": welcome.MatchID, "player": welcome.PlayerID}).Info("connected")
	view.Subscribe(sim.JournalObserver(ctx, router, welcome.MatchID))

	if name != "" {
		if err := client.Join(name, ""); err != nil {
			logger.Fatalf("failed to join: %v", err)
		}
	}

	go interpolate(ctx, view, welcome.TickRate)
	go scoreboard(ctx, view, logger, report)

	// The host turns the closed connection into a leave.
	if err := client.Run(ctx); err != nil {
		logger.Errorf("connection lost: %v", err)
	}
}

func interpolate(ctx context.Context, view *replica.View, tickRate int) {
	if tickRate <= 0 {
		tickRate = 30
	}
	ticker := time.NewTicker(time.Second / time.Duration(tickRate))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			view.Interpolate()
		}
	}
}

func scoreboard(ctx context.Context, view *replica.View, logger logrus.FieldLogger, every time.Duration) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, match := view.Match()
			for _, p := range view.Players() {
				logger.WithFields(logrus.Fields{
					"epoch":  match.Epoch,
					"player": p.Name,
					"health": p.Health,
					"kills":  p.Kills,
					"deaths": p.Deaths,
					"x":      p.Position.X(),
					"z":      p.Position.Z(),
				}).Info("scoreboard")
			}
		}
	}
}
