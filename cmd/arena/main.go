package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/Nishit5799/multiplayerShooting/internal/app"
	"github.com/Nishit5799/multiplayerShooting/internal/config"
)

func main() {
	var (
		configPath  string
		writeConfig string
	)
	flag.StringVar(&configPath, "config", "", "path to a TOML config file")
	flag.StringVar(&writeConfig, "write-config", "", "write the default config to this path and exit")
	flag.Parse()

	if writeConfig != "" {
		if err := config.SaveDefault(writeConfig); err != nil {
			logrus.Fatalf("failed to write config: %v", err)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, app.Config{ConfigPath: configPath}); err != nil {
		logrus.Fatalf("%v", err)
	}
}
