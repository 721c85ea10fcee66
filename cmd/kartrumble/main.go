package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"justapengu.in/kartrumble"
	"justapengu.in/kartrumble/internal/narrative"
)

var (
	configPath string
	version    = "dev"
)

func init() {
	flag.StringVar(&configPath, "c", "./config.yml", "config path")
	flag.Parse()
}

func main() {
	config, err := kartrumble.ReadConfig(configPath)

	if err != nil {
		logrus.WithError(err).Fatalf("Could not read config at %s", configPath)
	}

	if err := kartrumble.InitLogging(config.LogLevel); err != nil {
		logrus.WithError(err).Fatal("Could not set log level")
	}

	if err := kartrumble.InitSentry(config.Sentry.DSN, version); err != nil {
		logrus.WithError(err).Error("Could not initialise sentry")
	}

	logrus.Infof("Starting kartrumble %s", version)

	library, err := loadLibrary(config.NarrativeFile)

	if err != nil {
		logrus.WithError(err).Fatal("Could not load race narrative")
	}

	store, err := kartrumble.NewBoltStore(config.Store.Path)

	if err != nil {
		logrus.WithError(err).Fatal("Could not open store")
	}

	defer store.Close()

	manager := kartrumble.NewRaceManager(store, library, nil, config.Race, config.Pacing)
	liveFeed := kartrumble.NewLiveFeed()

	bot, err := kartrumble.NewDiscordBot(config.Discord.Token, config.Discord.CommandPrefix, manager, store, config.Pacing)

	if err != nil {
		logrus.WithError(err).Fatal("Could not create discord bot")
	}

	manager.SetNotifier(kartrumble.MultiNotifier(bot, liveFeed))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var httpServer *kartrumble.HTTP

	if config.HTTP.Enabled {
		var debugger *kartrumble.Debugger

		if config.HTTP.DebugBundle {
			debugger = kartrumble.NewDebugger(manager, store, config)
		}

		httpServer = kartrumble.NewHTTP(config.HTTP.Hostname, manager, store, liveFeed, debugger)

		if err := httpServer.Listen(); err != nil {
			logrus.WithError(err).Fatal("Could not start HTTP server")
		}
	}

	if err := bot.Open(ctx); err != nil {
		logrus.WithError(err).Fatal("Could not connect to discord")
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	<-c

	logrus.Infof("Shutting down")

	cancel()

	if err := bot.Close(); err != nil {
		logrus.WithError(err).Error("Could not close discord session")
	}

	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logrus.WithError(err).Error("Could not stop HTTP server")
		}
	}

	logrus.Infof("kartrumble stopped. Exiting")
}

func loadLibrary(path string) (*narrative.Library, error) {
	if path == "" {
		return narrative.Default(), nil
	}

	texts, err := narrative.LoadTexts(path)

	if err != nil {
		return nil, err
	}

	return narrative.NewLibrary(texts)
}
