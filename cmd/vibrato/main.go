package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"vibrato/internal/config"
	"vibrato/internal/controller"
	"vibrato/internal/database"
	"vibrato/internal/discord"
	"vibrato/internal/metadata"
	"vibrato/internal/player"
	"vibrato/internal/scanner"
	"vibrato/internal/youtube"
)

func main() {
	godotenv.Load()

	configPath := flag.String("config", config.DefaultPath(), "path to the config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger := cfg.NewLogger()

	db, err := database.Open(cfg.Database.Path, logger)
	if err != nil {
		logger.WithError(err).Fatal("Error opening library database")
	}
	defer db.Close()

	backend, err := player.NewMPVBackend(cfg.Playback.MpvPath, cfg.Playback.AudioOnly, logger)
	if err != nil {
		logger.WithError(err).Fatal("Playback backend unavailable")
	}
	defer backend.Close()

	state := player.NewStateManager(cfg.Playback.Shuffle, player.ParseRepeatMode(cfg.Playback.Repeat))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fetcher := youtube.NewFetcher(cfg.YouTube.FetchLimit, logger)

	ctrl, err := controller.New(ctx, db, backend, state, fetcher, logger)
	if err != nil {
		logger.WithError(err).Fatal("Error initializing controller")
	}

	extractor := metadata.NewExtractor(cfg.Library.SupportedFormats, logger)
	sc := scanner.New(db, extractor, logger)

	progress := make(chan scanner.Progress, 64)
	if cfg.Library.ScanOnStartup && len(cfg.Library.Folders) > 0 {
		go func() {
			if _, err := sc.Scan(ctx, cfg.Library.Folders, progress); err != nil {
				logger.WithError(err).Warn("Startup scan did not finish")
			}
		}()
	}

	if cfg.Discord.Enabled {
		rpc := discord.NewRPCService(&cfg.Discord, logger)
		if err := rpc.Connect(); err != nil {
			logger.WithError(err).Warn("Discord presence unavailable")
		} else {
			defer rpc.Disconnect()
			updates := state.Subscribe()
			defer state.Unsubscribe(updates)
			go rpc.Run(updates)
		}
	}

	if cfg.Library.WatchForChanges && len(cfg.Library.Folders) > 0 {
		watcher, err := scanner.NewWatcher(sc, cfg.Library.Folders, logger)
		if err != nil {
			logger.WithError(err).Warn("Library watcher unavailable")
		} else {
			defer watcher.Close()
		}
	}

	oldTermios, err := enableRawMode()
	if err != nil {
		logger.WithError(err).Fatal("Cannot set up terminal")
	}
	defer restoreTerminal(oldTermios)

	keys := make(chan controller.Key, 16)
	go readKeys(os.Stdin, keys)

	run(ctx, ctrl, backend, keys, progress)

	// Persist the playback toggles for the next session.
	st := state.GetState()
	cfg.Playback.Shuffle = st.Shuffle
	cfg.Playback.Repeat = st.Repeat.ConfigString()
	if err := cfg.SaveToFile(*configPath); err != nil {
		logger.WithError(err).Warn("Could not persist playback settings")
	}
}

// run is the event loop: one goroutine owns the controller and feeds it
// keystrokes, player events and scan progress.
func run(ctx context.Context, ctrl *controller.Controller, backend player.Backend, keys <-chan controller.Key, progress <-chan scanner.Progress) {
	draw(ctrl)

	for {
		select {
		case <-ctx.Done():
			return
		case key, ok := <-keys:
			if !ok {
				return
			}
			ctrl.Handle(key)
			if ctrl.Quitting() {
				return
			}
		case ev, ok := <-backend.Events():
			if !ok {
				return
			}
			ctrl.ApplyPlayerEvent(ev)
		case p := <-progress:
			ctrl.ApplyScanProgress(p)
		}
		draw(ctrl)
	}
}

// draw clears the screen and renders the controller state.
func draw(ctrl *controller.Controller) {
	fmt.Print("\x1b[2J\x1b[H")
	ctrl.Render(os.Stdout)
}
