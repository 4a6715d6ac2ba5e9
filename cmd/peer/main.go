package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/EngoEngine/engo"
	"github.com/ScottBrooks/supergrab"
	"github.com/ScottBrooks/supergrab/rollback"
	"github.com/ScottBrooks/supergrab/wsnet"
	env "github.com/caarlos0/env/v11"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type config struct {
	Host           bool   `env:"SUPERGRAB_HOST" envDefault:"false"`
	Listen         string `env:"SUPERGRAB_LISTEN" envDefault:":7878"`
	Connect        string `env:"SUPERGRAB_CONNECT" envDefault:"ws://127.0.0.1:7878/"`
	Players        int    `env:"SUPERGRAB_PLAYERS" envDefault:"2"`
	Frames         int    `env:"SUPERGRAB_FRAMES" envDefault:"0"`
	MaxPrediction  int    `env:"SUPERGRAB_MAX_PREDICTION" envDefault:"12"`
	InputDelay     int    `env:"SUPERGRAB_INPUT_DELAY" envDefault:"2"`
	DesyncInterval int    `env:"SUPERGRAB_DESYNC_INTERVAL" envDefault:"10"`
	Seed           int64  `env:"SUPERGRAB_SEED" envDefault:"1"`
	LogLevel       string `env:"SUPERGRAB_LOG_LEVEL" envDefault:"info"`
}

// parseConfig reads the environment first; flags override it.
func parseConfig(fs *flag.FlagSet, args []string) (config, error) {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return config{}, fmt.Errorf("parse env: %w", err)
	}
	fs.BoolVar(&cfg.Host, "host", cfg.Host, "host the match instead of joining one")
	fs.StringVar(&cfg.Listen, "listen", cfg.Listen, "address to listen on when hosting")
	fs.StringVar(&cfg.Connect, "connect", cfg.Connect, "websocket url of the host to join")
	fs.IntVar(&cfg.Players, "players", cfg.Players, "number of players, host only")
	fs.IntVar(&cfg.Frames, "frames", cfg.Frames, "stop after this many frames, 0 runs until interrupted")
	fs.IntVar(&cfg.MaxPrediction, "max-prediction", cfg.MaxPrediction, "frames to predict ahead of confirmed input")
	fs.IntVar(&cfg.InputDelay, "input-delay", cfg.InputDelay, "frames of local input delay")
	fs.IntVar(&cfg.DesyncInterval, "desync-interval", cfg.DesyncInterval, "confirmed frames between checksum exchanges, 0 disables")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "bot input seed")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "logrus level")
	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}
	return cfg, nil
}

func main() {
	cfg, err := parseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	if err := supergrab.SetupLogging(cfg.LogLevel); err != nil {
		log.Fatal(err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("Match ended")
	}
}

func connect(ctx context.Context, cfg config) (*wsnet.Transport, error) {
	if !cfg.Host {
		return wsnet.Dial(ctx, cfg.Connect, wsnet.Config{})
	}
	tr, err := wsnet.Listen(ctx, cfg.Listen, wsnet.Config{Players: cfg.Players})
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"addr": tr.Addr(), "players": cfg.Players}).Info("Waiting for players")
	if err := tr.WaitPeers(ctx); err != nil {
		tr.Close()
		return nil, err
	}
	return tr, nil
}

func run(ctx context.Context, cfg config) error {
	tr, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	local := rollback.PlayerHandle(tr.Player())

	rcfg := rollback.Config{
		NumPlayers:     tr.Players(),
		LocalPlayers:   []rollback.PlayerHandle{local},
		MaxPrediction:  cfg.MaxPrediction,
		InputDelay:     cfg.InputDelay,
		DesyncInterval: cfg.DesyncInterval,
	}
	gcfg := supergrab.DefaultConfig()
	gcfg.NumPlayers = tr.Players()
	game, err := supergrab.NewGame(gcfg, nil, rcfg.RewindDepth())
	if err != nil {
		tr.Close()
		return err
	}
	defer game.Close()

	session, err := rollback.NewSession[supergrab.InputRecord](rcfg, game, tr)
	if err != nil {
		tr.Close()
		return err
	}
	defer session.Close()

	period := time.Second / time.Duration(gcfg.FPS)
	sampler := &supergrab.InputSampler{}
	var source supergrab.InputSource = supergrab.NewBotInput(cfg.Seed + int64(local))
	log.WithFields(log.Fields{"peer": tr.ID(), "player": local, "players": tr.Players()}).Info("Match started")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		var frame rollback.Frame
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				sampler.Store(source.Sample(frame))
				frame++
			}
		}
	})
	g.Go(func() error {
		<-ctx.Done()
		engo.Exit()
		return nil
	})

	scene := &MatchScene{Session: session, Game: game, Sampler: sampler, Local: local, Frames: cfg.Frames}
	engo.Run(engo.RunOptions{
		Title:        "supergrab",
		HeadlessMode: true,
		FPSLimit:     gcfg.FPS,
	}, scene)
	cancel()

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return scene.Err()
}
