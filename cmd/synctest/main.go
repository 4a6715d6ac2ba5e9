package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/ScottBrooks/supergrab"
	"github.com/ScottBrooks/supergrab/rollback"
	env "github.com/caarlos0/env/v11"
	log "github.com/sirupsen/logrus"
)

type config struct {
	Players       int    `env:"SUPERGRAB_PLAYERS" envDefault:"2"`
	Frames        int    `env:"SUPERGRAB_FRAMES" envDefault:"600"`
	CheckDistance int    `env:"SUPERGRAB_CHECK_DISTANCE" envDefault:"7"`
	Seed          int64  `env:"SUPERGRAB_SEED" envDefault:"1"`
	HashPrevious  bool   `env:"SUPERGRAB_HASH_PREVIOUS" envDefault:"false"`
	LogLevel      string `env:"SUPERGRAB_LOG_LEVEL" envDefault:"info"`
}

func parseConfig(fs *flag.FlagSet, args []string) (config, error) {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return config{}, fmt.Errorf("parse env: %w", err)
	}
	fs.IntVar(&cfg.Players, "players", cfg.Players, "number of bot players")
	fs.IntVar(&cfg.Frames, "frames", cfg.Frames, "frames to simulate")
	fs.IntVar(&cfg.CheckDistance, "check-distance", cfg.CheckDistance, "frames rolled back on every advance")
	fs.Int64Var(&cfg.Seed, "seed", cfg.Seed, "bot input seed")
	fs.BoolVar(&cfg.HashPrevious, "hash-previous", cfg.HashPrevious, "include previous positions in checksums")
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
	if err := run(cfg); err != nil {
		var mismatch *rollback.MismatchError
		if errors.As(err, &mismatch) {
			log.WithFields(log.Fields{
				"frame":       mismatch.Frame,
				"original":    fmt.Sprintf("%016x", mismatch.Original),
				"resimulated": fmt.Sprintf("%016x", mismatch.Resimulated),
			}).Fatal("Simulation is not deterministic")
		}
		log.WithError(err).Fatal("Sync test failed")
	}
}

func run(cfg config) error {
	gcfg := supergrab.DefaultConfig()
	gcfg.NumPlayers = cfg.Players
	gcfg.HashPreviousPosition = cfg.HashPrevious

	stcfg := rollback.SyncTestConfig{NumPlayers: cfg.Players, CheckDistance: cfg.CheckDistance}
	game, err := supergrab.NewGame(gcfg, nil, cfg.CheckDistance+2)
	if err != nil {
		return err
	}
	defer game.Close()

	session, err := rollback.NewSyncTestSession[supergrab.InputRecord](stcfg, game)
	if err != nil {
		return err
	}

	bots := make([]*supergrab.BotInput, cfg.Players)
	for i := range bots {
		bots[i] = supergrab.NewBotInput(cfg.Seed + int64(i))
	}
	for session.CurrentFrame() < rollback.Frame(cfg.Frames) {
		frame := session.CurrentFrame()
		for h, bot := range bots {
			if err := session.AddLocalInput(rollback.PlayerHandle(h), bot.Sample(frame)); err != nil {
				return err
			}
		}
		if err := session.AdvanceFrame(); err != nil {
			return err
		}
	}
	log.WithFields(log.Fields{
		"frames":   cfg.Frames,
		"checksum": fmt.Sprintf("%016x", game.Checksum()),
	}).Info("Sync test passed")
	return nil
}
