package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/mfadaei/tgsum/internal/app"
	"github.com/mfadaei/tgsum/internal/config"
	"github.com/mfadaei/tgsum/internal/session"
	"go.uber.org/fx"
)

func main() {
	configFlag := flag.String("config", "", "config file path (default ~/.tgsum/config.toml)")
	flag.Parse()

	configPath := *configFlag
	if configPath == "" {
		configPath = session.ConfigPath()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if werr := config.Save(configPath, config.Default()); werr != nil {
				fmt.Fprintf(os.Stderr, "error: write default config: %v\n", werr)
				os.Exit(1)
			}
			fmt.Fprintf(os.Stderr, "Created %s.\nFill in your Telegram api_id, api_hash and phone, then run tgsum again.\n", configPath)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: invalid config %s:\n%v\n", configPath, err)
		os.Exit(1)
	}

	fx.New(
		app.Module(app.Params{Account: cfg.Telegram.Phone, Config: cfg}),
		fx.NopLogger,
	).Run()
}
