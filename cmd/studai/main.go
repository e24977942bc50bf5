package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	amhelp "github.com/pancsta/asyncmachine-go/pkg/helpers"
	am "github.com/pancsta/asyncmachine-go/pkg/machine"
	amtele "github.com/pancsta/asyncmachine-go/pkg/telemetry"
	"github.com/sblinch/kdl-go"

	"github.com/pancsta/studai/bot"
	"github.com/pancsta/studai/shared"
)

func init() {
	if os.Getenv(shared.EnvNoDotEnv) == "" {
		godotenv.Load()
	}
}

func main() {
	ctx := context.Background()
	version := "devel"
	if info, ok := debug.ReadBuildInfo(); ok {
		version = info.Main.Version
	}

	// config
	cfgFile := "config.kdl"
	if v := os.Getenv(shared.EnvConfig); v != "" {
		cfgFile = v
	}
	cfg := bot.ConfigDefault()
	if cfgData, err := os.ReadFile(cfgFile); err == nil {
		var cfgUser bot.Config
		if err := kdl.Unmarshal(cfgData, &cfgUser); err != nil {
			panic(err)
		}
		if err := mergo.Merge(cfg, cfgUser, mergo.WithOverride); err != nil {
			panic(err)
		}
	} else {
		fmt.Printf("no %s, using defaults\n", cfgFile)
	}

	// set env
	if cfg.Debug.DBGAddr != "" {
		os.Setenv(amtele.EnvAmDbgAddr, cfg.Debug.DBGAddr)
		os.Setenv(am.EnvAmLog, "3")
		os.Setenv(amhelp.EnvAmLogFull, "1")
	}

	// init
	a, err := bot.NewBot(ctx, cfg)
	if err != nil {
		panic(err)
	}

	// splash
	shared.P(`
		%s %s

		Tasks:
		%s

		Log:
		$ tail -f %s -n 100 | fblog -d -x msg -x time -x level
	`, cfg.Agent.Label, version, cfg.Bot.TasksFile, cfg.Log.File)

	a.Start()
	<-a.Mach().WhenDisposed()
	print("bye")
}
