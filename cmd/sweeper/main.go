// Command sweeper prunes expired tasks and sends due-date notifications.
// Run it from cron or a systemd timer, it does one pass and exits.
package main

import (
	"fmt"
	"os"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"github.com/sblinch/kdl-go"

	"github.com/pancsta/studai/bot"
	"github.com/pancsta/studai/shared"
	"github.com/pancsta/studai/sweeper"
	"github.com/pancsta/studai/taskstore"
	"github.com/pancsta/studai/tools/telegram"
)

func init() {
	if os.Getenv(shared.EnvNoDotEnv) == "" {
		godotenv.Load()
	}
}

func main() {
	// config, shared with the bot
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
	}

	log := shared.NewLogger(&cfg.Config)
	store := taskstore.New(cfg.Bot.TasksFile, log)

	sender, err := telegram.NewSender(telegram.Config{
		NotifyChatId: cfg.Bot.NotifyChatId,
	})
	if err != nil {
		fmt.Printf("telegram: %v\n", err)
		os.Exit(1)
	}

	s := sweeper.New(store, sweeper.NotifierFunc(sender.Notify), log)
	if err := s.Run(time.Now()); err != nil {
		log.Error("sweeper run", "err", err)
		os.Exit(1)
	}
}
