// Command mutualref runs the mutual referral exchange bot: the
// Telegram long-poll loop plus the operator console on stdin.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mutualref/mutualref/internal/access"
	"github.com/mutualref/mutualref/internal/bot"
	"github.com/mutualref/mutualref/internal/config"
	"github.com/mutualref/mutualref/internal/console"
	"github.com/mutualref/mutualref/internal/conversation"
	"github.com/mutualref/mutualref/internal/logging"
	"github.com/mutualref/mutualref/internal/maintenance"
	"github.com/mutualref/mutualref/internal/moderation"
	"github.com/mutualref/mutualref/internal/store"
	"github.com/mutualref/mutualref/internal/store/memory"
	"github.com/mutualref/mutualref/internal/store/sqlite"
	"github.com/mutualref/mutualref/internal/telegram"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "-h", "--help", "help":
			printUsage()
			return
		case "-v", "--version", "version":
			fmt.Println("mutualref v0.1.0")
			return
		}
	}

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "mutualref:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logging.New(cfg.LogLevel)

	var archive store.Archive = store.NopArchive{}
	if cfg.ArchivePath != "" {
		a, err := sqlite.Open(cfg.ArchivePath)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer a.Close()
		archive = a
		log.Info().Str("path", cfg.ArchivePath).Msg("archive journal enabled")
	}

	users := memory.New()
	maint := maintenance.New()
	gate := access.NewGate(cfg.AdminID, cfg.ProtectedID, maint)
	partners := cfg.Partners()
	client := telegram.New(cfg.BotToken, cfg.APIURL, log)

	workflow := moderation.New(users, gate, maint, client, archive, partners, log)
	b := bot.New(bot.Deps{
		Users:    users,
		Support:  users,
		Sessions: conversation.NewSessions(),
		Gate:     gate,
		Maint:    maint,
		Workflow: workflow,
		Send:     client,
		Archive:  archive,
		Partners: partners,
		Log:      log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go console.New(users, gate, maint, archive, log).Run(ctx, os.Stdin, os.Stdout)

	log.Info().Int64("admin", cfg.AdminID).Msg("bot started")
	if err := client.Poll(ctx, b, cfg.PollTimeout); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info().Msg("shutting down")
	return nil
}

func printUsage() {
	fmt.Print(`mutualref - mutual referral exchange bot

Usage:
  mutualref            run the bot
  mutualref version    print the version

Environment:
  BOT_TOKEN       Telegram bot token (required)
  ADMIN_ID        root administrator identity (required)
  PROTECTED_ID    identity that can never be banned
  ARCHIVE_DB      sqlite journal path, empty disables it
  LOG_LEVEL       debug, info, warn, error
  POLL_TIMEOUT    long poll timeout, e.g. 30s
  PARTNER1_NAME / PARTNER1_URL
  PARTNER2_NAME / PARTNER2_URL
`)
}
