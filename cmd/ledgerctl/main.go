// Package main — ledgerctl, утилита оператора: миграции, выгрузка
// журнала, отчёты и ручные возвраты без Telegram.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"serotonyl.ru/recognition-bot/internal/app"
	"serotonyl.ru/recognition-bot/internal/config"
)

var Version = "dev"

func main() {
	log.SetOutput(os.Stderr)
	log.SetLevel(log.WarnLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Обслуживание журнала благодарностей",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(migrateCmd())
	root.AddCommand(balanceCmd())
	root.AddCommand(leaderboardCmd())
	root.AddCommand(influencersCmd())
	root.AddCommand(holderCmd())
	root.AddCommand(refundCmd())
	root.AddCommand(exportCmd())
	root.AddCommand(backupCmd())
	root.AddCommand(hashPasswordCmd())
	return root
}

// withCore загружает конфигурацию из окружения, открывает хранилище
// и закрывает его после fn.
func withCore(cmd *cobra.Command, fn func(ctx context.Context, core *app.Core) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if level, err := log.ParseLevel(cfg.AppLogLevel); err == nil && level < log.InfoLevel {
		log.SetLevel(level)
	}

	ctx := cmd.Context()
	core, err := app.OpenCore(ctx, cfg)
	if err != nil {
		return err
	}
	defer core.Close()
	return fn(ctx, core)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
