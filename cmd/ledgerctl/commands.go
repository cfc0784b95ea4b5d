package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"serotonyl.ru/recognition-bot/internal/app"
	"serotonyl.ru/recognition-bot/internal/backup"
	"serotonyl.ru/recognition-bot/internal/config"
	"serotonyl.ru/recognition-bot/internal/features/admin"
	"serotonyl.ru/recognition-bot/internal/features/leaderboard"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Применить миграции PostgreSQL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.StorageDriver != config.DriverPostgres {
				return fmt.Errorf("миграции нужны только для STORAGE_DRIVER=%s", config.DriverPostgres)
			}
			st, err := app.OpenStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer st.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "Миграции применены")
			return nil
		},
	}
}

func balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance <user_id>",
		Short: "Баланс участника",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			return withCore(cmd, func(ctx context.Context, core *app.Core) error {
				sum, err := core.Balance.Summary(ctx, user)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), sum)
			})
		},
	}
}

func leaderboardCmd() *cobra.Command {
	var (
		days int
		tz   string
	)
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Рейтинги за окно",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd, func(ctx context.Context, core *app.Core) error {
				board, err := core.Leaderboard.Leaderboard(ctx, tz, days)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), board)
			})
		},
	}
	cmd.Flags().IntVarP(&days, "days", "d", leaderboard.DefaultDays, "окно в днях, 0 — за всё время")
	cmd.Flags().StringVar(&tz, "tz", "", "часовой пояс (по умолчанию APP_TIMEZONE)")
	return cmd
}

func influencersCmd() *cobra.Command {
	var (
		days int
		tz   string
	)
	cmd := &cobra.Command{
		Use:   "influencers",
		Short: "Самые подхватываемые благодарности",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd, func(ctx context.Context, core *app.Core) error {
				rep, err := core.Influence.Influential(ctx, tz, days)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), rep)
			})
		},
	}
	cmd.Flags().IntVarP(&days, "days", "d", leaderboard.DefaultDays, "окно в днях, 0 — за всё время")
	cmd.Flags().StringVar(&tz, "tz", "", "часовой пояс (по умолчанию APP_TIMEZONE)")
	return cmd
}

func holderCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "holder",
		Short: "Текущий держатель золотого жетона",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd, func(ctx context.Context, core *app.Core) error {
				g, err := core.Golden.Holder(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), g)
			})
		},
	}
}

func refundCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refund <debit_id>",
		Short: "Отменить списание",
		Long:  "Отменяет списание по ID. Повторный возврат ничего не меняет.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd, func(ctx context.Context, core *app.Core) error {
				res, err := core.Ledger.RefundDebit(ctx, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !res.Changed {
					fmt.Fprintf(out, "Списание %s уже возвращено\n", res.Debit.ID)
					return nil
				}
				fmt.Fprintf(out, "Списание %s возвращено: %d баллов участнику %d\n", res.Debit.ID, res.Debit.Value, res.Debit.User)
				return nil
			})
		},
	}
}

func exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Выгрузить журнал в JSON Lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd, func(ctx context.Context, core *app.Core) error {
				var w io.Writer = cmd.OutOrStdout()
				if out != "" && out != "-" {
					f, err := os.Create(out)
					if err != nil {
						return err
					}
					defer f.Close()
					w = f
				}
				n, err := backup.Export(ctx, core.Store, w, time.Now().UTC())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Выгружено записей: %d\n", n)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "-", "файл выгрузки, - для stdout")
	return cmd
}

func backupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Выгрузить журнал в S3 (BACKUP_S3_*)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withCore(cmd, func(ctx context.Context, core *app.Core) error {
				cfg := core.Config
				if cfg.BackupS3Bucket == "" {
					return fmt.Errorf("BACKUP_S3_BUCKET не задан")
				}
				dest, err := backup.NewS3Destination(ctx, backup.S3Config{
					Bucket:   cfg.BackupS3Bucket,
					Region:   cfg.BackupS3Region,
					Endpoint: cfg.BackupS3Endpoint,
				})
				if err != nil {
					return err
				}
				res, err := backup.NewService(core.Store, dest, cfg.BackupS3Prefix, core.Publisher, nil).Run(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "s3://%s/%s: %d записей, %d байт\n", cfg.BackupS3Bucket, res.Key, res.Records, res.Bytes)
				return nil
			})
		},
	}
}

func hashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password <password>",
		Short: "Argon2id-хеш для ADMIN_PASSWORD_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := admin.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func parseUserID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("некорректный user_id %q", s)
	}
	return id, nil
}
