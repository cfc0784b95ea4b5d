// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: хранилище, шина событий, сервисы, обработчики,
// Telegram-бот, планировщик и HTTP API.
package app

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"serotonyl.ru/recognition-bot/internal/backup"
	"serotonyl.ru/recognition-bot/internal/bot"
	"serotonyl.ru/recognition-bot/internal/bot/filters"
	"serotonyl.ru/recognition-bot/internal/common"
	"serotonyl.ru/recognition-bot/internal/config"
	"serotonyl.ru/recognition-bot/internal/db/postgres"
	"serotonyl.ru/recognition-bot/internal/events"
	"serotonyl.ru/recognition-bot/internal/features/admin"
	"serotonyl.ru/recognition-bot/internal/features/balance"
	"serotonyl.ru/recognition-bot/internal/features/golden"
	"serotonyl.ru/recognition-bot/internal/features/influence"
	"serotonyl.ru/recognition-bot/internal/features/leaderboard"
	"serotonyl.ru/recognition-bot/internal/features/ledger"
	"serotonyl.ru/recognition-bot/internal/features/members"
	"serotonyl.ru/recognition-bot/internal/features/report"
	"serotonyl.ru/recognition-bot/internal/features/rewards"
	"serotonyl.ru/recognition-bot/internal/httpapi"
	"serotonyl.ru/recognition-bot/internal/jobs"
	"serotonyl.ru/recognition-bot/internal/store"
	"serotonyl.ru/recognition-bot/internal/store/memory"
)

// Core — сервисы без транспорта. Его собирают и бот, и ledgerctl.
type Core struct {
	Config    *config.Config
	Store     store.Store
	Publisher events.Publisher

	Ledger      *ledger.Service
	Members     *members.Service
	Balance     *balance.Service
	Golden      *golden.Service
	Leaderboard *leaderboard.Service
	Influence   *influence.Service
	Report      *report.Service
	Rewards     *rewards.Service
	Admin       *admin.Service
}

// NewCore создаёт сервисы поверх готового хранилища.
// pub == nil — события никуда не публикуются; clock == nil — системные часы.
func NewCore(cfg *config.Config, st store.Store, pub events.Publisher, clock common.Clock) (*Core, error) {
	if pub == nil {
		pub = &events.NoopPublisher{}
	}
	catalog, err := rewards.LoadCatalog(cfg.RewardsFile)
	if err != nil {
		return nil, fmt.Errorf("ошибка загрузки каталога наград: %w", err)
	}

	l := ledger.NewService(st, cfg, pub, clock)
	memberService := members.NewService(st, cfg, clock)
	balanceService := balance.NewService(l, cfg)

	return &Core{
		Config:      cfg,
		Store:       st,
		Publisher:   pub,
		Ledger:      l,
		Members:     memberService,
		Balance:     balanceService,
		Golden:      golden.NewService(l, cfg, pub),
		Leaderboard: leaderboard.NewService(l, cfg),
		Influence:   influence.NewService(l),
		Report:      report.NewService(l, cfg, memberService, pub),
		Rewards:     rewards.NewService(catalog, balanceService),
		Admin:       admin.NewService(l, cfg),
	}, nil
}

// Handlers создаёт обработчики фич, отвечающие через sender.
func (c *Core) Handlers(sender common.Sender) bot.Handlers {
	names := c.Members
	return bot.Handlers{
		Ledger:      ledger.NewHandler(c.Ledger, names, sender),
		Balance:     balance.NewHandler(c.Balance, sender),
		Golden:      golden.NewHandler(c.Golden, names, sender),
		Leaderboard: leaderboard.NewHandler(c.Leaderboard, names, sender),
		Influence:   influence.NewHandler(c.Influence, names, sender),
		Report:      report.NewHandler(c.Report, sender),
		Rewards:     rewards.NewHandler(c.Rewards, c.Balance, c.Config, names, sender),
		Admin:       admin.NewHandler(c.Admin, names, sender),
		Members:     members.NewHandler(c.Members),
	}
}

// APIServices — сервисы для HTTP API.
func (c *Core) APIServices() httpapi.Services {
	return httpapi.Services{
		Leaderboard: c.Leaderboard,
		Influence:   c.Influence,
		Report:      c.Report,
		Balance:     c.Balance,
		Golden:      c.Golden,
		Store:       c.Store,
	}
}

// Close закрывает хранилище и шину событий.
func (c *Core) Close() {
	if err := c.Publisher.Close(); err != nil {
		log.WithError(err).Warn("Ошибка закрытия шины событий")
	}
	if err := c.Store.Close(); err != nil {
		log.WithError(err).Warn("Ошибка закрытия хранилища")
	}
}

// OpenStore открывает хранилище по STORAGE_DRIVER. Для postgres
// применяет миграции.
func OpenStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	if cfg.StorageDriver == config.DriverMemory {
		log.Warn("Используется хранилище в памяти: данные пропадут при перезапуске")
		return memory.New(), nil
	}

	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}
	if err := postgres.RunMigrations(pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}
	return postgres.NewStore(pool), nil
}

// OpenCore — OpenStore + шина событий + NewCore.
func OpenCore(ctx context.Context, cfg *config.Config) (*Core, error) {
	st, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	pub, err := events.New(cfg.NATSURL)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("ошибка подключения к NATS: %w", err)
	}
	core, err := NewCore(cfg, st, pub, nil)
	if err != nil {
		pub.Close()
		st.Close()
		return nil, err
	}
	return core, nil
}

// App содержит все компоненты приложения.
type App struct {
	Core      *Core
	Bot       *bot.Bot
	Scheduler *jobs.Scheduler
	API       *httpapi.Server
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. Хранилище, шина, сервисы ===
	core, err := OpenCore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// === 2. Telegram Bot API ===
	api, err := telego.NewBot(cfg.TelegramBotToken, telego.WithDefaultLogger(cfg.AppEnv == "development", true))
	if err != nil {
		core.Close()
		return nil, fmt.Errorf("ошибка создания Telegram API: %w", err)
	}
	me, err := api.GetMe(ctx)
	if err != nil {
		core.Close()
		return nil, fmt.Errorf("ошибка авторизации в Telegram: %w", err)
	}
	log.Infof("Авторизован как @%s", me.Username)

	sender := bot.NewTelegramSender(api)

	// === 3. Бот ===
	chatFilter := filters.NewChatFilter(cfg.MainChatID, cfg.GoldenChatID, core.Members, sender, sender)
	b := bot.New(api, cfg, sender, core.Members, core.Handlers(sender), chatFilter)

	// === 4. Планировщик задач ===
	scheduler, err := newScheduler(ctx, cfg, core, sender)
	if err != nil {
		core.Close()
		return nil, err
	}

	return &App{
		Core:      core,
		Bot:       b,
		Scheduler: scheduler,
		API:       httpapi.NewServer(core.APIServices()),
	}, nil
}

func newScheduler(ctx context.Context, cfg *config.Config, core *Core, sender common.Sender) (*jobs.Scheduler, error) {
	scheduler := jobs.NewScheduler(cfg.Location())

	reportSpec := cfg.ReportCron
	if len(cfg.ReportChatIDs) == 0 {
		reportSpec = ""
	}
	if err := scheduler.Add("reports", reportSpec, func(ctx context.Context) error {
		_, err := core.Report.RunChannelReports(ctx, sender)
		return err
	}); err != nil {
		return nil, err
	}

	backupSpec := cfg.BackupCron
	if cfg.BackupS3Bucket == "" {
		backupSpec = ""
	}
	if backupSpec != "" {
		dest, err := backup.NewS3Destination(ctx, backup.S3Config{
			Bucket:   cfg.BackupS3Bucket,
			Region:   cfg.BackupS3Region,
			Endpoint: cfg.BackupS3Endpoint,
		})
		if err != nil {
			return nil, err
		}
		backups := backup.NewService(core.Store, dest, cfg.BackupS3Prefix, core.Publisher, nil)
		if err := scheduler.Add("backup", backupSpec, func(ctx context.Context) error {
			_, err := backups.Run(ctx)
			return err
		}); err != nil {
			return nil, err
		}
	}
	return scheduler, nil
}

// Run запускает бота, API и планировщик и ждёт отмены ctx.
func (a *App) Run(ctx context.Context) error {
	a.Scheduler.Start(ctx)
	defer a.Scheduler.Stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Bot.Start(ctx) })
	if addr := a.Core.Config.HTTPAddr; addr != "" {
		g.Go(func() error { return a.API.ListenAndServe(ctx, addr) })
	}
	return g.Wait()
}

// Close освобождает ресурсы.
func (a *App) Close() {
	a.Core.Close()
}
