package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"VaultSentinel/internal/app"
	"VaultSentinel/internal/config"
	"VaultSentinel/internal/control"
	"VaultSentinel/internal/currency"
	"VaultSentinel/internal/detector"
	"VaultSentinel/internal/engine"
	"VaultSentinel/internal/feed"
	"VaultSentinel/internal/ledger"
	"VaultSentinel/internal/logging"
	"VaultSentinel/internal/notifier"
	"VaultSentinel/internal/oracle"
	"VaultSentinel/internal/policy"
	"VaultSentinel/internal/ratelimit"
	"VaultSentinel/internal/recorder"
	"VaultSentinel/internal/scheduler"
	"VaultSentinel/internal/store"
	"VaultSentinel/internal/vault"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfgPath := config.DefaultPath
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config validation: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil && !errors.Is(err, app.ErrSignal) {
		log.Error("VaultSentinel stopped with error", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
	log.Info("VaultSentinel stopped")
}

func run(cfg *config.Config, log *zap.Logger) error {
	log.Info("VaultSentinel starting", zap.String("platform", cfg.Platform.BaseURL))

	st, err := store.Open(cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Error("close state store", zap.Error(err))
		}
	}()

	sessionID := cfg.Session.ID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	led := ledger.New(st, sessionID, log.Named("ledger"))
	// the session ends with the process
	defer func() {
		if err := led.Clear(); err != nil {
			log.Error("clear session ledger", zap.Error(err))
		}
	}()

	policies := policy.NewManager(st, cfg.Policy, log.Named("policy"))
	limiter := ratelimit.NewWindow(st, cfg.Limits.Window, cfg.Limits.MaxActions, log.Named("ratelimit"))

	vc := vault.NewClient(vault.Config{
		BaseURL:  cfg.Platform.BaseURL,
		Token:    cfg.Session.Token,
		ProxyURL: cfg.Proxy,
		Language: cfg.Platform.Language,
		Timeout:  cfg.Platform.Timeout,
	}, log.Named("vault"))

	var strategies []oracle.Strategy
	var fc *feed.Client
	if cfg.FeedEnabled() {
		url := cfg.Feed.URL
		if url == "" {
			url = feed.URLFor(cfg.Platform.BaseURL)
		}
		fc = feed.New(feed.Config{
			URL:            url,
			Token:          cfg.Session.Token,
			ProxyURL:       cfg.Proxy,
			ReconnectDelay: cfg.Feed.ReconnectDelay,
		}, log.Named("feed"))
		strategies = append(strategies, &oracle.FeedStrategy{Source: fc})
	}
	if cfg.Balance.DisplayFile != "" {
		strategies = append(strategies, &oracle.FileStrategy{Path: cfg.Balance.DisplayFile})
	}
	orc := oracle.New(log.Named("oracle"), strategies...)
	log.Info("balance oracle ready", zap.Stringer("oracle", orc))

	resolver := newResolver(cfg, fc, orc)

	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log.Named("recorder"))
		if err != nil {
			log.Warn("init sqlite recorder failed, using noop", zap.Error(err))
		} else {
			rec = sr
		}
	}
	defer func() {
		if err := rec.Close(); err != nil {
			log.Error("close recorder", zap.Error(err))
		}
	}()

	var tn *notifier.TelegramNotifier
	deps := engine.Deps{
		Oracle:     orc,
		Vault:      vc,
		Resolver:   resolver,
		Limiter:    limiter,
		Ledger:     led,
		Policies:   policies,
		Classifier: detector.NewKeywordClassifier(cfg.Feed.Keywords...),
		Recorder:   rec,
	}
	if fc != nil {
		deps.Source = fc
	}
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy,
			cfg.Telegram.APIBase, log.Named("telegram"))
		deps.Notifier = tn
	}

	sched := scheduler.New(log.Named("scheduler"))
	deps.Timers = sched
	sched.Start()
	defer sched.Stop()

	eng := engine.New(deps, engine.Options{
		InitInterval:    cfg.Init.Interval,
		InitMaxTries:    cfg.Init.MaxTries,
		StartDelay:      cfg.Init.StartDelay,
		RefreshInterval: cfg.Balance.RefreshInterval,
		RefreshOnStart:  true,
		DepositTimeout:  cfg.Limits.DepositTimeout,
		AutoStart:       cfg.AutoStart(),
	}, log.Named("engine"))

	a := app.NewApp(log.Named("app")).
		WithService("engine", eng).
		WithService("signals", app.Signals(syscall.SIGINT, syscall.SIGTERM))
	if fc != nil {
		a.WithService("feed", fc)
	}
	if tn != nil {
		commands := control.NewCommands(eng)
		a.WithService("telegram", app.ServiceFunc(func(ctx context.Context) error {
			return tn.Run(ctx, commands.Handle)
		}))
	}
	if cfg.HTTP.Addr != "" {
		a.WithService("http", control.NewServer(cfg.HTTP.Addr, eng, rec, log.Named("http")))
	}

	log.Info("VaultSentinel is running. Press Ctrl+C to stop.")
	return a.Run(context.Background())
}

// newResolver orders the currency signals: the configured override, then what
// the display shows, then the feed's last balance update, then the platform default.
func newResolver(cfg *config.Config, fc *feed.Client, orc *oracle.Oracle) *currency.Resolver {
	var signals []currency.Signal
	if cfg.Currency.Override != "" {
		override := cfg.Currency.Override
		signals = append(signals, currency.SignalFunc(func() (string, bool) { return override, true }))
	}
	signals = append(signals, currency.SignalFunc(orc.DisplayCurrency))
	if fc != nil {
		signals = append(signals, currency.SignalFunc(fc.ActiveCurrency))
	}
	return currency.NewResolver(currency.PlatformDefault(cfg.Platform.BaseURL), signals...)
}
