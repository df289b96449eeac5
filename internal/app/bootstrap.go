package app

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"tradecore/internal/execution"
	"tradecore/internal/infra"
	"tradecore/internal/metrics"
	"tradecore/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	// WorkDir overrides the workspace root. Empty uses infra.GetWorkspaceDir.
	WorkDir string

	Config   *infra.Config
	Secrets  infra.Secrets
	Logger   *slog.Logger
	Journal  storage.Journal
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Exchange execution.Exchange

	// TradeLogPath is where the JSONL journal appends.
	TradeLogPath string

	unlock func()
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization: config, logger, journal,
// metrics, then the exchange. Nothing is connected yet.
func (b *Bootstrap) Initialize(configPath string) error {
	// 1. Load Config (Dynamic Path Resolution)
	if configPath == "" {
		configPath = infra.ResolveConfigPath()
	}
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err
	}
	b.Config = cfg

	secrets, err := infra.LoadSecrets()
	if err != nil {
		return err
	}
	b.Secrets = secrets

	// 2. Setup Logger
	b.Logger = infra.NewLogger(cfg)
	slog.SetDefault(b.Logger)
	b.Logger.Info("🚀 Bootstrapping",
		slog.String("app", cfg.App.Name),
		slog.String("mode", cfg.Trading.Mode),
		slog.Bool("testnet", cfg.Trading.Testnet),
		slog.String("secrets", secrets.String()))

	// 3. Workspace: data isolation per mode
	workDir := b.WorkDir
	if workDir == "" {
		workDir = infra.GetWorkspaceDir()
	}
	mode := strings.ToLower(cfg.Trading.Mode)
	dataDir := filepath.Join(workDir, "data", mode)
	if err := infra.EnsureDir(dataDir); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	// 3.1 Singleton instance lock: one appender per trade log.
	unlock, err := infra.CreateLockFile(workDir)
	if err != nil {
		return err
	}
	b.unlock = unlock

	// 4. Journal
	if err := b.openJournal(workDir, dataDir); err != nil {
		b.Close()
		return err
	}

	// 5. Metrics
	b.Registry = prometheus.NewRegistry()
	b.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	b.Metrics, err = metrics.New(b.Registry)
	if err != nil {
		b.Close()
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	// 6. Exchange
	factory := execution.NewExchangeFactory(cfg, secrets, b.Journal, b.Metrics, b.Logger)
	b.Exchange, err = factory.CreateExchange()
	if err != nil {
		b.Close()
		return err
	}

	b.Logger.Info("✅ Exchange ready",
		slog.String("exchange", b.Exchange.Name()),
		slog.String("trade_log", b.TradeLogPath))
	return nil
}

func (b *Bootstrap) openJournal(workDir, dataDir string) error {
	path := b.Config.Paper.TradeLog
	if path == "" {
		path = infra.TradeLogPath(workDir, b.Config.Trading.Mode)
	}
	jsonl, err := storage.OpenJSONL(path)
	if err != nil {
		return err
	}
	b.TradeLogPath = jsonl.Path()

	journals := []storage.Journal{jsonl}
	if db := b.Config.Paper.JournalDB; db != "" {
		if !filepath.IsAbs(db) {
			db = filepath.Join(dataDir, db)
		}
		sqlite, err := storage.OpenSQLite(db)
		if err != nil {
			jsonl.Close()
			return err
		}
		journals = append(journals, sqlite)
		b.Logger.Info("✅ SQLite journal mirror initialized (WAL-mode)", slog.String("path", db))
	}
	b.Journal = storage.Tee(journals...)
	return nil
}

// Close releases the journal and the instance lock. The exchange must be
// disconnected first so its final lifecycle line is written.
func (b *Bootstrap) Close() error {
	var errs []error
	if b.Journal != nil {
		errs = append(errs, b.Journal.Close())
		b.Journal = nil
	}
	if b.unlock != nil {
		b.unlock()
		b.unlock = nil
	}
	return errors.Join(errs...)
}
