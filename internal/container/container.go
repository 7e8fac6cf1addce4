// Package container собирает зависимости бота по конфигурации. Его
// используют все точки входа: long polling, облачная функция и консоль.
package container

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ivanoskov/ledger_bot/internal/category"
	"github.com/ivanoskov/ledger_bot/internal/charts"
	"github.com/ivanoskov/ledger_bot/internal/config"
	"github.com/ivanoskov/ledger_bot/internal/dialogue"
	"github.com/ivanoskov/ledger_bot/internal/events"
	"github.com/ivanoskov/ledger_bot/internal/logging"
	"github.com/ivanoskov/ledger_bot/internal/repository"
	"github.com/ivanoskov/ledger_bot/internal/service"
)

type Container struct {
	Config     *config.Config
	Log        *logrus.Logger
	Repo       repository.Repository
	Taxonomy   *category.Taxonomy
	Publisher  events.Publisher
	Ledger     *service.Ledger
	Controller *dialogue.Controller
	// Charts равен nil, если графики выключены
	Charts *charts.ChartGenerator
}

func NewContainer(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, errors.New("configuration cannot be nil")
	}

	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	mode, err := service.ParseCategoryMode(cfg.CategoryMode)
	if err != nil {
		return nil, err
	}

	taxonomy := category.Default()
	if cfg.TaxonomyFile != "" {
		if taxonomy, err = category.Load(cfg.TaxonomyFile); err != nil {
			return nil, err
		}
	}

	repo, err := openRepository(cfg, log)
	if err != nil {
		return nil, err
	}

	var publisher events.Publisher = events.Nop{}
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		publisher = events.NewKafkaPublisher(brokers, cfg.KafkaTopic)
	}

	ledger := service.NewLedger(repo, taxonomy,
		service.WithCategoryMode(mode),
		service.WithPublisher(publisher),
		service.WithLogger(log),
	)

	c := &Container{
		Config:     cfg,
		Log:        log,
		Repo:       repo,
		Taxonomy:   taxonomy,
		Publisher:  publisher,
		Ledger:     ledger,
		Controller: dialogue.NewController(repo, ledger, taxonomy, log),
	}
	if cfg.ChartsEnabled {
		c.Charts = charts.NewChartGenerator()
	}

	log.WithFields(logrus.Fields{
		logging.FieldStorage: cfg.Storage,
		"category_mode":      mode,
		"kafka":              len(cfg.Brokers()) > 0,
	}).Info("Зависимости инициализированы")
	return c, nil
}

func openRepository(cfg *config.Config, log logrus.FieldLogger) (repository.Repository, error) {
	switch cfg.Storage {
	case config.StorageSQLite:
		return repository.NewSQLRepository(repository.DialectSQLite, cfg.DatabasePath)
	case config.StoragePostgres:
		return repository.NewSQLRepository(repository.DialectPostgres, cfg.DatabaseURL)
	case config.StorageSupabase:
		return repository.NewSupabaseRepository(cfg.SupabaseURL, cfg.SupabaseKey, log)
	case config.StorageMemory:
		return repository.NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unknown storage %q", cfg.Storage)
	}
}

// Close закрывает хранилище и публикатор событий
func (c *Container) Close() error {
	return errors.Join(c.Publisher.Close(), c.Repo.Close())
}
