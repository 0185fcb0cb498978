package repository

import (
	"log/slog"

	"github.com/central-university-dev/linktracker/internal/config"
	"github.com/central-university-dev/linktracker/internal/database"
	"github.com/central-university-dev/linktracker/internal/domain/errors"
	"github.com/central-university-dev/linktracker/internal/scrapper/repository/memory"
	"github.com/central-university-dev/linktracker/internal/scrapper/repository/orm"
	sqlrepo "github.com/central-university-dev/linktracker/internal/scrapper/repository/sql"
	"github.com/central-university-dev/linktracker/pkg/txs"
)

type Factory struct {
	db        *database.PostgresDB
	txManager *txs.TxManager
	memory    *memory.Store
	config    *config.Config
	logger    *slog.Logger
}

// NewFactory builds repositories for cfg.DatabaseAccessType. db may be nil
// for the MEMORY access type.
func NewFactory(db *database.PostgresDB, cfg *config.Config, logger *slog.Logger) *Factory {
	f := &Factory{
		db:     db,
		config: cfg,
		logger: logger,
	}

	if db != nil {
		f.txManager = txs.NewTxManager(db.Pool, logger)
	}

	return f
}

func (f *Factory) CreateLinkRepository() (LinkRepository, error) {
	switch f.config.DatabaseAccessType {
	case config.SquirrelAccess:
		f.logger.Info("Создание ORM (Squirrel) репозитория ссылок")
		return orm.NewLinkRepository(f.db, f.txManager), nil
	case config.SQLAccess:
		f.logger.Info("Создание SQL репозитория ссылок")
		return sqlrepo.NewLinkRepository(f.db, f.txManager), nil
	case config.MemoryAccess:
		f.logger.Info("Создание in-memory репозитория ссылок")
		return f.memoryStore().Links(), nil
	default:
		return nil, &errors.ErrUnknownDBAccessType{AccessType: string(f.config.DatabaseAccessType)}
	}
}

func (f *Factory) CreateChatRepository() (ChatRepository, error) {
	switch f.config.DatabaseAccessType {
	case config.SquirrelAccess:
		f.logger.Info("Создание ORM (Squirrel) репозитория чатов")
		return orm.NewChatRepository(f.db), nil
	case config.SQLAccess:
		f.logger.Info("Создание SQL репозитория чатов")
		return sqlrepo.NewChatRepository(f.db), nil
	case config.MemoryAccess:
		f.logger.Info("Создание in-memory репозитория чатов")
		return f.memoryStore().Chats(), nil
	default:
		return nil, &errors.ErrUnknownDBAccessType{AccessType: string(f.config.DatabaseAccessType)}
	}
}

// memoryStore shares one store between links and chats so subscriptions and
// delivery modes stay consistent.
func (f *Factory) memoryStore() *memory.Store {
	if f.memory == nil {
		f.memory = memory.NewStore()
	}

	return f.memory
}
