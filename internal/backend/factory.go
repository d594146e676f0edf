package backend

import (
	"context"
	"fmt"

	"saldo/internal/amqp"
	"saldo/internal/log"
	"saldo/internal/services"
	"saldo/internal/storage"
	"saldo/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend opens the repository for config.Type. A configured but
// unreachable broker is logged and the backend runs without notifications.
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	var repo storage.Repository
	switch config.Type {
	case SQLiteBackend:
		sqliteRepo, err := storage.NewSQLiteRepository(config.SQLiteDBPath, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
		repo = sqliteRepo
	case MemoryBackend:
		repo = memory.New()
		f.logger.InfoContext(ctx, "Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}

	var publisher services.Publisher
	if config.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without change notifications",
				log.FieldError, err.Error())
		} else {
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
			publisher = amqpClient
		}
	}

	ledger := services.NewLedgerService(repo, publisher, f.logger)
	return &BackendResult{
		Repository: repo,
		Ledger:     ledger,
		Cleanup:    ledger.Close,
	}, nil
}
