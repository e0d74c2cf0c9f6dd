package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/slackmgr/todos/dynamodb"
	"github.com/slackmgr/todos/internal/config"
	"github.com/slackmgr/todos/postgres"
	"github.com/slackmgr/todos/sqlite"
	"github.com/slackmgr/todos/task"
)

// backend is a connected store that can create and verify its own schema.
type backend interface {
	task.Store
	Init(ctx context.Context, skipSchemaValidation bool) error
}

type closeFunc func(ctx context.Context) error

func noClose(context.Context) error { return nil }

// openStore connects the backend selected by cfg. The returned closeFunc
// releases its connections.
//
//nolint:ireturn
func openStore(ctx context.Context, cfg *config.Config, logger task.Logger) (backend, closeFunc, error) {
	switch cfg.StoreBackend {
	case config.BackendDynamoDB:
		return openDynamoDB(ctx, cfg.DynamoDB, logger)
	case config.BackendPostgres:
		return openPostgres(ctx, cfg.Postgres, logger)
	case config.BackendSQLite:
		return openSQLite(ctx, cfg.SQLite, logger)
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

//nolint:ireturn
func openDynamoDB(ctx context.Context, cfg config.DynamoDBConfig, logger task.Logger) (backend, closeFunc, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error

	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	if cfg.Endpoint != "" {
		awsCfg.BaseEndpoint = aws.String(cfg.Endpoint)
	}

	client := dynamodb.New(&awsCfg, cfg.TableName,
		dynamodb.WithOwnerIndexName(cfg.OwnerIndexName),
		dynamodb.WithConsistentRead(cfg.ConsistentRead),
		dynamodb.WithAPIMaxRetryAttempts(cfg.MaxRetryAttempts),
		dynamodb.WithAPIMaxRetryBackoffDelay(cfg.MaxRetryBackoff),
		dynamodb.WithLogger(logger),
	)

	if err := client.Connect(); err != nil {
		return nil, nil, err
	}

	return client, noClose, nil
}

//nolint:ireturn
func openPostgres(ctx context.Context, cfg config.PostgresConfig, logger task.Logger) (backend, closeFunc, error) {
	client := postgres.New(
		postgres.WithHost(cfg.Host),
		postgres.WithPort(cfg.Port),
		postgres.WithUser(cfg.User),
		postgres.WithPassword(cfg.Password),
		postgres.WithDatabase(cfg.Database),
		postgres.WithSSLMode(postgres.SSLMode(cfg.SSLMode)),
		postgres.WithTasksTable(cfg.Table),
		postgres.WithPoolMaxConnections(cfg.MaxConnections),
		postgres.WithLogger(logger),
	)

	if err := client.Connect(ctx); err != nil {
		return nil, nil, err
	}

	return client, client.Close, nil
}

//nolint:ireturn
func openSQLite(ctx context.Context, cfg config.SQLiteConfig, logger task.Logger) (backend, closeFunc, error) {
	client := sqlite.New(
		sqlite.WithPath(cfg.Path),
		sqlite.WithTasksTable(cfg.Table),
		sqlite.WithLogger(logger),
	)

	if err := client.Connect(ctx); err != nil {
		return nil, nil, err
	}

	return client, client.Close, nil
}
