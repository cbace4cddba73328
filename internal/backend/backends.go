package backend

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/records-service/internal/domain"
	"github.com/spec-kit/records-service/internal/persistence"
	"github.com/spec-kit/records-service/internal/storage"
	"github.com/spec-kit/records-service/internal/storage/kv"
	"github.com/spec-kit/records-service/internal/storage/memory"
	"github.com/spec-kit/records-service/internal/storage/relational"
)

var errNoConfig = errors.New("backend requires configuration")

// ItemBackends lists the adapters available for personnel records.
func ItemBackends() *Registry[domain.Item] {
	r := NewRegistry[domain.Item]()
	r.Register("memory", func(Deps) (storage.Store[domain.Item], error) {
		return memory.New[domain.Item](domain.ItemSchema{}), nil
	})
	r.Register("postgres", func(d Deps) (storage.Store[domain.Item], error) {
		if d.Config == nil {
			return nil, errNoConfig
		}
		return relational.New(relational.ItemTable, postgresDriver(d), d.logger()), nil
	})
	r.Register("sqlite", func(d Deps) (storage.Store[domain.Item], error) {
		if d.Config == nil {
			return nil, errNoConfig
		}
		return relational.New(relational.ItemTable, sqliteDriver(d), d.logger()), nil
	})
	return r
}

// TicketBackends lists the adapters available for tickets.
func TicketBackends() *Registry[domain.Ticket] {
	r := NewRegistry[domain.Ticket]()
	r.Register("memory", func(Deps) (storage.Store[domain.Ticket], error) {
		return memory.New[domain.Ticket](domain.TicketSchema{}), nil
	})
	r.Register("postgres", func(d Deps) (storage.Store[domain.Ticket], error) {
		if d.Config == nil {
			return nil, errNoConfig
		}
		return relational.New(relational.TicketTable, postgresDriver(d), d.logger()), nil
	})
	r.Register("sqlite", func(d Deps) (storage.Store[domain.Ticket], error) {
		if d.Config == nil {
			return nil, errNoConfig
		}
		return relational.New(relational.TicketTable, sqliteDriver(d), d.logger()), nil
	})
	r.Register("redis", func(d Deps) (storage.Store[domain.Ticket], error) {
		if d.Config == nil {
			return nil, errNoConfig
		}
		cfg := d.Config.Redis
		dial := func(ctx context.Context) (*redis.Client, error) {
			return persistence.NewRedis(ctx, cfg, d.logger())
		}
		return kv.NewRedisStore[domain.Ticket](domain.TicketSchema{}, dial, cfg.KeyPrefix, relational.TicketTable.Name, d.logger()), nil
	})
	r.Register("dynamodb", func(d Deps) (storage.Store[domain.Ticket], error) {
		if d.Config == nil {
			return nil, errNoConfig
		}
		cfg := d.Config.DynamoDB
		dial := func(ctx context.Context) (kv.DynamoAPI, error) {
			client, err := persistence.NewDynamoDB(ctx, cfg, d.logger())
			if err != nil {
				return nil, err
			}
			return client, nil
		}
		return kv.NewDynamoStore[domain.Ticket](domain.TicketSchema{}, dial, cfg.Table, d.logger()), nil
	})
	return r
}

func postgresDriver(d Deps) relational.Driver {
	cfg := d.Config.Postgres
	return relational.Postgres(func(ctx context.Context) (*pgxpool.Pool, error) {
		return persistence.NewPostgresPool(ctx, cfg, d.logger())
	})
}

func sqliteDriver(d Deps) relational.Driver {
	cfg := d.Config.SQLite
	return relational.SQLite(func(ctx context.Context) (*sql.DB, error) {
		return persistence.OpenSQLite(ctx, cfg, d.logger())
	})
}
