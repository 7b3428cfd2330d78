package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/companionlabs/companion/internal/domain"
)

type Store struct {
	pool    *pgxpool.Pool
	tenants *TenantRepo
	users   *UserRepo
	domains *CustomDomainRepo
}

func New(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: parse config: %w", err)
	}

	cfg.MaxConns = maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: connect: %w", err)
	}

	err = pool.Ping(ctx)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	return &Store{
		pool:    pool,
		tenants: NewTenantRepo(pool),
		users:   NewUserRepo(pool),
		domains: NewCustomDomainRepo(pool),
	}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Tenants() domain.TenantRepository       { return s.tenants }
func (s *Store) Users() domain.UserRepository           { return s.users }
func (s *Store) Domains() domain.CustomDomainRepository { return s.domains }
