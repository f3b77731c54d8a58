package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadscout/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses, defined as an interface
// so pgxmock can stand in during tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresStore implements Store against a remote managed Postgres table,
// reachable by connection URL with embedded credentials.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS leads (
	channel_id    BIGINT PRIMARY KEY,
	username      TEXT,
	title         TEXT NOT NULL,
	category_tag  TEXT NOT NULL DEFAULT '',
	members_count INTEGER NOT NULL DEFAULT 0,
	bio_text      TEXT,
	admin_contact TEXT,
	scraped_date  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_leads_username ON leads(username);
CREATE INDEX IF NOT EXISTS idx_leads_scraped_date ON leads(scraped_date);
CREATE INDEX IF NOT EXISTS idx_leads_category_tag ON leads(category_tag);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) UpsertLead(ctx context.Context, lead *model.Lead) error {
	lead.ScrapedDate = time.Now().UTC()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO leads (
			channel_id, username, title, category_tag,
			members_count, bio_text, admin_contact, scraped_date
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (channel_id) DO UPDATE SET
			username = EXCLUDED.username,
			title = EXCLUDED.title,
			category_tag = EXCLUDED.category_tag,
			members_count = EXCLUDED.members_count,
			bio_text = EXCLUDED.bio_text,
			admin_contact = EXCLUDED.admin_contact,
			scraped_date = EXCLUDED.scraped_date`,
		lead.ChannelID, nullIfEmpty(lead.Username), lead.Title, lead.CategoryTag,
		lead.MembersCount, nullIfEmpty(lead.BioText), nullIfEmpty(lead.AdminContact),
		lead.ScrapedDate,
	)
	return eris.Wrapf(err, "postgres: upsert lead %d", lead.ChannelID)
}

func (s *PostgresStore) ListLeads(ctx context.Context) ([]model.Lead, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT channel_id, username, title, category_tag,
		       members_count, bio_text, admin_contact, scraped_date
		FROM leads
		ORDER BY scraped_date DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		var (
			l                       model.Lead
			username, bio, contacts *string
		)
		if err := rows.Scan(&l.ChannelID, &username, &l.Title, &l.CategoryTag,
			&l.MembersCount, &bio, &contacts, &l.ScrapedDate); err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		l.Username = deref(username)
		l.BioText = deref(bio)
		l.AdminContact = deref(contacts)
		leads = append(leads, l)
	}
	return leads, eris.Wrap(rows.Err(), "postgres: list leads iterate")
}

func (s *PostgresStore) CountLeads(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM leads`).Scan(&count)
	return count, eris.Wrap(err, "postgres: count leads")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
