package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/leadscout/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// username carries no UNIQUE constraint: it is unique in practice for leads
// from one source, but synthetic and native channel IDs for the same handle
// must both remain storable.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	channel_id    INTEGER PRIMARY KEY,
	username      TEXT,
	title         TEXT NOT NULL,
	category_tag  TEXT NOT NULL DEFAULT '',
	members_count INTEGER NOT NULL DEFAULT 0,
	bio_text      TEXT,
	admin_contact TEXT,
	scraped_date  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_leads_username ON leads(username);
CREATE INDEX IF NOT EXISTS idx_leads_scraped_date ON leads(scraped_date);
CREATE INDEX IF NOT EXISTS idx_leads_category_tag ON leads(category_tag);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertLead(ctx context.Context, lead *model.Lead) error {
	lead.ScrapedDate = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leads (
			channel_id, username, title, category_tag,
			members_count, bio_text, admin_contact, scraped_date
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(channel_id) DO UPDATE SET
			username = excluded.username,
			title = excluded.title,
			category_tag = excluded.category_tag,
			members_count = excluded.members_count,
			bio_text = excluded.bio_text,
			admin_contact = excluded.admin_contact,
			scraped_date = excluded.scraped_date`,
		lead.ChannelID, nullIfEmpty(lead.Username), lead.Title, lead.CategoryTag,
		lead.MembersCount, nullIfEmpty(lead.BioText), nullIfEmpty(lead.AdminContact),
		lead.ScrapedDate,
	)
	return eris.Wrapf(err, "sqlite: upsert lead %d", lead.ChannelID)
}

func (s *SQLiteStore) ListLeads(ctx context.Context) ([]model.Lead, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT channel_id, username, title, category_tag,
		       members_count, bio_text, admin_contact, scraped_date
		FROM leads
		ORDER BY scraped_date DESC`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list leads")
	}
	defer rows.Close()

	var leads []model.Lead
	for rows.Next() {
		var (
			l                       model.Lead
			username, bio, contacts sql.NullString
		)
		if err := rows.Scan(&l.ChannelID, &username, &l.Title, &l.CategoryTag,
			&l.MembersCount, &bio, &contacts, &l.ScrapedDate); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		l.Username = username.String
		l.BioText = bio.String
		l.AdminContact = contacts.String
		leads = append(leads, l)
	}
	return leads, eris.Wrap(rows.Err(), "sqlite: list leads iterate")
}

func (s *SQLiteStore) CountLeads(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads`).Scan(&count)
	return count, eris.Wrap(err, "sqlite: count leads")
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
