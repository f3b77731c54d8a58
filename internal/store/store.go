// Package store is the persistence gateway for leads. It is
// backend-polymorphic over an embedded SQLite file and a remote Postgres
// table; callers upstream of the gateway never learn which variant is active.
package store

import (
	"context"

	"github.com/sells-group/leadscout/internal/model"
)

// Store defines the persistence contract for leads. UpsertLead is keyed by
// channel_id: an existing record's every field is overwritten and the scraped
// date is freshly stamped by the gateway (last-write-wins). Each upsert is a
// single atomic replace, safe under concurrent writers.
type Store interface {
	UpsertLead(ctx context.Context, lead *model.Lead) error
	ListLeads(ctx context.Context) ([]model.Lead, error)
	CountLeads(ctx context.Context) (int, error)

	Migrate(ctx context.Context) error
	Close() error
}
