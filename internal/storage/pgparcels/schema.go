package pgparcels

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS parcels (
  id TEXT PRIMARY KEY,
  tracking_number TEXT NOT NULL,
  added_at TIMESTAMPTZ NOT NULL,
  notes TEXT NOT NULL DEFAULT '',
  is_completed BOOLEAN NOT NULL DEFAULT FALSE,
  completed_at TIMESTAMPTZ NULL,
  completed_manually BOOLEAN NOT NULL DEFAULT FALSE,
  updated_at TIMESTAMPTZ NOT NULL
)`,
		// Проверка "этот номер уже отслеживается" идёт по точному значению.
		`CREATE INDEX IF NOT EXISTS idx_parcels_tracking_number ON parcels(tracking_number)`,
		// Retention-скан на старте выбирает по completed_at.
		`CREATE INDEX IF NOT EXISTS idx_parcels_completed_at ON parcels(completed_at) WHERE is_completed`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
