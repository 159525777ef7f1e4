package pgparcels

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/BearBump/ParcelBox/internal/models"
)

const parcelColumns = `
  id, tracking_number, added_at, notes,
  is_completed, completed_at, completed_manually,
  updated_at`

// CreatePackage вставляет новую запись с только что выданным id.
// Уникальность номера здесь не проверяется: это обязанность вызывающего
// (service делает set-membership проверку по всем существующим номерам).
func (s *Storage) CreatePackage(ctx context.Context, trackingNumber string) (*models.Package, error) {
	now := time.Now().UTC()
	p := &models.Package{
		ID:             uuid.NewString(),
		TrackingNumber: trackingNumber,
		AddedAt:        now,
		UpdatedAt:      now,
	}

	_, err := s.db.Exec(ctx, `
INSERT INTO parcels (id, tracking_number, added_at, notes, is_completed, completed_at, completed_manually, updated_at)
VALUES ($1,$2,$3,'',FALSE,NULL,FALSE,$3)
`, p.ID, p.TrackingNumber, now)
	if err != nil {
		return nil, errors.Wrap(err, "insert parcel")
	}
	return p, nil
}

// GetPackage возвращает (nil, nil), если записи нет.
func (s *Storage) GetPackage(ctx context.Context, id string) (*models.Package, error) {
	row := s.db.QueryRow(ctx, `SELECT`+parcelColumns+` FROM parcels WHERE id = $1`, id)
	p, err := scanParcel(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select parcel")
	}
	return p, nil
}

func (s *Storage) ListPackages(ctx context.Context) ([]*models.Package, error) {
	rows, err := s.db.Query(ctx, `SELECT`+parcelColumns+` FROM parcels ORDER BY added_at DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "select parcels")
	}
	defer rows.Close()

	out := make([]*models.Package, 0)
	for rows.Next() {
		p, err := scanParcel(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan parcel")
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

// UpdatePackage применяет частичный патч. Переключение завершённости всегда
// выставляет is_completed и completed_at одной операцией: повторное
// завершение сохраняет исходный completed_at, снятие флага обнуляет дату.
// Любое явное переключение помечается completed_manually.
// Для неизвестного id возвращается (nil, nil).
func (s *Storage) UpdatePackage(ctx context.Context, id string, patch models.PackagePatch) (*models.Package, error) {
	now := time.Now().UTC()

	row := s.db.QueryRow(ctx, `
UPDATE parcels
SET
  notes = COALESCE($2, notes),
  is_completed = COALESCE($3, is_completed),
  completed_manually = (completed_manually OR $3 IS NOT NULL),
  completed_at = CASE
    WHEN $3 IS NULL THEN completed_at
    WHEN $3 AND is_completed THEN completed_at
    WHEN $3 THEN $4
    ELSE NULL
  END,
  updated_at = $4
WHERE id = $1
RETURNING`+parcelColumns+`
`, id, patch.Notes, patch.Completed, now)

	p, err := scanParcel(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "update parcel")
	}
	return p, nil
}

func (s *Storage) DeletePackage(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM parcels WHERE id = $1`, id)
	return errors.Wrap(err, "delete parcel")
}

// DeleteAllPackages чистит весь keyspace и возвращает id удалённых записей,
// чтобы вызывающий мог каскадно снести их кэш-записи.
func (s *Storage) DeleteAllPackages(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `DELETE FROM parcels RETURNING id`)
	if err != nil {
		return nil, errors.Wrap(err, "delete all parcels")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.Wrap(err, "scan deleted id")
		}
		ids = append(ids, id)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return ids, nil
}

// ListCompletedBefore выбирает кандидатов retention-скана: записи, завершённые
// вручную раньше cutoff.
func (s *Storage) ListCompletedBefore(ctx context.Context, cutoff time.Time) ([]*models.Package, error) {
	rows, err := s.db.Query(ctx, `
SELECT`+parcelColumns+`
FROM parcels
WHERE is_completed AND completed_manually AND completed_at < $1
`, cutoff.UTC())
	if err != nil {
		return nil, errors.Wrap(err, "select completed parcels")
	}
	defer rows.Close()

	var out []*models.Package
	for rows.Next() {
		p, err := scanParcel(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan parcel")
		}
		out = append(out, p)
	}
	if rows.Err() != nil {
		return nil, errors.Wrap(rows.Err(), "rows")
	}
	return out, nil
}

func scanParcel(row pgx.Row) (*models.Package, error) {
	var p models.Package
	var completedAt *time.Time
	if err := row.Scan(
		&p.ID, &p.TrackingNumber, &p.AddedAt, &p.Notes,
		&p.IsCompleted, &completedAt, &p.CompletedManually,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.CompletedAt = completedAt
	return &p, nil
}
