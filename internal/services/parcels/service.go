package parcels

import (
	"context"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/BearBump/ParcelBox/internal/carriers"
	"github.com/BearBump/ParcelBox/internal/integrations/tracking"
	"github.com/BearBump/ParcelBox/internal/models"
)

type Repository interface {
	CreatePackage(ctx context.Context, trackingNumber string) (*models.Package, error)
	GetPackage(ctx context.Context, id string) (*models.Package, error)
	ListPackages(ctx context.Context) ([]*models.Package, error)
	UpdatePackage(ctx context.Context, id string, patch models.PackagePatch) (*models.Package, error)
	DeletePackage(ctx context.Context, id string) error
	DeleteAllPackages(ctx context.Context) ([]string, error)
	ListCompletedBefore(ctx context.Context, cutoff time.Time) ([]*models.Package, error)
}

type StatusCache interface {
	Get(ctx context.Context, id string) (*models.StatusSnapshot, bool, error)
	Set(ctx context.Context, id string, snap models.StatusSnapshot) error
	Delete(ctx context.Context, id string) error
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

// Service связывает durable-хранилище, кэш статусов, классификатор и внешний
// источник статусов. Все операции короткие и синхронные, кроме refresh:
// он единственный ходит в сеть.
type Service struct {
	repo     Repository
	cache    StatusCache
	registry *carriers.Registry
	client   tracking.Client
	rl       RateLimiter

	autoCompleteAfter time.Duration
	retentionMonths   int
	concurrency       int
	ratePerMinute     int64

	// Грубый гейт целиковых refresh'ей: пока одна пачка в полёте,
	// вторая не стартует.
	refreshing atomic.Bool

	totalRefreshed      atomic.Int64
	totalErrors         atomic.Int64
	inFlight            atomic.Int64
	lastRefreshUnixNano atomic.Int64

	now func() time.Time
}

func New(repo Repository, cache StatusCache, registry *carriers.Registry, client tracking.Client) *Service {
	return &Service{
		repo:              repo,
		cache:             cache,
		registry:          registry,
		client:            client,
		autoCompleteAfter: 7 * 24 * time.Hour,
		retentionMonths:   3,
		concurrency:       5,
		ratePerMinute:     60,
		now:               time.Now,
	}
}

func (s *Service) WithSettings(autoCompleteAfter time.Duration, retentionMonths, concurrency int, ratePerMinute int64) *Service {
	if autoCompleteAfter > 0 {
		s.autoCompleteAfter = autoCompleteAfter
	}
	if retentionMonths > 0 {
		s.retentionMonths = retentionMonths
	}
	if concurrency > 0 {
		s.concurrency = concurrency
	}
	if ratePerMinute > 0 {
		s.ratePerMinute = ratePerMinute
	}
	return s
}

func (s *Service) WithRateLimiter(rl RateLimiter) *Service {
	s.rl = rl
	return s
}

// AddFromText парсит свободный текст, отбрасывает уже отслеживаемые номера
// (точное совпадение) и создаёт durable-записи. Статусы новых посылок
// подтягиваются отдельным refresh'ем.
func (s *Service) AddFromText(ctx context.Context, text string) ([]*models.HydratedPackage, error) {
	candidates := s.registry.ExtractCandidates(text)
	if len(candidates) == 0 {
		return nil, errors.New("no tracking numbers found")
	}

	existing, err := s.repo.ListPackages(ctx)
	if err != nil {
		return nil, err
	}
	tracked := make(map[string]struct{}, len(existing))
	for _, p := range existing {
		tracked[p.TrackingNumber] = struct{}{}
	}

	fresh := make([]string, 0, len(candidates))
	for _, n := range candidates {
		if _, ok := tracked[n]; ok {
			continue
		}
		fresh = append(fresh, n)
	}
	if len(fresh) == 0 {
		return nil, errors.New("all tracking numbers are already tracked")
	}

	out := make([]*models.HydratedPackage, 0, len(fresh))
	for _, n := range fresh {
		p, err := s.repo.CreatePackage(ctx, n)
		if err != nil {
			return nil, err
		}
		out = append(out, s.Hydrate(ctx, p))
	}
	return out, nil
}

// List возвращает гидрированные посылки, свежая активность сверху.
// includeCompleted учитывает эффективную (в т.ч. авто-выведенную) завершённость.
func (s *Service) List(ctx context.Context, includeCompleted bool) ([]*models.HydratedPackage, error) {
	pkgs, err := s.repo.ListPackages(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*models.HydratedPackage, 0, len(pkgs))
	for _, p := range pkgs {
		h := s.Hydrate(ctx, p)
		if !includeCompleted && h.IsCompleted {
			continue
		}
		out = append(out, h)
	}

	sortByActivity(out)
	return out, nil
}

// Get возвращает (nil, nil), если посылки нет.
func (s *Service) Get(ctx context.Context, id string) (*models.HydratedPackage, error) {
	p, err := s.repo.GetPackage(ctx, id)
	if err != nil || p == nil {
		return nil, err
	}
	return s.Hydrate(ctx, p), nil
}

// Update применяет патч заметок и/или ручной завершённости.
// Для неизвестного id — (nil, nil), решает вызывающий.
func (s *Service) Update(ctx context.Context, id string, patch models.PackagePatch) (*models.HydratedPackage, error) {
	p, err := s.repo.UpdatePackage(ctx, id, patch)
	if err != nil || p == nil {
		return nil, err
	}
	return s.Hydrate(ctx, p), nil
}

// Delete удаляет запись и каскадно её кэш-запись, чтобы не оставлять
// осиротевших строк в кэше.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeletePackage(ctx, id); err != nil {
		return err
	}
	if err := s.cache.Delete(ctx, id); err != nil {
		slog.Warn("cascade cache delete failed", "parcel_id", id, "error", err.Error())
	}
	return nil
}

// Clear сносит все записи вместе с их кэшем.
func (s *Service) Clear(ctx context.Context) error {
	ids, err := s.repo.DeleteAllPackages(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := s.cache.Delete(ctx, id); err != nil {
			slog.Warn("cascade cache delete failed", "parcel_id", id, "error", err.Error())
		}
	}
	return nil
}

// Sweep — разовый retention-проход на старте: вручную завершённые посылки,
// неактивные дольше retention-окна, удаляются каскадно. Возвращает число
// удалённых записей.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().AddDate(0, -s.retentionMonths, 0)
	old, err := s.repo.ListCompletedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	for _, p := range old {
		if err := s.Delete(ctx, p.ID); err != nil {
			return 0, err
		}
	}
	if len(old) > 0 {
		slog.Info("retention sweep removed old parcels", "count", len(old))
	}
	return len(old), nil
}

func sortByActivity(pkgs []*models.HydratedPackage) {
	activity := func(h *models.HydratedPackage) time.Time {
		if h.LastCheckedAt != nil {
			return *h.LastCheckedAt
		}
		return h.AddedAt
	}
	sort.SliceStable(pkgs, func(i, j int) bool {
		return activity(pkgs[i]).After(activity(pkgs[j]))
	})
}
