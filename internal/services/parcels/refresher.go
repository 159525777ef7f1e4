package parcels

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BearBump/ParcelBox/internal/models"
)

// RefreshAll запрашивает статусы всех незавершённых посылок параллельно.
// Возвращает false, если другая пачка ещё в полёте: повторный целиковый
// refresh при незавершённом предыдущем — no-op, а не ошибка. Отмены уже
// запущенных запросов нет: запрос, стартовавший до снятия гейта, допишет
// свой результат в кэш (записи — идемпотентные снапшоты, last-write-wins).
func (s *Service) RefreshAll(ctx context.Context) (bool, error) {
	if !s.refreshing.CompareAndSwap(false, true) {
		return false, nil
	}
	defer s.refreshing.Store(false)

	s.lastRefreshUnixNano.Store(s.now().UTC().UnixNano())

	pkgs, err := s.repo.ListPackages(ctx)
	if err != nil {
		return true, err
	}

	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup
	for _, p := range pkgs {
		h := s.Hydrate(ctx, p)
		if h.IsCompleted {
			continue
		}
		sem <- struct{}{}
		wg.Add(1)
		pCopy := p
		s.inFlight.Add(1)
		go func() {
			defer func() {
				s.inFlight.Add(-1)
				<-sem
				wg.Done()
			}()
			s.refreshInto(ctx, pCopy)
		}()
	}
	wg.Wait()
	return true, nil
}

// RefreshOne обновляет одну посылку вне гейта: точечные refresh'и могут идти
// параллельно друг с другом и с пачкой. Для неизвестного id — (nil, nil).
func (s *Service) RefreshOne(ctx context.Context, id string) (*models.HydratedPackage, error) {
	p, err := s.repo.GetPackage(ctx, id)
	if err != nil || p == nil {
		return nil, err
	}
	s.refreshInto(ctx, p)
	return s.Hydrate(ctx, p), nil
}

// refreshInto делает один внешний запрос и кладёт результат в кэш.
// Любой сбой источника локализуется в снапшот "unavailable" с отсылкой на
// сайт перевозчика; наружу транспортные ошибки не выходят.
func (s *Service) refreshInto(ctx context.Context, p *models.Package) {
	carrierCode := "unknown"
	carrierName := "the carrier"
	if c := s.registry.Classify(p.TrackingNumber); c != nil {
		carrierCode = c.Code
		carrierName = c.Name
	}

	if s.rl != nil && s.ratePerMinute > 0 && carrierCode != "unknown" {
		minuteKey := fmt.Sprintf("rl:refresh:%s:%s", carrierCode, s.now().UTC().Format("200601021504"))
		allowed, n, err := s.rl.Allow(ctx, minuteKey, s.ratePerMinute, 70*time.Second)
		if err != nil {
			slog.Warn("refresh rate limit check failed", "carrier", carrierCode, "error", err.Error())
		} else if !allowed {
			// Превысили лимит запросов в минуту: притормозим, чтобы
			// разгрузить источник.
			slog.Warn("refresh rate limit exceeded", "carrier", carrierCode, "count", n)
			time.Sleep(500 * time.Millisecond)
		}
	}

	now := s.now().UTC()
	var snap models.StatusSnapshot

	res, err := s.client.Fetch(ctx, carrierCode, p.TrackingNumber)
	if err != nil {
		s.totalErrors.Add(1)
		slog.Warn("tracking fetch failed", "parcel_id", p.ID, "carrier", carrierCode, "error", err.Error())
		snap = models.StatusSnapshot{
			Status:            models.StatusUnavailable,
			StatusDescription: fmt.Sprintf("Visit %s's website for official tracking information.", carrierName),
			DataUnavailable:   true,
			CachedAt:          now,
		}
	} else {
		snap = models.StatusSnapshot{
			Status:            res.Status,
			StatusDescription: res.Description,
			Location:          res.Location,
			DeliveredAt:       res.DeliveredAt,
			Source:            res.Source,
			DataUnavailable:   res.DataUnavailable,
			CachedAt:          now,
		}
	}

	if err := s.cache.Set(ctx, p.ID, snap); err != nil {
		s.totalErrors.Add(1)
		slog.Error("status cache write failed", "parcel_id", p.ID, "error", err.Error())
		return
	}
	s.totalRefreshed.Add(1)
}

type Stats struct {
	Refreshing     bool       `json:"refreshing"`
	TotalRefreshed int64      `json:"totalRefreshed"`
	TotalErrors    int64      `json:"totalErrors"`
	InFlight       int64      `json:"inFlight"`
	LastRefreshAt  *time.Time `json:"lastRefreshAt,omitempty"`
}

func (s *Service) Stats() Stats {
	st := Stats{
		Refreshing:     s.refreshing.Load(),
		TotalRefreshed: s.totalRefreshed.Load(),
		TotalErrors:    s.totalErrors.Load(),
		InFlight:       s.inFlight.Load(),
	}
	if n := s.lastRefreshUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastRefreshAt = &t
	}
	return st
}
