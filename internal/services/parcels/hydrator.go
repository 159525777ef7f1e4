package parcels

import (
	"context"
	"log/slog"
	"time"

	"github.com/BearBump/ParcelBox/internal/models"
)

const defaultStatusDescription = "Not checked yet"

// Hydrate собирает отображаемое представление: durable-поля + вывод
// классификатора + свежий снапшот кэша (или дефолты "не проверялось").
// Функция чистая относительно своих входов: без промежуточных записей два
// вызова подряд дают одинаковый результат (с точностью до пересечения
// TTL-границы кэша между вызовами — это допустимая недетерминированность).
func (s *Service) Hydrate(ctx context.Context, p *models.Package) *models.HydratedPackage {
	h := &models.HydratedPackage{
		Package:           *p,
		CarrierName:       "Unknown",
		Status:            models.StatusUnknown,
		StatusDescription: defaultStatusDescription,
	}

	if c := s.registry.Classify(p.TrackingNumber); c != nil {
		h.CarrierCode = c.Code
		h.CarrierName = c.Name
		h.TrackingURL = c.TrackingURL(p.TrackingNumber)
	}

	snap, ok, err := s.cache.Get(ctx, p.ID)
	if err != nil {
		// Недоступный кэш не ломает чтение: деградируем до "не проверялось".
		slog.Warn("status cache read failed", "parcel_id", p.ID, "error", err.Error())
	}
	if ok {
		h.Status = snap.Status
		h.StatusDescription = snap.StatusDescription
		h.Location = snap.Location
		h.DeliveredAt = snap.DeliveredAt
		h.Source = snap.Source
		h.DataUnavailable = snap.DataUnavailable
		checked := snap.CachedAt
		h.LastCheckedAt = &checked
	}

	h.IsCompleted, h.CompletedAt = s.effectiveCompletion(p, h)
	return h
}

// effectiveCompletion: явный пользовательский флаг берётся как есть; если
// пользователь его ни разу не трогал, завершённость выводится из доставки
// старше окна авто-завершения, а датой считается доставка + окно.
func (s *Service) effectiveCompletion(p *models.Package, h *models.HydratedPackage) (bool, *time.Time) {
	if p.CompletedManually {
		return p.IsCompleted, p.CompletedAt
	}
	if h.Status == models.StatusDelivered && h.DeliveredAt != nil {
		if s.now().UTC().Sub(*h.DeliveredAt) >= s.autoCompleteAfter {
			done := h.DeliveredAt.Add(s.autoCompleteAfter)
			return true, &done
		}
	}
	return false, nil
}
