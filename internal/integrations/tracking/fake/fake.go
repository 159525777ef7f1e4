package fake

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/BearBump/ParcelBox/internal/integrations/tracking"
	"github.com/BearBump/ParcelBox/internal/models"
)

// FakeClient — детерминированная заглушка источника статусов для локальной
// разработки и тестов: статус выводится из хэша (carrier, trackingNumber),
// часть посылок получается доставленной.
type FakeClient struct{}

func New() *FakeClient { return &FakeClient{} }

func (f *FakeClient) Fetch(ctx context.Context, carrierCode, trackingNumber string) (tracking.Result, error) {
	now := time.Now().UTC()

	h := fnv.New32a()
	_, _ = h.Write([]byte(carrierCode))
	_, _ = h.Write([]byte("|"))
	_, _ = h.Write([]byte(trackingNumber))
	v := h.Sum32()

	loc := "Distribution Center"
	res := tracking.Result{
		Status:      models.StatusInTransit,
		Description: "Package is in transit",
		Location:    &loc,
		Source:      "Fake Carrier",
	}

	switch v % 5 {
	case 0:
		// ~20% треков — доставлены; возраст доставки тоже детерминированный,
		// чтобы у части посылок срабатывало авто-завершение.
		delivered := now.AddDate(0, 0, -int(v%14)).Add(-time.Hour)
		res.Status = models.StatusDelivered
		res.Description = "Delivered"
		res.DeliveredAt = &delivered
	case 1:
		res.Status = models.StatusOutForDelivery
		res.Description = "Out for delivery"
	}

	return res, nil
}
