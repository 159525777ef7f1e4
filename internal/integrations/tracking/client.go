package tracking

import (
	"context"
	"time"
)

// Result — нормализованный статус от внешнего источника, по форме совместимый
// со снапшотом кэша.
type Result struct {
	Status          string
	Description     string
	Location        *string
	DeliveredAt     *time.Time
	Source          string
	DataUnavailable bool
}

type Client interface {
	Fetch(ctx context.Context, carrierCode, trackingNumber string) (Result, error)
}
