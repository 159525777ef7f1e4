package models

import "time"

// Нормализованные статусы посылки (канонический enum; кэш и API используют
// только эти значения).
const (
	StatusUnknown        = "unknown"
	StatusInTransit      = "in-transit"
	StatusOutForDelivery = "out-for-delivery"
	StatusDelivered      = "delivered"
	StatusUnavailable    = "unavailable"
)

// Package — минимальная долговременная запись о посылке. Перевозчик здесь
// сознательно не хранится: он каждый раз выводится классификатором из номера,
// чтобы запись не устаревала при изменении таблицы паттернов.
type Package struct {
	ID                string     `json:"id"`
	TrackingNumber    string     `json:"trackingNumber"`
	AddedAt           time.Time  `json:"addedDate"`
	Notes             string     `json:"notes"`
	IsCompleted       bool       `json:"isCompleted"`
	CompletedAt       *time.Time `json:"completedDate,omitempty"`
	CompletedManually bool       `json:"-"`
	UpdatedAt         time.Time  `json:"-"`
}

// StatusSnapshot — последний известный статус посылки, целиком перезаписываемый
// при каждой проверке. Живёт только в кэше и считается отсутствующим после TTL.
type StatusSnapshot struct {
	Status            string     `json:"status"`
	StatusDescription string     `json:"statusDescription"`
	Location          *string    `json:"location,omitempty"`
	DeliveredAt       *time.Time `json:"deliveredDate,omitempty"`
	Source            string     `json:"source,omitempty"`
	DataUnavailable   bool       `json:"dataUnavailable,omitempty"`
	CachedAt          time.Time  `json:"cachedAt"`
}

// HydratedPackage — производное представление для отображения: durable-поля +
// данные классификатора + свежий снапшот статуса (или дефолты). Никогда не
// сохраняется.
type HydratedPackage struct {
	Package

	CarrierCode string `json:"carrier"`
	CarrierName string `json:"carrierName"`
	TrackingURL string `json:"trackingUrl,omitempty"`

	Status            string     `json:"status"`
	StatusDescription string     `json:"statusDescription"`
	Location          *string    `json:"location,omitempty"`
	DeliveredAt       *time.Time `json:"deliveredDate,omitempty"`
	Source            string     `json:"source,omitempty"`
	DataUnavailable   bool       `json:"dataUnavailable,omitempty"`
	LastCheckedAt     *time.Time `json:"lastChecked,omitempty"`
}

// PackagePatch — частичное обновление durable-записи. Completed включает
// и is_completed, и completed_at одной операцией.
type PackagePatch struct {
	Notes     *string
	Completed *bool
}
