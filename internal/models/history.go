package models

import "time"

// TelemetrySample is one recorded reservoir reading.
type TelemetrySample struct {
	RecordedAt        time.Time `json:"recorded_at"`
	FoodReservoirPct  float64   `json:"food_reservoir_pct"`
	WaterReservoirPct float64   `json:"water_reservoir_pct"`
	FoodWeightGrams   float64   `json:"food_weight_g"`
}

// HistoryPoint is an hourly average of reservoir levels.
type HistoryPoint struct {
	Hour              time.Time `json:"hour"`
	FoodReservoirPct  float64   `json:"food_reservoir_pct"`
	WaterReservoirPct float64   `json:"water_reservoir_pct"`
	Samples           int       `json:"samples"`
}

// PushSubscription is a browser web push endpoint.
type PushSubscription struct {
	Endpoint  string    `json:"endpoint"`
	P256DH    string    `json:"p256dh"`
	Auth      string    `json:"auth"`
	CreatedAt time.Time `json:"created_at"`
}
