package models

// Reservoir and bowl constants shared by the simulator, reconciler and the
// state view.
const (
	LowLevelThresholdPct = 20.0

	FoodCapacityGrams = 1000.0
	WaterCapacityMl   = 1000.0

	// food bowl reads FILLED above this weight
	FoodBowlFilledGrams = 10.0
)

// DeviceSnapshot is the authoritative device state at an instant.
type DeviceSnapshot struct {
	FoodWeightGrams   float64 `json:"food_weight_g"`
	WaterBowlWet      bool    `json:"water_bowl_wet"`
	GasDetected       bool    `json:"mq_gas_detected"`
	MotionDetected    bool    `json:"pir_motion_detected"`
	PumpActive        bool    `json:"pump_active"`
	FoodReservoirPct  float64 `json:"food_reservoir_pct"`  // 0..100
	WaterReservoirPct float64 `json:"water_reservoir_pct"` // 0..100
	Timestamp         string  `json:"timestamp"`           // display only
}

// DefaultSnapshot is the state a session starts from before any telemetry.
func DefaultSnapshot(timestamp string) DeviceSnapshot {
	return DeviceSnapshot{
		FoodWeightGrams:   0,
		WaterBowlWet:      true,
		GasDetected:       false,
		MotionDetected:    false,
		PumpActive:        false,
		FoodReservoirPct:  100,
		WaterReservoirPct: 100,
		Timestamp:         timestamp,
	}
}

// SnapshotPatch is a possibly partial device document. Nil fields were absent.
type SnapshotPatch struct {
	FoodWeightGrams   *float64 `json:"food_weight_g,omitempty"`
	WaterBowlWet      *bool    `json:"water_bowl_wet,omitempty"`
	GasDetected       *bool    `json:"mq_gas_detected,omitempty"`
	MotionDetected    *bool    `json:"pir_motion_detected,omitempty"`
	PumpActive        *bool    `json:"pump_active,omitempty"`
	FoodReservoirPct  *float64 `json:"food_reservoir_pct,omitempty"`
	WaterReservoirPct *float64 `json:"water_reservoir_pct,omitempty"`
	Timestamp         *string  `json:"timestamp,omitempty"`
}

// Merge applies the fields present in p on top of s and clamps percentages.
// Absent fields keep their last-known value.
func (s DeviceSnapshot) Merge(p SnapshotPatch) DeviceSnapshot {
	if p.FoodWeightGrams != nil {
		s.FoodWeightGrams = *p.FoodWeightGrams
	}
	if p.WaterBowlWet != nil {
		s.WaterBowlWet = *p.WaterBowlWet
	}
	if p.GasDetected != nil {
		s.GasDetected = *p.GasDetected
	}
	if p.MotionDetected != nil {
		s.MotionDetected = *p.MotionDetected
	}
	if p.PumpActive != nil {
		s.PumpActive = *p.PumpActive
	}
	if p.FoodReservoirPct != nil {
		s.FoodReservoirPct = *p.FoodReservoirPct
	}
	if p.WaterReservoirPct != nil {
		s.WaterReservoirPct = *p.WaterReservoirPct
	}
	if p.Timestamp != nil {
		s.Timestamp = *p.Timestamp
	}
	return s.Clamped()
}

// Clamped returns s with both reservoir percentages forced into [0,100]
// and a non-negative food weight.
func (s DeviceSnapshot) Clamped() DeviceSnapshot {
	s.FoodReservoirPct = ClampPct(s.FoodReservoirPct)
	s.WaterReservoirPct = ClampPct(s.WaterReservoirPct)
	if s.FoodWeightGrams < 0 {
		s.FoodWeightGrams = 0
	}
	return s
}

// IsCritical reports whether the top-level alert banner should be shown.
func (s DeviceSnapshot) IsCritical() bool {
	return s.GasDetected || s.MotionDetected || !s.WaterBowlWet
}

// AlertReason names the most important active alarm, or "" when not critical.
func (s DeviceSnapshot) AlertReason() string {
	switch {
	case s.GasDetected:
		return "Hazardous Atmosphere Detected"
	case s.MotionDetected:
		return "Perimeter Breach"
	case !s.WaterBowlWet:
		return "System Check Required"
	default:
		return ""
	}
}

// ClampPct forces v into [0,100].
func ClampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
