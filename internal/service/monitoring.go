package service

import (
	"context"
	"math"

	"birdsbuddy/internal/models"
)

// Bowl labels shown on the dashboard.
const (
	BowlFilled = "FILLED"
	BowlEmpty  = "EMPTY"
)

// StateView is the read model rendered by the console.
type StateView struct {
	Snapshot         models.DeviceSnapshot `json:"snapshot"`
	IsCritical       bool                  `json:"is_critical"`
	AlertReason      string                `json:"alert_reason,omitempty"`
	Connected        bool                  `json:"connected"`
	Simulation       bool                  `json:"simulation"`
	Pending          models.PendingActions `json:"pending"`
	Notification     *models.Notification  `json:"notification,omitempty"`
	FoodRemainingG   float64               `json:"food_remaining_g"`
	WaterRemainingMl float64               `json:"water_remaining_ml"`
	FoodBowl         string                `json:"food_bowl"`
	WaterBowl        string                `json:"water_bowl"`
	Timezone         string                `json:"timezone"`
}

type MonitoringService struct {
	session *Session
}

func NewMonitoringService(session *Session) *MonitoringService {
	return &MonitoringService{session: session}
}

// GetState returns the current session state with derived display fields.
func (s *MonitoringService) GetState(ctx context.Context) (StateView, error) {
	if err := ctx.Err(); err != nil {
		return StateView{}, err
	}
	return buildStateView(s.session.State(), s.session.Location().String()), nil
}

func buildStateView(st SessionState, tz string) StateView {
	snap := st.Snapshot
	v := StateView{
		Snapshot:         snap,
		IsCritical:       snap.IsCritical(),
		AlertReason:      snap.AlertReason(),
		Connected:        st.Connected,
		Simulation:       st.Simulating,
		Pending:          st.Pending,
		Notification:     st.Notification,
		FoodRemainingG:   remaining(snap.FoodReservoirPct, models.FoodCapacityGrams),
		WaterRemainingMl: remaining(snap.WaterReservoirPct, models.WaterCapacityMl),
		FoodBowl:         BowlEmpty,
		WaterBowl:        BowlEmpty,
		Timezone:         tz,
	}
	if snap.FoodWeightGrams > models.FoodBowlFilledGrams {
		v.FoodBowl = BowlFilled
	}
	if snap.WaterBowlWet {
		v.WaterBowl = BowlFilled
	}
	return v
}

// remaining converts a reservoir percentage to whole units of capacity.
func remaining(pct, capacity float64) float64 {
	return math.Round(pct / 100 * capacity)
}
