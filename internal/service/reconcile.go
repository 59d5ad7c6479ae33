package service

import "birdsbuddy/internal/models"

// Reconciler log and notification texts.
const (
	msgPumpEngaged          = "Water Pump Engaged"
	msgGasDetected          = "Hazardous gas detected — safety protocol active"
	msgGasCleared           = "Atmosphere normalized; safety protocol disengaged"
	msgMotionDetected       = "Motion detected in secure perimeter"
	msgFoodReserveCritical  = "Food reserves critical (<20%)"
	msgWaterReserveCritical = "Water reserves critical (<20%)"

	notifyGasDetected    = "CRITICAL: GAS DETECTED"
	notifyMotionDetected = "ALERT: MOTION DETECTED"
)

// Outcome is what one snapshot transition produces.
type Outcome struct {
	Events       []models.EventDraft
	Notification *models.NotificationDraft
	// ManualTagConsumed is set when a pump engagement used the manual tag.
	ManualTagConsumed bool
}

// Reconcile derives log entries and at most one notification from the
// transition prev -> curr. Every rule is edge-triggered. When several
// notifying rules fire, the later rule in the table wins the single slot.
func Reconcile(prev, curr models.DeviceSnapshot, manualTag *models.ActionKind) Outcome {
	var out Outcome

	if curr.PumpActive && !prev.PumpActive {
		badge := models.BadgeAuto
		if manualTag != nil && *manualTag == models.ActionRefill {
			badge = models.BadgeManual
		}
		out.Events = append(out.Events, models.EventDraft{Message: msgPumpEngaged, Severity: models.SeverityInfo, Badge: badge})
		out.ManualTagConsumed = manualTag != nil
	}

	switch {
	case curr.GasDetected && !prev.GasDetected:
		out.Events = append(out.Events, models.EventDraft{Message: msgGasDetected, Severity: models.SeverityDanger})
		out.Notification = &models.NotificationDraft{Message: notifyGasDetected, Severity: models.NotifyError}
	case !curr.GasDetected && prev.GasDetected:
		out.Events = append(out.Events, models.EventDraft{Message: msgGasCleared, Severity: models.SeveritySuccess})
	}

	if curr.MotionDetected && !prev.MotionDetected {
		out.Events = append(out.Events, models.EventDraft{Message: msgMotionDetected, Severity: models.SeverityWarning})
		out.Notification = &models.NotificationDraft{Message: notifyMotionDetected, Severity: models.NotifyError}
	}

	if crossedBelow(prev.FoodReservoirPct, curr.FoodReservoirPct) {
		out.Events = append(out.Events, models.EventDraft{Message: msgFoodReserveCritical, Severity: models.SeverityWarning})
	}
	if crossedBelow(prev.WaterReservoirPct, curr.WaterReservoirPct) {
		out.Events = append(out.Events, models.EventDraft{Message: msgWaterReserveCritical, Severity: models.SeverityWarning})
	}

	return out
}

func crossedBelow(prev, curr float64) bool {
	return prev >= models.LowLevelThresholdPct && curr < models.LowLevelThresholdPct
}
