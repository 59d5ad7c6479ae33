package models

import (
	"testing"
)

func TestIsCritical_AllCombinations(t *testing.T) {
	for _, gas := range []bool{false, true} {
		for _, motion := range []bool{false, true} {
			for _, wet := range []bool{false, true} {
				s := DeviceSnapshot{GasDetected: gas, MotionDetected: motion, WaterBowlWet: wet}
				want := gas || motion || !wet
				if got := s.IsCritical(); got != want {
					t.Errorf("gas=%v motion=%v wet=%v: IsCritical()=%v, want %v", gas, motion, wet, got, want)
				}
				if (s.AlertReason() != "") != want {
					t.Errorf("gas=%v motion=%v wet=%v: AlertReason()=%q disagrees with IsCritical", gas, motion, wet, s.AlertReason())
				}
			}
		}
	}
}

func TestAlertReason_Priority(t *testing.T) {
	s := DeviceSnapshot{GasDetected: true, MotionDetected: true}
	if got := s.AlertReason(); got != "Hazardous Atmosphere Detected" {
		t.Fatalf("gas should win, got %q", got)
	}
	s.GasDetected = false
	if got := s.AlertReason(); got != "Perimeter Breach" {
		t.Fatalf("motion should win over dry bowl, got %q", got)
	}
}

func TestMerge_KeepsAbsentFieldsAndClamps(t *testing.T) {
	base := DefaultSnapshot("10:00:00")
	food := 130.0
	water := -4.0
	pump := true

	got := base.Merge(SnapshotPatch{
		FoodReservoirPct:  &food,
		WaterReservoirPct: &water,
		PumpActive:        &pump,
	})

	if got.FoodReservoirPct != 100 || got.WaterReservoirPct != 0 {
		t.Fatalf("percentages not clamped: %+v", got)
	}
	if !got.PumpActive {
		t.Fatalf("pump should be merged")
	}
	if !got.WaterBowlWet || got.Timestamp != "10:00:00" || got.FoodWeightGrams != 0 {
		t.Fatalf("absent fields must keep prior values: %+v", got)
	}
}

func TestParseActionKind(t *testing.T) {
	cases := map[string]ActionKind{"feed": ActionFeed, " Refill ": ActionRefill}
	for in, want := range cases {
		got, err := ParseActionKind(in)
		if err != nil || got != want {
			t.Fatalf("ParseActionKind(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseActionKind("water"); err == nil {
		t.Fatalf("expected error for unknown action")
	}
}
