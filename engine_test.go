package trackguard

import "testing"

var testFence = Geofence{
	CenterLatitude:  7.0731,
	CenterLongitude: 125.6128,
	RadiusMeters:    100,
	UpdatedAtMillis: 1,
}

func TestEngineFirstFixIsSilent(t *testing.T) {
	engine := NewEngine()

	// The first fix after configuration adopts a state without firing,
	// whichever side of the boundary it lands on.
	if event := engine.Evaluate(fixAtDistance(testFence, 150), testFence); event != nil {
		t.Errorf("first fix should not produce an event, got %v", event.Direction)
	}
	if engine.State() != StateOutside {
		t.Errorf("expected state outside, got %v", engine.State())
	}
}

func TestEngineExitFiresOnce(t *testing.T) {
	engine := NewEngine()

	// Establish inside
	engine.Evaluate(fixAtDistance(testFence, 50), testFence)
	if engine.State() != StateInside {
		t.Fatalf("expected state inside, got %v", engine.State())
	}

	// Crossing out fires exactly once
	event := engine.Evaluate(fixAtDistance(testFence, 150), testFence)
	if event == nil {
		t.Fatal("expected a crossing event")
	}
	if event.Direction != Exited {
		t.Errorf("expected exited, got %v", event.Direction)
	}
	if event.DistanceMeters < 149 || event.DistanceMeters > 151 {
		t.Errorf("expected distance ≈150m, got %v", event.DistanceMeters)
	}

	// Identical fix while already outside must not re-fire
	if event := engine.Evaluate(fixAtDistance(testFence, 150), testFence); event != nil {
		t.Errorf("no event expected while continuously outside, got %v", event.Direction)
	}
}

func TestEngineResetSuppressesNextFix(t *testing.T) {
	engine := NewEngine()

	engine.Evaluate(fixAtDistance(testFence, 50), testFence)
	engine.Reset()

	if engine.State() != StateUnknown {
		t.Errorf("expected unknown after reset, got %v", engine.State())
	}

	// The next fix adopts silently regardless of distance
	if event := engine.Evaluate(fixAtDistance(testFence, 150), testFence); event != nil {
		t.Errorf("fix after reset should not fire, got %v", event.Direction)
	}
}

func TestEngineCrossingSequence(t *testing.T) {
	engine := NewEngine()

	// inside(50) -> inside(80) -> outside(120) -> outside(130) -> inside(60)
	// must yield exactly [exited, entered].
	distances := []float64{50, 80, 120, 130, 60}

	var events []Direction
	for _, d := range distances {
		if event := engine.Evaluate(fixAtDistance(testFence, d), testFence); event != nil {
			events = append(events, event.Direction)
		}
	}

	expected := []Direction{Exited, Entered}
	if len(events) != len(expected) {
		t.Fatalf("expected %d events, got %d: %v", len(expected), len(events), events)
	}
	for i, direction := range expected {
		if events[i] != direction {
			t.Errorf("event %d: expected %v, got %v", i, direction, events[i])
		}
	}
}

func TestEngineBoundaryIsInside(t *testing.T) {
	engine := NewEngine()

	engine.Evaluate(fixAtDistance(testFence, 150), testFence)

	// d <= radius counts as inside, so a fix just under the radius crosses in
	event := engine.Evaluate(fixAtDistance(testFence, 99), testFence)
	if event == nil || event.Direction != Entered {
		t.Fatalf("expected entered event at 99m, got %v", event)
	}
}
