package layout

import (
	"bytes"
	"testing"

	"github.com/chazu/slotbridge/slots"
)

func TestPlan_CBORRoundTrip(t *testing.T) {
	plan, err := PlanPackage(samplePackageModel(), nil)
	if err != nil {
		t.Fatalf("PlanPackage: %v", err)
	}

	data, err := MarshalPlan(plan)
	if err != nil {
		t.Fatalf("MarshalPlan: %v", err)
	}
	got, err := UnmarshalPlan(data)
	if err != nil {
		t.Fatalf("UnmarshalPlan: %v", err)
	}

	if got.Package != plan.Package {
		t.Errorf("Package: got %q, want %q", got.Package, plan.Package)
	}
	a, ok := got.Lookup("Point", "X", slots.KindGet)
	if !ok || a.ID != 1 || a.HostName != "x" {
		t.Errorf("Point.X getter after round trip = %+v, %v", a, ok)
	}

	// Canonical mode: encoding twice gives the same bytes.
	again, _ := MarshalPlan(got)
	if !bytes.Equal(data, again) {
		t.Error("re-encoding a decoded plan changed its bytes")
	}
}

func TestUnmarshalPlan_Errors(t *testing.T) {
	if _, err := UnmarshalPlan([]byte{0xff, 0x00}); err == nil {
		t.Error("expected error for garbage input")
	}

	data, _ := MarshalPlan(&Plan{Package: "p", Version: 99})
	if _, err := UnmarshalPlan(data); err == nil {
		t.Error("expected error for unknown plan version")
	}
}
