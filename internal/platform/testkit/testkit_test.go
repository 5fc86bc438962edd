package testkit

import "testing"

var seam = func() string { return "real" }

func TestSwap_RestoresAfterSubtest(t *testing.T) {
	t.Run("swapped", func(t *testing.T) {
		Serial(t)
		Swap(t, &seam, func() string { return "fake" })
		if seam() != "fake" {
			t.Fatalf("swap not applied")
		}
	})
	if seam() != "real" {
		t.Fatalf("seam not restored")
	}
}

func TestMustPanic_ReturnsValue(t *testing.T) {
	if r := MustPanic(t, func() { panic("boom") }); r != "boom" {
		t.Fatalf("recovered %v", r)
	}
}
