package config

import (
	"math"
	"testing"
)

func ptr[T any](v T) *T { return &v }

func TestMergeOverlayWins(t *testing.T) {
	base := Config{Process: Process{Convert: ptr(true), V0: ptr("3.3")}}
	overlay := Config{Process: Process{V0: ptr("5.0")}}

	out := Merge(base, overlay)

	if out.Process.V0 == nil || *out.Process.V0 != "5.0" {
		t.Fatalf("overlay V0 did not win: %+v", out.Process.V0)
	}
	if out.Process.Convert == nil || !*out.Process.Convert {
		t.Fatalf("base Convert should fall through when overlay leaves it nil")
	}
}

func TestMergeNilOverlayFieldsFallThrough(t *testing.T) {
	base := Config{Sensor: Sensor{Shape: []int{16, 16}, Mask: "1 1\n1 1"}}
	overlay := Config{}

	out := Merge(base, overlay)

	if len(out.Sensor.Shape) != 2 || out.Sensor.Shape[0] != 16 {
		t.Fatalf("base shape lost: %+v", out.Sensor.Shape)
	}
	if out.Sensor.Mask != "1 1\n1 1" {
		t.Fatalf("base mask lost: %q", out.Sensor.Mask)
	}
}

func TestMergeThreeWayDefaultsFileCLI(t *testing.T) {
	defaults := Config{Process: Process{V0: ptr("3.3"), CaliFrames: ptr(100)}}
	file := Config{Process: Process{V0: ptr("4.0")}}
	cli := Config{Process: Process{CaliFrames: ptr(50)}}

	out := Merge(Merge(defaults, file), cli)

	if *out.Process.V0 != "4.0" {
		t.Fatalf("file should override defaults: %v", *out.Process.V0)
	}
	if *out.Process.CaliFrames != 50 {
		t.Fatalf("CLI should override file and defaults: %v", *out.Process.CaliFrames)
	}
}

func TestNormalizeShapeScalarExpandsToSquare(t *testing.T) {
	c := Config{Sensor: Sensor{Shape: []int{16}}}
	if err := Normalize(&c); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if c.Sensor.Shape[0] != 16 || c.Sensor.Shape[1] != 16 {
		t.Fatalf("scalar shape not squared: %+v", c.Sensor.Shape)
	}
	if c.Sensor.Total == nil || *c.Sensor.Total != 256 {
		t.Fatalf("total not derived: %+v", c.Sensor.Total)
	}
}

func TestNormalizeShapeInvalidLength(t *testing.T) {
	c := Config{Sensor: Sensor{Shape: []int{1, 2, 3}}}
	if err := Normalize(&c); err == nil {
		t.Fatal("expected error for 3-element shape")
	}
}

func TestNormalizeRejectsInvalidV0(t *testing.T) {
	c := Config{Process: Process{V0: ptr("(")}}
	if err := Normalize(&c); err == nil {
		t.Fatal("expected error for malformed V0 expression")
	}
}

func TestNormalizeRejectsInvalidFilterSpatial(t *testing.T) {
	c := Config{Process: Process{FilterSpatial: ptr("bogus")}}
	if err := Normalize(&c); err == nil {
		t.Fatal("expected error for invalid filter_spatial")
	}
}

func TestNormalizeRejectsInvalidFilterTemporal(t *testing.T) {
	c := Config{Process: Process{FilterTemporal: ptr("bogus")}}
	if err := Normalize(&c); err == nil {
		t.Fatal("expected error for invalid filter_temporal")
	}
}

func TestNormalizeRejectsMaskSizeMismatch(t *testing.T) {
	c := Config{Sensor: Sensor{Shape: []int{2, 2}, Mask: "1 1 1"}}
	if err := Normalize(&c); err == nil {
		t.Fatal("expected error for mask/shape size mismatch")
	}
}

func TestNormalizeAcceptsMatchingMask(t *testing.T) {
	c := Config{Sensor: Sensor{Shape: []int{2, 2}, Mask: "1 0\n0 1"}}
	if err := Normalize(&c); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
}

func TestDefaultsRoundTripsThroughYAML(t *testing.T) {
	d, err := Defaults()
	if err != nil {
		t.Fatalf("Defaults: %v", err)
	}
	dumped, err := DumpYAML(d)
	if err != nil {
		t.Fatalf("DumpYAML: %v", err)
	}
	reparsed, err := ParseYAML(dumped)
	if err != nil {
		t.Fatalf("ParseYAML: %v", err)
	}
	if err := Normalize(&reparsed); err != nil {
		t.Fatalf("Normalize reparsed: %v", err)
	}
	if *reparsed.Process.V0 != *d.Process.V0 {
		t.Fatalf("V0 did not round-trip: got %v want %v", *reparsed.Process.V0, *d.Process.V0)
	}
	if reparsed.Sensor.Shape[0] != d.Sensor.Shape[0] {
		t.Fatalf("shape did not round-trip")
	}
}

func TestEvalExprArithmetic(t *testing.T) {
	cases := map[string]float64{
		"1 + 2 * 3":   7,
		"(1 + 2) * 3": 9,
		"2 ^ 3 ^ 2":   512, // right-associative: 2^(3^2)
		"-3 + 4":      1,
		"10 / 4":      2.5,
	}
	for expr, want := range cases {
		got, err := EvalExpr(expr)
		if err != nil {
			t.Fatalf("EvalExpr(%q): %v", expr, err)
		}
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("EvalExpr(%q) = %v, want %v", expr, got, want)
		}
	}
}

func TestEvalExprFunctionsAndConstants(t *testing.T) {
	got, err := EvalExpr("abs(-5)")
	if err != nil {
		t.Fatalf("EvalExpr: %v", err)
	}
	if got != 5 {
		t.Fatalf("abs(-5) = %v", got)
	}

	got, err = EvalExpr("sgn(-3.3)")
	if err != nil {
		t.Fatalf("EvalExpr: %v", err)
	}
	if got != -1 {
		t.Fatalf("sgn(-3.3) = %v", got)
	}

	got, err = EvalExpr("PI")
	if err != nil {
		t.Fatalf("EvalExpr: %v", err)
	}
	if math.Abs(got-math.Pi) > 1e-12 {
		t.Fatalf("PI = %v", got)
	}
}

func TestEvalExprDivisionByZero(t *testing.T) {
	if _, err := EvalExpr("1 / 0"); err == nil {
		t.Fatal("expected division-by-zero error")
	}
}

func TestEvalExprUnknownFunction(t *testing.T) {
	if _, err := EvalExpr("foo(1)"); err == nil {
		t.Fatal("expected error for unknown function")
	}
}

func TestParseMaskRoundTrip(t *testing.T) {
	mask, err := ParseMask("1 0 1\n0 1 0")
	if err != nil {
		t.Fatalf("ParseMask: %v", err)
	}
	want := []float64{1, 0, 1, 0, 1, 0}
	for i, v := range want {
		if mask[i] != v {
			t.Fatalf("mask[%d] = %v, want %v", i, mask[i], v)
		}
	}
	if got := DumpMask(mask, 3); got != "1 0 1\n0 1 0" {
		t.Fatalf("DumpMask round trip = %q", got)
	}
}

func TestParseMaskRejectsRaggedRows(t *testing.T) {
	if _, err := ParseMask("1 0\n1 0 0"); err == nil {
		t.Fatal("expected error for ragged mask rows")
	}
}

func TestParseAddressWithAndWithoutPort(t *testing.T) {
	host, port, err := ParseAddress("localhost:25530")
	if err != nil || host != "localhost" || port != 25530 {
		t.Fatalf("ParseAddress(with port) = %q %d %v", host, port, err)
	}
	host, port, err = ParseAddress("localhost")
	if err != nil || host != "localhost" || port != -1 {
		t.Fatalf("ParseAddress(no port) = %q %d %v", host, port, err)
	}
}

func TestDumpAddressOmitsNegativePort(t *testing.T) {
	if got := DumpAddress("host", -1); got != "host" {
		t.Fatalf("DumpAddress(no port) = %q", got)
	}
	if got := DumpAddress("host", 80); got != "host:80" {
		t.Fatalf("DumpAddress(with port) = %q", got)
	}
}

func TestPressureConfigMapsFilterSpatialEnum(t *testing.T) {
	c, err := Defaults()
	if err != nil {
		t.Fatalf("Defaults: %v", err)
	}
	c.Process.FilterSpatial = ptr("butterworth")
	c.Process.FilterTemporal = ptr("rectangular_window")
	if err := Normalize(&c); err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	pc, err := PressureConfig(c)
	if err != nil {
		t.Fatalf("PressureConfig: %v", err)
	}
	if !pc.SpatialFilter {
		t.Fatal("expected spatial filter enabled")
	}
	if !pc.TemporalFilter {
		t.Fatal("expected temporal filter enabled")
	}
}

func TestPressureConfigFilterSpatialNoneDisables(t *testing.T) {
	c, err := Defaults()
	if err != nil {
		t.Fatalf("Defaults: %v", err)
	}
	pc, err := PressureConfig(c)
	if err != nil {
		t.Fatalf("PressureConfig: %v", err)
	}
	if pc.SpatialFilter || pc.TemporalFilter {
		t.Fatal("expected both filters disabled by default")
	}
}
