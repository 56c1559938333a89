package model

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeModelFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write model file: %v", err)
	}
	return path
}

func newTestCompiler(t *testing.T) *Compiler {
	t.Helper()
	c, err := NewCompiler()
	if err != nil {
		t.Fatalf("NewCompiler failed: %v", err)
	}
	return c
}

func TestCompileFullDocument(t *testing.T) {
	c := newTestCompiler(t)
	path := writeModelFile(t, `{
		"version": "2025-08-01",
		"createdAt": "2025-08-01T12:00:00Z",
		"binTable": [
			{"prefix": "4", "country": "US"},
			{"prefix": "421234", "country": "FR"}
		],
		"mccRisk": {"7995": "high"},
		"countryRisk": {"NG": "high"},
		"lists": {
			"allow": {"merchantIds": ["m-1"]},
			"deny": {"ips": ["10.0.0.1"], "devices": ["dev-1"], "merchantIds": ["m-bad"]}
		},
		"disposableDomains": ["mailinator.com"],
		"weights": {"BIN_COUNTRY_MISMATCH": 20},
		"thresholds": {"accept": 10, "review": 40},
		"velocity": {"windows": ["PT5M", "PT1H"]},
		"rules": [
			{"code": "LARGE_AMOUNT", "expression": "amount > 1000.0", "weight": 15}
		]
	}`)

	m, err := c.Compile(path)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	if m.Version != "2025-08-01" {
		t.Errorf("version = %q", m.Version)
	}
	want := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	if !m.UpdatedAt.Equal(want) {
		t.Errorf("UpdatedAt = %v, want %v", m.UpdatedAt, want)
	}
	if got := m.Bins.Lookup("421234"); got != "FR" {
		t.Errorf("bin lookup = %q, want FR", got)
	}
	if m.MCCRisk["7995"] != "high" {
		t.Error("mccRisk not loaded")
	}
	if _, ok := m.Allow.Merchants["m-1"]; !ok {
		t.Error("allow merchants not loaded")
	}
	if _, ok := m.Deny.IPs["10.0.0.1"]; !ok {
		t.Error("deny ips not loaded")
	}
	if _, ok := m.DisposableDomains["mailinator.com"]; !ok {
		t.Error("disposable domains not loaded")
	}
	if m.Weight("BIN_COUNTRY_MISMATCH", 12) != 20 {
		t.Error("weight override not applied")
	}
	if m.Thresholds.Accept != 10 || m.Thresholds.Review != 40 {
		t.Errorf("thresholds = %+v", m.Thresholds)
	}
	if len(m.Velocity.WindowDurations) != 2 || m.Velocity.WindowDurations[0] != 5*time.Minute {
		t.Errorf("velocity windows = %v", m.Velocity.WindowDurations)
	}
	if len(m.Rules) != 1 || m.Rules[0].Code != "LARGE_AMOUNT" || m.Rules[0].Weight != 15 {
		t.Errorf("rules = %+v", m.Rules)
	}
}

func TestCompileDefaults(t *testing.T) {
	c := newTestCompiler(t)
	path := writeModelFile(t, `{}`)

	m, err := c.Compile(path)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	if m.Version != "unknown" {
		t.Errorf("version = %q, want unknown", m.Version)
	}
	if !m.UpdatedAt.IsZero() {
		t.Errorf("UpdatedAt = %v, want zero", m.UpdatedAt)
	}
	// No thresholds means everything classifies Review.
	if m.Thresholds != ConservativeThresholds() {
		t.Errorf("thresholds = %+v, want conservative", m.Thresholds)
	}
	if len(m.Velocity.Windows) != len(DefaultVelocityWindows) {
		t.Errorf("velocity windows = %v", m.Velocity.Windows)
	}
	if got := m.Bins.Lookup("421234"); got != UnknownCountry {
		t.Errorf("bin lookup = %q, want %q", got, UnknownCountry)
	}
}

func TestCompileMalformedJSON(t *testing.T) {
	c := newTestCompiler(t)
	path := writeModelFile(t, `{"version": `)

	if _, err := c.Compile(path); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestCompileMalformedThresholds(t *testing.T) {
	c := newTestCompiler(t)

	// An otherwise-valid document with unusable thresholds yields no model.
	path := writeModelFile(t, `{
		"version": "v1",
		"binTable": [{"prefix": "4", "country": "US"}],
		"thresholds": {"accept": "low", "review": 40}
	}`)

	if _, err := c.Compile(path); err == nil {
		t.Fatal("expected error for malformed thresholds")
	}
}

func TestCompileMissingFile(t *testing.T) {
	c := newTestCompiler(t)

	if _, err := c.Compile(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestCompileBadCreatedAt(t *testing.T) {
	c := newTestCompiler(t)
	path := writeModelFile(t, `{"createdAt": "yesterday"}`)

	if _, err := c.Compile(path); err == nil {
		t.Fatal("expected error for unparseable createdAt")
	}
}

func TestCompileIncompleteBinEntry(t *testing.T) {
	c := newTestCompiler(t)
	path := writeModelFile(t, `{"binTable": [{"prefix": "4"}]}`)

	if _, err := c.Compile(path); err == nil {
		t.Fatal("expected error for bin entry without country")
	}
}

func TestCompileBadExpression(t *testing.T) {
	c := newTestCompiler(t)

	t.Run("SyntaxError", func(t *testing.T) {
		path := writeModelFile(t, `{"rules": [{"code": "R1", "expression": "amount >>> 1"}]}`)
		if _, err := c.Compile(path); err == nil {
			t.Fatal("expected error for invalid CEL")
		}
	})

	t.Run("NonBoolOutput", func(t *testing.T) {
		path := writeModelFile(t, `{"rules": [{"code": "R1", "expression": "amount + 1.0"}]}`)
		if _, err := c.Compile(path); err == nil {
			t.Fatal("expected error for non-boolean expression")
		}
	})

	t.Run("MissingCode", func(t *testing.T) {
		path := writeModelFile(t, `{"rules": [{"expression": "amount > 1.0"}]}`)
		if _, err := c.Compile(path); err == nil {
			t.Fatal("expected error for rule without code")
		}
	})
}

func TestCompileBadVelocityWindow(t *testing.T) {
	c := newTestCompiler(t)
	path := writeModelFile(t, `{"velocity": {"windows": ["5 minutes"]}}`)

	if _, err := c.Compile(path); err == nil {
		t.Fatal("expected error for invalid velocity window")
	}
}
