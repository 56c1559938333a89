//go:build integration
// +build integration

// Package integration provides end-to-end tests for the Kestrel scoring
// service.
//
// These tests verify the complete pipeline against a RUNNING instance:
//
//	Score request → builtin rules → expression rules → decision
//	Update notice → compile → atomic model swap
//
// Run with: go test -tags=integration -v ./tests/integration/...
//
// The instance must be started with a snapshots directory the test can
// write to, for example:
//
//	KESTREL_SNAPSHOTS_DIR=/tmp/kestrel-snapshots go run cmd/kestrel/main.go
//
// Environment:
//
//	KESTREL_TEST_URL       base URL (default http://localhost:8080)
//	KESTREL_TEST_ADMIN_KEY admin API key for the update endpoint
//	KESTREL_SNAPSHOTS_DIR  snapshots directory shared with the instance
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type testConfig struct {
	BaseURL      string
	AdminKey     string
	SnapshotsDir string
}

func loadConfig(t *testing.T) testConfig {
	t.Helper()

	cfg := testConfig{
		BaseURL:      "http://localhost:8080",
		AdminKey:     os.Getenv("KESTREL_TEST_ADMIN_KEY"),
		SnapshotsDir: os.Getenv("KESTREL_SNAPSHOTS_DIR"),
	}
	if url := os.Getenv("KESTREL_TEST_URL"); url != "" {
		cfg.BaseURL = url
	}

	resp, err := http.Get(cfg.BaseURL + "/health")
	if err != nil {
		t.Skipf("Kestrel not running at %s: %v", cfg.BaseURL, err)
	}
	resp.Body.Close()

	return cfg
}

type scoreResponse struct {
	Decision       string           `json:"decision"`
	Risk           int              `json:"risk"`
	Reasons        []map[string]any `json:"reasons"`
	ModelVersion   string           `json:"modelVersion"`
	ModelUpdatedAt string           `json:"modelUpdatedAt"`
}

func postScore(t *testing.T, cfg testConfig, body map[string]any) (*http.Response, scoreResponse) {
	t.Helper()

	raw, _ := json.Marshal(body)
	resp, err := http.Post(cfg.BaseURL+"/api/v1/score", "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("score request failed: %v", err)
	}
	defer resp.Body.Close()

	var parsed scoreResponse
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			t.Fatalf("decode score response: %v", err)
		}
	}
	return resp, parsed
}

func TestScorePipeline(t *testing.T) {
	cfg := loadConfig(t)

	t.Run("ValidRequest", func(t *testing.T) {
		resp, parsed := postScore(t, cfg, map[string]any{
			"amount":    125.50,
			"currency":  "USD",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"userId":    "integration-user",
		})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		switch parsed.Decision {
		case "Accept", "Review", "Decline":
		default:
			t.Errorf("unexpected decision %q", parsed.Decision)
		}
		if parsed.ModelVersion == "" {
			t.Error("response missing modelVersion")
		}
	})

	t.Run("RejectsMissingAmount", func(t *testing.T) {
		resp, _ := postScore(t, cfg, map[string]any{
			"currency":  "USD",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})
}

func TestModelHotSwap(t *testing.T) {
	cfg := loadConfig(t)
	if cfg.AdminKey == "" || cfg.SnapshotsDir == "" {
		t.Skip("KESTREL_TEST_ADMIN_KEY and KESTREL_SNAPSHOTS_DIR required")
	}

	version := fmt.Sprintf("it-%d", time.Now().UnixNano())
	doc := fmt.Sprintf(`{
		"version": %q,
		"createdAt": %q,
		"binTable": [{"prefix": "421234", "country": "FR"}],
		"thresholds": {"accept": 10, "review": 40}
	}`, version, time.Now().UTC().Format(time.RFC3339))

	filename := version + ".json"
	if err := os.WriteFile(filepath.Join(cfg.SnapshotsDir, filename), []byte(doc), 0o644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}

	// Trigger the update through the admin endpoint.
	body, _ := json.Marshal(map[string]string{"filename": filename})
	req, _ := http.NewRequest("POST", cfg.BaseURL+"/api/v1/model/admin/update", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", cfg.AdminKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("update request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d", resp.StatusCode)
	}

	// The swap is asynchronous; poll the model endpoint.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(cfg.BaseURL + "/api/v1/model")
		if err != nil {
			t.Fatalf("model request failed: %v", err)
		}
		var m struct {
			Version string `json:"version"`
		}
		json.NewDecoder(resp.Body).Decode(&m)
		resp.Body.Close()

		if m.Version == version {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("model %s never became current", version)
}

func TestScoringAgainstSwappedModel(t *testing.T) {
	cfg := loadConfig(t)
	if cfg.AdminKey == "" || cfg.SnapshotsDir == "" {
		t.Skip("KESTREL_TEST_ADMIN_KEY and KESTREL_SNAPSHOTS_DIR required")
	}

	// TestModelHotSwap installs a model with a FR bin entry; a mismatching
	// user country must contribute the default weight.
	resp, parsed := postScore(t, cfg, map[string]any{
		"amount":      50.0,
		"currency":    "EUR",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"cardBin":     "4212349999",
		"userCountry": "US",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if parsed.Risk < 12 {
		t.Errorf("risk = %d, want at least the mismatch weight", parsed.Risk)
	}

	found := false
	for _, reason := range parsed.Reasons {
		if reason["code"] == "BIN_COUNTRY_MISMATCH" {
			found = true
		}
	}
	if !found {
		t.Errorf("reasons = %+v, want BIN_COUNTRY_MISMATCH", parsed.Reasons)
	}
}
