package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/fusion-imaging/sitsi/internal/invert"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadPartialConfig(t *testing.T) {
	path := writeConfig(t, "inversion.json", `{"method": "svd", "hxr_threshold": 0.8}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if got := cfg.GetMethod(); got != invert.MethodSVD {
		t.Errorf("GetMethod = %q, want svd", got)
	}
	if got := cfg.GetHXRThreshold(); got != 0.8 {
		t.Errorf("GetHXRThreshold = %v, want 0.8", got)
	}
	// Omitted fields fall back to defaults.
	if got := cfg.GetArtifactSigma(); got != 0.8 {
		t.Errorf("GetArtifactSigma = %v, want default 0.8", got)
	}
	if _, _, _, _, ok := cfg.Subset(); ok {
		t.Error("Subset should be unset")
	}
}

func TestLoadRejectsBadFiles(t *testing.T) {
	if _, err := Load(writeConfig(t, "cfg.yaml", "method: svd")); err == nil {
		t.Error("expected error for non-JSON extension")
	}
	if _, err := Load(writeConfig(t, "cfg.json", "{not json")); err == nil {
		t.Error("expected error for malformed JSON")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	i := func(v int) *int { return &v }
	s := func(v string) *string { return &v }

	cases := []struct {
		name    string
		cfg     InversionConfig
		wantErr bool
	}{
		{name: "empty", cfg: InversionConfig{}},
		{name: "full subset", cfg: InversionConfig{SubsetX: i(0), SubsetY: i(0), SubsetW: i(10), SubsetH: i(10)}},
		{name: "partial subset", cfg: InversionConfig{SubsetX: i(0)}, wantErr: true},
		{name: "zero-size subset", cfg: InversionConfig{SubsetX: i(0), SubsetY: i(0), SubsetW: i(0), SubsetH: i(10)}, wantErr: true},
		{name: "bad threshold", cfg: InversionConfig{HXRThreshold: f(1.5)}, wantErr: true},
		{name: "bad sigma", cfg: InversionConfig{ArtifactSigma: f(-1)}, wantErr: true},
		{name: "bad method", cfg: InversionConfig{Method: s("ridge")}, wantErr: true},
		{name: "good method", cfg: InversionConfig{Method: s("diff")}},
		{name: "bad order", cfg: InversionConfig{TrueMaxOrder: i(0)}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestLoadRoundTrip(t *testing.T) {
	path := writeConfig(t, "cfg.json", `{
		"method": "diff",
		"subset_x": 10, "subset_y": 20, "subset_w": 64, "subset_h": 48
	}`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	x, y, w, h, ok := cfg.Subset()
	if !ok {
		t.Fatal("Subset should be set")
	}
	if diff := cmp.Diff([]int{10, 20, 64, 48}, []int{x, y, w, h}); diff != "" {
		t.Errorf("subset mismatch (-want +got):\n%s", diff)
	}
}
