package cachestore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/retracehq/retrace/internal/trajectory"
)

func sampleDocument() *trajectory.Document {
	return &trajectory.Document{
		Metadata: trajectory.Metadata{
			Version:             trajectory.SchemaVersion,
			CreatedAt:           time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			Goal:                "log in as a user",
			VerificationMethod:  trajectory.MethodAHash,
			ValidationRegionPx:  100,
			ValidationThreshold: 5,
		},
		Trajectory: []trajectory.Step{
			{
				Type:        trajectory.StepTypeToolUse,
				Name:        "click",
				Input:       map[string]any{"x": float64(450), "y": float64(320)},
				Fingerprint: "a1b2c3d4e5f60718",
			},
			{
				Type:        trajectory.StepTypeToolUse,
				Name:        "type",
				Input:       map[string]any{"text": "hello {{username}}"},
				Fingerprint: "00000000ffffffff",
			},
		},
		Parameters: map[string]string{"username": "account name"},
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	doc := sampleDocument()

	if err := Save(path, doc); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if loaded.Metadata.Goal != doc.Metadata.Goal {
		t.Errorf("goal = %q, want %q", loaded.Metadata.Goal, doc.Metadata.Goal)
	}
	if !loaded.Metadata.CreatedAt.Equal(doc.Metadata.CreatedAt) {
		t.Errorf("created_at = %v, want %v", loaded.Metadata.CreatedAt, doc.Metadata.CreatedAt)
	}
	if len(loaded.Trajectory) != 2 {
		t.Fatalf("trajectory length = %d, want 2", len(loaded.Trajectory))
	}
	if loaded.Trajectory[1].Input["text"] != "hello {{username}}" {
		t.Errorf("step input = %v, want placeholder preserved", loaded.Trajectory[1].Input)
	}
	if loaded.Parameters["username"] != "account name" {
		t.Errorf("parameters = %v", loaded.Parameters)
	}
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if !IsNotFound(err) {
		t.Fatalf("Load() error = %v, want not-found", err)
	}
	if IsInvalid(err) {
		t.Error("not-found error also reports invalid")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.json")
	if err := os.WriteFile(path, []byte("{truncated"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if !IsInvalid(err) {
		t.Fatalf("Load() error = %v, want invalid", err)
	}
}

func TestLoad_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{
			name: "empty trajectory",
			doc: `{"metadata": {"version": "0.2", "created_at": "2026-03-01T12:00:00Z", "goal": "g",
				"visual_verification_method": "none", "visual_validation_region_size": 0,
				"visual_validation_threshold": 0}, "trajectory": [], "cache_parameters": {}}`,
		},
		{
			name: "bad method",
			doc: `{"metadata": {"version": "0.2", "created_at": "2026-03-01T12:00:00Z", "goal": "g",
				"visual_verification_method": "dhash", "visual_validation_region_size": 100,
				"visual_validation_threshold": 5}, "trajectory": [{"type": "tool_use", "name": "wait",
				"input": {"seconds": 1}, "visual_representation": "0000000000000000"}], "cache_parameters": {}}`,
		},
		{
			name: "threshold out of range",
			doc: `{"metadata": {"version": "0.2", "created_at": "2026-03-01T12:00:00Z", "goal": "g",
				"visual_verification_method": "ahash", "visual_validation_region_size": 100,
				"visual_validation_threshold": 65}, "trajectory": [{"type": "tool_use", "name": "wait",
				"input": {"seconds": 1}, "visual_representation": "0000000000000000"}], "cache_parameters": {}}`,
		},
		{
			name: "malformed fingerprint",
			doc: `{"metadata": {"version": "0.2", "created_at": "2026-03-01T12:00:00Z", "goal": "g",
				"visual_verification_method": "ahash", "visual_validation_region_size": 100,
				"visual_validation_threshold": 5}, "trajectory": [{"type": "tool_use", "name": "wait",
				"input": {"seconds": 1}, "visual_representation": "xyz"}], "cache_parameters": {}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "doc.json")
			if err := os.WriteFile(path, []byte(tt.doc), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if !IsInvalid(err) {
				t.Fatalf("Load() error = %v, want invalid", err)
			}
		})
	}
}

func TestLoad_UndeclaredPlaceholder(t *testing.T) {
	// Shape-valid but invariant-violating: the referenced placeholder is
	// not in cache_parameters. Caught by the Go validator after the CUE
	// schema pass.
	doc := `{"metadata": {"version": "0.2", "created_at": "2026-03-01T12:00:00Z", "goal": "g",
		"visual_verification_method": "ahash", "visual_validation_region_size": 100,
		"visual_validation_threshold": 5}, "trajectory": [{"type": "tool_use", "name": "type",
		"input": {"text": "hello {{ghost}}"}, "visual_representation": "0000000000000000"}],
		"cache_parameters": {}}`

	path := filepath.Join(t.TempDir(), "doc.json")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if !IsInvalid(err) {
		t.Fatalf("Load() error = %v, want invalid", err)
	}
	if !strings.Contains(err.Error(), "ghost") {
		t.Errorf("error %q does not name the undeclared placeholder", err.Error())
	}
}

func TestLoad_UnsupportedVersion(t *testing.T) {
	doc := sampleDocument()
	doc.Metadata.Version = "9.9"
	path := filepath.Join(t.TempDir(), "doc.json")

	// Save refuses invalid documents, so write the bytes directly.
	if err := Save(path, sampleDocument()); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(strings.Replace(string(data), `"version": "0.2"`, `"version": "9.9"`, 1)), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err = Load(path)
	if !IsInvalid(err) {
		t.Fatalf("Load() error = %v, want invalid", err)
	}
}

func TestSave_RefusesInvalidDocument(t *testing.T) {
	doc := sampleDocument()
	doc.Trajectory = nil

	path := filepath.Join(t.TempDir(), "doc.json")
	if err := Save(path, doc); err == nil {
		t.Fatal("Save() of invalid document = nil, want error")
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Error("failed Save() left a file behind")
	}
}

func TestSave_ReplacesExistingAtomically(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")

	first := sampleDocument()
	if err := Save(path, first); err != nil {
		t.Fatalf("first Save() failed: %v", err)
	}

	second := sampleDocument()
	second.Metadata.Goal = "a different goal"
	if err := Save(path, second); err != nil {
		t.Fatalf("second Save() failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if loaded.Metadata.Goal != "a different goal" {
		t.Errorf("goal = %q, want replacement", loaded.Metadata.Goal)
	}

	// No temporary files may survive a successful save.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".retrace-") {
			t.Errorf("temporary file left behind: %s", e.Name())
		}
	}
}

func TestSave_CreatesCacheDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache", "doc.json")
	if err := Save(path, sampleDocument()); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if _, err := Load(path); err != nil {
		t.Fatalf("Load() after nested Save() failed: %v", err)
	}
}
