package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func hasMessage(result ValidationResult, substr string) bool {
	for _, msg := range result.Errors {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}

func TestValidateConfig_ValidConfig(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "classic.json", `{
		"name": "classic",
		"description": "Classic 10x20 board",
		"width": 10,
		"height": 20,
		"scale": 30
	}`)

	result := validateConfig(path)
	if !result.Valid {
		t.Errorf("Expected valid config, but got errors: %v", result.Errors)
	}
	if result.File != "classic.json" {
		t.Errorf("Expected file name classic.json, got %s", result.File)
	}
	for _, want := range []string{"✓ Board: 10x20", "✓ World size: 300x600", "✓ Automated game: 40 pieces"} {
		if !hasMessage(result, want) {
			t.Errorf("Expected %q in %v", want, result.Errors)
		}
	}
}

func TestValidateConfig_InvalidJSON(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "broken.json", `{"name": "broken", invalid json}`)

	result := validateConfig(path)
	if result.Valid {
		t.Error("Expected invalid config for malformed JSON")
	}
	if !hasMessage(result, "Invalid JSON") {
		t.Errorf("Expected 'Invalid JSON' error, got %v", result.Errors)
	}
}

func TestValidateConfig_UnknownField(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "old.json", `{"name":"old","width":10,"height":20,"scale":30,"grid_size":5}`)

	result := validateConfig(path)
	if result.Valid {
		t.Error("Expected unknown field to be rejected")
	}
	if !hasMessage(result, "grid_size") {
		t.Errorf("Expected error naming the field, got %v", result.Errors)
	}
}

func TestValidateConfig_MissingFile(t *testing.T) {
	result := validateConfig("/non/existent/file.json")

	if result.Valid {
		t.Error("Expected invalid result for missing file")
	}
	if !hasMessage(result, "Failed to read file") {
		t.Errorf("Expected read error, got %v", result.Errors)
	}
}

func TestValidateConfig_FieldErrors(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
		want []string
	}{
		{
			name: "name mismatch",
			file: "wide.json",
			body: `{"name":"narrow","width":10,"height":20,"scale":30}`,
			want: []string{`name "narrow" does not match file name "wide"`},
		},
		{
			name: "missing name",
			file: "anon.json",
			body: `{"width":10,"height":20,"scale":30}`,
			want: []string{"name is required"},
		},
		{
			name: "every dimension wrong",
			file: "bad.json",
			body: `{"name":"bad","width":2,"height":500,"scale":0}`,
			want: []string{"width must be between 4 and 50, got 2", "height must be between 4 and 100, got 500", "scale must be positive"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validateConfig(writeConfig(t, t.TempDir(), tt.file, tt.body))
			if result.Valid {
				t.Fatal("Expected invalid config")
			}
			for _, want := range tt.want {
				if !hasMessage(result, want) {
					t.Errorf("Expected %q in %v", want, result.Errors)
				}
			}
		})
	}
}

func TestValidateDir(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "classic.json", `{"name":"classic","width":10,"height":20,"scale":30}`)

	var buf bytes.Buffer
	ok, err := validateDir(&buf, dir)
	if err != nil {
		t.Fatalf("validateDir failed: %v", err)
	}
	if !ok {
		t.Errorf("Expected all valid, got: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "All configurations are valid") {
		t.Errorf("Expected summary line, got: %s", buf.String())
	}

	writeConfig(t, dir, "bad.json", `{"name":"bad","width":0,"height":20,"scale":30}`)
	buf.Reset()
	ok, _ = validateDir(&buf, dir)
	if ok {
		t.Error("Expected invalid directory")
	}
	if !strings.Contains(buf.String(), "❌ width must be between") {
		t.Errorf("Expected width error in report, got: %s", buf.String())
	}
}

func TestValidateDir_Empty(t *testing.T) {
	if _, err := validateDir(&bytes.Buffer{}, t.TempDir()); err == nil {
		t.Error("Expected error for directory without configs")
	}
}
