package fileutil

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func TestFindFileCaseInsensitive(t *testing.T) {
	tmpDir := t.TempDir()

	for _, name := range []string{"SHARED_DEFS.SKS", "combat.sks", "Spell_Utils.sks"} {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte("// lib"), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(tmpDir, "Combat.d"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	tests := []struct {
		name       string
		searchName string
		want       string
		wantErr    bool
	}{
		{"exact match", "combat.sks", "combat.sks", false},
		{"include spelled lowercase", "shared_defs.sks", "SHARED_DEFS.SKS", false},
		{"include spelled uppercase", "COMBAT.SKS", "combat.sks", false},
		{"mixed case both ways", "spell_utils.SKS", "Spell_Utils.sks", false},
		{"missing file", "nonexistent.sks", "", true},
		{"directories do not match", "combat.d", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := FindFileCaseInsensitive(tmpDir, tt.searchName)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected an error, got %s", path)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := filepath.Base(path); got != tt.want {
				t.Errorf("resolved to %s, want %s", got, tt.want)
			}
			if _, err := os.Stat(path); err != nil {
				t.Errorf("returned path does not exist: %s", path)
			}
		})
	}
}

func TestFindFileCaseInsensitiveMissingDir(t *testing.T) {
	if _, err := FindFileCaseInsensitive(filepath.Join(t.TempDir(), "no_such_dir"), "lib.sks"); err == nil {
		t.Error("expected an error for a missing directory")
	}
}

func TestFindFileCaseInsensitiveFS(t *testing.T) {
	fsys := fstest.MapFS{
		"stdlib/SK_Math.sks":  {Data: []byte("int Min(int a, int b) { return a; }")},
		"stdlib/sk_debug.sks": {Data: []byte("// debug helpers")},
	}

	path, err := FindFileCaseInsensitiveFS(fsys, "stdlib", "sk_math.sks")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "stdlib/SK_Math.sks" {
		t.Errorf("resolved to %s, want stdlib/SK_Math.sks", path)
	}

	if _, err := FindFileCaseInsensitiveFS(fsys, "stdlib", "sk_object.sks"); err == nil {
		t.Error("expected an error for a missing file")
	}
}
