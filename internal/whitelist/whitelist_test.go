package whitelist

import (
	"path/filepath"
	"testing"
)

func TestIsProtected_Table(t *testing.T) {
	w := New(filepath.Join("C:", "Windows"), filepath.Join("C:", "Users", "me", "Documents"))

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"exact match", filepath.Join("C:", "Windows"), true},
		{"descendant", filepath.Join("C:", "Windows", "System32", "drivers"), true},
		{"documents descendant", filepath.Join("C:", "Users", "me", "Documents", "report.docx"), true},
		{"sibling not protected", filepath.Join("C:", "Windows2", "file.txt"), false},
		{"unrelated path", filepath.Join("C:", "temp", "a.tmp"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.IsProtected(tt.path); got != tt.want {
				t.Fatalf("IsProtected(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestSet_SnapshotAtomic(t *testing.T) {
	w := New(filepath.Join("C:", "A"))
	if !w.IsProtected(filepath.Join("C:", "A", "x")) {
		t.Fatalf("expected protected before Set")
	}
	w.Set([]string{filepath.Join("C:", "B")})
	if w.IsProtected(filepath.Join("C:", "A", "x")) {
		t.Fatalf("expected A no longer protected after Set")
	}
	if !w.IsProtected(filepath.Join("C:", "B", "x")) {
		t.Fatalf("expected B protected after Set")
	}
}

func TestAdd_PreservesExisting(t *testing.T) {
	w := New(filepath.Join("C:", "A"))
	w.Add(filepath.Join("C:", "B"))
	if !w.IsProtected(filepath.Join("C:", "A", "x")) {
		t.Fatalf("expected A still protected after Add")
	}
	if !w.IsProtected(filepath.Join("C:", "B", "x")) {
		t.Fatalf("expected B protected after Add")
	}
}
