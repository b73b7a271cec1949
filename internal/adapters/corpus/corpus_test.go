package corpus

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadWalksCategoriesAndDerivesMetadata(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "network/MMCD-001_Network_Reporting.txt", "policy body")
	writeFile(t, dir, "MMCD-002.md", "MMCD-002\nGrievance Procedures\nbody")
	writeFile(t, dir, "notes.pdf", "binary junk") // wrong extension, ignored

	files, stats, err := New().Load(dir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if stats.Total != 2 || stats.Loaded != 2 || stats.Failed != 0 {
		t.Fatalf("stats = %+v, want 2 loaded", stats)
	}

	byCode := map[string]File{}
	for _, f := range files {
		byCode[f.Code] = f
	}

	nw := byCode["MMCD-001"]
	if nw.Title != "Network Reporting" {
		t.Fatalf("underscore title = %q, want %q", nw.Title, "Network Reporting")
	}
	if nw.Category != "network" {
		t.Fatalf("category = %q, want network", nw.Category)
	}

	gr := byCode["MMCD-002"]
	if gr.Title != "Grievance Procedures" {
		t.Fatalf("sniffed title = %q, want %q", gr.Title, "Grievance Procedures")
	}
	if gr.Category != "" {
		t.Fatalf("root file category = %q, want empty", gr.Category)
	}
}

func TestLoadHashesFileBytes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "A_One.txt", "same")
	writeFile(t, dir, "B_Two.txt", "same")
	writeFile(t, dir, "C_Three.txt", "different")

	files, _, err := New().Load(dir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	hashes := map[string]string{}
	for _, f := range files {
		hashes[f.Code] = f.SHA256
	}
	if hashes["A"] != hashes["B"] {
		t.Fatalf("identical content must hash identically")
	}
	if hashes["A"] == hashes["C"] {
		t.Fatalf("different content must hash differently")
	}
	if len(hashes["A"]) != 64 {
		t.Fatalf("hash length = %d, want 64 hex chars", len(hashes["A"]))
	}
}

func TestLoadMissingRootFails(t *testing.T) {
	t.Parallel()

	if _, _, err := New().Load(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("Load of missing root should error")
	}
}

func TestDeriveCodeTitleFallbacks(t *testing.T) {
	t.Parallel()

	code, title := deriveCodeTitle("/x/APL 23-001.txt", "")
	if code != "APL 23-001" || title != "APL 23-001" {
		t.Fatalf("empty text fallback = (%q, %q)", code, title)
	}

	code, title = deriveCodeTitle("/x/MMCD-009_.txt", "ignored")
	if code != "MMCD-009" || title != "MMCD-009" {
		t.Fatalf("trailing underscore = (%q, %q)", code, title)
	}
}
