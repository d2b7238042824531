package config

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readArchive(t *testing.T, path string) map[string]string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("failed to open report: %v", err)
	}
	defer zr.Close()

	files := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("failed to open %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("failed to read %s: %v", f.Name, err)
		}
		files[f.Name] = string(data)
	}
	return files
}

func TestReport_StoreAndClose(t *testing.T) {
	tmpDir := t.TempDir()

	conf := ReporterConfig{Destination: filepath.Join(tmpDir, "report.zip")}
	r, err := conf.Prepare()
	if err != nil {
		t.Fatalf("Prepare() error: %v", err)
	}
	if r.Name() != conf.Destination {
		t.Errorf("Name() = %q, want %q", r.Name(), conf.Destination)
	}

	sheet := filepath.Join(tmpDir, "site.css")
	if err := os.WriteFile(sheet, []byte(".a { color: red }"), 0644); err != nil {
		t.Fatalf("failed to write stylesheet: %v", err)
	}
	sheets := filepath.Join(tmpDir, "sheets")
	if err := os.MkdirAll(filepath.Join(sheets, "nested"), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(sheets, "nested", "b.css"), []byte(".b {}"), 0644); err != nil {
		t.Fatalf("failed to write stylesheet: %v", err)
	}

	r.Store("site.css", sheet)
	r.Store("sheets", sheets)
	r.Store("missing.css", filepath.Join(tmpDir, "missing.css"))
	r.StoreData("map.txt", []byte("Invalidation map: 0 dependencies"))

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	files := readArchive(t, conf.Destination)

	manifest, ok := files["MANIFEST"]
	if !ok {
		t.Fatal("report has no MANIFEST")
	}
	for _, name := range []string{"site.css", "sheets", "missing.css", "map.txt"} {
		if !strings.Contains(manifest, "\t"+name+"\t") {
			t.Errorf("MANIFEST does not list %s:\n%s", name, manifest)
		}
	}
	if got := files["site.css"]; got != ".a { color: red }" {
		t.Errorf("site.css = %q", got)
	}
	if got := files["sheets/nested/b.css"]; got != ".b {}" {
		t.Errorf("sheets/nested/b.css = %q", got)
	}
	if got := files["map.txt"]; got != "Invalidation map: 0 dependencies" {
		t.Errorf("map.txt = %q", got)
	}
	if _, ok := files["missing.css"]; ok {
		t.Error("absent file should be skipped")
	}

	// stored files are left alone
	if _, err := os.Stat(sheet); err != nil {
		t.Errorf("stored file should not be removed, but got error: %v", err)
	}
}

func TestReport_StoreOverwritePanics(t *testing.T) {
	r := &Report{entries: make(map[string]entry)}
	r.Store("a", "one.css")
	// same path again is fine
	r.Store("a", "one.css")

	defer func() {
		if recover() == nil {
			t.Error("expected panic when overwriting entry with another path")
		}
	}()
	r.Store("a", "two.css")
}

func TestReport_StoreDataOverwritePanics(t *testing.T) {
	r := &Report{entries: make(map[string]entry)}
	r.StoreData("a", []byte("x"))

	defer func() {
		if recover() == nil {
			t.Error("expected panic when overwriting data")
		}
	}()
	r.StoreData("a", []byte("y"))
}

func TestReportClose_NilReport(t *testing.T) {
	var r *Report
	// none of these should panic
	r.Store("a", "b")
	r.StoreData("c", nil)
	if r.Name() != "" {
		t.Error("Name() on nil report should be empty")
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close on nil report should not error, got: %v", err)
	}
}

func TestReportClose_NilFile(t *testing.T) {
	r := &Report{entries: make(map[string]entry)}
	if err := r.Close(); err != nil {
		t.Errorf("Close with nil file should not error, got: %v", err)
	}
}
