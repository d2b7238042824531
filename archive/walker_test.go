package archive

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type zipEntry struct {
	name    string
	content string
}

func makeZip(t *testing.T, entries ...zipEntry) string {
	t.Helper()
	zipPath := filepath.Join(t.TempDir(), "test.zip")

	zipFile, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("Failed to create zip file: %v", err)
	}
	defer zipFile.Close()

	w := zip.NewWriter(zipFile)
	for _, e := range entries {
		fw, err := w.Create(e.name)
		if err != nil {
			t.Fatalf("Failed to create file %s in zip: %v", e.name, err)
		}
		if _, err := fw.Write([]byte(e.content)); err != nil {
			t.Fatalf("Failed to write content for %s: %v", e.name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to finish zip: %v", err)
	}
	return zipPath
}

func TestWalk(t *testing.T) {
	zipPath := makeZip(t,
		zipEntry{"theme/base.css", ".base {}"},
		zipEntry{"theme/print.CSS", ".print {}"},
		zipEntry{"theme/readme.txt", "not a stylesheet"},
		zipEntry{"extra/site.css", ".site {}"},
		zipEntry{"root.css", ".root {}"},
	)

	tests := []struct {
		name   string
		prefix string
		ext    string
		want   []string
	}{
		{"theme stylesheets", "theme/", ".css", []string{"theme/base.css", "theme/print.CSS"}},
		{"all stylesheets", "", ".css", []string{"theme/base.css", "theme/print.CSS", "extra/site.css", "root.css"}},
		{"everything under prefix", "theme/", "", []string{"theme/base.css", "theme/print.CSS", "theme/readme.txt"}},
		{"no matching prefix", "nonexistent/", ".css", nil},
		{"prefix is case sensitive", "Theme/", ".css", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var visited []string
			err := Walk(zipPath, tt.prefix, tt.ext, func(name string, _ []byte) error {
				visited = append(visited, name)
				return nil
			})
			if err != nil {
				t.Fatalf("Walk() error = %v", err)
			}
			if len(visited) != len(tt.want) {
				t.Fatalf("visited %v, want %v", visited, tt.want)
			}
			// archive order is kept
			for i := range visited {
				if visited[i] != tt.want[i] {
					t.Errorf("visited[%d] = %s, want %s", i, visited[i], tt.want[i])
				}
			}
		})
	}
}

func TestWalk_FileContent(t *testing.T) {
	zipPath := makeZip(t, zipEntry{"a.css", ".a { color: red }"})

	err := Walk(zipPath, "", ".css", func(name string, data []byte) error {
		if string(data) != ".a { color: red }" {
			t.Errorf("content of %s = %q", name, data)
		}
		return nil
	})
	if err != nil {
		t.Errorf("Walk() error = %v", err)
	}
}

func TestWalk_EarlyTermination(t *testing.T) {
	var entries []zipEntry
	for i := range 5 {
		entries = append(entries, zipEntry{"files/file" + string(rune('0'+i)) + ".css", ".x {}"})
	}
	zipPath := makeZip(t, entries...)

	var visited int
	stopErr := errors.New("stop walking")
	err := Walk(zipPath, "files/", ".css", func(string, []byte) error {
		visited++
		if visited == 2 {
			return stopErr
		}
		return nil
	})

	if err != stopErr {
		t.Errorf("Walk() error = %v, want %v", err, stopErr)
	}
	if visited != 2 {
		t.Errorf("visited %d files, want 2 (early termination)", visited)
	}
}

func TestWalk_WithDirectories(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "test.zip")
	zipFile, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("Failed to create zip file: %v", err)
	}
	w := zip.NewWriter(zipFile)

	dirHeader := &zip.FileHeader{Name: "styles.css/"}
	dirHeader.SetMode(os.ModeDir | 0755)
	if _, err := w.CreateHeader(dirHeader); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	fw, err := w.Create("styles.css/file.css")
	if err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}
	fw.Write([]byte(".f {}"))
	w.Close()
	zipFile.Close()

	var visited []string
	err = Walk(zipPath, "", ".css/", func(name string, _ []byte) error {
		visited = append(visited, name)
		return nil
	})
	if err != nil {
		t.Errorf("Walk() error = %v", err)
	}
	if len(visited) != 0 {
		t.Errorf("visited %v, directories must be skipped", visited)
	}
}

func TestWalk_UnsafePath(t *testing.T) {
	zipPath := makeZip(t,
		zipEntry{"ok.css", ".ok {}"},
		zipEntry{"../escape.css", ".bad {}"},
	)

	err := Walk(zipPath, "", ".css", func(string, []byte) error { return nil })
	if err == nil {
		t.Error("Expected error for entry with path traversal")
	}
}

func TestWalk_InvalidArchive(t *testing.T) {
	t.Run("nonexistent file", func(t *testing.T) {
		err := Walk("/nonexistent/file.zip", "", ".css", func(string, []byte) error {
			return nil
		})
		if err == nil {
			t.Error("Expected error for nonexistent file")
		}
	})

	t.Run("invalid zip file", func(t *testing.T) {
		invalidZip := filepath.Join(t.TempDir(), "invalid.zip")
		if err := os.WriteFile(invalidZip, []byte("not a zip file"), 0644); err != nil {
			t.Fatalf("Failed to create invalid zip: %v", err)
		}

		err := Walk(invalidZip, "", ".css", func(string, []byte) error {
			return nil
		})
		if err == nil {
			t.Error("Expected error for invalid zip file")
		}
	})
}

func TestIsSafePath(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"a/b.css", true},
		{"a/./b.css", true},
		{"a..b.css", true},
		{"/abs.css", false},
		{`\abs.css`, false},
		{"../up.css", false},
		{"a/../../up.css", false},
	}
	for _, tt := range tests {
		if got := isSafePath(tt.name); got != tt.want {
			t.Errorf("isSafePath(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
