package inspect

import (
	"archive/zip"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"cssinv/common"
	"cssinv/config"
	"cssinv/dom"
	"cssinv/state"
)

// setupTestEnv creates a test environment with proper context and logger
func setupTestEnv(t *testing.T) (context.Context, *state.LocalEnv) {
	logger := zaptest.NewLogger(t, zaptest.WrapOptions(zap.AddCaller(), zap.AddCallerSkip(1)))
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	ctx := state.ContextWithEnv(context.Background())
	env := state.EnvFromContext(ctx)
	env.Log = logger
	env.ApplyConfig(cfg)
	return ctx, env
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func writeZip(t *testing.T, path string, files map[string]string, order ...string) string {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	defer f.Close()
	w := zip.NewWriter(f)
	for _, name := range order {
		fw, err := w.Create(name)
		if err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
		fw.Write([]byte(files[name]))
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return path
}

func TestProcess_Sources(t *testing.T) {
	dir := t.TempDir()
	single := writeFile(t, filepath.Join(dir, "single.css"), ".single {}")
	writeFile(t, filepath.Join(dir, "tree", "item10.css"), ".item10 {}")
	writeFile(t, filepath.Join(dir, "tree", "item2.css"), ".item2 {}")
	writeFile(t, filepath.Join(dir, "tree", "notes.txt"), ".ignored {}")
	arc := writeZip(t, filepath.Join(dir, "theme.zip"), map[string]string{
		"css/a.css":   ".zipped-a {}",
		"other/b.css": ".zipped-b {}",
	}, "css/a.css", "other/b.css")

	tests := []struct {
		name    string
		srcs    []string
		classes []string
	}{
		{"single file", []string{single}, []string{"single"}},
		{"directory", []string{filepath.Join(dir, "tree")}, []string{"item2", "item10"}},
		{"archive", []string{arc}, []string{"zipped-a", "zipped-b"}},
		{"path in archive", []string{filepath.Join(arc, "css")}, []string{"zipped-a"}},
		{"missing source is skipped", []string{filepath.Join(dir, "missing.css"), single}, []string{"single"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, env := setupTestEnv(t)
			st, err := process(ctx, env, tt.srcs, env.Log)
			if err != nil {
				t.Fatalf("process() error = %v", err)
			}
			m := st.Map()
			if m.Len() != len(tt.classes) {
				t.Errorf("Len() = %d, want %d\n%s", m.Len(), len(tt.classes), m.Dump())
			}
			for _, class := range tt.classes {
				if len(m.ClassDependencies(class, env.Quirks)) != 1 {
					t.Errorf("class %s missing", class)
				}
			}
		})
	}
}

func TestProcess_DirectoryOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "item10.css"), ".b {}")
	writeFile(t, filepath.Join(dir, "item2.css"), ".a {}")

	ctx, env := setupTestEnv(t)
	st, err := process(ctx, env, []string{dir}, env.Log)
	if err != nil {
		t.Fatalf("process() error = %v", err)
	}
	sheets := st.Sheets()
	if len(sheets) != 2 || filepath.Base(sheets[0].Source) != "item2.css" {
		t.Errorf("sheets not in natural order: %v", sheets)
	}
}

func TestProcess_NothingLoaded(t *testing.T) {
	ctx, env := setupTestEnv(t)
	if _, err := process(ctx, env, []string{filepath.Join(t.TempDir(), "missing.css")}, env.Log); err == nil {
		t.Error("process() error = nil, want failure when no sheet loads")
	}
}

func TestProcess_Cancelled(t *testing.T) {
	ctx, env := setupTestEnv(t)
	ctx, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := process(ctx, env, []string{"whatever.css"}, env.Log); err == nil {
		t.Error("process() error = nil on cancelled context")
	}
}

func TestProcess_Report(t *testing.T) {
	dir := t.TempDir()
	sheet := writeFile(t, filepath.Join(dir, "site.css"), ".site {}")

	ctx, env := setupTestEnv(t)
	rc := config.ReporterConfig{Destination: filepath.Join(dir, "report.zip")}
	rpt, err := rc.Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	env.Rpt = rpt

	if _, err := process(ctx, env, []string{sheet}, env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	if err := rpt.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	zr, err := zip.OpenReader(rc.Destination)
	if err != nil {
		t.Fatalf("open report: %v", err)
	}
	defer zr.Close()
	names := make(map[string]bool)
	for _, f := range zr.File {
		names[f.Name] = true
	}
	for _, want := range []string{"MANIFEST", "invalidation-map.txt", "sheets/" + config.CleanFileName(sheet)} {
		if !names[want] {
			t.Errorf("report lacks %s, has %v", want, names)
		}
	}
}

func TestQueryOptions_Change(t *testing.T) {
	t.Run("complete", func(t *testing.T) {
		q := queryOptions{
			Tag:            "div",
			Classes:        []string{"a"},
			RemovedClasses: []string{"b"},
			ID:             "new",
			OldID:          "old",
			States:         []string{"hover", "Focus"},
			DocumentStates: []string{"window-inactive"},
			Attributes:     true,
		}
		ch, doc, err := q.change()
		if err != nil {
			t.Fatalf("change() error = %v", err)
		}
		if ch.StateChanged != dom.StateHover|dom.StateFocus {
			t.Errorf("StateChanged = %s", ch.StateChanged)
		}
		if doc != dom.DocumentStateWindowInactive {
			t.Errorf("document state = %s", doc)
		}
		if ch.Element.LocalName != "div" || ch.NewID != "new" || ch.OldID != "old" || !ch.OtherAttributesChanged {
			t.Errorf("change = %+v", ch)
		}
	})

	tests := []struct {
		name string
		q    queryOptions
	}{
		{"nothing changed", queryOptions{Tag: "div"}},
		{"unknown state", queryOptions{States: []string{"sleepy"}}},
		{"unknown document state", queryOptions{DocumentStates: []string{"sleepy"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := tt.q.change(); err == nil {
				t.Error("change() error = nil")
			}
		})
	}
}

func TestQuery_Output(t *testing.T) {
	dir := t.TempDir()
	sheet := writeFile(t, filepath.Join(dir, "site.css"), `
.menu :hover { color: red }
.menu + p { color: blue }
div.menu::before { content: "" }
:-moz-window-inactive .menu { color: gray }
`)

	ctx, env := setupTestEnv(t)
	st, err := process(ctx, env, []string{sheet}, env.Log)
	if err != nil {
		t.Fatalf("process() error = %v", err)
	}

	tmpl, err := config.ParseQueryTemplate(`{{ .Kind }}|{{ .Selector }}|{{ .Offset }}|{{ .Combinator }}|{{ .State }}`)
	if err != nil {
		t.Fatalf("ParseQueryTemplate() error = %v", err)
	}
	ch, doc, err := queryOptions{Classes: []string{"menu"}, DocumentStates: []string{"window-inactive"}}.change()
	if err != nil {
		t.Fatalf("change() error = %v", err)
	}

	var buf bytes.Buffer
	if err := query(&buf, tmpl, st, ch, doc, env.Log); err != nil {
		t.Fatalf("query() error = %v", err)
	}
	got := buf.String()
	for _, want := range []string{
		"element-and-descendants|div.menu::before|2|pseudo-element|\n",
		"descendants|.menu :hover|2|descendant|\n",
		"siblings|.menu + p|2|next-sibling|\n",
		"document|:-moz-window-inactive .menu|0||window-inactive\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output lacks %q:\n%s", want, got)
		}
	}
}

func TestQuery_DefaultTemplate(t *testing.T) {
	dir := t.TempDir()
	sheet := writeFile(t, filepath.Join(dir, "site.css"), `.a > .b {}`)

	ctx, env := setupTestEnv(t)
	st, err := process(ctx, env, []string{sheet}, env.Log)
	if err != nil {
		t.Fatalf("process() error = %v", err)
	}
	tmpl, err := config.ParseQueryTemplate(env.Cfg.Output.QueryTemplate)
	if err != nil {
		t.Fatalf("ParseQueryTemplate() error = %v", err)
	}
	ch, doc, _ := queryOptions{Classes: []string{"a"}}.change()

	var buf bytes.Buffer
	if err := query(&buf, tmpl, st, ch, doc, env.Log); err != nil {
		t.Fatalf("query() error = %v", err)
	}
	if got := buf.String(); !strings.Contains(got, `".a > .b" offset=2 combinator=`) {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestQuery_FragmentPrintedOnce(t *testing.T) {
	dir := t.TempDir()
	sheet := writeFile(t, filepath.Join(dir, "site.css"), `.a:hover .b {}`)

	ctx, env := setupTestEnv(t)
	st, err := process(ctx, env, []string{sheet}, env.Log)
	if err != nil {
		t.Fatalf("process() error = %v", err)
	}
	tmpl, err := config.ParseQueryTemplate(`{{ .Kind }}|{{ .Selector }}|{{ .Offset }}`)
	if err != nil {
		t.Fatalf("ParseQueryTemplate() error = %v", err)
	}
	ch, doc, err := queryOptions{Classes: []string{"a"}, States: []string{"hover"}}.change()
	if err != nil {
		t.Fatalf("change() error = %v", err)
	}

	var buf bytes.Buffer
	if err := query(&buf, tmpl, st, ch, doc, env.Log); err != nil {
		t.Fatalf("query() error = %v", err)
	}
	if got := buf.String(); got != "descendants|.a:hover .b|2\n" {
		t.Errorf("unexpected output: %q", got)
	}
}

func TestWriteSummary(t *testing.T) {
	dir := t.TempDir()
	sheet := writeFile(t, filepath.Join(dir, "site.css"), `.a [class] {}`)

	ctx, env := setupTestEnv(t)
	env.Quirks = common.QuirksModeQuirks
	st, err := process(ctx, env, []string{sheet}, env.Log)
	if err != nil {
		t.Fatalf("process() error = %v", err)
	}

	var buf bytes.Buffer
	if err := writeSummary(&buf, st, false); err != nil {
		t.Fatalf("writeSummary() error = %v", err)
	}
	want := "1 stylesheets, 2 dependencies, flags=class-attr (quirks=quirks, medium=screen)\n"
	if buf.String() != want {
		t.Errorf("summary = %q, want %q", buf.String(), want)
	}

	buf.Reset()
	if err := writeSummary(&buf, st, true); err != nil {
		t.Fatalf("writeSummary() error = %v", err)
	}
	if !strings.HasPrefix(buf.String(), "Invalidation map: 2 dependencies") {
		t.Errorf("dump = %q", buf.String())
	}
}

func TestSplitArchivePath(t *testing.T) {
	dir := t.TempDir()
	arc := writeZip(t, filepath.Join(dir, "theme.zip"), map[string]string{"css/a.css": ""}, "css/a.css")
	plain := writeFile(t, filepath.Join(dir, "plain.css"), ".a {}")

	tests := []struct {
		src    string
		ok     bool
		prefix string
	}{
		{filepath.Join(arc, "css"), true, "css/"},
		{filepath.Join(arc, "css", "a.css"), true, "css/a.css"},
		{filepath.Join(arc, "css", "deep", "dir"), true, "css/deep/dir/"},
		{filepath.Join(plain, "inner"), false, ""},
		{filepath.Join(dir, "nothing", "here.css"), false, ""},
	}
	for _, tt := range tests {
		head, prefix, ok := splitArchivePath(tt.src)
		if ok != tt.ok {
			t.Errorf("splitArchivePath(%s) ok = %v, want %v", tt.src, ok, tt.ok)
			continue
		}
		if ok && (head != arc || prefix != tt.prefix) {
			t.Errorf("splitArchivePath(%s) = %s, %s; want %s, %s", tt.src, head, prefix, arc, tt.prefix)
		}
	}
}
