// Package inspect implements the build and query commands: it loads
// stylesheets named on the command line and reports on the invalidation map
// built from them.
package inspect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/h2non/filetype"
	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"cssinv/common"
	"cssinv/config"
	"cssinv/state"
	"cssinv/stylist"
)

// Build is the action of the build command.
func Build(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("build")

	if err := applyOverrides(env, cmd); err != nil {
		return err
	}
	if cmd.Args().Len() == 0 {
		return errors.New("no stylesheets have been specified")
	}

	st, err := process(ctx, env, cmd.Args().Slice(), log)
	if err != nil {
		return err
	}
	return writeSummary(output(cmd), st, cmd.Bool("dump"))
}

// applyOverrides lets command line flags take precedence over configured
// document settings.
func applyOverrides(env *state.LocalEnv, cmd *cli.Command) error {
	if cmd.IsSet("quirks") {
		q, err := common.ParseQuirksMode(cmd.String("quirks"))
		if err != nil {
			return fmt.Errorf("unable to use quirks mode: %w", err)
		}
		env.Quirks = q
	}
	if cmd.IsSet("media") {
		medium := strings.ToLower(strings.TrimSpace(cmd.String("media")))
		if medium == "" {
			return errors.New("empty medium requested")
		}
		env.Medium = medium
	}
	return nil
}

func output(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

// process loads every source into a new stylist and builds the map. Sources
// which could not be loaded are logged and skipped.
func process(ctx context.Context, env *state.LocalEnv, srcs []string, log *zap.Logger) (*stylist.Stylist, error) {
	st := stylist.New(env.Cfg, log, stylist.WithQuirksMode(env.Quirks), stylist.WithMedium(env.Medium))

	for _, src := range srcs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := loadSource(ctx, st, src, env.Rpt, log); err != nil {
			for _, e := range multierr.Errors(err) {
				log.Error("Unable to load stylesheet", zap.String("source", src), zap.Error(e))
			}
		}
	}

	sheets := st.Sheets()
	if len(sheets) == 0 {
		return nil, errors.New("no stylesheets could be loaded")
	}
	if env.Rpt != nil {
		for _, sh := range sheets {
			// sheets read from archives do not exist on disk and are skipped
			env.Rpt.Store("sheets/"+config.CleanFileName(sh.Source), sh.Source)
		}
	}

	if err := st.Rebuild(); err != nil {
		return nil, err
	}
	if env.Rpt != nil {
		env.Rpt.StoreData("invalidation-map.txt", []byte(st.Map().Dump()))
	}
	return st, nil
}

// loadSource handles a single command line source: a stylesheet, a
// directory searched recursively for stylesheets, a zip archive or a path
// inside a zip archive.
func loadSource(ctx context.Context, st *stylist.Stylist, src string, rpt *config.Report, log *zap.Logger) error {
	src = filepath.Clean(src)

	fi, err := os.Stat(src)
	if err != nil {
		// does not exist - probably path in archive
		arc, prefix, ok := splitArchivePath(src)
		if !ok {
			return fmt.Errorf("input source was not found (%s): %w", src, err)
		}
		rpt.Store("archives/"+config.CleanFileName(arc), arc)
		return st.LoadArchive(arc, prefix)
	}

	switch {
	case fi.IsDir():
		return loadDir(ctx, st, src, log)
	case fi.Mode().IsRegular():
		arc, err := isArchiveFile(src)
		if err != nil {
			return fmt.Errorf("unable to check archive type: %w", err)
		}
		if arc {
			rpt.Store("archives/"+config.CleanFileName(src), src)
			return st.LoadArchive(src, "")
		}
		return st.LoadFiles(src)
	default:
		return fmt.Errorf("unexpected path mode for (%s)", src)
	}
}

// loadDir loads every .css file under dir in natural order.
func loadDir(ctx context.Context, st *stylist.Stylist, dir string, log *zap.Logger) error {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err != nil {
			log.Warn("Skipping path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if d.Type().IsRegular() && strings.EqualFold(filepath.Ext(path), ".css") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(files) == 0 {
		log.Debug("Nothing to load", zap.String("dir", dir))
		return nil
	}
	sort.Sort(natural.StringSlice(files))
	return st.LoadFiles(files...)
}

// splitArchivePath finds an existing zip archive at the start of src and
// returns it together with the rest of src as a prefix inside the archive.
func splitArchivePath(src string) (string, string, bool) {
	for head := filepath.Dir(src); ; {
		if fi, err := os.Stat(head); err == nil {
			if !fi.Mode().IsRegular() {
				return "", "", false
			}
			if arc, err := isArchiveFile(head); err != nil || !arc {
				return "", "", false
			}
			prefix := filepath.ToSlash(strings.TrimPrefix(src[len(head):], string(filepath.Separator)))
			if !strings.HasSuffix(strings.ToLower(prefix), ".css") {
				// directory inside archive
				prefix += "/"
			}
			return head, prefix, true
		}
		parent := filepath.Dir(head)
		if parent == head {
			return "", "", false
		}
		head = parent
	}
}

func isArchiveFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	// enough for any signature filetype knows
	head := make([]byte, 262)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, err
	}
	return filetype.Is(head[:n], "zip"), nil
}
