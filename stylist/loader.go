package stylist

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"cssinv/archive"
)

// origin is where stylesheets, and the sheets they import, are read from.
type origin interface {
	read(name string) ([]byte, error)
	// resolve turns an @import URL found in sheet from into a readable name
	resolve(from, ref string) (string, bool)
	// key identifies name for cycle detection
	key(name string) string
	// source names the sheet in logs and in Sheet.Source
	source(name string) string
}

type dirOrigin struct{}

func (dirOrigin) read(name string) ([]byte, error) {
	return os.ReadFile(name)
}

// resolve accepts relative references and file: URLs.
func (dirOrigin) resolve(from, ref string) (string, bool) {
	u, err := url.Parse(ref)
	if err != nil || u.Host != "" || (u.Scheme != "" && u.Scheme != "file") || u.Path == "" {
		return "", false
	}
	target := filepath.FromSlash(u.Path)
	if filepath.IsAbs(target) {
		return target, true
	}
	return filepath.Join(filepath.Dir(from), target), true
}

func (dirOrigin) key(name string) string {
	if abs, err := filepath.Abs(name); err == nil {
		return abs
	}
	return name
}

func (dirOrigin) source(name string) string {
	return name
}

type zipOrigin struct {
	archive string
	files   map[string][]byte
}

func (z *zipOrigin) read(name string) ([]byte, error) {
	data, ok := z.files[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", z.source(name), fs.ErrNotExist)
	}
	return data, nil
}

// resolve accepts relative references staying inside the archive. Absolute
// paths are taken from the archive root.
func (z *zipOrigin) resolve(from, ref string) (string, bool) {
	u, err := url.Parse(ref)
	if err != nil || u.Host != "" || u.Scheme != "" || u.Path == "" {
		return "", false
	}
	var target string
	if path.IsAbs(u.Path) {
		target = path.Clean(u.Path[1:])
	} else {
		target = path.Join(path.Dir(from), u.Path)
	}
	if target == ".." || strings.HasPrefix(target, "../") {
		return "", false
	}
	return target, true
}

func (z *zipOrigin) key(name string) string {
	return name
}

func (z *zipOrigin) source(name string) string {
	return filepath.Join(z.archive, filepath.FromSlash(name))
}

// LoadFiles reads, decodes and parses stylesheets from disk together with
// the local sheets they @import. Imports come before the importing sheet,
// as in the cascade. A file that can not be loaded does not stop the others,
// all failures are returned combined. The map is not rebuilt.
func (s *Stylist) LoadFiles(paths ...string) error {
	var (
		err     error
		visited = make(map[string]bool)
	)
	for _, name := range paths {
		err = multierr.Append(err, s.load(dirOrigin{}, name, visited))
	}
	return err
}

// LoadArchive loads every stylesheet under prefix in a zip archive, in
// archive order. Imports are resolved inside the archive and may reach
// outside of prefix.
func (s *Stylist) LoadArchive(name, prefix string) error {
	var (
		z     = &zipOrigin{archive: name, files: make(map[string][]byte)}
		roots []string
	)
	err := archive.Walk(name, "", ".css", func(entry string, data []byte) error {
		z.files[entry] = data
		if strings.HasPrefix(entry, prefix) {
			roots = append(roots, entry)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("unable to read archive %s: %w", name, err)
	}
	if len(roots) == 0 {
		s.log.Debug("Nothing to load", zap.String("archive", name), zap.String("prefix", prefix))
		return nil
	}

	visited := make(map[string]bool)
	for _, root := range roots {
		err = multierr.Append(err, s.load(z, root, visited))
	}
	return err
}

func (s *Stylist) load(o origin, name string, visited map[string]bool) error {
	source := o.source(name)

	// also breaks @import cycles
	key := o.key(name)
	if visited[key] {
		s.log.Debug("Stylesheet already loaded, skipping", zap.String("source", source))
		return nil
	}
	visited[key] = true

	data, err := o.read(name)
	if err != nil {
		return fmt.Errorf("unable to read stylesheet: %w", err)
	}
	text, err := s.decode(data, source)
	if err != nil {
		return fmt.Errorf("unable to decode stylesheet %s: %w", source, err)
	}
	sheet := s.parser.Parse(text, source)

	var errs error
	for _, imp := range sheet.Imports() {
		if !imp.Media.Evaluate(s.medium) {
			s.log.Debug("Import does not apply to medium, skipping",
				zap.String("url", imp.URL), zap.Stringer("media", imp.Media), zap.String("medium", s.medium))
			continue
		}
		target, ok := o.resolve(name, imp.URL)
		if !ok {
			s.log.Warn("Only local imports are supported, skipping", zap.String("source", source), zap.String("url", imp.URL))
			continue
		}
		errs = multierr.Append(errs, s.load(o, target, visited))
	}

	s.add(source, sheet)
	return errs
}

// decode turns stylesheet bytes into UTF-8. The encoding comes from the byte
// order mark, then from a leading @charset rule and finally from the
// configured fallback.
func (s *Stylist) decode(data []byte, source string) ([]byte, error) {
	enc, name, rest := s.detectEncoding(data, source)
	if enc == unicode.UTF8 {
		return rest, nil
	}
	s.log.Debug("Decoding stylesheet", zap.String("source", source), zap.String("charset", name))
	return io.ReadAll(transform.NewReader(bytes.NewReader(rest), enc.NewDecoder()))
}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16BE = []byte{0xFE, 0xFF}
	bomUTF16LE = []byte{0xFF, 0xFE}
)

func (s *Stylist) detectEncoding(data []byte, source string) (encoding.Encoding, string, []byte) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return unicode.UTF8, "utf-8", data[len(bomUTF8):]
	case bytes.HasPrefix(data, bomUTF16BE):
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), "utf-16be", data[len(bomUTF16BE):]
	case bytes.HasPrefix(data, bomUTF16LE):
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), "utf-16le", data[len(bomUTF16LE):]
	}

	if label, ok := charsetRule(data); ok {
		if enc, name := charset.Lookup(label); enc != nil {
			// a sheet that could declare itself in ASCII is not UTF-16
			if name == "utf-16be" || name == "utf-16le" {
				return unicode.UTF8, "utf-8", data
			}
			return asUTF8(enc), name, data
		}
		s.log.Warn("Unknown @charset, using fallback", zap.String("source", source), zap.String("charset", label))
	}

	enc, err := ianaindex.IANA.Encoding(s.charset)
	if err != nil || enc == nil {
		s.log.Warn("Unknown fallback charset, assuming utf-8", zap.String("charset", s.charset))
		return unicode.UTF8, "utf-8", data
	}
	return asUTF8(enc), s.charset, data
}

// asUTF8 maps the different UTF-8 encodings the lookups may hand out to the
// single one decode checks for.
func asUTF8(enc encoding.Encoding) encoding.Encoding {
	if enc == encoding.Nop || enc == unicode.UTF8 || enc == unicode.UTF8BOM {
		return unicode.UTF8
	}
	return enc
}

// charsetRule extracts the label of @charset "label"; when it is the very
// first thing in data, written exactly that way.
func charsetRule(data []byte) (string, bool) {
	const prefix = `@charset "`
	if !bytes.HasPrefix(data, []byte(prefix)) {
		return "", false
	}
	data = data[len(prefix):min(len(data), 1024)]
	end := bytes.Index(data, []byte(`";`))
	if end < 0 {
		return "", false
	}
	return string(data[:end]), true
}
