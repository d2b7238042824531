package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"strings"
	"text/template"

	sprig "github.com/go-task/slim-sprig/v3"
	validator "github.com/go-playground/validator/v10"
	"golang.org/x/text/encoding/ianaindex"
	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"

	"cssinv/common"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

// DefaultQueryTemplate is used when output.query_template is left empty. It
// is kept out of the configuration template, gencfg would expand it.
const DefaultQueryTemplate = `{{ printf "%-24s" .Kind }} {{ .Selector | quote }} offset={{ .Offset }}` +
	`{{ with .Combinator }} combinator={{ . | quote }}{{ end }}{{ with .State }} state={{ . }}{{ end }}`

type (
	DocumentConfig struct {
		QuirksMode common.QuirksMode `yaml:"quirks_mode"`
		Media      string            `yaml:"media" validate:"required"`
		Charset    string            `yaml:"charset" validate:"required"`
	}

	LimitsConfig struct {
		// 0 means no limit
		MaxDependencies int `yaml:"max_dependencies" validate:"gte=0"`
	}

	OutputConfig struct {
		// text/template with sprig functions, executed for every dependency
		// query prints
		QueryTemplate string `yaml:"query_template" validate:"required"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Document  DocumentConfig `yaml:"document"`
		Limits    LimitsConfig   `yaml:"limits"`
		Output    OutputConfig   `yaml:"output"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

// checkConfig validates what tags can not express.
func checkConfig(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(Config)
	if !cfg.Document.QuirksMode.IsValid() {
		sl.ReportError(cfg.Document.QuirksMode, "quirks_mode", "QuirksMode", "quirks_mode", "")
	}
	if enc, err := ianaindex.IANA.Encoding(cfg.Document.Charset); err != nil || enc == nil {
		sl.ReportError(cfg.Document.Charset, "charset", "Charset", "iana_charset", "")
	}
	if _, err := ParseQueryTemplate(cfg.Output.QueryTemplate); err != nil {
		sl.ReportError(cfg.Output.QueryTemplate, "query_template", "QueryTemplate", "template", "")
	}
}

// ParseQueryTemplate parses a query output template making sprig functions
// available to it.
func ParseQueryTemplate(text string) (*template.Template, error) {
	return template.New("query_template").Funcs(sprig.FuncMap()).Parse(text)
}

func unmarshalConfig(data []byte, cfg *Config, process bool) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	if process {
		// sanitize and validate what has been loaded
		if err := gencfg.Sanitize(cfg); err != nil {
			return nil, fmt.Errorf("failed to sanitize configuration: %w", err)
		}
		cfg.Document.Media = strings.ToLower(strings.TrimSpace(cfg.Document.Media))
		if strings.TrimSpace(cfg.Output.QueryTemplate) == "" {
			cfg.Output.QueryTemplate = DefaultQueryTemplate
		}
		if err := gencfg.Validate(cfg, gencfg.WithAdditionalChecks(checkConfig)); err != nil {
			return nil, fmt.Errorf("failed to validate configuration: %w", err)
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration template to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	cfg, err := unmarshalConfig(data, &Config{}, !haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration template: %w", err)
	}
	if !haveFile {
		return cfg, nil
	}

	// overwrite cfg values with values from the file
	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err = unmarshalConfig(data, cfg, haveFile)
	if err != nil {
		return nil, fmt.Errorf("failed to process configuration file: %w", err)
	}
	return cfg, nil
}

// Prepare generates configuration file from template and returns it as a byte
// slice.
func Prepare() ([]byte, error) {
	return gencfg.Process(ConfigTmpl)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %w", err)
	}
	return data, nil
}
