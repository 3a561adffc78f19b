package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"github.com/andybalholm/cascadia"
	validator "github.com/go-playground/validator/v10"
	yaml "gopkg.in/yaml.v3"

	"github.com/rupor-github/gencfg"
)

//go:embed config.yaml.tmpl
var ConfigTmpl []byte

type (
	TemplateFieldName string

	SplitConfig struct {
		Source                string `yaml:"source" validate:"required"`
		Layout                Layout `yaml:"layout" validate:"gte=0"`
		StoryClass            string `yaml:"story_class" validate:"required"`
		IllustrationClass     string `yaml:"illustration_class" validate:"required"`
		WrapperTag            string `yaml:"wrapper_tag" validate:"required,alphanum"`
		WrapperClass          string `yaml:"wrapper_class"`
		ImageTag              string `yaml:"image_tag" validate:"required,alphanum"`
		Pattern               string `yaml:"pattern"`
		PageSize              int    `yaml:"page_size" validate:"gte=0,required_without=MaxParts"`
		MaxParts              int    `yaml:"max_parts" validate:"gte=0"`
		Separator             string `yaml:"separator"`
		Footer                string `yaml:"footer"`
		PartNameTemplate      string `yaml:"part_name_template" validate:"required"`
		FileNameTransliterate bool   `yaml:"file_name_transliterate"`
	}

	LoaderConfig struct {
		FileName      string `yaml:"file_name" validate:"required"`
		TemplatePath  string `yaml:"template_path" sanitize:"assure_file_access"`
		Title         string `yaml:"title"`
		Lang          string `yaml:"lang" validate:"required"`
		Selector      string `yaml:"selector" validate:"required"`
		CloneParent   bool   `yaml:"clone_parent"`
		ManifestID    string `yaml:"manifest_id" validate:"required"`
		ContainerID   string `yaml:"container_id" validate:"required"`
		ProgressID    string `yaml:"progress_id" validate:"required"`
		ProgressLabel string `yaml:"progress_label"`
		DiscoverGlob  string `yaml:"discover_glob" validate:"required"`
	}

	InjectConfig struct {
		Source      string `yaml:"source" validate:"required"`
		Destination string `yaml:"destination" validate:"required"`
		StylePath   string `yaml:"style_path" sanitize:"assure_file_access"`
		ScriptPath  string `yaml:"script_path" sanitize:"assure_file_access"`
		HeadMarker  string `yaml:"head_marker" validate:"required"`
		BodyMarker  string `yaml:"body_marker" validate:"required"`
	}

	AssembleConfig struct {
		Destination  string `yaml:"destination" validate:"required"`
		Encoding     string `yaml:"encoding"`
		StripScripts bool   `yaml:"strip_scripts"`
	}

	Config struct {
		Version   int            `yaml:"version" validate:"eq=1"`
		Split     SplitConfig    `yaml:"split"`
		Loader    LoaderConfig   `yaml:"loader"`
		Inject    InjectConfig   `yaml:"inject"`
		Assemble  AssembleConfig `yaml:"assemble"`
		Logging   LoggingConfig  `yaml:"logging"`
		Reporting ReporterConfig `yaml:"reporting"`
	}
)

const (
	// NOTE: must match yaml field name above
	PartNameTemplateFieldName TemplateFieldName = "part_name_template"
)

var requiredOptions = append([]func(*gencfg.ProcessingOptions){},
	gencfg.WithDoNotExpandField(string(PartNameTemplateFieldName)),
)

// additionalChecks verifies things which could not be expressed with field
// tags: regular expression and selector syntax.
func additionalChecks(sl validator.StructLevel) {
	cfg := sl.Current().Interface().(Config)

	if cfg.Split.Layout == LayoutRegex {
		if len(cfg.Split.Pattern) == 0 {
			sl.ReportError(cfg.Split.Pattern, "pattern", "Pattern", "required_for_regex_layout", "")
		} else if _, err := regexp.Compile(cfg.Split.Pattern); err != nil {
			sl.ReportError(cfg.Split.Pattern, "pattern", "Pattern", "regexp", "")
		}
	}
	if _, err := cascadia.ParseGroup(cfg.Loader.Selector); err != nil {
		sl.ReportError(cfg.Loader.Selector, "selector", "Selector", "css_selector", "")
	}
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
			return nil, err
		}
		if err := gencfg.Validate(cfg, gencfg.WithAdditionalChecks(additionalChecks)); err != nil {
			return nil, fmt.Errorf("configuration is not valid: %w", err)
		}
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of expanded configuration tamplate to provide
// sane defaults and performs validation.
func LoadConfiguration(path string, options ...func(*gencfg.ProcessingOptions)) (*Config, error) {
	haveFile := len(path) > 0

	data, err := gencfg.Process(ConfigTmpl, append(requiredOptions, options...)...)
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
	return gencfg.Process(ConfigTmpl, requiredOptions...)
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %v", err)
	}
	return data, nil
}
