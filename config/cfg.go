package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"go.uber.org/multierr"
	yaml "gopkg.in/yaml.v3"

	"github.com/ByLCY/folio/layout"
	"github.com/ByLCY/folio/measure"
)

//go:embed config.yaml
var defaultConfig []byte

type (
	// LengthCM is a length stored in cm that accepts any unit in YAML.
	LengthCM float64

	// SizePT is a font size stored in pt that accepts any unit in YAML.
	SizePT float64

	MeasureConfig struct {
		Backend  string `yaml:"backend"`
		FontFile string `yaml:"font_file"`
	}

	LayoutConfig struct {
		PaperSize             string   `yaml:"paper_size"`
		MarginTop             LengthCM `yaml:"margin_top"`
		MarginBottom          LengthCM `yaml:"margin_bottom"`
		MarginLeft            LengthCM `yaml:"margin_left"`
		MarginRight           LengthCM `yaml:"margin_right"`
		FontFamily            string   `yaml:"font_family"`
		FontSize              SizePT   `yaml:"font_size"`
		LineSpacing           float64  `yaml:"line_spacing"`
		Indent                LengthCM `yaml:"indent"`
		H1Prefix              string   `yaml:"h1_prefix"`
		AutoNumbering         bool     `yaml:"auto_numbering"`
		HierarchicalNumbering bool     `yaml:"hierarchical_numbering"`
		H1Split               bool     `yaml:"h1_split"`
		H1Uppercase           bool     `yaml:"h1_uppercase"`
		H1Size                SizePT   `yaml:"h1_size"`
		H2Size                SizePT   `yaml:"h2_size"`
		H3Size                SizePT   `yaml:"h3_size"`
		TextDensity           float64  `yaml:"text_density"`
		LineHeightScale       float64  `yaml:"line_height_scale"`
		PageContentScale      float64  `yaml:"page_content_scale"`
		HardWrap              bool     `yaml:"hard_wrap"`
		FigureLabel           string   `yaml:"figure_label"`
		TableLabel            string   `yaml:"table_label"`
	}

	RenderConfig struct {
		PageNumbers bool              `yaml:"page_numbers"`
		Title       string            `yaml:"title"`
		Author      string            `yaml:"author"`
		Fonts       map[string]string `yaml:"fonts"`
	}

	Config struct {
		Version int           `yaml:"version"`
		Measure MeasureConfig `yaml:"measure"`
		Layout  LayoutConfig  `yaml:"layout"`
		Render  RenderConfig  `yaml:"render"`
		Logging LoggingConfig `yaml:"logging"`
	}
)

func (l *LengthCM) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: length must be a scalar", value.Line)
	}
	length, err := layout.ParseLength(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*l = LengthCM(length.ToCM())
	return nil
}

func (l LengthCM) MarshalYAML() (any, error) {
	return layout.Length{Value: float64(l), Unit: layout.UnitCM}.String(), nil
}

func (s *SizePT) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: font size must be a scalar", value.Line)
	}
	length, err := layout.ParseLength(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*s = SizePT(length.ToPT())
	return nil
}

func (s SizePT) MarshalYAML() (any, error) {
	return layout.Length{Value: float64(s), Unit: layout.UnitPT}.String(), nil
}

// Settings converts the layout section into engine settings.
func (c LayoutConfig) Settings() layout.Settings {
	return layout.Settings{
		PaperSize:             c.PaperSize,
		MarginTop:             float64(c.MarginTop),
		MarginBottom:          float64(c.MarginBottom),
		MarginLeft:            float64(c.MarginLeft),
		MarginRight:           float64(c.MarginRight),
		FontFamily:            c.FontFamily,
		FontSize:              float64(c.FontSize),
		LineSpacing:           c.LineSpacing,
		Indent:                float64(c.Indent),
		H1Prefix:              c.H1Prefix,
		AutoNumbering:         c.AutoNumbering,
		H1Size:                float64(c.H1Size),
		H2Size:                float64(c.H2Size),
		H3Size:                float64(c.H3Size),
		TextDensity:           c.TextDensity,
		LineHeightScale:       c.LineHeightScale,
		PageContentScale:      c.PageContentScale,
		HardWrap:              c.HardWrap,
		H1Split:               c.H1Split,
		HierarchicalNumbering: c.HierarchicalNumbering,
		H1Uppercase:           c.H1Uppercase,
		FigureLabel:           c.FigureLabel,
		TableLabel:            c.TableLabel,
	}
}

func unmarshalConfig(data []byte, cfg *Config) (*Config, error) {
	// We want to use only fields we defined so we cannot use yaml.Unmarshal
	// directly here
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration data: %w", err)
	}
	return cfg, nil
}

// LoadConfiguration reads the configuration from the file at the given path,
// superimposes its values on top of the embedded defaults and validates the
// result. An empty path yields the defaults.
func LoadConfiguration(path string) (*Config, error) {
	cfg, err := unmarshalConfig(defaultConfig, &Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to process default configuration: %w", err)
	}
	if len(path) > 0 {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if cfg, err = unmarshalConfig(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to process configuration file: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var err error
	if c.Version != 1 {
		err = multierr.Append(err, fmt.Errorf("unsupported configuration version %d", c.Version))
	}
	if _, berr := measure.ParseBackend(c.Measure.Backend); berr != nil {
		err = multierr.Append(err, berr)
	}
	err = multierr.Append(err, c.Logging.validate())
	err = multierr.Append(err, c.Layout.Settings().Validate())
	return err
}

// Prepare returns the embedded default configuration file.
func Prepare() ([]byte, error) {
	if len(defaultConfig) == 0 {
		return nil, fmt.Errorf("default configuration is empty")
	}
	return bytes.Clone(defaultConfig), nil
}

func Dump(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(*cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to yaml: %w", err)
	}
	return data, nil
}
