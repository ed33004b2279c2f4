package config

// Source kinds
const (
	SourceImages = "images"
	SourceVideo  = "video"
	SourceDevice = "device"
)

// Selection is a fixed object box given in pixels of the first frame
type Selection struct {
	X      float64 `yaml:"x" validate:"gte=0"`
	Y      float64 `yaml:"y" validate:"gte=0"`
	Width  float64 `yaml:"width" validate:"gt=0"`
	Height float64 `yaml:"height" validate:"gt=0"`
}

// TrackerConfig tunes native trackers. Zero values fall back to defaults
type TrackerConfig struct {
	SearchMargin            int     `yaml:"search_margin" validate:"gte=0"`
	MinScore                float64 `yaml:"min_score" validate:"gte=0,lte=1"`
	FlowGrid                int     `yaml:"flow_grid" validate:"gte=0"`
	FlowWindow              int     `yaml:"flow_window" validate:"gte=0"`
	FlowRadius              int     `yaml:"flow_radius" validate:"gte=0"`
	MaxForwardBackwardError float64 `yaml:"max_fb_error" validate:"gte=0"`
}

// Config is the root configuration structure
type Config struct {
	Source         string        `yaml:"source" validate:"required"`
	SourceKind     string        `yaml:"source_kind" validate:"oneof=images video device"`
	Algorithm      string        `yaml:"algorithm" validate:"oneof=ncc kalman medianflow mil kcf csrt"`
	MatchThreshold float64       `yaml:"match_threshold" validate:"gt=0,lte=1"`
	Workers        int           `yaml:"workers" validate:"gte=0"`
	Selection      *Selection    `yaml:"selection" validate:"omitempty"`
	Tracker        TrackerConfig `yaml:"tracker"`
	OutputCSV      string        `yaml:"output_csv"`
	Display        bool          `yaml:"display"`
	LogLevel       string        `yaml:"log_level" validate:"oneof=trace debug info warn error disabled"`
}
