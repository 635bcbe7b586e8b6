package pin

// Default appearance values.
const (
	DefaultLineColor  = "#8FD8D8"
	DefaultLineWidth  = 1.0
	DefaultTopColor   = "#8FD8D8"
	DefaultSmokeColor = "#FFF"
	DefaultLabelColor = "#FFF"
	DefaultFont       = "Inconsolata"
)

// Options are caller overrides. A nil field keeps the default.
type Options struct {
	LineColor  *string  `yaml:"line_color,omitempty" json:"line_color,omitempty"`
	LineWidth  *float64 `yaml:"line_width,omitempty" json:"line_width,omitempty"`
	TopColor   *string  `yaml:"top_color,omitempty" json:"top_color,omitempty"`
	SmokeColor *string  `yaml:"smoke_color,omitempty" json:"smoke_color,omitempty"`
	LabelColor *string  `yaml:"label_color,omitempty" json:"label_color,omitempty"`
	Font       *string  `yaml:"font,omitempty" json:"font,omitempty"`
	ShowLabel  *bool    `yaml:"show_label,omitempty" json:"show_label,omitempty"`
	ShowTop    *bool    `yaml:"show_top,omitempty" json:"show_top,omitempty"`
	ShowSmoke  *bool    `yaml:"show_smoke,omitempty" json:"show_smoke,omitempty"`
}

// Resolved is the effective option set of a pin.
type Resolved struct {
	LineColor  string  `json:"line_color"`
	LineWidth  float64 `json:"line_width"`
	TopColor   string  `json:"top_color"`
	SmokeColor string  `json:"smoke_color"`
	LabelColor string  `json:"label_color"`
	Font       string  `json:"font"`
	ShowLabel  bool    `json:"show_label"`
	ShowTop    bool    `json:"show_top"`
	ShowSmoke  bool    `json:"show_smoke"`
}

// Resolve applies o on top of the defaults. Show flags default to whether
// text is non-empty.
func (o Options) Resolve(text string) Resolved {
	hasText := len(text) > 0

	return Resolved{
		LineColor:  orDefault(o.LineColor, DefaultLineColor),
		LineWidth:  orDefault(o.LineWidth, DefaultLineWidth),
		TopColor:   orDefault(o.TopColor, DefaultTopColor),
		SmokeColor: orDefault(o.SmokeColor, DefaultSmokeColor),
		LabelColor: orDefault(o.LabelColor, DefaultLabelColor),
		Font:       orDefault(o.Font, DefaultFont),
		ShowLabel:  orDefault(o.ShowLabel, hasText),
		ShowTop:    orDefault(o.ShowTop, hasText),
		ShowSmoke:  orDefault(o.ShowSmoke, hasText),
	}
}

// Merge returns o with every field that is set in over replaced.
func (o Options) Merge(over Options) Options {
	out := o
	pick(&out.LineColor, over.LineColor)
	pick(&out.LineWidth, over.LineWidth)
	pick(&out.TopColor, over.TopColor)
	pick(&out.SmokeColor, over.SmokeColor)
	pick(&out.LabelColor, over.LabelColor)
	pick(&out.Font, over.Font)
	pick(&out.ShowLabel, over.ShowLabel)
	pick(&out.ShowTop, over.ShowTop)
	pick(&out.ShowSmoke, over.ShowSmoke)
	return out
}

// Ptr returns a pointer to v, for building Options literals.
func Ptr[T any](v T) *T {
	return &v
}

func orDefault[T any](v *T, def T) T {
	if v == nil {
		return def
	}
	return *v
}

func pick[T any](dst **T, src *T) {
	if src != nil {
		*dst = src
	}
}
