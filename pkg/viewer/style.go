package viewer

import (
	"fmt"
	"regexp"
)

// EdgeBand colors links whose weight is strictly below Below.
type EdgeBand struct {
	Below float64 `json:"below" yaml:"below" toml:"below"`
	Color string  `json:"color" yaml:"color" toml:"color"`
}

// Threshold maps values at or above AtLeast to Value.
type Threshold struct {
	AtLeast float64 `json:"at_least" yaml:"at_least" toml:"at_least"`
	Value   string  `json:"value" yaml:"value" toml:"value"`
}

// Highlight is the emphasis given to a highlighted node's label and icon.
type Highlight struct {
	TextSize float64 `json:"text_size" yaml:"text_size" toml:"text_size"`
	Size     float64 `json:"size" yaml:"size" toml:"size"`
}

// Style holds every color and threshold table used to build scene buffers.
type Style struct {
	NodeColor         string `json:"node_color" yaml:"node_color" toml:"node_color"`
	SelectedColor     string `json:"selected_color" yaml:"selected_color" toml:"selected_color"`
	NeighborColor     string `json:"neighbor_color" yaml:"neighbor_color" toml:"neighbor_color"`
	SelectedEdgeColor string `json:"selected_edge_color" yaml:"selected_edge_color" toml:"selected_edge_color"`

	// EdgeBands are ordered by ascending Below. Weights at or above the
	// last band use StrongEdgeColor.
	EdgeBands       []EdgeBand `json:"edge_bands" yaml:"edge_bands" toml:"edge_bands"`
	StrongEdgeColor string     `json:"strong_edge_color" yaml:"strong_edge_color" toml:"strong_edge_color"`

	// RatingColors are ordered by descending AtLeast; LowRatingColor is
	// used below all of them.
	RatingColors   []Threshold `json:"rating_colors" yaml:"rating_colors" toml:"rating_colors"`
	LowRatingColor string      `json:"low_rating_color" yaml:"low_rating_color" toml:"low_rating_color"`

	// Icons are ordered by descending AtLeast on complexity; DefaultIcon
	// is used below all of them.
	Icons       []Threshold `json:"icons" yaml:"icons" toml:"icons"`
	DefaultIcon string      `json:"default_icon" yaml:"default_icon" toml:"default_icon"`

	Selected Highlight `json:"selected" yaml:"selected" toml:"selected"`
	Neighbor Highlight `json:"neighbor" yaml:"neighbor" toml:"neighbor"`
}

// MinEdgeColors is the smallest edge palette a style may define, counting
// StrongEdgeColor.
const MinEdgeColors = 5

// DefaultStyle returns the calibration shipped with the map.
func DefaultStyle() Style {
	return Style{
		NodeColor:         "#EAEDEF",
		SelectedColor:     "#bf2072",
		NeighborColor:     "#e56aaa",
		SelectedEdgeColor: "#ffffff",
		EdgeBands: []EdgeBand{
			{Below: 0.011183, Color: "#4a148c"},
			{Below: 0.046948, Color: "#7b1fa2"},
			{Below: 0.080745, Color: "#ab47bc"},
			{Below: 0.142361, Color: "#ff7043"},
		},
		StrongEdgeColor: "#ff5722",
		RatingColors: []Threshold{
			{AtLeast: 7.609174, Value: "#00aaff"},
			{AtLeast: 7.204706, Value: "#00ffee"},
			{AtLeast: 6.918946, Value: "#00ff88"},
			{AtLeast: 6.65909, Value: "#88ff00"},
			{AtLeast: 6.42297, Value: "#ccff00"},
			{AtLeast: 6.18157, Value: "#ffff00"},
			{AtLeast: 5.900366, Value: "#ffcc00"},
			{AtLeast: 5.565964, Value: "#ff8800"},
			{AtLeast: 5.07692, Value: "#ff4400"},
		},
		LowRatingColor: "#ff0000",
		Icons: []Threshold{
			{AtLeast: 4, Value: "star"},
			{AtLeast: 3, Value: "diamond"},
			{AtLeast: 2, Value: "triangle"},
		},
		DefaultIcon: "circle",
		Selected:    Highlight{TextSize: 1.2, Size: 8},
		Neighbor:    Highlight{TextSize: 1.0, Size: 6},
	}
}

// EdgeColor returns the band color for a link weight.
func (s Style) EdgeColor(weight float64) string {
	for _, b := range s.EdgeBands {
		if weight < b.Below {
			return b.Color
		}
	}
	return s.StrongEdgeColor
}

// RatingColor returns the icon color for a rating.
func (s Style) RatingColor(rating float64) string {
	return pick(s.RatingColors, rating, s.LowRatingColor)
}

// Icon returns the icon name for a complexity score.
func (s Style) Icon(complexity float64) string {
	return pick(s.Icons, complexity, s.DefaultIcon)
}

func pick(ts []Threshold, v float64, def string) string {
	for _, t := range ts {
		if v >= t.AtLeast {
			return t.Value
		}
	}
	return def
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// Validate checks colors and the ordering of every threshold table.
func (s Style) Validate() error {
	colors := map[string]string{
		"node_color":          s.NodeColor,
		"selected_color":      s.SelectedColor,
		"neighbor_color":      s.NeighborColor,
		"selected_edge_color": s.SelectedEdgeColor,
		"strong_edge_color":   s.StrongEdgeColor,
		"low_rating_color":    s.LowRatingColor,
	}
	for name, c := range colors {
		if !hexColor.MatchString(c) {
			return fmt.Errorf("%s: invalid color %q", name, c)
		}
	}

	if len(s.EdgeBands)+1 < MinEdgeColors {
		return fmt.Errorf("edge_bands: need at least %d bands, got %d", MinEdgeColors-1, len(s.EdgeBands))
	}
	for i, b := range s.EdgeBands {
		if !hexColor.MatchString(b.Color) {
			return fmt.Errorf("edge_bands[%d]: invalid color %q", i, b.Color)
		}
		if i > 0 && b.Below <= s.EdgeBands[i-1].Below {
			return fmt.Errorf("edge_bands[%d]: thresholds must increase", i)
		}
	}

	for i, t := range s.RatingColors {
		if !hexColor.MatchString(t.Value) {
			return fmt.Errorf("rating_colors[%d]: invalid color %q", i, t.Value)
		}
		if i > 0 && t.AtLeast >= s.RatingColors[i-1].AtLeast {
			return fmt.Errorf("rating_colors[%d]: thresholds must decrease", i)
		}
	}

	if s.DefaultIcon == "" {
		return fmt.Errorf("default_icon: must not be empty")
	}
	for i, t := range s.Icons {
		if t.Value == "" {
			return fmt.Errorf("icons[%d]: empty icon name", i)
		}
		if i > 0 && t.AtLeast >= s.Icons[i-1].AtLeast {
			return fmt.Errorf("icons[%d]: thresholds must decrease", i)
		}
	}
	return nil
}
