package viewer

import "testing"

func TestEdgeColor(t *testing.T) {
	s := DefaultStyle()
	tests := []struct {
		weight float64
		want   string
	}{
		{0, "#4a148c"},
		{0.011182, "#4a148c"},
		{0.011183, "#7b1fa2"},
		{0.05, "#ab47bc"},
		{0.1, "#ff7043"},
		{0.142361, "#ff5722"},
		{1, "#ff5722"},
	}
	for _, tt := range tests {
		if got := s.EdgeColor(tt.weight); got != tt.want {
			t.Errorf("EdgeColor(%v) = %q, want %q", tt.weight, got, tt.want)
		}
	}
}

func TestRatingColorAndIcon(t *testing.T) {
	s := DefaultStyle()
	ratings := []struct {
		rating float64
		want   string
	}{
		{8.1, "#00aaff"},
		{7.609174, "#00aaff"},
		{7.3, "#00ffee"},
		{6.0, "#ffcc00"},
		{5.1, "#ff4400"},
		{3, "#ff0000"},
	}
	for _, tt := range ratings {
		if got := s.RatingColor(tt.rating); got != tt.want {
			t.Errorf("RatingColor(%v) = %q, want %q", tt.rating, got, tt.want)
		}
	}

	icons := []struct {
		complexity float64
		want       string
	}{
		{4.5, "star"},
		{4, "star"},
		{3.2, "diamond"},
		{2, "triangle"},
		{1.9, "circle"},
		{0, "circle"},
	}
	for _, tt := range icons {
		if got := s.Icon(tt.complexity); got != tt.want {
			t.Errorf("Icon(%v) = %q, want %q", tt.complexity, got, tt.want)
		}
	}
}

func TestStyleValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Style)
		wantErr bool
	}{
		{"default", func(*Style) {}, false},
		{"short color", func(s *Style) { s.NodeColor = "#fff" }, false},
		{"named color", func(s *Style) { s.SelectedColor = "red" }, true},
		{"too few bands", func(s *Style) { s.EdgeBands = s.EdgeBands[:3] }, true},
		{"unordered bands", func(s *Style) {
			s.EdgeBands = []EdgeBand{{0.1, "#000000"}, {0.05, "#000000"}, {0.2, "#000000"}, {0.3, "#000000"}}
		}, true},
		{"bad band color", func(s *Style) {
			s.EdgeBands = append([]EdgeBand{{0.001, "nope"}}, s.EdgeBands...)
		}, true},
		{"unordered ratings", func(s *Style) {
			s.RatingColors = []Threshold{{5, "#000000"}, {6, "#000000"}}
		}, true},
		{"empty icon", func(s *Style) { s.Icons = []Threshold{{3, ""}} }, true},
		{"no default icon", func(s *Style) { s.DefaultIcon = "" }, true},
		{"no rating table", func(s *Style) { s.RatingColors = nil }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultStyle()
			tt.mutate(&s)
			if err := s.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
