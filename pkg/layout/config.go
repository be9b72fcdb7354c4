package layout

import "fmt"

// Config holds the physics parameters.
type Config struct {
	TimeStep          float64 `json:"time_step" yaml:"time_step" toml:"time_step"`
	SpringLength      float64 `json:"spring_length" yaml:"spring_length" toml:"spring_length"`
	SpringCoefficient float64 `json:"spring_coefficient" yaml:"spring_coefficient" toml:"spring_coefficient"`

	// Gravity scales the n-body force m1*m2/r^2. Negative values repel.
	Gravity float64 `json:"gravity" yaml:"gravity" toml:"gravity"`

	DragCoefficient float64 `json:"drag_coefficient" yaml:"drag_coefficient" toml:"drag_coefficient"`

	// Theta is the Barnes-Hut accuracy parameter; 0 computes exact
	// all-pairs forces.
	Theta float64 `json:"theta" yaml:"theta" toml:"theta"`

	// CenterGravity pulls unpinned bodies toward the origin, proportionally
	// to their distance from it.
	CenterGravity float64 `json:"center_gravity" yaml:"center_gravity" toml:"center_gravity"`

	// Seed drives initial placement and coincidence jitter.
	Seed uint64 `json:"seed" yaml:"seed" toml:"seed"`
}

// DefaultConfig returns the parameters used by the map viewer.
func DefaultConfig() Config {
	return Config{
		TimeStep:          0.5,
		SpringLength:      10,
		SpringCoefficient: 0.8,
		Gravity:           -12,
		DragCoefficient:   0.9,
		Theta:             0.8,
		CenterGravity:     0.005,
		Seed:              42,
	}
}

// Validate reports parameters the simulation cannot run with.
func (c Config) Validate() error {
	switch {
	case c.TimeStep <= 0:
		return fmt.Errorf("time_step must be positive (got %v)", c.TimeStep)
	case c.SpringLength < 0:
		return fmt.Errorf("spring_length must not be negative (got %v)", c.SpringLength)
	case c.SpringCoefficient < 0:
		return fmt.Errorf("spring_coefficient must not be negative (got %v)", c.SpringCoefficient)
	case c.DragCoefficient < 0:
		return fmt.Errorf("drag_coefficient must not be negative (got %v)", c.DragCoefficient)
	case c.Theta < 0:
		return fmt.Errorf("theta must not be negative (got %v)", c.Theta)
	case c.CenterGravity < 0:
		return fmt.Errorf("center_gravity must not be negative (got %v)", c.CenterGravity)
	}
	return nil
}
