package natal

import (
	"errors"
	"fmt"

	"github.com/rcliao/context-digest/internal/model"
)

// ErrMalformedChart is returned (wrapped) by Validate.
var ErrMalformedChart = errors.New("malformed natal chart")

// Validate checks the structure of a chart record. An empty planet list is
// valid and simply carries no signal.
func Validate(c *model.NatalChart) error {
	if c == nil {
		return fmt.Errorf("%w: nil chart", ErrMalformedChart)
	}
	for i, p := range c.Planets {
		if p.Name == "" {
			return fmt.Errorf("%w: planet %d has no name", ErrMalformedChart, i)
		}
		if p.House < 1 || p.House > 12 {
			return fmt.Errorf("%w: %s in house %d", ErrMalformedChart, p.Name, p.House)
		}
		for j, a := range p.Aspects {
			if a.Type == "" || a.OtherPlanet == "" {
				return fmt.Errorf("%w: %s aspect %d is incomplete", ErrMalformedChart, p.Name, j)
			}
		}
	}
	return nil
}
