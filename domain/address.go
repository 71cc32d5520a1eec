package domain

import (
	"errors"
	"strings"
)

var ErrInvalidAddress = errors.New("invalid address")

type Address struct {
	ID      int64  `json:"id,omitempty"`
	Line1   string `json:"line_1"`
	Line2   string `json:"line_2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

// Validate checks required fields; line_2 is optional.
func (a Address) Validate() error {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"line_1", a.Line1},
		{"city", a.City},
		{"state", a.State},
		{"zip", a.Zip},
		{"country", a.Country},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return errors.Join(ErrInvalidAddress, errors.New("missing "+strings.Join(missing, ", ")))
	}
	return nil
}
