package domain

import (
	"fmt"
	"strings"
	"time"
)

// Material is a shared raw-material stock counter. A material is uniquely
// identified by (name, grade, location), matched case-insensitively on name
// and location. Stock never goes negative; every mutation is a delta applied
// under a per-row atomic operation.
type Material struct {
	ID        string
	Name      string
	Grade     int
	Location  string
	Stock     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (m *Material) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("%w: material name is required", ErrValidation)
	}
	if m.Grade <= 0 {
		return fmt.Errorf("%w: material grade must be positive", ErrValidation)
	}
	if strings.TrimSpace(m.Location) == "" {
		return fmt.Errorf("%w: material location is required", ErrValidation)
	}
	if m.Stock < 0 {
		return fmt.Errorf("%w: stock cannot be negative", ErrValidation)
	}
	return nil
}
