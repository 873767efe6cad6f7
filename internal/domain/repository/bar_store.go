package repository

import (
	"context"
	"time"

	"ORBLab/internal/domain/models"
)

// BarStore provides read-only access to 1-minute bars. Returned bars are
// ordered by time with unique timestamps in [from, to).
type BarStore interface {
	Bars(ctx context.Context, instrument string, from, to time.Time) ([]models.Bar, error)
}
