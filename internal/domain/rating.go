package domain

import (
	"regexp"
	"time"
)

// MaxIDLength is the width of the imdb_id column.
const MaxIDLength = 10

// Bounds of an IMDb average rating.
const (
	MinRating = 0.0
	MaxRating = 10.0
)

var idPattern = regexp.MustCompile(`^[a-z]{2}\d{7,8}$`)

// Rating is the persisted IMDb rating for a single title.
type Rating struct {
	ID        string
	Rating    float64
	Votes     int64
	UpdatedAt time.Time
}

// ValidID reports whether id is a two-letter prefix followed by 7 or 8 digits.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}
