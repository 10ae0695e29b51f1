package lookup

import (
	"context"
	"errors"
	"log"

	"github.com/Clark-Hu/imdb-ratings/internal/domain"
	"github.com/Clark-Hu/imdb-ratings/internal/repository"
)

var (
	// ErrInvalidInput means the identifier is not a two-letter prefix plus 7-8 digits.
	ErrInvalidInput = errors.New("lookup: invalid identifier")
	// ErrNotFound means the identifier is well formed but not stored.
	ErrNotFound = errors.New("lookup: not found")
	// ErrInternal hides storage failures from callers.
	ErrInternal = errors.New("lookup: internal error")
)

// Reader reads one rating by primary key.
type Reader interface {
	GetByID(ctx context.Context, id string) (domain.Rating, error)
}

// Cache is an optional read-through cache in front of Reader. A miss reports
// the id's invalidation version; Fill must drop the record if the id was
// invalidated after that version was read.
type Cache interface {
	Get(ctx context.Context, id string) (rating domain.Rating, version int64, hit bool, err error)
	Fill(ctx context.Context, r domain.Rating, version int64) error
}

// Service answers rating lookups. It holds no per-request state.
type Service struct {
	reader Reader
	cache  Cache
	logger *log.Logger
}

// NewService builds a Service. cache may be nil.
func NewService(reader Reader, cache Cache, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{reader: reader, cache: cache, logger: logger}
}

// Get validates id and returns its rating.
func (s *Service) Get(ctx context.Context, id string) (domain.Rating, error) {
	if !domain.ValidID(id) {
		return domain.Rating{}, ErrInvalidInput
	}

	fill := false
	var version int64
	if s.cache != nil {
		cached, v, hit, err := s.cache.Get(ctx, id)
		switch {
		case err != nil:
			s.logger.Printf("lookup: cache get %s: %v", id, err)
		case hit:
			return cached, nil
		default:
			fill, version = true, v
		}
	}

	rating, err := s.reader.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Rating{}, ErrNotFound
		}
		s.logger.Printf("lookup: read %s: %v", id, err)
		return domain.Rating{}, ErrInternal
	}

	if fill {
		if err := s.cache.Fill(ctx, rating, version); err != nil {
			s.logger.Printf("lookup: cache fill %s: %v", id, err)
		}
	}
	return rating, nil
}
