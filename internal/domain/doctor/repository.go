package doctor

import "context"

type Repository interface {
	// GetByID returns ErrDoctorNotFound if no doctor has the identifier.
	GetByID(ctx context.Context, id string) (*Doctor, error)

	// List returns every doctor matching q, ordered by identifier.
	List(ctx context.Context, q SearchQuery) ([]*Doctor, error)

	// Upsert inserts or replaces a directory entry.
	Upsert(ctx context.Context, d *Doctor) error
}
