package store

import "github.com/jackc/pgx/v5/pgxpool"

// Postgres satisfies RecordStore with one repository per table.
type Postgres struct {
	*DonorRepository
	*RequestRepository
	*NotificationRepository
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{
		DonorRepository:        NewDonorRepository(pool),
		RequestRepository:      NewRequestRepository(pool),
		NotificationRepository: NewNotificationRepository(pool),
	}
}

var _ RecordStore = (*Postgres)(nil)
var _ RecordStore = (*Memory)(nil)
var _ RecordStore = (*Firebase)(nil)
