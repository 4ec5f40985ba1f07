package data

import (
	"database/sql"

	"github.com/shannonbirch/shanbot/internal/biz/repo"
)

// Repositories contains all sqlite-backed repositories sharing one database.
type Repositories struct {
	Review     repo.ReviewRepo
	History    repo.HistoryRepo
	Subscriber repo.SubscriberRepo

	db *sql.DB
}

// NewRepositories opens the database and creates all repositories.
func NewRepositories(dbPath string) (*Repositories, error) {
	db, err := openDB(dbPath)
	if err != nil {
		return nil, err
	}

	return &Repositories{
		Review:     NewReviewRepo(db),
		History:    NewHistoryRepo(db),
		Subscriber: NewSubscriberRepo(db),
		db:         db,
	}, nil
}

// Close closes the shared database connection.
func (r *Repositories) Close() error {
	return r.db.Close()
}
