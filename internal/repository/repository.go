package repository

import (
	"context"
	"database/sql"
	"time"

	"smart_irrigation/internal/models"
	"smart_irrigation/internal/repository/db"
)

// InitDB opens the SQLite store and ensures the schema exists.
func InitDB(path string) (*sql.DB, error) {
	return db.InitDB(path)
}

type Authorization interface {
	Create(username, hash string) (int, error)
	GetByUsername(username string) (*models.User, error)
}

type StateRepo interface {
	Save(ctx context.Context, s models.ControllerState) error
	Load(ctx context.Context) (models.ControllerState, error)
}

type EventRepo interface {
	Append(ctx context.Context, e models.IrrigationEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.IrrigationEvent, error)
}

type Repository struct {
	StateRepo StateRepo
	EventRepo EventRepo
	Auth      Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		StateRepo: NewStateSQLite(db),
		EventRepo: NewEventSQLite(db),
		Auth:      NewUserRepository(db),
	}
}
