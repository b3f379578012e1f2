package db

import (
	"context"
	"time"

	"github.com/Heidric/queueing/internal/model"
)

// HistoryStorage keeps evaluation records.
type HistoryStorage interface {
	// Save assigns e.ID (and e.CreatedAt when zero) and stores the record.
	Save(ctx context.Context, e *model.Evaluation) error
	Get(ctx context.Context, id int64) (*model.Evaluation, error)
	// List returns up to limit records, newest first.
	List(ctx context.Context, limit int) ([]model.Evaluation, error)
	Ping(ctx context.Context) error
	Close() error
}

// NewStorage returns a PostgresStore when dsn is set and a MemoryStore
// otherwise.
func NewStorage(dsn, filePath string, storeInterval time.Duration) (HistoryStorage, error) {
	if dsn != "" {
		return NewPostgresStore(dsn), nil
	}
	return NewMemoryStore(filePath, storeInterval)
}
