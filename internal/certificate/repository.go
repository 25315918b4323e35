package certificate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type Repository interface {
	Create(ctx context.Context, issued *Issued) error
	GetByID(ctx context.Context, id uuid.UUID) (*Issued, error)
	List(ctx context.Context) ([]Issued, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS issued_certificates (
	id                UUID PRIMARY KEY,
	student           TEXT NOT NULL,
	course            TEXT NOT NULL,
	email             TEXT NOT NULL DEFAULT '',
	verification_code TEXT NOT NULL,
	archive_key       TEXT,
	issued_by         TEXT NOT NULL DEFAULT '',
	issued_at         TIMESTAMPTZ NOT NULL
)`

type postgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository ensures the issued_certificates table exists.
func NewPostgresRepository(ctx context.Context, db *sqlx.DB) (Repository, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("failed to create issued_certificates table: %w", err)
	}
	return &postgresRepository{db: db}, nil
}

func (r *postgresRepository) Create(ctx context.Context, issued *Issued) error {
	query := `
		INSERT INTO issued_certificates (
			id, student, course, email, verification_code, archive_key, issued_by, issued_at
		) VALUES (
			:id, :student, :course, :email, :verification_code, :archive_key, :issued_by, :issued_at
		)`
	_, err := r.db.NamedExecContext(ctx, query, issued)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return fmt.Errorf("%w: %s", ErrDuplicate, issued.ID)
	}
	return err
}

func (r *postgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*Issued, error) {
	var issued Issued
	err := r.db.GetContext(ctx, &issued, "SELECT * FROM issued_certificates WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &issued, nil
}

func (r *postgresRepository) List(ctx context.Context) ([]Issued, error) {
	var issued []Issued
	err := r.db.SelectContext(ctx, &issued, "SELECT * FROM issued_certificates ORDER BY issued_at DESC")
	return issued, err
}

type memoryRepository struct {
	mu     sync.RWMutex
	issued map[uuid.UUID]Issued
}

// NewMemoryRepository keeps records in process memory. Used when no database is configured.
func NewMemoryRepository() Repository {
	return &memoryRepository{issued: make(map[uuid.UUID]Issued)}
}

func (r *memoryRepository) Create(ctx context.Context, issued *Issued) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.issued[issued.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, issued.ID)
	}
	r.issued[issued.ID] = *issued
	return nil
}

func (r *memoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*Issued, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	issued, ok := r.issued[id]
	if !ok {
		return nil, nil
	}
	return &issued, nil
}

func (r *memoryRepository) List(ctx context.Context) ([]Issued, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Issued, 0, len(r.issued))
	for _, issued := range r.issued {
		out = append(out, issued)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.After(out[j].IssuedAt) })
	return out, nil
}
