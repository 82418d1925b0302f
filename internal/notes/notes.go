// Package notes stores free text notes kept by the shop staff.
package notes

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/mercadito/internal/common"
	"github.com/noah-isme/mercadito/internal/db"
)

// ErrStoreUnavailable indicates the note store dependency is not configured.
var ErrStoreUnavailable = errors.New("notes: store unavailable")

// Note is a staff note.
type Note struct {
	ID          int64     `json:"id"`
	Title       string    `json:"titulo"`
	Description string    `json:"descripcion"`
	CreatedAt   time.Time `json:"fecha_creacion"`
}

// CreateRequest is the body of POST /api/notas.
type CreateRequest struct {
	Title       string `json:"titulo"`
	Description string `json:"descripcion"`
}

// Store provides persistence for notes.
type Store interface {
	ListNotes(ctx context.Context) ([]Note, error)
	CreateNote(ctx context.Context, title, description string) (Note, error)
	DeleteNote(ctx context.Context, id int64) (bool, error)
}

// NewStore constructs a Store backed by a pgx connection pool.
func NewStore(q db.Querier) Store {
	return &pgStore{q: q}
}

type pgStore struct {
	q db.Querier
}

func (s *pgStore) ListNotes(ctx context.Context) ([]Note, error) {
	if s == nil || s.q == nil {
		return nil, ErrStoreUnavailable
	}
	rows, err := s.q.Query(ctx, `SELECT id, titulo, descripcion, fecha_creacion FROM notas ORDER BY fecha_creacion DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	notes := make([]Note, 0)
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.Title, &n.Description, &n.CreatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func (s *pgStore) CreateNote(ctx context.Context, title, description string) (Note, error) {
	if s == nil || s.q == nil {
		return Note{}, ErrStoreUnavailable
	}
	n := Note{Title: title, Description: description}
	err := s.q.QueryRow(ctx,
		`INSERT INTO notas (titulo, descripcion) VALUES ($1, $2) RETURNING id, fecha_creacion`,
		title, description,
	).Scan(&n.ID, &n.CreatedAt)
	return n, err
}

func (s *pgStore) DeleteNote(ctx context.Context, id int64) (bool, error) {
	if s == nil || s.q == nil {
		return false, ErrStoreUnavailable
	}
	tag, err := s.q.Exec(ctx, `DELETE FROM notas WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Service manages notes.
type Service struct {
	store Store
}

// NewService constructs a note Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// List returns every note, newest first.
func (s *Service) List(ctx context.Context) ([]Note, error) {
	notes, err := s.store.ListNotes(ctx)
	if err != nil {
		return nil, common.Internal("Error al obtener notas", err)
	}
	return notes, nil
}

// Create stores a note. Title and description are both required.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Note, error) {
	title, description := strings.TrimSpace(req.Title), strings.TrimSpace(req.Description)
	if title == "" || description == "" {
		return Note{}, common.Validation("Título y descripción son requeridos", nil)
	}
	note, err := s.store.CreateNote(ctx, title, description)
	if err != nil {
		return Note{}, common.Internal("Error al crear nota", err)
	}
	zerolog.Ctx(ctx).Debug().Int64("note_id", note.ID).Msg("note created")
	return note, nil
}

// Delete removes a note.
func (s *Service) Delete(ctx context.Context, id int64) error {
	existed, err := s.store.DeleteNote(ctx, id)
	if err != nil {
		return common.Internal("Error al eliminar nota", err)
	}
	if !existed {
		return common.NotFound("Nota no encontrada", id)
	}
	return nil
}
