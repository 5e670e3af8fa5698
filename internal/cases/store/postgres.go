package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"caseflow/internal/casenumber"
	"caseflow/internal/cases/models"
	"caseflow/pkg/platform/sentinel"
)

// Postgres persists cases and their history in PostgreSQL. The
// canonical_number column is maintained on every write so the active-case
// lookup stays an index scan instead of a normalization in SQL.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const caseColumns = `id, case_number, canonical_number, state, owner_id, classification,
	notes, destination, assigned_at, concluded_at, office_reference_number,
	reporters, subjects, crime_type, latitude, longitude, source_kind,
	created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, c *models.Case) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	c.UpdatedAt = c.CreatedAt

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cases (`+caseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		c.ID, c.CaseNumber, casenumber.Canonical(c.CaseNumber), c.State, c.OwnerID,
		c.Classification, c.Notes, c.Destination, c.AssignedAt, c.ConcludedAt,
		c.OfficeReferenceNumber, pq.Array(partyNames(c.Reporters)), pq.Array(partyNames(c.Subjects)),
		c.CrimeType, c.Latitude, c.Longitude, c.SourceKind, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create case: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, id uuid.UUID) (*models.Case, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+caseColumns+` FROM cases WHERE id = $1`, id)
	return scanCase(row)
}

func (s *Postgres) FindByNumber(ctx context.Context, caseNumber string) (*models.Case, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+caseColumns+` FROM cases
		WHERE case_number = $1
		ORDER BY created_at DESC
		LIMIT 1`, caseNumber)
	return scanCase(row)
}

func (s *Postgres) FindActiveByCanonical(ctx context.Context, canonical string) (*models.Case, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+caseColumns+` FROM cases
		WHERE canonical_number = $1 AND state NOT IN ('concluded', 'archived')
		ORDER BY created_at DESC
		LIMIT 1`, canonical)
	return scanCase(row)
}

func (s *Postgres) List(ctx context.Context, f Filter) ([]*models.Case, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if len(f.States) > 0 {
		states := make([]string, len(f.States))
		for i, st := range f.States {
			states[i] = string(st)
		}
		where = append(where, "state = ANY("+arg(pq.Array(states))+")")
	}
	if f.OwnerID != nil {
		where = append(where, "owner_id = "+arg(*f.OwnerID))
	}
	if f.Unassigned {
		where = append(where, "owner_id IS NULL")
	}
	if len(f.NumberIn) > 0 {
		where = append(where, "case_number = ANY("+arg(pq.Array(f.NumberIn))+")")
	}
	if f.NotesContains != "" {
		where = append(where, "notes ILIKE "+arg("%"+f.NotesContains+"%"))
	}
	if f.Geolocated {
		where = append(where, "latitude IS NOT NULL AND longitude IS NOT NULL")
	}

	query := `SELECT ` + caseColumns + ` FROM cases`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	var out []*models.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Postgres) Update(ctx context.Context, c *models.Case) error {
	c.UpdatedAt = time.Now()
	res, err := s.db.ExecContext(ctx, updateCaseSQL,
		c.ID, c.CaseNumber, casenumber.Canonical(c.CaseNumber), c.State, c.OwnerID,
		c.Classification, c.Notes, c.Destination, c.AssignedAt, c.ConcludedAt,
		c.OfficeReferenceNumber, pq.Array(partyNames(c.Reporters)), pq.Array(partyNames(c.Subjects)),
		c.CrimeType, c.Latitude, c.Longitude, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update case: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update case rows: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

const updateCaseSQL = `
	UPDATE cases SET
		case_number = $2, canonical_number = $3, state = $4, owner_id = $5,
		classification = $6, notes = $7, destination = $8, assigned_at = $9,
		concluded_at = $10, office_reference_number = $11, reporters = $12,
		subjects = $13, crime_type = $14, latitude = $15, longitude = $16,
		updated_at = $17
	WHERE id = $1`

// Mutate locks the row, applies fn, and writes the result inside one
// transaction, so concurrent reopens serialize on the row lock instead of
// racing the notes prepend.
func (s *Postgres) Mutate(ctx context.Context, id uuid.UUID, fn func(c *models.Case) error) (*models.Case, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin mutate: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `SELECT `+caseColumns+` FROM cases WHERE id = $1 FOR UPDATE`, id)
	c, err := scanCase(row)
	if err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		return nil, err
	}

	c.UpdatedAt = time.Now()
	if _, err := tx.ExecContext(ctx, updateCaseSQL,
		c.ID, c.CaseNumber, casenumber.Canonical(c.CaseNumber), c.State, c.OwnerID,
		c.Classification, c.Notes, c.Destination, c.AssignedAt, c.ConcludedAt,
		c.OfficeReferenceNumber, pq.Array(partyNames(c.Reporters)), pq.Array(partyNames(c.Subjects)),
		c.CrimeType, c.Latitude, c.Longitude, c.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("mutate case: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit mutate: %w", err)
	}
	return c, nil
}

func (s *Postgres) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cases WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete case: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete case rows: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) Append(ctx context.Context, entry models.HistoryEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO case_history (id, case_id, previous_state, new_state, actor_id, actor_name, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.CaseID, entry.PreviousState, entry.NewState,
		entry.ActorID, entry.ActorName, entry.Comment, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

func (s *Postgres) ListByCase(ctx context.Context, caseID uuid.UUID) ([]models.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, case_id, previous_state, new_state, actor_id, actor_name, comment, created_at
		FROM case_history
		WHERE case_id = $1
		ORDER BY created_at ASC`, caseID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []models.HistoryEntry
	for rows.Next() {
		var e models.HistoryEntry
		if err := rows.Scan(&e.ID, &e.CaseID, &e.PreviousState, &e.NewState,
			&e.ActorID, &e.ActorName, &e.Comment, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row rowScanner) (*models.Case, error) {
	var (
		c         models.Case
		canonical string
		reporters pq.StringArray
		subjects  pq.StringArray
	)
	err := row.Scan(&c.ID, &c.CaseNumber, &canonical, &c.State, &c.OwnerID,
		&c.Classification, &c.Notes, &c.Destination, &c.AssignedAt, &c.ConcludedAt,
		&c.OfficeReferenceNumber, &reporters, &subjects, &c.CrimeType,
		&c.Latitude, &c.Longitude, &c.SourceKind, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan case: %w", err)
	}
	c.Reporters = toParties(reporters)
	c.Subjects = toParties(subjects)
	return &c, nil
}

func partyNames(parties []models.Party) []string {
	out := make([]string, len(parties))
	for i, p := range parties {
		out[i] = p.Name
	}
	return out
}

func toParties(names []string) []models.Party {
	if len(names) == 0 {
		return nil
	}
	out := make([]models.Party, len(names))
	for i, n := range names {
		out[i] = models.Party{Name: n}
	}
	return out
}
