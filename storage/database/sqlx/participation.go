package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/klasshero/backend/core/participation"
)

type dbParticipation struct {
	ID           string       `db:"id"`
	SessionID    string       `db:"session_id"`
	ChildID      string       `db:"child_id"`
	EnrollmentID string       `db:"enrollment_id"`
	Status       string       `db:"status"`
	CheckInAt    sql.NullTime `db:"check_in_at"`
	CheckOutAt   sql.NullTime `db:"check_out_at"`
	CheckInNote  string       `db:"check_in_note"`
	CheckOutNote string       `db:"check_out_note"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
}

func (p dbParticipation) toRecord() participation.Record {
	rec := participation.Record{
		ID:           p.ID,
		SessionID:    p.SessionID,
		ChildID:      p.ChildID,
		EnrollmentID: p.EnrollmentID,
		Status:       participation.Status(p.Status),
		CheckInNote:  p.CheckInNote,
		CheckOutNote: p.CheckOutNote,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	if p.CheckInAt.Valid {
		in := p.CheckInAt.Time
		rec.CheckInAt = &in
	}
	if p.CheckOutAt.Valid {
		out := p.CheckOutAt.Time
		rec.CheckOutAt = &out
	}
	return rec
}

func newDBParticipation(rec participation.Record) dbParticipation {
	p := dbParticipation{
		ID:           rec.ID,
		SessionID:    rec.SessionID,
		ChildID:      rec.ChildID,
		EnrollmentID: rec.EnrollmentID,
		Status:       string(rec.Status),
		CheckInNote:  rec.CheckInNote,
		CheckOutNote: rec.CheckOutNote,
		CreatedAt:    rec.CreatedAt.UTC(),
		UpdatedAt:    rec.UpdatedAt.UTC(),
	}
	if rec.CheckInAt != nil {
		p.CheckInAt = sql.NullTime{Time: rec.CheckInAt.UTC(), Valid: true}
	}
	if rec.CheckOutAt != nil {
		p.CheckOutAt = sql.NullTime{Time: rec.CheckOutAt.UTC(), Valid: true}
	}
	return p
}

type dbRosterEntry struct {
	dbParticipation
	ChildName string `db:"child_name"`
}

type participationRepository struct {
	db *sqlx.DB
}

var _ participation.Repository = (*participationRepository)(nil) // interface compliance check

func NewParticipationRepository(db *sqlx.DB) *participationRepository {
	return &participationRepository{db: db}
}

func (repo participationRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return participation.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo participationRepository) CreateRecord(ctx context.Context, rec participation.Record) (participation.Record, error) {
	rec.ID = uuid.New().String()
	p := newDBParticipation(rec)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO participation (id, session_id, child_id, enrollment_id, status,
		                           check_in_at, check_out_at, check_in_note, check_out_note,
		                           created_at, updated_at)
		VALUES (:id, :session_id, :child_id, :enrollment_id, :status,
		        :check_in_at, :check_out_at, :check_in_note, :check_out_note,
		        :created_at, :updated_at)`, p)
	if err != nil {
		return participation.Record{}, errors.Wrap(err, "inserting participation record")
	}
	return p.toRecord(), nil
}

func (repo participationRepository) GetRecord(ctx context.Context, id string) (participation.Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return participation.Record{}, participation.ErrNotFound
	}

	var p dbParticipation
	if err := repo.db.GetContext(ctx, &p, `SELECT * FROM participation WHERE id = $1`, id); err != nil {
		return participation.Record{}, repo.trapNoRowsErr(err, "finding participation record")
	}
	return p.toRecord(), nil
}

func (repo participationRepository) GetRecordBySessionAndChild(ctx context.Context, sessionID, childID string) (participation.Record, error) {
	var p dbParticipation
	if err := repo.db.GetContext(ctx, &p,
		`SELECT * FROM participation WHERE session_id = $1 AND child_id = $2`, sessionID, childID); err != nil {
		return participation.Record{}, repo.trapNoRowsErr(err, "finding participation record")
	}
	return p.toRecord(), nil
}

// UpdateRecord persists rec behind a status guard: the UPDATE only matches
// while the stored status is still expectedStatus, so a concurrent transition
// that got there first makes this one fail instead of silently overwriting.
func (repo participationRepository) UpdateRecord(ctx context.Context, rec participation.Record, expectedStatus participation.Status) (participation.Record, error) {
	p := newDBParticipation(rec)
	res, err := repo.db.ExecContext(ctx, `
		UPDATE participation
		SET status = $1, check_in_at = $2, check_out_at = $3,
		    check_in_note = $4, check_out_note = $5, updated_at = $6
		WHERE id = $7 AND status = $8`,
		p.Status, p.CheckInAt, p.CheckOutAt, p.CheckInNote, p.CheckOutNote, p.UpdatedAt,
		p.ID, string(expectedStatus))
	if err != nil {
		return participation.Record{}, errors.Wrap(err, "updating participation record")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return participation.Record{}, errors.Wrap(err, "updating participation record")
	}
	if cnt == 0 {
		if _, err = repo.GetRecord(ctx, rec.ID); err != nil {
			return participation.Record{}, err
		}
		return participation.Record{}, participation.ErrInvalidTransition
	}
	return p.toRecord(), nil
}

func (repo participationRepository) QueryRosterBySession(ctx context.Context, sessionID string) ([]participation.RosterEntry, error) {
	var entries []dbRosterEntry
	if err := repo.db.SelectContext(ctx, &entries, `
		SELECT p.*, c.name AS child_name
		FROM participation p
		JOIN child c ON c.id = p.child_id
		WHERE p.session_id = $1
		ORDER BY c.name`, sessionID); err != nil {
		return nil, errors.Wrap(err, "querying session roster")
	}

	res := make([]participation.RosterEntry, 0, len(entries))
	for _, e := range entries {
		res = append(res, participation.RosterEntry{Record: e.toRecord(), ChildName: e.ChildName})
	}
	return res, nil
}

func (repo participationRepository) QueryRecordsByChild(ctx context.Context, childID string) ([]participation.Record, error) {
	var records []dbParticipation
	if err := repo.db.SelectContext(ctx, &records,
		`SELECT * FROM participation WHERE child_id = $1 ORDER BY created_at`, childID); err != nil {
		return nil, errors.Wrap(err, "querying participation records")
	}

	res := make([]participation.Record, 0, len(records))
	for _, p := range records {
		res = append(res, p.toRecord())
	}
	return res, nil
}
