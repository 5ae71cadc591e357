package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/klasshero/backend/core"
	"github.com/klasshero/backend/core/program"
)

type dbProgram struct {
	ID              string          `db:"id"`
	ProviderID      string          `db:"provider_id"`
	Name            string          `db:"name"`
	Description     string          `db:"description"`
	Category        string          `db:"category"`
	AgeMin          int             `db:"age_min"`
	AgeMax          int             `db:"age_max"`
	WeeklyFee       decimal.Decimal `db:"weekly_fee"`
	RegistrationFee decimal.Decimal `db:"registration_fee"`
	WeeksCount      int             `db:"weeks_count"`
	VATRate         decimal.Decimal `db:"vat_rate"`
	CardFee         decimal.Decimal `db:"card_fee"`
	SpotsTotal      int             `db:"spots_total"`
	SpotsTaken      int             `db:"spots_taken"`

	RegistrationStart sql.NullTime `db:"registration_start"`
	RegistrationEnd   sql.NullTime `db:"registration_end"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (p dbProgram) toProgram() program.Program {
	prog := program.Program{
		ID:              p.ID,
		ProviderID:      p.ProviderID,
		Name:            p.Name,
		Description:     p.Description,
		Category:        p.Category,
		AgeMin:          p.AgeMin,
		AgeMax:          p.AgeMax,
		WeeklyFee:       p.WeeklyFee,
		RegistrationFee: p.RegistrationFee,
		WeeksCount:      p.WeeksCount,
		VATRate:         p.VATRate,
		CardFee:         p.CardFee,
		SpotsTotal:      p.SpotsTotal,
		SpotsTaken:      p.SpotsTaken,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
	if p.RegistrationStart.Valid {
		start := p.RegistrationStart.Time
		prog.RegistrationStart = &start
	}
	if p.RegistrationEnd.Valid {
		end := p.RegistrationEnd.Time
		prog.RegistrationEnd = &end
	}
	return prog
}

func newDBProgram(prog program.Program) dbProgram {
	p := dbProgram{
		ID:              prog.ID,
		ProviderID:      prog.ProviderID,
		Name:            prog.Name,
		Description:     prog.Description,
		Category:        prog.Category,
		AgeMin:          prog.AgeMin,
		AgeMax:          prog.AgeMax,
		WeeklyFee:       prog.WeeklyFee,
		RegistrationFee: prog.RegistrationFee,
		WeeksCount:      prog.WeeksCount,
		VATRate:         prog.VATRate,
		CardFee:         prog.CardFee,
		SpotsTotal:      prog.SpotsTotal,
		SpotsTaken:      prog.SpotsTaken,
		CreatedAt:       prog.CreatedAt.UTC(),
		UpdatedAt:       prog.UpdatedAt.UTC(),
	}
	if prog.RegistrationStart != nil {
		p.RegistrationStart = sql.NullTime{Time: *prog.RegistrationStart, Valid: true}
	}
	if prog.RegistrationEnd != nil {
		p.RegistrationEnd = sql.NullTime{Time: *prog.RegistrationEnd, Valid: true}
	}
	return p
}

type dbSession struct {
	ID        string    `db:"id"`
	ProgramID string    `db:"program_id"`
	StartsAt  time.Time `db:"starts_at"`
	EndsAt    time.Time `db:"ends_at"`
	Location  string    `db:"location"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (s dbSession) toSession() program.Session {
	return program.Session{
		ID:        s.ID,
		ProgramID: s.ProgramID,
		StartsAt:  s.StartsAt,
		EndsAt:    s.EndsAt,
		Location:  s.Location,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

type programRepository struct {
	db *sqlx.DB
}

var _ program.Repository = (*programRepository)(nil) // interface compliance check

func NewProgramRepository(db *sqlx.DB) *programRepository {
	return &programRepository{db: db}
}

func (repo programRepository) CreateProgram(ctx context.Context, prog program.Program) (program.Program, error) {
	prog.ID = uuid.New().String()
	p := newDBProgram(prog)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO program (id, provider_id, name, description, category, age_min, age_max,
		                     weekly_fee, registration_fee, weeks_count, vat_rate, card_fee,
		                     spots_total, spots_taken, registration_start, registration_end,
		                     created_at, updated_at)
		VALUES (:id, :provider_id, :name, :description, :category, :age_min, :age_max,
		        :weekly_fee, :registration_fee, :weeks_count, :vat_rate, :card_fee,
		        :spots_total, :spots_taken, :registration_start, :registration_end,
		        :created_at, :updated_at)`, p)
	if err != nil {
		return program.Program{}, errors.Wrap(err, "inserting program")
	}
	return p.toProgram(), nil
}

func (repo programRepository) GetProgram(ctx context.Context, id string) (program.Program, error) {
	if _, err := uuid.Parse(id); err != nil {
		return program.Program{}, program.ErrNotFound
	}

	var p dbProgram
	if err := repo.db.GetContext(ctx, &p, `SELECT * FROM program WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return program.Program{}, program.ErrNotFound
		}
		return program.Program{}, errors.Wrap(err, "finding program")
	}
	return p.toProgram(), nil
}

func (repo programRepository) QueryPrograms(ctx context.Context, filter *program.QueryFilter, ordering ...core.DBOrdering) ([]program.Program, error) {
	query := `SELECT * FROM program`
	var conds []string
	var args []interface{}

	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter != nil {
		if filter.ProviderID != "" {
			conds = append(conds, "provider_id = "+arg(filter.ProviderID))
		}
		if filter.Category != "" {
			conds = append(conds, "category = "+arg(filter.Category))
		}
		if filter.Search != "" {
			p := arg("%" + filter.Search + "%")
			conds = append(conds, "(name ILIKE "+p+" OR description ILIKE "+p+")")
		}
		// window boundaries are calendar dates, inclusive on both ends
		if filter.RegistrationOpen != nil {
			openCond := "(registration_start IS NULL OR registration_start <= CURRENT_DATE)" +
				" AND (registration_end IS NULL OR registration_end >= CURRENT_DATE)"
			if *filter.RegistrationOpen {
				conds = append(conds, "("+openCond+")")
			} else {
				conds = append(conds, "NOT ("+openCond+")")
			}
		}
	}

	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		query += " ORDER BY " + strings.Join(orderList, ", ")
	}

	var programs []dbProgram
	if err := repo.db.SelectContext(ctx, &programs, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying programs")
	}

	res := make([]program.Program, 0, len(programs))
	for _, p := range programs {
		res = append(res, p.toProgram())
	}
	return res, nil
}

func (repo programRepository) UpdateProgram(ctx context.Context, prog program.Program) (program.Program, error) {
	p := newDBProgram(prog)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE program
		SET name = :name, description = :description, category = :category,
		    age_min = :age_min, age_max = :age_max,
		    weekly_fee = :weekly_fee, registration_fee = :registration_fee, weeks_count = :weeks_count,
		    vat_rate = :vat_rate, card_fee = :card_fee,
		    spots_total = :spots_total,
		    registration_start = :registration_start, registration_end = :registration_end,
		    updated_at = :updated_at
		WHERE id = :id`, p)
	if err != nil {
		return program.Program{}, errors.Wrap(err, "updating program")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return program.Program{}, program.ErrNotFound
	}
	return repo.GetProgram(ctx, prog.ID)
}

// ClaimSpot takes one spot with a guarded UPDATE; two concurrent claims on the
// last spot cannot both succeed.
func (repo programRepository) ClaimSpot(ctx context.Context, programID string) error {
	res, err := repo.db.ExecContext(ctx, `
		UPDATE program
		SET spots_taken = spots_taken + 1
		WHERE id = $1 AND spots_taken < spots_total`, programID)
	if err != nil {
		return errors.Wrap(err, "claiming program spot")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "claiming program spot")
	}
	if cnt == 0 {
		// full, or the program does not exist
		if _, err = repo.GetProgram(ctx, programID); err != nil {
			return err
		}
		return program.ErrNoSpotsAvailable
	}
	return nil
}

func (repo programRepository) ReleaseSpot(ctx context.Context, programID string) error {
	_, err := repo.db.ExecContext(ctx, `
		UPDATE program
		SET spots_taken = spots_taken - 1
		WHERE id = $1 AND spots_taken > 0`, programID)
	return errors.Wrap(err, "releasing program spot")
}

func (repo programRepository) CreateSession(ctx context.Context, sess program.Session) (program.Session, error) {
	sess.ID = uuid.New().String()
	s := dbSession{
		ID:        sess.ID,
		ProgramID: sess.ProgramID,
		StartsAt:  sess.StartsAt.UTC(),
		EndsAt:    sess.EndsAt.UTC(),
		Location:  sess.Location,
		CreatedAt: sess.CreatedAt.UTC(),
		UpdatedAt: sess.UpdatedAt.UTC(),
	}
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO session (id, program_id, starts_at, ends_at, location, created_at, updated_at)
		VALUES (:id, :program_id, :starts_at, :ends_at, :location, :created_at, :updated_at)`, s)
	if err != nil {
		return program.Session{}, errors.Wrap(err, "inserting session")
	}
	return s.toSession(), nil
}

func (repo programRepository) GetSession(ctx context.Context, id string) (program.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return program.Session{}, program.ErrSessionNotFound
	}

	var s dbSession
	if err := repo.db.GetContext(ctx, &s, `SELECT * FROM session WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return program.Session{}, program.ErrSessionNotFound
		}
		return program.Session{}, errors.Wrap(err, "finding session")
	}
	return s.toSession(), nil
}

func (repo programRepository) QuerySessionsByProgram(ctx context.Context, programID string) ([]program.Session, error) {
	var sessions []dbSession
	if err := repo.db.SelectContext(ctx, &sessions,
		`SELECT * FROM session WHERE program_id = $1 ORDER BY starts_at`, programID); err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}

	res := make([]program.Session, 0, len(sessions))
	for _, s := range sessions {
		res = append(res, s.toSession())
	}
	return res, nil
}
