package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/klasshero/backend/core/family"
)

type dbParentProfile struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Tier      string    `db:"tier"`
	Phone     string    `db:"phone"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (p dbParentProfile) toProfile() family.ParentProfile {
	return family.ParentProfile{
		ID:        p.ID,
		UserID:    p.UserID,
		Tier:      family.Tier(p.Tier),
		Phone:     p.Phone,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func newDBParentProfile(prof family.ParentProfile) dbParentProfile {
	return dbParentProfile{
		ID:        prof.ID,
		UserID:    prof.UserID,
		Tier:      string(prof.Tier),
		Phone:     prof.Phone,
		CreatedAt: prof.CreatedAt.UTC(),
		UpdatedAt: prof.UpdatedAt.UTC(),
	}
}

type dbChild struct {
	ID        string    `db:"id"`
	ParentID  string    `db:"parent_id"`
	Name      string    `db:"name"`
	BirthDate time.Time `db:"birth_date"`
	Allergies string    `db:"allergies"`
	Notes     string    `db:"notes"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (c dbChild) toChild() family.Child {
	return family.Child{
		ID:        c.ID,
		ParentID:  c.ParentID,
		Name:      c.Name,
		BirthDate: c.BirthDate,
		Allergies: c.Allergies,
		Notes:     c.Notes,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func newDBChild(child family.Child) dbChild {
	return dbChild{
		ID:        child.ID,
		ParentID:  child.ParentID,
		Name:      child.Name,
		BirthDate: child.BirthDate,
		Allergies: child.Allergies,
		Notes:     child.Notes,
		CreatedAt: child.CreatedAt.UTC(),
		UpdatedAt: child.UpdatedAt.UTC(),
	}
}

type familyRepository struct {
	db *sqlx.DB
}

var _ family.Repository = (*familyRepository)(nil) // interface compliance check

func NewFamilyRepository(db *sqlx.DB) *familyRepository {
	return &familyRepository{db: db}
}

func (repo familyRepository) CreateProfile(ctx context.Context, prof family.ParentProfile) (family.ParentProfile, error) {
	prof.ID = uuid.New().String()
	p := newDBParentProfile(prof)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO parent_profile (id, user_id, tier, phone, created_at, updated_at)
		VALUES (:id, :user_id, :tier, :phone, :created_at, :updated_at)`, p)
	if err != nil {
		return family.ParentProfile{}, errors.Wrap(err, "inserting parent profile")
	}
	return p.toProfile(), nil
}

func (repo familyRepository) GetProfileByID(ctx context.Context, id string) (family.ParentProfile, error) {
	if _, err := uuid.Parse(id); err != nil {
		return family.ParentProfile{}, family.ErrNoParentProfile
	}

	var p dbParentProfile
	if err := repo.db.GetContext(ctx, &p, `SELECT * FROM parent_profile WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return family.ParentProfile{}, family.ErrNoParentProfile
		}
		return family.ParentProfile{}, errors.Wrap(err, "finding parent profile")
	}
	return p.toProfile(), nil
}

func (repo familyRepository) GetProfileByUserID(ctx context.Context, userID string) (family.ParentProfile, error) {
	var p dbParentProfile
	if err := repo.db.GetContext(ctx, &p, `SELECT * FROM parent_profile WHERE user_id = $1`, userID); err != nil {
		if err == sql.ErrNoRows {
			return family.ParentProfile{}, family.ErrNoParentProfile
		}
		return family.ParentProfile{}, errors.Wrap(err, "finding parent profile")
	}
	return p.toProfile(), nil
}

func (repo familyRepository) UpdateProfile(ctx context.Context, prof family.ParentProfile) (family.ParentProfile, error) {
	p := newDBParentProfile(prof)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE parent_profile
		SET tier = :tier, phone = :phone, updated_at = :updated_at
		WHERE id = :id`, p)
	if err != nil {
		return family.ParentProfile{}, errors.Wrap(err, "updating parent profile")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return family.ParentProfile{}, family.ErrNoParentProfile
	}
	return p.toProfile(), nil
}

func (repo familyRepository) CreateChild(ctx context.Context, child family.Child) (family.Child, error) {
	child.ID = uuid.New().String()
	c := newDBChild(child)
	_, err := repo.db.NamedExecContext(ctx, `
		INSERT INTO child (id, parent_id, name, birth_date, allergies, notes, created_at, updated_at)
		VALUES (:id, :parent_id, :name, :birth_date, :allergies, :notes, :created_at, :updated_at)`, c)
	if err != nil {
		return family.Child{}, errors.Wrap(err, "inserting child")
	}
	return c.toChild(), nil
}

func (repo familyRepository) GetChild(ctx context.Context, id string) (family.Child, error) {
	if _, err := uuid.Parse(id); err != nil {
		return family.Child{}, family.ErrNotFound
	}

	var c dbChild
	if err := repo.db.GetContext(ctx, &c, `SELECT * FROM child WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return family.Child{}, family.ErrNotFound
		}
		return family.Child{}, errors.Wrap(err, "finding child")
	}
	return c.toChild(), nil
}

func (repo familyRepository) QueryChildrenByParent(ctx context.Context, parentID string) ([]family.Child, error) {
	var children []dbChild
	if err := repo.db.SelectContext(ctx, &children,
		`SELECT * FROM child WHERE parent_id = $1 ORDER BY created_at`, parentID); err != nil {
		return nil, errors.Wrap(err, "querying children")
	}

	res := make([]family.Child, 0, len(children))
	for _, c := range children {
		res = append(res, c.toChild())
	}
	return res, nil
}

func (repo familyRepository) UpdateChild(ctx context.Context, child family.Child) (family.Child, error) {
	c := newDBChild(child)
	res, err := repo.db.NamedExecContext(ctx, `
		UPDATE child
		SET name = :name, birth_date = :birth_date, allergies = :allergies, notes = :notes, updated_at = :updated_at
		WHERE id = :id`, c)
	if err != nil {
		return family.Child{}, errors.Wrap(err, "updating child")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return family.Child{}, family.ErrNotFound
	}
	return c.toChild(), nil
}

func (repo familyRepository) DeleteChild(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, `DELETE FROM child WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting child")
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return family.ErrNotFound
	}
	return nil
}
