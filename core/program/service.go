package program

import (
	"context"
	"time"

	"github.com/klasshero/backend/core"
)

type (
	Repository interface {
		CreateProgram(ctx context.Context, prog Program) (Program, error)
		GetProgram(ctx context.Context, id string) (Program, error)
		// QueryPrograms applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of Program.Name or Program.Description.
		QueryPrograms(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Program, error)
		UpdateProgram(ctx context.Context, prog Program) (Program, error)
		// ClaimSpot atomically takes one spot on the program; it fails with
		// ErrNoSpotsAvailable when the program is full and must not
		// over-admit under concurrent claims.
		ClaimSpot(ctx context.Context, programID string) error
		ReleaseSpot(ctx context.Context, programID string) error
		CreateSession(ctx context.Context, sess Session) (Session, error)
		GetSession(ctx context.Context, id string) (Session, error)
		QuerySessionsByProgram(ctx context.Context, programID string) ([]Session, error)
	}

	Service interface {
		Create(ctx context.Context, providerID string, np NewProgram) (Program, error)
		GetByID(ctx context.Context, id string) (Program, error)
		Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Program, error)
		Update(ctx context.Context, id string, up UpdateProgram) (Program, error)
		ClaimSpot(ctx context.Context, programID string) error
		ReleaseSpot(ctx context.Context, programID string) error
		AddSession(ctx context.Context, programID string, ns NewSession) (Session, error)
		GetSession(ctx context.Context, id string) (Session, error)
		QuerySessions(ctx context.Context, programID string) ([]Session, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, providerID string, np NewProgram) (Program, error) {
	now := time.Now().UTC()
	prog := Program{
		ProviderID:        providerID,
		Name:              np.Name,
		Description:       np.Description,
		Category:          np.Category,
		AgeMin:            np.AgeMin,
		AgeMax:            np.AgeMax,
		WeeklyFee:         np.WeeklyFee,
		RegistrationFee:   np.RegistrationFee,
		WeeksCount:        np.WeeksCount,
		VATRate:           np.VATRate,
		CardFee:           np.CardFee,
		SpotsTotal:        np.SpotsTotal,
		RegistrationStart: np.RegistrationStart,
		RegistrationEnd:   np.RegistrationEnd,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	return svc.repo.CreateProgram(ctx, prog)
}

func (svc *service) GetByID(ctx context.Context, id string) (Program, error) {
	return svc.repo.GetProgram(ctx, id)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering ...core.DBOrdering) ([]Program, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryPrograms(ctx, filter, ordering...)
}

func (svc *service) Update(ctx context.Context, id string, up UpdateProgram) (Program, error) {
	prog, err := svc.repo.GetProgram(ctx, id)
	if err != nil {
		return Program{}, err
	}

	if name := core.CleanString(up.Name); name != "" {
		prog.Name = name
	}
	if up.Description != nil {
		prog.Description = core.CleanString(*up.Description)
	}
	if cat := core.CleanString(up.Category, true /* lower */); cat != "" {
		prog.Category = cat
	}
	if up.WeeklyFee != nil {
		prog.WeeklyFee = *up.WeeklyFee
	}
	if up.RegistrationFee != nil {
		prog.RegistrationFee = *up.RegistrationFee
	}
	if up.VATRate != nil {
		prog.VATRate = *up.VATRate
	}
	if up.CardFee != nil {
		prog.CardFee = *up.CardFee
	}
	if up.SpotsTotal != nil {
		prog.SpotsTotal = *up.SpotsTotal
	}
	if up.RegistrationStart != nil {
		prog.RegistrationStart = up.RegistrationStart
	}
	if up.RegistrationEnd != nil {
		prog.RegistrationEnd = up.RegistrationEnd
	}
	prog.UpdatedAt = time.Now().UTC()

	return svc.repo.UpdateProgram(ctx, prog)
}

func (svc *service) ClaimSpot(ctx context.Context, programID string) error {
	return svc.repo.ClaimSpot(ctx, programID)
}

func (svc *service) ReleaseSpot(ctx context.Context, programID string) error {
	return svc.repo.ReleaseSpot(ctx, programID)
}

func (svc *service) AddSession(ctx context.Context, programID string, ns NewSession) (Session, error) {
	// the program must exist
	if _, err := svc.repo.GetProgram(ctx, programID); err != nil {
		return Session{}, err
	}

	now := time.Now().UTC()
	sess := Session{
		ProgramID: programID,
		StartsAt:  ns.StartsAt,
		EndsAt:    ns.EndsAt,
		Location:  ns.Location,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateSession(ctx, sess)
}

func (svc *service) GetSession(ctx context.Context, id string) (Session, error) {
	return svc.repo.GetSession(ctx, id)
}

func (svc *service) QuerySessions(ctx context.Context, programID string) ([]Session, error) {
	return svc.repo.QuerySessionsByProgram(ctx, programID)
}
