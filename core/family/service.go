package family

import (
	"context"
	"time"
)

type (
	Repository interface {
		CreateProfile(ctx context.Context, prof ParentProfile) (ParentProfile, error)
		GetProfileByID(ctx context.Context, id string) (ParentProfile, error)
		GetProfileByUserID(ctx context.Context, userID string) (ParentProfile, error)
		UpdateProfile(ctx context.Context, prof ParentProfile) (ParentProfile, error)
		CreateChild(ctx context.Context, child Child) (Child, error)
		GetChild(ctx context.Context, id string) (Child, error)
		QueryChildrenByParent(ctx context.Context, parentID string) ([]Child, error)
		UpdateChild(ctx context.Context, child Child) (Child, error)
		DeleteChild(ctx context.Context, id string) error
	}

	Service interface {
		CreateProfile(ctx context.Context, np NewParentProfile) (ParentProfile, error)
		GetProfile(ctx context.Context, id string) (ParentProfile, error)
		GetProfileByUserID(ctx context.Context, userID string) (ParentProfile, error)
		ChangeTier(ctx context.Context, profileID string, tier Tier) (ParentProfile, error)
		AddChild(ctx context.Context, parentID string, nc NewChild) (Child, error)
		GetChild(ctx context.Context, id string) (Child, error)
		QueryChildren(ctx context.Context, parentID string) ([]Child, error)
		UpdateChild(ctx context.Context, id string, uc UpdateChild) (Child, error)
		RemoveChild(ctx context.Context, id string) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) CreateProfile(ctx context.Context, np NewParentProfile) (ParentProfile, error) {
	tier, err := ParseTier(np.Tier)
	if err != nil {
		return ParentProfile{}, err
	}

	// one profile per account
	if _, err := svc.repo.GetProfileByUserID(ctx, np.UserID); err == nil {
		return ParentProfile{}, ErrProfileExists
	} else if err != ErrNoParentProfile {
		return ParentProfile{}, err
	}

	now := time.Now().UTC()
	prof := ParentProfile{
		UserID:    np.UserID,
		Tier:      tier,
		Phone:     np.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateProfile(ctx, prof)
}

func (svc *service) GetProfile(ctx context.Context, id string) (ParentProfile, error) {
	return svc.repo.GetProfileByID(ctx, id)
}

func (svc *service) GetProfileByUserID(ctx context.Context, userID string) (ParentProfile, error) {
	return svc.repo.GetProfileByUserID(ctx, userID)
}

func (svc *service) ChangeTier(ctx context.Context, profileID string, tier Tier) (ParentProfile, error) {
	if _, err := ParseTier(string(tier)); err != nil {
		return ParentProfile{}, err
	}
	prof, err := svc.repo.GetProfileByID(ctx, profileID)
	if err != nil {
		return ParentProfile{}, err
	}
	prof.Tier = tier
	prof.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateProfile(ctx, prof)
}

func (svc *service) AddChild(ctx context.Context, parentID string, nc NewChild) (Child, error) {
	now := time.Now().UTC()
	child := Child{
		ParentID:  parentID,
		Name:      nc.Name,
		BirthDate: nc.BirthDate,
		Allergies: nc.Allergies,
		Notes:     nc.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return svc.repo.CreateChild(ctx, child)
}

func (svc *service) GetChild(ctx context.Context, id string) (Child, error) {
	return svc.repo.GetChild(ctx, id)
}

func (svc *service) QueryChildren(ctx context.Context, parentID string) ([]Child, error) {
	return svc.repo.QueryChildrenByParent(ctx, parentID)
}

func (svc *service) UpdateChild(ctx context.Context, id string, uc UpdateChild) (Child, error) {
	child, err := svc.repo.GetChild(ctx, id)
	if err != nil {
		return Child{}, err
	}
	child.Name = uc.Name
	child.BirthDate = uc.BirthDate
	if uc.Allergies != nil {
		child.Allergies = *uc.Allergies
	}
	if uc.Notes != nil {
		child.Notes = *uc.Notes
	}
	child.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateChild(ctx, child)
}

func (svc *service) RemoveChild(ctx context.Context, id string) error {
	return svc.repo.DeleteChild(ctx, id)
}
