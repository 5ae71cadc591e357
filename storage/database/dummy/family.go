package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/klasshero/backend/core/family"
)

type familyRepository struct {
	db *familyTable
}

var _ family.Repository = (*familyRepository)(nil) // interface compliance check

func NewFamilyRepository(db *DB) family.Repository {
	return &familyRepository{db: db.family}
}

func (repo *familyRepository) CreateProfile(ctx context.Context, prof family.ParentProfile) (family.ParentProfile, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	prof.ID = uuid.New().String()
	repo.db.profiles[prof.ID] = &prof
	return prof, nil
}

func (repo *familyRepository) GetProfileByID(ctx context.Context, id string) (family.ParentProfile, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if prof, ok := repo.db.profiles[id]; ok {
		return *prof, nil
	}
	return family.ParentProfile{}, family.ErrNoParentProfile
}

func (repo *familyRepository) GetProfileByUserID(ctx context.Context, userID string) (family.ParentProfile, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, prof := range repo.db.profiles {
		if prof.UserID == userID {
			return *prof, nil
		}
	}
	return family.ParentProfile{}, family.ErrNoParentProfile
}

func (repo *familyRepository) UpdateProfile(ctx context.Context, prof family.ParentProfile) (family.ParentProfile, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.profiles[prof.ID]; !ok {
		return family.ParentProfile{}, family.ErrNoParentProfile
	}
	repo.db.profiles[prof.ID] = &prof
	return prof, nil
}

func (repo *familyRepository) CreateChild(ctx context.Context, child family.Child) (family.Child, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	child.ID = uuid.New().String()
	repo.db.children[child.ID] = &child
	return child, nil
}

func (repo *familyRepository) GetChild(ctx context.Context, id string) (family.Child, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if child, ok := repo.db.children[id]; ok {
		return *child, nil
	}
	return family.Child{}, family.ErrNotFound
}

func (repo *familyRepository) QueryChildrenByParent(ctx context.Context, parentID string) ([]family.Child, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	children := make([]family.Child, 0)
	for _, child := range repo.db.children {
		if child.ParentID == parentID {
			children = append(children, *child)
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].CreatedAt.Before(children[j].CreatedAt) })
	return children, nil
}

func (repo *familyRepository) UpdateChild(ctx context.Context, child family.Child) (family.Child, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.children[child.ID]; !ok {
		return family.Child{}, family.ErrNotFound
	}
	repo.db.children[child.ID] = &child
	return child, nil
}

func (repo *familyRepository) DeleteChild(ctx context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.children[id]; !ok {
		return family.ErrNotFound
	}
	delete(repo.db.children, id)
	return nil
}
