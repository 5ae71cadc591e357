package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/klasshero/backend/core/enrollment"
)

type enrollmentRepository struct {
	db *enrollmentTable
}

var _ enrollment.Repository = (*enrollmentRepository)(nil) // interface compliance check

func NewEnrollmentRepository(db *DB) enrollment.Repository {
	return &enrollmentRepository{db: db.enrollment}
}

func usageKey(parentID, month string) string {
	return parentID + "/" + month
}

func (repo *enrollmentRepository) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	enr.ID = uuid.New().String()
	repo.db.table[enr.ID] = &enr
	return enr, nil
}

func (repo *enrollmentRepository) GetEnrollment(ctx context.Context, id string) (enrollment.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if enr, ok := repo.db.table[id]; ok {
		return *enr, nil
	}
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

func (repo *enrollmentRepository) QueryEnrollmentsByParent(ctx context.Context, parentID string) ([]enrollment.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	enrollments := make([]enrollment.Enrollment, 0)
	for _, enr := range repo.db.table {
		if enr.ParentID == parentID {
			enrollments = append(enrollments, *enr)
		}
	}
	sort.Slice(enrollments, func(i, j int) bool { return enrollments[i].CreatedAt.After(enrollments[j].CreatedAt) })
	return enrollments, nil
}

func (repo *enrollmentRepository) UpdateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[enr.ID]; !ok {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	repo.db.table[enr.ID] = &enr
	return enr, nil
}

func (repo *enrollmentRepository) GetMonthlyUsage(ctx context.Context, parentID, month string) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.db.usage[usageKey(parentID, month)], nil
}

// IncrementUsage checks the cap and bumps the counter under one lock; the
// read and the write cannot interleave with a concurrent booking.
func (repo *enrollmentRepository) IncrementUsage(ctx context.Context, parentID, month string, cap int, capped bool) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := usageKey(parentID, month)
	if capped && repo.db.usage[key] >= cap {
		return enrollment.ErrBookingLimitExceeded
	}
	repo.db.usage[key]++
	return nil
}

func (repo *enrollmentRepository) DecrementUsage(ctx context.Context, parentID, month string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := usageKey(parentID, month)
	if repo.db.usage[key] > 0 {
		repo.db.usage[key]--
	}
	return nil
}
