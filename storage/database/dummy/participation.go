package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/klasshero/backend/core/participation"
)

type participationRepository struct {
	db     *participationTable
	family *familyTable // joined for roster child names
}

var _ participation.Repository = (*participationRepository)(nil) // interface compliance check

func NewParticipationRepository(db *DB) participation.Repository {
	return &participationRepository{db: db.participation, family: db.family}
}

func (repo *participationRepository) CreateRecord(ctx context.Context, rec participation.Record) (participation.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	rec.ID = uuid.New().String()
	repo.db.table[rec.ID] = &rec
	return rec, nil
}

func (repo *participationRepository) GetRecord(ctx context.Context, id string) (participation.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if rec, ok := repo.db.table[id]; ok {
		return *rec, nil
	}
	return participation.Record{}, participation.ErrNotFound
}

func (repo *participationRepository) GetRecordBySessionAndChild(ctx context.Context, sessionID, childID string) (participation.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, rec := range repo.db.table {
		if rec.SessionID == sessionID && rec.ChildID == childID {
			return *rec, nil
		}
	}
	return participation.Record{}, participation.ErrNotFound
}

// UpdateRecord persists rec only while the stored status still equals
// expectedStatus; a concurrent transition that landed first wins.
func (repo *participationRepository) UpdateRecord(ctx context.Context, rec participation.Record, expectedStatus participation.Status) (participation.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[rec.ID]
	if !ok {
		return participation.Record{}, participation.ErrNotFound
	}
	if orig.Status != expectedStatus {
		return participation.Record{}, participation.ErrInvalidTransition
	}
	repo.db.table[rec.ID] = &rec
	return rec, nil
}

func (repo *participationRepository) QueryRosterBySession(ctx context.Context, sessionID string) ([]participation.RosterEntry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	repo.family.RLock()
	defer repo.family.RUnlock()

	entries := make([]participation.RosterEntry, 0)
	for _, rec := range repo.db.table {
		if rec.SessionID != sessionID {
			continue
		}
		entry := participation.RosterEntry{Record: *rec}
		if child, ok := repo.family.children[rec.ChildID]; ok {
			entry.ChildName = child.Name
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ChildName < entries[j].ChildName })
	return entries, nil
}

func (repo *participationRepository) QueryRecordsByChild(ctx context.Context, childID string) ([]participation.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	records := make([]participation.Record, 0)
	for _, rec := range repo.db.table {
		if rec.ChildID == childID {
			records = append(records, *rec)
		}
	}
	sort.Slice(records, func(i, j int) bool { return records[i].CreatedAt.Before(records[j].CreatedAt) })
	return records, nil
}
