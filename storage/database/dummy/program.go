package dummydb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/klasshero/backend/core"
	"github.com/klasshero/backend/core/program"
)

type programRepository struct {
	db *programTable
}

var _ program.Repository = (*programRepository)(nil) // interface compliance check

func NewProgramRepository(db *DB) program.Repository {
	return &programRepository{db: db.program}
}

func (repo *programRepository) CreateProgram(ctx context.Context, prog program.Program) (program.Program, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	prog.ID = uuid.New().String()
	repo.db.programs[prog.ID] = &prog
	return prog, nil
}

func (repo *programRepository) GetProgram(ctx context.Context, id string) (program.Program, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if prog, ok := repo.db.programs[id]; ok {
		return *prog, nil
	}
	return program.Program{}, program.ErrNotFound
}

func (repo *programRepository) QueryPrograms(ctx context.Context, filter *program.QueryFilter, ordering ...core.DBOrdering) ([]program.Program, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	programs := make([]program.Program, 0, len(repo.db.programs))
	for _, prog := range repo.db.programs {
		programs = append(programs, *prog)
	}
	sort.Slice(programs, func(i, j int) bool { return programs[i].CreatedAt.Before(programs[j].CreatedAt) })

	if filter == nil {
		return programs, nil
	}

	now := time.Now()
	var filtered []program.Program
	for _, prog := range programs {
		if filter.ProviderID != "" && prog.ProviderID != filter.ProviderID {
			continue
		}
		if filter.Category != "" && prog.Category != filter.Category {
			continue
		}
		if filter.Search != "" {
			kw := strings.ToLower(filter.Search)
			if !strings.Contains(strings.ToLower(prog.Name), kw) &&
				!strings.Contains(strings.ToLower(prog.Description), kw) {
				continue
			}
		}
		if filter.RegistrationOpen != nil && prog.RegistrationOpenAt(now) != *filter.RegistrationOpen {
			continue
		}
		filtered = append(filtered, prog)
	}
	return filtered, nil
}

func (repo *programRepository) UpdateProgram(ctx context.Context, prog program.Program) (program.Program, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.programs[prog.ID]
	if !ok {
		return program.Program{}, program.ErrNotFound
	}
	prog.SpotsTaken = orig.SpotsTaken
	repo.db.programs[prog.ID] = &prog
	return prog, nil
}

func (repo *programRepository) ClaimSpot(ctx context.Context, programID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	prog, ok := repo.db.programs[programID]
	if !ok {
		return program.ErrNotFound
	}
	if prog.SpotsTaken >= prog.SpotsTotal {
		return program.ErrNoSpotsAvailable
	}
	prog.SpotsTaken++
	return nil
}

func (repo *programRepository) ReleaseSpot(ctx context.Context, programID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	prog, ok := repo.db.programs[programID]
	if !ok {
		return program.ErrNotFound
	}
	if prog.SpotsTaken > 0 {
		prog.SpotsTaken--
	}
	return nil
}

func (repo *programRepository) CreateSession(ctx context.Context, sess program.Session) (program.Session, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	sess.ID = uuid.New().String()
	repo.db.sessions[sess.ID] = &sess
	return sess, nil
}

func (repo *programRepository) GetSession(ctx context.Context, id string) (program.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if sess, ok := repo.db.sessions[id]; ok {
		return *sess, nil
	}
	return program.Session{}, program.ErrSessionNotFound
}

func (repo *programRepository) QuerySessionsByProgram(ctx context.Context, programID string) ([]program.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	sessions := make([]program.Session, 0)
	for _, sess := range repo.db.sessions {
		if sess.ProgramID == programID {
			sessions = append(sessions, *sess)
		}
	}
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].StartsAt.Before(sessions[j].StartsAt) })
	return sessions, nil
}
