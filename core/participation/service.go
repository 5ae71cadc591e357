package participation

import (
	"context"
	"time"

	"github.com/klasshero/backend/core/user"
)

type (
	Repository interface {
		CreateRecord(ctx context.Context, rec Record) (Record, error)
		GetRecord(ctx context.Context, id string) (Record, error)
		GetRecordBySessionAndChild(ctx context.Context, sessionID, childID string) (Record, error)
		// UpdateRecord persists rec only while the stored status still equals
		// expectedStatus; otherwise it fails with ErrInvalidTransition and
		// leaves the row untouched. This closes the race between two
		// concurrent transitions on the same record.
		UpdateRecord(ctx context.Context, rec Record, expectedStatus Status) (Record, error)
		QueryRosterBySession(ctx context.Context, sessionID string) ([]RosterEntry, error)
		QueryRecordsByChild(ctx context.Context, childID string) ([]Record, error)
	}

	Service interface {
		Schedule(ctx context.Context, sessionID, childID, enrollmentID string) (Record, error)
		GetByID(ctx context.Context, id string) (Record, error)
		// CheckIn marks the child's arrival; providers only.
		CheckIn(ctx context.Context, actor user.User, recordID, note string) (Record, error)
		// CheckOut marks the child's departure; providers only.
		CheckOut(ctx context.Context, actor user.User, recordID, note string) (Record, error)
		// MarkAbsent records a no-show at session close; providers and admins.
		MarkAbsent(ctx context.Context, actor user.User, recordID string) (Record, error)
		// BatchCheckIn applies each child's check-in independently and
		// reports a per-child outcome; one failure never aborts the rest.
		BatchCheckIn(ctx context.Context, actor user.User, sessionID string, childIDs []string, note string) []BatchResult
		Roster(ctx context.Context, sessionID string) ([]RosterEntry, error)
		QueryByChild(ctx context.Context, childID string) ([]Record, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Schedule(ctx context.Context, sessionID, childID, enrollmentID string) (Record, error) {
	// scheduling is idempotent per (session, child)
	if rec, err := svc.repo.GetRecordBySessionAndChild(ctx, sessionID, childID); err == nil {
		return rec, nil
	} else if err != ErrNotFound {
		return Record{}, err
	}

	now := time.Now().UTC()
	rec := Record{
		SessionID:    sessionID,
		ChildID:      childID,
		EnrollmentID: enrollmentID,
		Status:       StatusScheduled,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return svc.repo.CreateRecord(ctx, rec)
}

func (svc *service) GetByID(ctx context.Context, id string) (Record, error) {
	return svc.repo.GetRecord(ctx, id)
}

func (svc *service) CheckIn(ctx context.Context, actor user.User, recordID, note string) (Record, error) {
	if !actor.IsProvider() {
		return Record{}, ErrActorNotAllowed
	}
	rec, err := svc.repo.GetRecord(ctx, recordID)
	if err != nil {
		return Record{}, err
	}
	prevStatus := rec.Status
	if err = rec.checkIn(time.Now(), note); err != nil {
		return Record{}, err
	}
	return svc.repo.UpdateRecord(ctx, rec, prevStatus)
}

func (svc *service) CheckOut(ctx context.Context, actor user.User, recordID, note string) (Record, error) {
	if !actor.IsProvider() {
		return Record{}, ErrActorNotAllowed
	}
	rec, err := svc.repo.GetRecord(ctx, recordID)
	if err != nil {
		return Record{}, err
	}
	prevStatus := rec.Status
	if err = rec.checkOut(time.Now(), note); err != nil {
		return Record{}, err
	}
	return svc.repo.UpdateRecord(ctx, rec, prevStatus)
}

func (svc *service) MarkAbsent(ctx context.Context, actor user.User, recordID string) (Record, error) {
	if !(actor.IsProvider() || actor.IsAdmin()) {
		return Record{}, ErrActorNotAllowed
	}
	rec, err := svc.repo.GetRecord(ctx, recordID)
	if err != nil {
		return Record{}, err
	}
	prevStatus := rec.Status
	if err = rec.markAbsent(time.Now()); err != nil {
		return Record{}, err
	}
	return svc.repo.UpdateRecord(ctx, rec, prevStatus)
}

func (svc *service) BatchCheckIn(ctx context.Context, actor user.User, sessionID string, childIDs []string, note string) []BatchResult {
	results := make([]BatchResult, 0, len(childIDs))
	for _, childID := range childIDs {
		res := BatchResult{ChildID: childID}

		if !actor.IsProvider() {
			res.Err = ErrActorNotAllowed
			results = append(results, res)
			continue
		}

		rec, err := svc.repo.GetRecordBySessionAndChild(ctx, sessionID, childID)
		if err != nil {
			res.Err = err
			results = append(results, res)
			continue
		}
		res.RecordID = rec.ID

		prevStatus := rec.Status
		if err = rec.checkIn(time.Now(), note); err != nil {
			res.Err = err
			results = append(results, res)
			continue
		}
		if _, err = svc.repo.UpdateRecord(ctx, rec, prevStatus); err != nil {
			res.Err = err
		}
		results = append(results, res)
	}
	return results
}

func (svc *service) Roster(ctx context.Context, sessionID string) ([]RosterEntry, error) {
	return svc.repo.QueryRosterBySession(ctx, sessionID)
}

func (svc *service) QueryByChild(ctx context.Context, childID string) ([]Record, error) {
	return svc.repo.QueryRecordsByChild(ctx, childID)
}
