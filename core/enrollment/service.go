package enrollment

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/klasshero/backend/core"
	"github.com/klasshero/backend/core/family"
	"github.com/klasshero/backend/core/participation"
	"github.com/klasshero/backend/core/program"
	"github.com/klasshero/backend/core/user"
)

type (
	Repository interface {
		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		GetEnrollment(ctx context.Context, id string) (Enrollment, error)
		QueryEnrollmentsByParent(ctx context.Context, parentID string) ([]Enrollment, error)
		UpdateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		GetMonthlyUsage(ctx context.Context, parentID, month string) (int, error)
		// IncrementUsage atomically bumps the parent's booking counter for the
		// month. When capped, the increment only happens while used < cap;
		// at the cap it fails with ErrBookingLimitExceeded and leaves the
		// counter untouched. This is the storage-level guard against two
		// concurrent bookings racing past the cap.
		IncrementUsage(ctx context.Context, parentID, month string, cap int, capped bool) error
		DecrementUsage(ctx context.Context, parentID, month string) error
	}

	Service interface {
		// QuoteProgram gates on the registration window (entry-side check)
		// and prices the booking for the given payment method.
		QuoteProgram(ctx context.Context, programID string, method PaymentMethod) (Quote, error)
		GetUsage(ctx context.Context, parentUserID string) (UsageInfo, error)
		// Book is the commit path: it re-validates the window and the quota
		// independently of any earlier display-time checks.
		Book(ctx context.Context, parentUserID string, nb NewBooking) (Enrollment, error)
		Cancel(ctx context.Context, parentUserID, id string) error
		GetByID(ctx context.Context, parentUserID, id string) (Enrollment, error)
		QueryByParent(ctx context.Context, parentUserID string) ([]Enrollment, error)
	}

	service struct {
		repo       Repository
		usrSvc     user.Service
		familySvc  family.Service
		programSvc program.Service
		partSvc    participation.Service
		mailSvc    core.EmailService
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	usrSvc user.Service,
	familySvc family.Service,
	programSvc program.Service,
	partSvc participation.Service,
	mailSvc core.EmailService,
) Service {
	return &service{
		repo:       repo,
		usrSvc:     usrSvc,
		familySvc:  familySvc,
		programSvc: programSvc,
		partSvc:    partSvc,
		mailSvc:    mailSvc,
	}
}

// monthKey is the usage bucket for a booking time, e.g. "2021-03".
func monthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

func (svc *service) QuoteProgram(ctx context.Context, programID string, method PaymentMethod) (Quote, error) {
	prog, err := svc.programSvc.GetByID(ctx, programID)
	if err != nil {
		return Quote{}, err
	}
	if !prog.RegistrationOpenAt(time.Now()) {
		return Quote{}, program.ErrRegistrationNotOpen
	}
	return NewFeeSchedule(prog, method).Quote()
}

func (svc *service) GetUsage(ctx context.Context, parentUserID string) (UsageInfo, error) {
	prof, err := svc.familySvc.GetProfileByUserID(ctx, parentUserID)
	if err != nil {
		return UsageInfo{}, err
	}
	return svc.usageFor(ctx, prof)
}

func (svc *service) usageFor(ctx context.Context, prof family.ParentProfile) (UsageInfo, error) {
	used, err := svc.repo.GetMonthlyUsage(ctx, prof.ID, monthKey(time.Now()))
	if err != nil {
		return UsageInfo{}, err
	}

	info := UsageInfo{Tier: prof.Tier, Used: used}
	if cap, capped := prof.Tier.MonthlyCap(); capped {
		info.Cap = cap
		if rem := cap - used; rem > 0 {
			info.Remaining = rem
		}
	} else {
		info.Unlimited = true
	}
	return info, nil
}

func (svc *service) Book(ctx context.Context, parentUserID string, nb NewBooking) (Enrollment, error) {
	if err := nb.Validate(); err != nil {
		return Enrollment{}, err
	}
	// defense in depth: the binding layer already requires a child id
	if nb.ChildID == "" {
		return Enrollment{}, ErrChildNotSelected
	}
	method, err := ParsePaymentMethod(nb.PaymentMethod)
	if err != nil {
		return Enrollment{}, err
	}

	prof, err := svc.familySvc.GetProfileByUserID(ctx, parentUserID)
	if err != nil {
		return Enrollment{}, err
	}

	// the child must belong to this parent
	child, err := svc.familySvc.GetChild(ctx, nb.ChildID)
	if err != nil {
		return Enrollment{}, err
	}
	if child.ParentID != prof.ID {
		return Enrollment{}, family.ErrNotFound
	}

	prog, err := svc.programSvc.GetByID(ctx, nb.ProgramID)
	if err != nil {
		return Enrollment{}, err
	}

	// commit-side window re-check; the window may have closed since the
	// quote was displayed
	now := time.Now()
	if !prog.RegistrationOpenAt(now) {
		return Enrollment{}, program.ErrRegistrationNotOpen
	}

	quote, err := NewFeeSchedule(prog, method).Quote()
	if err != nil {
		return Enrollment{}, err
	}

	// quota gate: atomic increment-with-guard, never a read-then-write
	month := monthKey(now)
	cap, capped := prof.Tier.MonthlyCap()
	if err = svc.repo.IncrementUsage(ctx, prof.ID, month, cap, capped); err != nil {
		return Enrollment{}, err
	}

	if err = svc.programSvc.ClaimSpot(ctx, prog.ID); err != nil {
		if derr := svc.repo.DecrementUsage(ctx, prof.ID, month); derr != nil {
			return Enrollment{}, errors.Wrap(derr, "compensating usage after failed spot claim")
		}
		return Enrollment{}, err
	}

	nowUTC := now.UTC()
	enr := Enrollment{
		ParentID:      prof.ID,
		ChildID:       child.ID,
		ProgramID:     prog.ID,
		PaymentMethod: method,
		Subtotal:      quote.Subtotal,
		VATAmount:     quote.VATAmount,
		CardFeeAmount: quote.CardFeeAmount,
		Total:         quote.Total,
		Status:        StatusConfirmed,
		CreatedAt:     nowUTC,
		UpdatedAt:     nowUTC,
	}
	enr, err = svc.repo.CreateEnrollment(ctx, enr)
	if err != nil {
		_ = svc.programSvc.ReleaseSpot(ctx, prog.ID)
		_ = svc.repo.DecrementUsage(ctx, prof.ID, month)
		return Enrollment{}, errors.Wrap(err, "creating enrollment")
	}

	svc.scheduleSessions(ctx, enr)
	svc.sendConfirmationMail(ctx, parentUserID, child, prog, enr)
	return enr, nil
}

// scheduleSessions creates a scheduled participation record for the child on
// every session of the booked program.
func (svc *service) scheduleSessions(ctx context.Context, enr Enrollment) {
	sessions, err := svc.programSvc.QuerySessions(ctx, enr.ProgramID)
	if err != nil {
		return
	}
	for _, sess := range sessions {
		_, _ = svc.partSvc.Schedule(ctx, sess.ID, enr.ChildID, enr.ID)
	}
}

func (svc *service) sendConfirmationMail(ctx context.Context, parentUserID string, child family.Child, prog program.Program, enr Enrollment) {
	usr, err := svc.usrSvc.GetByID(ctx, parentUserID)
	if err != nil {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Booking Confirmation",
		TemplateName: "booking-confirm",
		TemplateData: struct {
			User       user.User
			Child      family.Child
			Program    program.Program
			Enrollment Enrollment
		}{usr, child, prog, enr},
	})
}

func (svc *service) Cancel(ctx context.Context, parentUserID, id string) error {
	prof, err := svc.familySvc.GetProfileByUserID(ctx, parentUserID)
	if err != nil {
		return err
	}
	enr, err := svc.repo.GetEnrollment(ctx, id)
	if err != nil {
		return err
	}
	if enr.ParentID != prof.ID {
		return ErrNotFound
	}
	if enr.Status == StatusCancelled {
		return ErrAlreadyCancelled
	}

	enr.Status = StatusCancelled
	enr.UpdatedAt = time.Now().UTC()
	if _, err = svc.repo.UpdateEnrollment(ctx, enr); err != nil {
		return err
	}
	if err = svc.programSvc.ReleaseSpot(ctx, enr.ProgramID); err != nil {
		return err
	}
	return svc.repo.DecrementUsage(ctx, prof.ID, monthKey(enr.CreatedAt))
}

func (svc *service) GetByID(ctx context.Context, parentUserID, id string) (Enrollment, error) {
	prof, err := svc.familySvc.GetProfileByUserID(ctx, parentUserID)
	if err != nil {
		return Enrollment{}, err
	}
	enr, err := svc.repo.GetEnrollment(ctx, id)
	if err != nil {
		return Enrollment{}, err
	}
	if enr.ParentID != prof.ID {
		return Enrollment{}, ErrNotFound
	}
	return enr, nil
}

func (svc *service) QueryByParent(ctx context.Context, parentUserID string) ([]Enrollment, error) {
	prof, err := svc.familySvc.GetProfileByUserID(ctx, parentUserID)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryEnrollmentsByParent(ctx, prof.ID)
}
