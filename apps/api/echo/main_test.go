package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/klasshero/backend/core/enrollment"
	"github.com/klasshero/backend/core/family"
	"github.com/klasshero/backend/core/participation"
	"github.com/klasshero/backend/core/program"
	"github.com/klasshero/backend/core/user"
	emailsvc "github.com/klasshero/backend/services/email"
	dummydb "github.com/klasshero/backend/storage/database/dummy"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testEnv struct {
	app Server

	usrRepo  user.Repository
	famRepo  family.Repository
	progRepo program.Repository
	enrRepo  enrollment.Repository
	partRepo participation.Repository

	partSvc participation.Service
}

func setup(t *testing.T) *testEnv {
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}

	env := &testEnv{
		usrRepo:  dummydb.NewUserRepository(db),
		famRepo:  dummydb.NewFamilyRepository(db),
		progRepo: dummydb.NewProgramRepository(db),
		enrRepo:  dummydb.NewEnrollmentRepository(db),
		partRepo: dummydb.NewParticipationRepository(db),
	}

	mailSvc := emailsvc.NewConsoleServiceMock()
	usrSvc := user.NewServiceMock(env.usrRepo, mailSvc)
	familySvc := family.NewService(env.famRepo)
	programSvc := program.NewService(env.progRepo)
	env.partSvc = participation.NewService(env.partRepo)
	enrSvc := enrollment.NewService(env.enrRepo, usrSvc, familySvc, programSvc, env.partSvc, mailSvc)

	env.app = NewServer(
		&Options{
			DisableReqLogs:   true,
			UserSvc:          usrSvc,
			FamilySvc:        familySvc,
			ProgramSvc:       programSvc,
			EnrollmentSvc:    enrSvc,
			ParticipationSvc: env.partSvc,
		},
	)
	return env
}

// Fixtures

func (env *testEnv) createUser(t *testing.T, name, uname, email string, roles []string, isActive bool) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  &isActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword("s3cr3t"); err != nil {
		t.Fatalf("SetPassword() failed: %v", err)
	}
	usr, err := env.usrRepo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func (env *testEnv) createParent(t *testing.T, usr user.User, tier family.Tier) family.ParentProfile {
	t.Helper()
	now := time.Now().UTC()
	prof, err := env.famRepo.CreateProfile(context.Background(), family.ParentProfile{
		UserID:    usr.ID,
		Tier:      tier,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateProfile() failed: %v", err)
	}
	return prof
}

func (env *testEnv) createChild(t *testing.T, prof family.ParentProfile, name string) family.Child {
	t.Helper()
	now := time.Now().UTC()
	child, err := env.famRepo.CreateChild(context.Background(), family.Child{
		ParentID:  prof.ID,
		Name:      name,
		BirthDate: time.Date(2016, time.May, 12, 0, 0, 0, 0, time.UTC),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateChild() failed: %v", err)
	}
	return child
}

type programFixture struct {
	spots             int
	registrationStart *time.Time
	registrationEnd   *time.Time
	cardFee           decimal.Decimal
}

// createProgram sets up a program with the standard fee schedule:
// weekly 45.00 + registration 25.00, 19% VAT, 2.50 card fee.
func (env *testEnv) createProgram(t *testing.T, provider user.User, fix programFixture) program.Program {
	t.Helper()
	now := time.Now().UTC()
	cardFee := fix.cardFee
	if cardFee.IsZero() {
		cardFee = decimal.RequireFromString("2.50")
	}
	spots := fix.spots
	if spots == 0 {
		spots = 10
	}
	prog, err := env.progRepo.CreateProgram(context.Background(), program.Program{
		ProviderID:        provider.ID,
		Name:              "Junior Robotics",
		Category:          "stem",
		AgeMin:            6,
		AgeMax:            12,
		WeeklyFee:         decimal.RequireFromString("45.00"),
		RegistrationFee:   decimal.RequireFromString("25.00"),
		WeeksCount:        8,
		VATRate:           decimal.RequireFromString("0.19"),
		CardFee:           cardFee,
		SpotsTotal:        spots,
		RegistrationStart: fix.registrationStart,
		RegistrationEnd:   fix.registrationEnd,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		t.Fatalf("CreateProgram() failed: %v", err)
	}
	return prog
}

func (env *testEnv) createSession(t *testing.T, prog program.Program, startsAt time.Time) program.Session {
	t.Helper()
	now := time.Now().UTC()
	sess, err := env.progRepo.CreateSession(context.Background(), program.Session{
		ProgramID: prog.ID,
		StartsAt:  startsAt,
		EndsAt:    startsAt.Add(2 * time.Hour),
		Location:  "Main Hall",
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
	return sess
}

func (env *testEnv) scheduleRecord(t *testing.T, sess program.Session, child family.Child) participation.Record {
	t.Helper()
	rec, err := env.partSvc.Schedule(context.Background(), sess.ID, child.ID, "")
	if err != nil {
		t.Fatalf("Schedule() failed: %v", err)
	}
	return rec
}

func timePtr(t time.Time) *time.Time { return &t }

// HTTP helpers

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
