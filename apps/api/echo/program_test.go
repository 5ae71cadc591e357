package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/klasshero/backend/core/program"
	"github.com/klasshero/backend/core/user"
)

func Test_programApi_catalog(t *testing.T) {
	env := setup(t)

	provider := env.createUser(t, "Provider", "prov", "prov@test.cd", user.ProviderRoles, true)

	yesterday := time.Now().AddDate(0, 0, -1)
	tomorrow := time.Now().AddDate(0, 0, 1)

	open := env.createProgram(t, provider, programFixture{})
	closed := env.createProgram(t, provider, programFixture{registrationEnd: timePtr(yesterday)})
	upcoming := env.createProgram(t, provider, programFixture{registrationStart: timePtr(tomorrow)})

	openRes := ProgramResponse{Program: open, RegistrationStatus: program.RegistrationOpen, SpotsLeft: 10}
	closedRes := ProgramResponse{Program: closed, RegistrationStatus: program.RegistrationClosed, SpotsLeft: 10}
	upcomingRes := ProgramResponse{Program: upcoming, RegistrationStatus: program.RegistrationUpcoming, SpotsLeft: 10}

	tests := []httpTest{
		{
			name: "Catalog is open", path: "/v1/programs",
			wantCode: http.StatusOK, wantData: marchallList(t, openRes, closedRes, upcomingRes),
		},
		{
			name: "Filter by open registration", path: "/v1/programs?registration_open=true",
			wantCode: http.StatusOK, wantData: marchallList(t, openRes),
		},
		{
			name: "Retrieve derives window status", path: "/v1/programs/" + upcoming.ID,
			wantCode: http.StatusOK, wantData: marchallObj(t, upcomingRes),
		},
		{
			name: "Unknown program", path: "/v1/programs/lol",
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: program.ErrNotFound.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodGet, tt.path)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_programApi_create(t *testing.T) {
	env := setup(t)

	provider := env.createUser(t, "Provider", "prov", "prov@test.cd", user.ProviderRoles, true)
	parentUsr := env.createUser(t, "Parent", "parent", "parent@test.cd", user.ParentRoles, true)

	body := marchallObj(t, program.NewProgram{
		Name:            "Junior Robotics",
		Category:        "STEM",
		AgeMin:          6,
		AgeMax:          12,
		WeeklyFee:       decimal.RequireFromString("45.00"),
		RegistrationFee: decimal.RequireFromString("25.00"),
		WeeksCount:      8,
		VATRate:         decimal.RequireFromString("0.19"),
		CardFee:         decimal.RequireFromString("2.50"),
		SpotsTotal:      12,
	})

	// providers only
	req, rec := newRequest(http.MethodPost, "/v1/programs", body)
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)

	req, rec = newAuthRequest(http.MethodPost, "/v1/programs", getToken(t, parentUsr), body)
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rec)

	req, rec = newAuthRequest(http.MethodPost, "/v1/programs", getToken(t, provider), body)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create() code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var created ProgramResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshalling ProgramResponse: %v", err)
	}
	if created.ProviderID != provider.ID || created.Category != "stem" || created.SpotsLeft != 12 {
		t.Errorf("unexpected program: %+v", created)
	}
	if created.RegistrationStatus != program.RegistrationOpen {
		t.Errorf("registration_status = %s; want %s", created.RegistrationStatus, program.RegistrationOpen)
	}

	// a name and a positive spot count are required
	req, rec = newAuthRequest(http.MethodPost, "/v1/programs", getToken(t, provider), marchallObj(t, program.NewProgram{}))
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("create() code = %v; want %v", rec.Code, http.StatusBadRequest)
	}

	// the window must be ordered
	req, rec = newAuthRequest(http.MethodPost, "/v1/programs", getToken(t, provider), marchallObj(t, program.NewProgram{
		Name:              "Backwards",
		Category:          "stem",
		WeeklyFee:         decimal.RequireFromString("45.00"),
		WeeksCount:        8,
		SpotsTotal:        12,
		RegistrationStart: timePtr(time.Now().AddDate(0, 0, 7)),
		RegistrationEnd:   timePtr(time.Now()),
	}))
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("create() code = %v; want %v; body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
	}
}

func Test_programApi_updateOwnership(t *testing.T) {
	env := setup(t)

	owner := env.createUser(t, "Owner", "owner", "owner@test.cd", user.ProviderRoles, true)
	rival := env.createUser(t, "Rival", "rival", "rival@test.cd", user.ProviderRoles, true)
	admin := env.createUser(t, "Admin", "admin", "admin@test.cd", user.AdminRoles, true)

	prog := env.createProgram(t, owner, programFixture{})

	newName := "Senior Robotics"
	body := marchallObj(t, program.UpdateProgram{Name: newName})

	// another provider cannot touch it
	req, rec := newAuthRequest(http.MethodPut, "/v1/programs/"+prog.ID, getToken(t, rival), body)
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: program.ErrNotFound.Error()})}, rec)

	// the owner can
	req, rec = newAuthRequest(http.MethodPut, "/v1/programs/"+prog.ID, getToken(t, owner), body)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("update() code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var updated ProgramResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("unmarshalling ProgramResponse: %v", err)
	}
	if updated.Name != newName {
		t.Errorf("name = %s; want %s", updated.Name, newName)
	}

	// admins bypass ownership
	req, rec = newAuthRequest(http.MethodPut, "/v1/programs/"+prog.ID, getToken(t, admin), marchallObj(t, program.UpdateProgram{Name: "Admin Edit"}))
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("admin update() code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
}

func Test_programApi_sessions(t *testing.T) {
	env := setup(t)

	provider := env.createUser(t, "Provider", "prov", "prov@test.cd", user.ProviderRoles, true)
	prog := env.createProgram(t, provider, programFixture{})

	starts := time.Date(2026, time.September, 5, 10, 0, 0, 0, time.UTC)
	body := marchallObj(t, program.NewSession{StartsAt: starts, EndsAt: starts.Add(2 * time.Hour), Location: "Main Hall"})

	req, rec := newAuthRequest(http.MethodPost, "/v1/programs/"+prog.ID+"/sessions", getToken(t, provider), body)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("addSession() code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var sess program.Session
	if err := json.Unmarshal(rec.Body.Bytes(), &sess); err != nil {
		t.Fatalf("unmarshalling Session: %v", err)
	}

	// an inverted time range is rejected
	req, rec = newAuthRequest(http.MethodPost, "/v1/programs/"+prog.ID+"/sessions", getToken(t, provider),
		marchallObj(t, program.NewSession{StartsAt: starts, EndsAt: starts.Add(-time.Hour)}))
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("addSession() code = %v; want %v", rec.Code, http.StatusBadRequest)
	}

	tests := []httpTest{
		{name: "List sessions", path: "/v1/programs/" + prog.ID + "/sessions", wantCode: http.StatusOK, wantData: marchallList(t, sess)},
		{
			name: "Unknown program", path: "/v1/programs/lol/sessions",
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: program.ErrNotFound.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodGet, tt.path)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
