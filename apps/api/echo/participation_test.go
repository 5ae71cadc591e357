package echoapi

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/klasshero/backend/core/family"
	"github.com/klasshero/backend/core/participation"
	"github.com/klasshero/backend/core/user"
)

func Test_participationApi_roster(t *testing.T) {
	env := setup(t)

	provider := env.createUser(t, "Provider", "prov", "prov@test.cd", user.ProviderRoles, true)
	providerToken := getToken(t, provider)
	parentUsr := env.createUser(t, "Parent", "parent", "parent@test.cd", user.ParentRoles, true)
	prof := env.createParent(t, parentUsr, family.TierFamily)
	ada := env.createChild(t, prof, "Ada")
	ben := env.createChild(t, prof, "Ben")

	prog := env.createProgram(t, provider, programFixture{})
	sess := env.createSession(t, prog, time.Now().AddDate(0, 0, 7))
	adaRec := env.scheduleRecord(t, sess, ada)
	benRec := env.scheduleRecord(t, sess, ben)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/sessions/" + sess.ID + "/roster", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Provider required", path: "/v1/sessions/" + sess.ID + "/roster", token: getToken(t, parentUsr),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Roster with child names", path: "/v1/sessions/" + sess.ID + "/roster", token: providerToken,
			wantCode: http.StatusOK,
			wantData: marchallList(t,
				participation.RosterEntry{Record: adaRec, ChildName: "Ada"},
				participation.RosterEntry{Record: benRec, ChildName: "Ben"},
			),
		},
		{
			name: "Empty roster", path: "/v1/sessions/lol/roster", token: providerToken,
			wantCode: http.StatusOK, wantData: []byte("[]"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_participationApi_batchCheckIn(t *testing.T) {
	env := setup(t)

	provider := env.createUser(t, "Provider", "prov", "prov@test.cd", user.ProviderRoles, true)
	providerToken := getToken(t, provider)
	parentUsr := env.createUser(t, "Parent", "parent", "parent@test.cd", user.ParentRoles, true)
	prof := env.createParent(t, parentUsr, family.TierFamily)
	ada := env.createChild(t, prof, "Ada")
	ben := env.createChild(t, prof, "Ben")

	prog := env.createProgram(t, provider, programFixture{})
	sess := env.createSession(t, prog, time.Now().AddDate(0, 0, 7))
	adaRec := env.scheduleRecord(t, sess, ada)
	benRec := env.scheduleRecord(t, sess, ben)

	batch := func(childIDs []string) (*http.Response, []BatchItemResponse) {
		body := marchallObj(t, BatchCheckInRequest{ChildIDs: childIDs, Note: "bus 4"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/sessions/"+sess.ID+"/check-in", providerToken, body)
		env.app.ServeHTTP(rec, req)
		var items []BatchItemResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
			t.Fatalf("unmarshalling batch response: %v", err)
		}
		return rec.Result(), items
	}

	// empty batch is a no-op
	res, items := batch(nil)
	if res.StatusCode != http.StatusOK || len(items) != 0 {
		t.Errorf("empty batch: code = %v, items = %v", res.StatusCode, items)
	}

	// one unknown child fails without masking the others
	res, items = batch([]string{ada.ID, ben.ID, "lol"})
	if res.StatusCode != http.StatusMultiStatus {
		t.Errorf("batch code = %v; want %v", res.StatusCode, http.StatusMultiStatus)
	}
	if len(items) != 3 {
		t.Fatalf("items = %d; want 3", len(items))
	}
	for i, want := range []BatchItemResponse{
		{ChildID: ada.ID, RecordID: adaRec.ID, Status: "ok"},
		{ChildID: ben.ID, RecordID: benRec.ID, Status: "ok"},
		{ChildID: "lol", Status: "failed", Error: participation.ErrNotFound.Error()},
	} {
		if items[i] != want {
			t.Errorf("items[%d] = %+v; want %+v", i, items[i], want)
		}
	}

	// a repeat check-in is an invalid transition for every child
	res, items = batch([]string{ada.ID, ben.ID})
	if res.StatusCode != http.StatusMultiStatus {
		t.Errorf("repeat batch code = %v; want %v", res.StatusCode, http.StatusMultiStatus)
	}
	for _, item := range items {
		if item.Status != "failed" || item.Error != participation.ErrInvalidTransition.Error() {
			t.Errorf("unexpected item: %+v", item)
		}
	}
}

func Test_participationApi_transitions(t *testing.T) {
	env := setup(t)

	provider := env.createUser(t, "Provider", "prov", "prov@test.cd", user.ProviderRoles, true)
	providerToken := getToken(t, provider)
	parentUsr := env.createUser(t, "Parent", "parent", "parent@test.cd", user.ParentRoles, true)
	parentToken := getToken(t, parentUsr)
	prof := env.createParent(t, parentUsr, family.TierFamily)
	ada := env.createChild(t, prof, "Ada")
	ben := env.createChild(t, prof, "Ben")

	prog := env.createProgram(t, provider, programFixture{})
	sess := env.createSession(t, prog, time.Now().AddDate(0, 0, 7))
	adaRec := env.scheduleRecord(t, sess, ada)
	benRec := env.scheduleRecord(t, sess, ben)

	do := func(token, recordID, action string) (*httpResult, participation.Record) {
		body := marchallObj(t, NoteRequest{Note: "ok"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/participations/"+recordID+"/"+action, token, body)
		env.app.ServeHTTP(rec, req)
		var record participation.Record
		_ = json.Unmarshal(rec.Body.Bytes(), &record)
		return &httpResult{code: rec.Code, body: rec.Body.String()}, record
	}

	// parents cannot run check-in
	if res, _ := do(parentToken, adaRec.ID, "check-in"); res.code != http.StatusForbidden {
		t.Errorf("parent check-in code = %v; want %v", res.code, http.StatusForbidden)
	}

	// scheduled -> checked_in -> checked_out
	res, record := do(providerToken, adaRec.ID, "check-in")
	if res.code != http.StatusOK || record.Status != participation.StatusCheckedIn {
		t.Fatalf("check-in failed: code = %v, body %s", res.code, res.body)
	}
	if record.CheckInAt == nil || record.CheckInNote != "ok" {
		t.Errorf("check-in timestamp/note not set: %+v", record)
	}
	res, record = do(providerToken, adaRec.ID, "check-out")
	if res.code != http.StatusOK || record.Status != participation.StatusCheckedOut {
		t.Fatalf("check-out failed: code = %v, body %s", res.code, res.body)
	}
	if record.CheckOutAt == nil {
		t.Errorf("check-out timestamp not set: %+v", record)
	}

	// checked_out is terminal
	if res, _ = do(providerToken, adaRec.ID, "absent"); res.code != http.StatusConflict {
		t.Errorf("absent on checked_out code = %v; want %v", res.code, http.StatusConflict)
	}
	if res, _ = do(providerToken, adaRec.ID, "check-in"); res.code != http.StatusConflict {
		t.Errorf("check-in on checked_out code = %v; want %v", res.code, http.StatusConflict)
	}

	// scheduled -> absent, also terminal
	res, record = do(providerToken, benRec.ID, "absent")
	if res.code != http.StatusOK || record.Status != participation.StatusAbsent {
		t.Fatalf("absent failed: code = %v, body %s", res.code, res.body)
	}
	if res, _ = do(providerToken, benRec.ID, "check-in"); res.code != http.StatusConflict {
		t.Errorf("check-in on absent code = %v; want %v", res.code, http.StatusConflict)
	}

	// check-out without check-in
	if res, _ = do(providerToken, "lol", "check-out"); res.code != http.StatusNotFound {
		t.Errorf("unknown record code = %v; want %v", res.code, http.StatusNotFound)
	}
}

type httpResult struct {
	code int
	body string
}

func Test_participationApi_queryByChild(t *testing.T) {
	env := setup(t)

	provider := env.createUser(t, "Provider", "prov", "prov@test.cd", user.ProviderRoles, true)
	parentUsr := env.createUser(t, "Parent", "parent", "parent@test.cd", user.ParentRoles, true)
	prof := env.createParent(t, parentUsr, family.TierFamily)
	ada := env.createChild(t, prof, "Ada")
	parentToken := getToken(t, parentUsr)

	otherUsr := env.createUser(t, "Other", "other", "other@test.cd", user.ParentRoles, true)
	env.createParent(t, otherUsr, family.TierStarter)
	otherToken := getToken(t, otherUsr)

	prog := env.createProgram(t, provider, programFixture{})
	sess := env.createSession(t, prog, time.Now().AddDate(0, 0, 7))
	adaRec := env.scheduleRecord(t, sess, ada)

	tests := []httpTest{
		{name: "Auth required", token: "", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Parent required", token: getToken(t, provider),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Foreign child reads as not found", token: otherToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: family.ErrNotFound.Error()}),
		},
		{name: "Own child's records", token: parentToken, wantCode: http.StatusOK, wantData: marchallList(t, adaRec)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/v1/children/"+ada.ID+"/participations", tt.token)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
