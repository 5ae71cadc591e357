package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/klasshero/backend/core/family"
	"github.com/klasshero/backend/core/user"
)

func Test_familyApi_createProfile(t *testing.T) {
	env := setup(t)

	usr := env.createUser(t, "Jane", "jane", "jane@test.cd", nil, true)
	token := getToken(t, usr)

	// anyone authenticated can open a parent profile
	body := marchallObj(t, NewProfileRequest{Tier: "family", Phone: "+49 170 000000"})
	req, rec := newAuthRequest(http.MethodPost, "/v1/profile", token, body)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("createProfile() code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var prof family.ParentProfile
	if err := json.Unmarshal(rec.Body.Bytes(), &prof); err != nil {
		t.Fatalf("unmarshalling ParentProfile: %v", err)
	}
	if prof.UserID != usr.ID || prof.Tier != family.TierFamily {
		t.Errorf("unexpected profile: %+v", prof)
	}

	// the parent role comes with the profile
	refreshed, err := env.usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
	if err != nil {
		t.Fatalf("GetUser() failed: %v", err)
	}
	if !refreshed.IsParent() {
		t.Errorf("expected parent role; got %v", refreshed.Roles)
	}

	// one profile per account
	req, rec = newAuthRequest(http.MethodPost, "/v1/profile", token, body)
	env.app.ServeHTTP(rec, req)
	tt := httpTest{
		wantCode: http.StatusConflict,
		wantData: marchallObj(t, httpErr{Error: family.ErrProfileExists.Error()}),
	}
	checkCodeAndData(t, tt, rec)

	// unknown tiers are rejected up front
	other := env.createUser(t, "Jack", "jack", "jack@test.cd", nil, true)
	body = marchallObj(t, NewProfileRequest{Tier: "platinum"})
	req, rec = newAuthRequest(http.MethodPost, "/v1/profile", getToken(t, other), body)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("createProfile() code = %v; want %v; body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
	}
}

func Test_familyApi_profileAndTier(t *testing.T) {
	env := setup(t)

	parentUsr := env.createUser(t, "Jane", "jane", "jane@test.cd", user.ParentRoles, true)
	prof := env.createParent(t, parentUsr, family.TierStarter)
	token := getToken(t, parentUsr)

	plain := env.createUser(t, "Jack", "jack", "jack@test.cd", nil, true)

	tests := []httpTest{
		{
			name: "Auth required", method: http.MethodGet, path: "/v1/profile",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Parent required", method: http.MethodGet, path: "/v1/profile", token: getToken(t, plain),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Get own profile", method: http.MethodGet, path: "/v1/profile", token: token,
			wantCode: http.StatusOK, wantData: marchallObj(t, prof),
		},
		{
			name: "Unknown tier", method: http.MethodPut, path: "/v1/profile/tier", token: token,
			body:     marchallObj(t, ChangeTierRequest{Tier: "platinum"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: family.ErrUnknownTier.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// upgrade the tier
	body := marchallObj(t, ChangeTierRequest{Tier: "unlimited"})
	req, rec := newAuthRequest(http.MethodPut, "/v1/profile/tier", token, body)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("changeTier() code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var updated family.ParentProfile
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("unmarshalling ParentProfile: %v", err)
	}
	if updated.Tier != family.TierUnlimited {
		t.Errorf("tier = %s; want %s", updated.Tier, family.TierUnlimited)
	}
}

func Test_familyApi_children(t *testing.T) {
	env := setup(t)

	parentUsr := env.createUser(t, "Jane", "jane", "jane@test.cd", user.ParentRoles, true)
	prof := env.createParent(t, parentUsr, family.TierFamily)
	token := getToken(t, parentUsr)

	otherUsr := env.createUser(t, "Mia", "mia", "mia@test.cd", user.ParentRoles, true)
	otherProf := env.createParent(t, otherUsr, family.TierStarter)
	foreignChild := env.createChild(t, otherProf, "Dan")

	// empty list to start with
	req, rec := newAuthRequest(http.MethodGet, "/v1/children", token)
	env.app.ServeHTTP(rec, req)
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte("[]")}, rec)

	// add a child
	body := marchallObj(t, family.NewChild{
		Name:      "Ada",
		BirthDate: time.Date(2016, time.May, 12, 0, 0, 0, 0, time.UTC),
		Allergies: "peanuts",
	})
	req, rec = newAuthRequest(http.MethodPost, "/v1/children", token, body)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("addChild() code = %v; want %v; body %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	var child family.Child
	if err := json.Unmarshal(rec.Body.Bytes(), &child); err != nil {
		t.Fatalf("unmarshalling Child: %v", err)
	}
	if child.ParentID != prof.ID || child.Allergies != "peanuts" {
		t.Errorf("unexpected child: %+v", child)
	}

	// a name is required
	req, rec = newAuthRequest(http.MethodPost, "/v1/children", token, marchallObj(t, family.NewChild{}))
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("addChild() code = %v; want %v", rec.Code, http.StatusBadRequest)
	}

	tests := []httpTest{
		{name: "List children", method: http.MethodGet, path: "/v1/children", wantCode: http.StatusOK, wantData: marchallList(t, child)},
		{name: "Get child", method: http.MethodGet, path: "/v1/children/" + child.ID, wantCode: http.StatusOK, wantData: marchallObj(t, child)},
		{
			name: "Foreign child reads as not found", method: http.MethodGet, path: "/v1/children/" + foreignChild.ID,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: family.ErrNotFound.Error()}),
		},
		{
			name: "Unknown child", method: http.MethodGet, path: "/v1/children/lol",
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: family.ErrNotFound.Error()}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, token, tt.body)
			env.app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// update keeps unset fields
	req, rec = newAuthRequest(http.MethodPut, "/v1/children/"+child.ID, token, marchallObj(t, family.UpdateChild{Name: "Ada Lovelace"}))
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("updateChild() code = %v; want %v; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var updated family.Child
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("unmarshalling Child: %v", err)
	}
	if updated.Name != "Ada Lovelace" || updated.Allergies != "peanuts" || !updated.BirthDate.Equal(child.BirthDate) {
		t.Errorf("unexpected child after update: %+v", updated)
	}

	// remove
	req, rec = newAuthRequest(http.MethodDelete, "/v1/children/"+child.ID, token)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("removeChild() code = %v; want %v", rec.Code, http.StatusNoContent)
	}
	req, rec = newAuthRequest(http.MethodGet, "/v1/children/"+child.ID, token)
	env.app.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("retrieveChild() after remove code = %v; want %v", rec.Code, http.StatusNotFound)
	}
}
