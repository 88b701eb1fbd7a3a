package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/tsfaye/sims/core/user"
	testutil "github.com/tsfaye/sims/tests"
)

func Test_userApi_login(t *testing.T) {
	app, db := setup(t)

	testutil.CreateUser(t, db, "Active", "active", "active@test.cd", "LePass123", nil, true)
	deactivated := testutil.CreateUser(t, db, "Gone", "gone", "gone@test.cd", "LePass123", nil, false)
	pending := testutil.CreateUser(t, db, "Pending", "pending", "pending@test.cd", "LePass123", nil, true)

	usrSvc := user.NewService(db, testutil.NopLogger{})
	bFalse := false
	if _, err := usrSvc.Update(context.Background(), pending.ID, user.UpdateUser{IsApproved: &bFalse}); err != nil {
		t.Fatalf("Update() failed: %v", err)
	}
	_ = deactivated

	creds := func(uname, pwd string) []byte {
		return marchallObj(t, map[string]string{"username": uname, "password": pwd})
	}

	tests := []httpTest{
		{
			name: "Empty payload", method: http.MethodPost, path: "/v1/users/login",
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"username": "this field is required",
				"password": "this field is required",
			}),
		},
		{
			name: "Unknown user", method: http.MethodPost, path: "/v1/users/login",
			body: creds("nobody", "LePass123"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "Wrong password", method: http.MethodPost, path: "/v1/users/login",
			body: creds("active", "oops"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "Deactivated account", method: http.MethodPost, path: "/v1/users/login",
			body: creds("gone", "LePass123"), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "Pending approval", method: http.MethodPost, path: "/v1/users/login",
			body: creds("pending", "LePass123"), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account pending approval"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("Success", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/users/login", creds("active", "LePass123"))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; want %v; body %v", rec.Code, http.StatusOK, rec.Body.String())
		}
		var res struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if res.Token == "" {
			t.Error("failed! empty token")
		}
	})

	t.Run("Success by email", func(t *testing.T) {
		req, rec := newRequest(http.MethodPost, "/v1/users/login", creds("ACTIVE@test.cd", "LePass123"))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("failed! code = %v; want %v; body %v", rec.Code, http.StatusOK, rec.Body.String())
		}
	})
}

func Test_userApi_tokenRefresh(t *testing.T) {
	app, db := setup(t)

	usr := testutil.CreateUser(t, db, "Active", "active", "active@test.cd", "LePass123", nil, true)

	t.Run("Auth required", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}
		req, rec := newRequest(http.MethodPost, "/v1/users/token-refresh")
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Success", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", getToken(t, usr))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; want %v; body %v", rec.Code, http.StatusOK, rec.Body.String())
		}
		var res struct {
			Token string `json:"token"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if res.Token == "" {
			t.Error("failed! empty token")
		}
	})
}

func Test_userApi_queryRoles(t *testing.T) {
	app, db := setup(t)

	student := testutil.CreateUser(t, db, "Student", "student", "student@test.cd", "", []string{user.RoleStudent}, true)
	admin := testutil.CreateUser(t, db, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/users/roles", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Admin required", path: "/v1/users/roles", token: getToken(t, student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermissionDenied),
		},
		{
			name: "Get all", path: "/v1/users/roles", token: getToken(t, admin),
			wantCode: http.StatusOK, wantData: marchallObj(t, user.Roles),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_retrieveSelf(t *testing.T) {
	app, db := setup(t)

	usr := testutil.CreateUser(t, db, "Self", "self", "self@test.cd", "", []string{user.RoleTeacher}, true)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/users/me", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Get self", path: "/v1/users/me", token: getToken(t, usr),
			wantCode: http.StatusOK, wantData: marchallObj(t, usr),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
