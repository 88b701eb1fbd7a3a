package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/tsfaye/sims/apps/api/echo"
	"github.com/tsfaye/sims/core"
	"github.com/tsfaye/sims/core/notification"
	"github.com/tsfaye/sims/core/report"
	"github.com/tsfaye/sims/core/settings"
	"github.com/tsfaye/sims/core/subject"
	"github.com/tsfaye/sims/core/user"
	emailsvc "github.com/tsfaye/sims/services/email"
	inmemdb "github.com/tsfaye/sims/storage/database/inmem"
	testutil "github.com/tsfaye/sims/tests"
)

var (
	errMissingToken     = httpErr{Error: "missing or malformed jwt"}
	errPermissionDenied = httpErr{Error: "permission denied"}
	errNotFound         = httpErr{Error: "not found"}
)

func setup(t *testing.T) (Server, *inmemdb.DB) {
	t.Helper()

	core.Conf.Debug = false
	core.Conf.TestMode = true
	core.Conf.SettingsPath = filepath.Join(t.TempDir(), "site_settings.json")

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open() failed: %v", err)
	}

	logger := testutil.NopLogger{}
	mailSvc := emailsvc.NewConsoleServiceMock()
	emailsvc.ClearSentMessages()

	app := NewServer(
		&Options{
			DisableReqLogs: true,
			Logger:         logger,
			UserSvc:        user.NewService(db, logger),
			SubjectSvc:     subject.NewService(db, logger),
			NotifSvc:       notification.NewService(db, db, mailSvc, logger),
			SettingsStore:  settings.NewFileStore(core.Conf.SettingsPath),
			GradeRepo:      db,
			PaymentRepo:    db,
			Reports:        report.NewBuilder(db, db, db),
		},
	)
	return app, db
}

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
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
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
