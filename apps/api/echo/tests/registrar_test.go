package tests

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/tsfaye/sims/core/grade"
	"github.com/tsfaye/sims/core/subject"
	"github.com/tsfaye/sims/core/user"
	testutil "github.com/tsfaye/sims/tests"
)

func Test_registrarApi_gating(t *testing.T) {
	app, db := setup(t)

	student := testutil.CreateUser(t, db, "Student", "student", "student@test.cd", "", []string{user.RoleStudent}, true)
	registrar := testutil.CreateUser(t, db, "Registrar", "registrar", "registrar@test.cd", "", []string{user.RoleRegistrar}, true)
	admin := testutil.CreateUser(t, db, "Admin", "admin", "admin@test.cd", "", []string{user.RoleAdmin}, true)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/registrar/dashboard", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Registrar required", path: "/v1/registrar/dashboard", token: getToken(t, student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermissionDenied),
		},
		{
			name: "Registrar allowed", path: "/v1/registrar/dashboard", token: getToken(t, registrar),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, map[string]int{"pending_registrations": 0, "unassigned_subjects": 0, "active_subjects": 0}),
		},
		{
			name: "Admin allowed", path: "/v1/registrar/dashboard", token: getToken(t, admin),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, map[string]int{"pending_registrations": 0, "unassigned_subjects": 0, "active_subjects": 0}),
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

func Test_registrarApi_dashboard(t *testing.T) {
	app, db := setup(t)

	registrar := testutil.CreateUser(t, db, "Registrar", "registrar", "registrar@test.cd", "", []string{user.RoleRegistrar}, true)
	pending := testutil.CreateUser(t, db, "Pending", "pending", "pending@test.cd", "", []string{user.RoleStudent}, true)
	teacher := testutil.CreateUser(t, db, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)

	usrSvc := user.NewService(db, testutil.NopLogger{})
	if _, _, err := usrSvc.Apply(context.Background(), pending.ID, user.ActionDisapprove); err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}

	assigned := testutil.CreateSubject(t, db, "G1_ENGLIS", "English", 1, true)
	testutil.CreateSubject(t, db, "G1_AMHARI", "Amharic", 1, true) // unassigned
	testutil.CreateSubject(t, db, "G2_ENGLIS", "English", 2, false)

	subSvc := subject.NewService(db, testutil.NopLogger{})
	if _, err := subSvc.AssignTeacher(context.Background(), teacher.ID, assigned.ID); err != nil {
		t.Fatalf("AssignTeacher() failed: %v", err)
	}

	tt := httpTest{
		wantCode: http.StatusOK,
		wantData: marchallObj(t, map[string]int{"pending_registrations": 1, "unassigned_subjects": 1, "active_subjects": 2}),
	}
	req, rec := newAuthRequest(http.MethodGet, "/v1/registrar/dashboard", getToken(t, registrar))
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)
}

func Test_registrarApi_assignSubjects(t *testing.T) {
	app, db := setup(t)

	registrar := testutil.CreateUser(t, db, "Registrar", "registrar", "registrar@test.cd", "", []string{user.RoleRegistrar}, true)
	teacher := testutil.CreateUser(t, db, "Teacher", "teacher", "teacher@test.cd", "", []string{user.RoleTeacher}, true)
	student := testutil.CreateUser(t, db, "Student", "student", "student@test.cd", "", []string{user.RoleStudent}, true)

	s1 := testutil.CreateSubject(t, db, "G1_ENGLIS", "English", 1, true)
	s2 := testutil.CreateSubject(t, db, "G1_AMHARI", "Amharic", 1, true)

	token := getToken(t, registrar)
	payload := func(teacherID int, subjectIDs ...int) []byte {
		return marchallObj(t, map[string]interface{}{"teacher_id": teacherID, "subject_ids": subjectIDs})
	}

	tests := []httpTest{
		{
			name: "Assignee must be a teacher", body: payload(student.ID, s1.ID),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"teacher_id": "user is not a teacher"}),
		},
		{
			name: "Unknown teacher", body: payload(404, s1.ID),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/registrar/assign-subjects", token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("Assign", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/registrar/assign-subjects", token, payload(teacher.ID, s1.ID, s2.ID))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; want %v; body %v", rec.Code, http.StatusOK, rec.Body.String())
		}
		var subs []subject.Subject
		if err := json.Unmarshal(rec.Body.Bytes(), &subs); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if len(subs) != 2 {
			t.Fatalf("assigned = %v; want 2", len(subs))
		}
		for _, sub := range subs {
			if sub.TeacherID == nil || *sub.TeacherID != teacher.ID {
				t.Errorf("subject %v not assigned to teacher %v", sub.Code, teacher.ID)
			}
		}
	})

	t.Run("Unassign one", func(t *testing.T) {
		path := fmt.Sprintf("/v1/registrar/unassign-subject/%d", s1.ID)
		req, rec := newAuthRequest(http.MethodPost, path, token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; want %v; body %v", rec.Code, http.StatusOK, rec.Body.String())
		}
		var sub subject.Subject
		if err := json.Unmarshal(rec.Body.Bytes(), &sub); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if sub.TeacherID != nil {
			t.Errorf("TeacherID = %v; want nil", *sub.TeacherID)
		}
	})

	t.Run("Unassign by teacher", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusOK,
			wantData: marchallObj(t, map[string]string{"success": "1 subject(s) unassigned."}),
		}
		body := marchallObj(t, map[string]int{"teacher_id": teacher.ID})
		req, rec := newAuthRequest(http.MethodPost, "/v1/registrar/unassign-subjects-by-teacher", token, body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}

func Test_registrarApi_approveRegistrations(t *testing.T) {
	app, db := setup(t)

	registrar := testutil.CreateUser(t, db, "Registrar", "registrar", "registrar@test.cd", "", []string{user.RoleRegistrar}, true)
	applicant := testutil.CreateUser(t, db, "Applicant", "applicant", "applicant@test.cd", "", []string{user.RoleStudent}, true)

	usrSvc := user.NewService(db, testutil.NopLogger{})
	if _, _, err := usrSvc.Apply(context.Background(), applicant.ID, user.ActionDisapprove); err != nil {
		t.Fatalf("Apply() failed: %v", err)
	}

	token := getToken(t, registrar)

	t.Run("Pending list", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/registrar/approve-registrations", token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; want %v; body %v", rec.Code, http.StatusOK, rec.Body.String())
		}
		var users []user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &users); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if len(users) != 1 || users[0].ID != applicant.ID {
			t.Errorf("pending = %+v; want the applicant", users)
		}
	})

	t.Run("Approve", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"user_id": applicant.ID, "action": "approve"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/registrar/approve-registrations", token, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; want %v; body %v", rec.Code, http.StatusOK, rec.Body.String())
		}

		var res struct {
			Message string     `json:"message"`
			User    *user.User `json:"user"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if want := "User applicant has been approved."; res.Message != want {
			t.Errorf("Message = %q; want %q", res.Message, want)
		}
		if res.User == nil || !res.User.IsApproved {
			t.Errorf("User = %+v; want approved", res.User)
		}
	})

	t.Run("Delete is not a registrar action", func(t *testing.T) {
		body := marchallObj(t, map[string]interface{}{"user_id": applicant.ID, "action": "delete"})
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"action": "action must be one of [approve disapprove]"}),
		}
		req, rec := newAuthRequest(http.MethodPost, "/v1/registrar/approve-registrations", token, body)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}

func Test_registrarApi_academicRecords(t *testing.T) {
	app, db := setup(t)

	registrar := testutil.CreateUser(t, db, "Registrar", "registrar", "registrar@test.cd", "", []string{user.RoleRegistrar}, true)
	stud := testutil.CreateUser(t, db, "Abebe Kebede", "abebe", "abebe@test.cd", "", []string{user.RoleStudent}, true)
	sub := testutil.CreateSubject(t, db, "G1_ENGLIS", "English", 1, true)

	token := getToken(t, registrar)

	t.Run("Upsert", func(t *testing.T) {
		quiz, mid, final := 8.0, 25.5, 50.0
		body := marchallObj(t, grade.UpsertGrade{
			StudentID:      stud.ID,
			SubjectID:      sub.ID,
			QuizScore:      &quiz,
			MidScore:       &mid,
			FinalExamScore: &final,
			Remarks:        "solid",
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/registrar/academic-records", token, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; want %v; body %v", rec.Code, http.StatusOK, rec.Body.String())
		}

		var g grade.Grade
		if err := json.Unmarshal(rec.Body.Bytes(), &g); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if g.Score == nil || *g.Score != 83.5 {
			t.Errorf("Score = %v; want the component total 83.5", g.Score)
		}
	})

	t.Run("Query joins names", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, fmt.Sprintf("/v1/registrar/academic-records?student_id=%d", stud.ID), token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; want %v; body %v", rec.Code, http.StatusOK, rec.Body.String())
		}
		var records []grade.Record
		if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if len(records) != 1 {
			t.Fatalf("records = %v; want 1", len(records))
		}
		if records[0].StudentName != "Abebe Kebede" || records[0].SubjectCode != "G1_ENGLIS" {
			t.Errorf("record = %+v; want joined student name and subject code", records[0])
		}
	})
}

func Test_registrarApi_waitlist(t *testing.T) {
	app, db := setup(t)

	registrar := testutil.CreateUser(t, db, "Registrar", "registrar", "registrar@test.cd", "", []string{user.RoleRegistrar}, true)
	stud := testutil.CreateUser(t, db, "Student", "student", "student@test.cd", "", []string{user.RoleStudent}, true)
	sub := testutil.CreateSubject(t, db, "G1_ENGLIS", "English", 1, true)

	token := getToken(t, registrar)
	path := fmt.Sprintf("/v1/registrar/waitlist/%d", sub.ID)
	manage := func(action string) []byte {
		return marchallObj(t, map[string]interface{}{"student_id": stud.ID, "action": action})
	}

	t.Run("Enqueue", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, path, token, manage("enqueue"))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; want %v; body %v", rec.Code, http.StatusOK, rec.Body.String())
		}
		var entry subject.WaitlistEntry
		if err := json.Unmarshal(rec.Body.Bytes(), &entry); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if entry.Position != 1 {
			t.Errorf("Position = %v; want 1", entry.Position)
		}
	})

	t.Run("List", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path, token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; want %v; body %v", rec.Code, http.StatusOK, rec.Body.String())
		}
		var entries []subject.WaitlistEntry
		if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if len(entries) != 1 || entries[0].StudentID != stud.ID {
			t.Errorf("waitlist = %+v; want the enqueued student", entries)
		}
	})

	t.Run("Dequeue", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, path, token, manage("dequeue"))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; want %v; body %v", rec.Code, http.StatusNoContent, rec.Body.String())
		}
	})

	t.Run("Dequeue absent student", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}
		req, rec := newAuthRequest(http.MethodPost, path, token, manage("dequeue"))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}

func Test_registrarApi_downloadTranscript(t *testing.T) {
	app, db := setup(t)

	registrar := testutil.CreateUser(t, db, "Registrar", "registrar", "registrar@test.cd", "", []string{user.RoleRegistrar}, true)
	stud := testutil.CreateUser(t, db, "Abebe Kebede", "abebe", "abebe@test.cd", "", []string{user.RoleStudent}, true)
	sub := testutil.CreateSubject(t, db, "G1_ENGLIS", "English", 1, true)
	testutil.CreateGrade(t, db, stud.ID, sub.ID, 88.5)

	token := getToken(t, registrar)

	t.Run("student_id required", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"student_id": "this field is required"}),
		}
		req, rec := newAuthRequest(http.MethodGet, "/v1/registrar/transcripts", token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})

	t.Run("Defaults to PDF", func(t *testing.T) {
		path := fmt.Sprintf("/v1/registrar/transcripts?student_id=%d", stud.ID)
		req, rec := newAuthRequest(http.MethodGet, path, token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; want %v; body %v", rec.Code, http.StatusOK, rec.Body.String())
		}
		if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
			t.Errorf("Content-Type = %q; want application/pdf", ct)
		}
		if !strings.HasPrefix(rec.Body.String(), "%PDF-") {
			t.Error("body is not a PDF")
		}
	})

	t.Run("Honors requested format", func(t *testing.T) {
		path := fmt.Sprintf("/v1/registrar/transcripts?student_id=%d&format=csv", stud.ID)
		req, rec := newAuthRequest(http.MethodGet, path, token)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; want %v; body %v", rec.Code, http.StatusOK, rec.Body.String())
		}
		if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
			t.Errorf("Content-Type = %q; want text/csv", ct)
		}
		if dispo := rec.Header().Get("Content-Disposition"); !strings.HasSuffix(dispo, `.csv"`) {
			t.Errorf("Content-Disposition = %q; want a .csv attachment", dispo)
		}
		if !strings.Contains(rec.Body.String(), "G1_ENGLIS") {
			t.Errorf("body = %q; want the graded subject", rec.Body.String())
		}
	})

	t.Run("Unknown student", func(t *testing.T) {
		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}
		req, rec := newAuthRequest(http.MethodGet, "/v1/registrar/transcripts?student_id=404", token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}
