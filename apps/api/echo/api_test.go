package echoapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/grades"
	"github.com/trezcool/darasa/core/homework"
	"github.com/trezcool/darasa/core/user"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
	testutil "github.com/trezcool/darasa/tests"
)

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Warn(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
func (nopLogger) Fatal(msg string, args ...interface{}) {}

type serverFixture struct {
	*testutil.RosterFixture
	server       *Server
	usrSvc       user.ServiceInterface
	teacherToken string
	adminToken   string
}

func setupServer(t *testing.T) *serverFixture {
	t.Helper()

	fix := testutil.NewRosterFixture(t, 3)
	conf := fix.Conf
	conf.Debug = false
	conf.TestMode = true

	usrRepo := inmemdb.NewUserRepository(fix.DB)
	usrSvc := user.NewService(usrRepo)
	events := &testutil.EventRecorder{}
	attendanceSvc := attendance.NewService(inmemdb.NewAttendanceRepository(fix.DB), fix.Roster, events, conf)
	homeworkSvc := homework.NewService(inmemdb.NewHomeworkRepository(fix.DB), fix.Roster, events, conf)
	gradeSvc := grades.NewService(inmemdb.NewGradeRepository(fix.DB), fix.Roster, events, conf)

	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	server := NewServer(ServerDeps{
		Conf:           conf,
		Logger:         nopLogger{},
		UserSvc:        usrSvc,
		RosterSvc:      fix.Roster,
		AttendanceSvc:  attendanceSvc,
		HomeworkSvc:    homeworkSvc,
		GradeSvc:       gradeSvc,
		Validate:       validate,
		Translator:     translator,
		DisableReqLogs: true,
	})

	// one teacher principal bound to the roster teacher, one admin
	teacherUsr, err := usrSvc.Create(user.NewUser{
		Name:       "Asha Okonkwo",
		Username:   "ashaokonkwo",
		Email:      "asha@test.cd",
		Password:   "s3cret",
		Roles:      user.TeacherRoles,
		TeacherRef: fix.Teacher.ID,
	})
	if err != nil {
		t.Fatalf("creating teacher user: %v", err)
	}
	adminUsr := testutil.CreateUser(t, usrRepo, "Boss", "bigboss", "boss@test.cd", "s3cret", user.AdminRoles, true)

	teacherToken, err := GenerateToken(conf, GetUserClaims(conf, teacherUsr))
	if err != nil {
		t.Fatalf("generating teacher token: %v", err)
	}
	adminToken, err := GenerateToken(conf, GetUserClaims(conf, adminUsr))
	if err != nil {
		t.Fatalf("generating admin token: %v", err)
	}

	return &serverFixture{
		RosterFixture: fix,
		server:        server,
		usrSvc:        usrSvc,
		teacherToken:  teacherToken,
		adminToken:    adminToken,
	}
}

func (f *serverFixture) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
}

func Test_home(t *testing.T) {
	fix := setupServer(t)

	rec := fix.request(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Darasa API!", rec.Body.String())
}

func Test_userApi_login(t *testing.T) {
	fix := setupServer(t)

	rec := fix.request(t, http.MethodPost, "/v1/users/login", "", LoginRequest{Username: "ashaokonkwo", Password: "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = fix.request(t, http.MethodPost, "/v1/users/login", "", LoginRequest{Username: "AshaOkonkwo", Password: "s3cret"})
	assert.Equal(t, http.StatusOK, rec.Code)
	var resp LoginResponse
	decode(t, rec, &resp)
	assert.NotEmpty(t, resp.Token)

	// authed endpoints need a token
	rec = fix.request(t, http.MethodGet, "/v1/users", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// admin-only endpoints reject teachers
	rec = fix.request(t, http.MethodGet, "/v1/users", resp.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = fix.request(t, http.MethodGet, "/v1/users", fix.adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// the listing honours the ordering query param
	rec = fix.request(t, http.MethodGet, "/v1/users?ordering=-username", fix.adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var users []user.User
	decode(t, rec, &users)
	if assert.Len(t, users, 2) {
		assert.Equal(t, "bigboss", users[0].Username)
		assert.Equal(t, "ashaokonkwo", users[1].Username)
	}
}

func Test_attendanceApi_flow(t *testing.T) {
	fix := setupServer(t)
	date := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	open := attendance.OpenSession{ClassRef: fix.Class.ID, SubjectRef: fix.Subject.ID, Date: date, Period: 1}

	// an admin principal has no roster teacher to act as
	rec := fix.request(t, http.MethodPost, "/v1/attendance/sessions", fix.adminToken, open)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = fix.request(t, http.MethodPost, "/v1/attendance/sessions", fix.teacherToken, open)
	assert.Equal(t, http.StatusCreated, rec.Code)
	var s attendance.Session
	decode(t, rec, &s)
	assert.Len(t, s.Entries, 3)
	assert.Equal(t, attendance.StatusDraft, s.Status)

	// idempotent re-open
	rec = fix.request(t, http.MethodPost, "/v1/attendance/sessions", fix.teacherToken, open)
	assert.Equal(t, http.StatusCreated, rec.Code)
	var again attendance.Session
	decode(t, rec, &again)
	assert.Equal(t, s.ID, again.ID)

	base := "/v1/attendance/sessions/" + s.ID

	rec = fix.request(t, http.MethodPost, base+"/entries", fix.teacherToken,
		attendance.MarkEntry{StudentRef: "stranger", Status: attendance.EntryPresent})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = fix.request(t, http.MethodPost, base+"/mark-all", fix.teacherToken, MarkAllRequest{Status: "vanished"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = fix.request(t, http.MethodPost, base+"/mark-all", fix.teacherToken, MarkAllRequest{Status: attendance.EntryPresent})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = fix.request(t, http.MethodPost, base+"/entries", fix.teacherToken,
		attendance.MarkEntry{StudentRef: fix.Students[2].ID, Status: attendance.EntryAbsent})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = fix.request(t, http.MethodPost, base+"/finalize", fix.teacherToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &s)
	assert.True(t, s.IsFinalized())
	assert.Equal(t, 2, s.PresentCount)
	assert.Equal(t, 1, s.AbsentCount)

	rec = fix.request(t, http.MethodPost, base+"/finalize", fix.teacherToken, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = fix.request(t, http.MethodPost, base+"/entries", fix.teacherToken,
		attendance.MarkEntry{StudentRef: fix.Students[0].ID, Status: attendance.EntryLate})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = fix.request(t, http.MethodPost, base+"/remarks", fix.teacherToken, RemarkRequest{Text: "spot check ok"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = fix.request(t, http.MethodGet, "/v1/attendance/sessions/nope", fix.teacherToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	q := url.Values{}
	q.Set("class_ref", fix.Class.ID)
	q.Set("date_from", date.AddDate(0, 0, -7).Format(time.RFC3339))
	q.Set("date_to", date.Format(time.RFC3339))
	rec = fix.request(t, http.MethodGet, "/v1/attendance/stats?"+q.Encode(), fix.teacherToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var stats attendance.Stats
	decode(t, rec, &stats)
	assert.Equal(t, 1, stats.FinalizedSessions)
	assert.Equal(t, 67, stats.OverallAttendancePercent)
}

func Test_homeworkApi_flow(t *testing.T) {
	fix := setupServer(t)
	due := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Second)

	rec := fix.request(t, http.MethodPost, "/v1/homework/assignments", fix.teacherToken, homework.NewAssignment{
		ClassRef:   fix.Class.ID,
		SubjectRef: fix.Subject.ID,
		Title:      "Quadratic equations worksheet",
		DueDate:    due,
		MaxMarks:   50,
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
	var a homework.Assignment
	decode(t, rec, &a)
	assert.Len(t, a.Submissions, 3)

	base := "/v1/homework/assignments/" + a.ID

	rec = fix.request(t, http.MethodPost, base+"/submissions", fix.teacherToken,
		homework.NewSubmission{StudentRef: fix.Students[0].ID, Content: "my answers"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = fix.request(t, http.MethodGet, base+"/submission-rate", fix.teacherToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var rate struct {
		SubmissionRate int `json:"submission_rate"`
	}
	decode(t, rec, &rate)
	assert.Equal(t, 33, rate.SubmissionRate) // 1 of 3

	// marks above the maximum come back clamped and flagged
	rec = fix.request(t, http.MethodPost, base+"/grade", fix.teacherToken,
		homework.GradeSubmission{StudentRef: fix.Students[0].ID, MarksObtained: 60})
	assert.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &a)
	assert.Equal(t, 50, a.Submissions[0].MarksObtained.Int)
	assert.True(t, a.Submissions[0].Adjusted)

	// pending work cannot be graded
	rec = fix.request(t, http.MethodPost, base+"/grade", fix.teacherToken,
		homework.GradeSubmission{StudentRef: fix.Students[1].ID, MarksObtained: 30})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = fix.request(t, http.MethodGet, "/v1/homework/assignments?class_ref="+fix.Class.ID, fix.teacherToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var list []homework.Assignment
	decode(t, rec, &list)
	assert.Len(t, list, 1)

	// neither ref: bad request
	rec = fix.request(t, http.MethodGet, "/v1/homework/assignments", fix.teacherToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// sweep is admin-only
	rec = fix.request(t, http.MethodPost, "/v1/homework/sweep", fix.teacherToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = fix.request(t, http.MethodPost, "/v1/homework/sweep", fix.adminToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = fix.request(t, http.MethodPost, base+"/cancel", fix.teacherToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = fix.request(t, http.MethodPost, base+"/submissions", fix.teacherToken,
		homework.NewSubmission{StudentRef: fix.Students[1].ID, Content: "late"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func Test_gradeApi_flow(t *testing.T) {
	fix := setupServer(t)

	rec := fix.request(t, http.MethodPost, "/v1/grades/assessments", fix.teacherToken, grades.NewAssessment{
		ClassRef:   fix.Class.ID,
		SubjectRef: fix.Subject.ID,
		Title:      "Midterm",
		Type:       "test",
		Term:       "Term 1",
		MaxMarks:   50,
		Weightage:  50,
	})
	assert.Equal(t, http.StatusCreated, rec.Code)
	var a grades.Assessment
	decode(t, rec, &a)

	base := "/v1/grades/assessments/" + a.ID

	rec = fix.request(t, http.MethodPost, base+"/results", fix.teacherToken,
		grades.NewResult{StudentRef: fix.Students[0].ID, MarksObtained: 45})
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = fix.request(t, http.MethodPost, base+"/results", fix.teacherToken,
		grades.NewResult{StudentRef: fix.Students[1].ID, IsAbsent: true})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = fix.request(t, http.MethodPost, "/v1/grades/assessments/nope/results", fix.teacherToken,
		grades.NewResult{StudentRef: fix.Students[0].ID, MarksObtained: 45})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	q := url.Values{}
	q.Set("class_ref", fix.Class.ID)
	q.Set("subject_ref", fix.Subject.ID)
	q.Set("term", "Term 1")
	rec = fix.request(t, http.MethodGet, "/v1/grades/records?"+q.Encode(), fix.teacherToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var records []grades.GradeRecord
	decode(t, rec, &records)
	if assert.Len(t, records, 2) {
		byStudent := make(map[string]grades.GradeRecord, len(records))
		for _, r := range records {
			byStudent[r.StudentRef] = r
		}
		assert.Equal(t, 1, byStudent[fix.Students[0].ID].Rank)
		assert.Equal(t, "A+", byStudent[fix.Students[0].ID].Grade) // 45/50
		assert.Equal(t, 2, byStudent[fix.Students[1].ID].Rank)
		assert.Equal(t, "F", byStudent[fix.Students[1].ID].Grade) // absent scores 0
	}

	rec = fix.request(t, http.MethodGet,
		fmt.Sprintf("/v1/grades/records/students/%s", fix.Students[0].ID), fix.teacherToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &records)
	assert.Len(t, records, 1)

	// single-student lookup needs subject and term
	rec = fix.request(t, http.MethodGet, "/v1/grades/records?student_ref="+fix.Students[0].ID, fix.teacherToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
