package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/roster"
	"github.com/trezcool/darasa/core/user"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
)

// NewConfig returns a self-contained config for tests; no env lookups.
func NewConfig() *core.Config {
	return &core.Config{
		Debug:        true,
		TestMode:     true,
		Env:          "TEST",
		AppName:      "Darasa",
		SecretKey:    "sekrit",
		AcademicYear: "2025-26",
		Server: core.ServerConfig{
			Addr:                      ":8000",
			ShutdownTimeout:           5 * time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
	}
}

// RosterFixture is a ready-made class: a teacher bound to a subject and a
// roster of active students, all backed by the in-memory store.
type RosterFixture struct {
	DB       *inmemdb.DB
	Conf     *core.Config
	Roster   *roster.Service
	Teacher  roster.Teacher
	Subject  roster.Subject
	Class    roster.Class
	Students []roster.Student
}

func NewRosterFixture(t *testing.T, studentCount int) *RosterFixture {
	t.Helper()

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	conf := NewConfig()
	svc := roster.NewService(inmemdb.NewRosterRepository(db), conf)

	teacher, err := svc.CreateTeacher(roster.NewTeacher{TeacherNo: "TCH001", Name: "Asha Okonkwo", Department: "Science"})
	if err != nil {
		t.Fatalf("CreateTeacher() failed: %v", err)
	}
	subject, err := svc.CreateSubject(roster.NewSubject{Name: "Mathematics", Code: "math"})
	if err != nil {
		t.Fatalf("CreateSubject() failed: %v", err)
	}
	class, err := svc.CreateClass(roster.NewClass{Grade: "Grade 10", Section: "A", MaxStudents: 40, AcademicYear: conf.AcademicYear})
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	class, err = svc.AssignTeacher(teacher.ID, class.ID, subject.ID, 5)
	if err != nil {
		t.Fatalf("AssignTeacher() failed: %v", err)
	}

	students := make([]roster.Student, 0, studentCount)
	for i := 1; i <= studentCount; i++ {
		st, err := svc.EnrollStudent(roster.NewStudent{
			StudentNo:  fmt.Sprintf("STU%03d", i),
			Name:       fmt.Sprintf("Student %d", i),
			RollNumber: fmt.Sprintf("%d", i),
			ClassRef:   class.ID,
		})
		if err != nil {
			t.Fatalf("EnrollStudent() failed: %v", err)
		}
		students = append(students, st)
	}

	// re-read: enrollment refreshes the strength counter
	class, err = svc.GetClass(class.ID)
	if err != nil {
		t.Fatalf("GetClass() failed: %v", err)
	}

	return &RosterFixture{
		DB:       db,
		Conf:     conf,
		Roster:   svc,
		Teacher:  teacher,
		Subject:  subject,
		Class:    class,
		Students: students,
	}
}

// EventRecorder captures published domain events synchronously.
type EventRecorder struct {
	Published []core.Event
}

var _ core.EventService = (*EventRecorder)(nil)

func (r *EventRecorder) Publish(events ...core.Event) {
	r.Published = append(r.Published, events...)
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
) user.User {
	t.Helper()

	now := time.Now().UTC()
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}
