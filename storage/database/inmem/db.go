package inmemdb

import (
	"sync"

	"github.com/trezcool/darasa/core/attendance"
	"github.com/trezcool/darasa/core/grades"
	"github.com/trezcool/darasa/core/homework"
	"github.com/trezcool/darasa/core/roster"
	"github.com/trezcool/darasa/core/user"
)

// DB is an in-memory store used in DEV and as the test double. Each table
// guards itself; aggregates are deep-copied on the way in and out so callers
// always hold a snapshot.
type (
	DB struct {
		user       *userTable
		teacher    *teacherTable
		subject    *subjectTable
		class      *classTable
		student    *studentTable
		session    *sessionTable
		assignment *assignmentTable
		assessment *assessmentTable
		record     *recordTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}
	teacherTable struct {
		sync.RWMutex
		table map[string]*roster.Teacher
	}
	subjectTable struct {
		sync.RWMutex
		table map[string]*roster.Subject
	}
	classTable struct {
		sync.RWMutex
		table map[string]*roster.Class
	}
	studentTable struct {
		sync.RWMutex
		table map[string]*roster.Student
	}
	sessionTable struct {
		sync.RWMutex
		table map[string]*attendance.Session
	}
	assignmentTable struct {
		sync.RWMutex
		table map[string]*homework.Assignment
	}
	assessmentTable struct {
		sync.RWMutex
		table map[string]*grades.Assessment
	}
	recordTable struct {
		sync.RWMutex
		table map[string]*grades.GradeRecord // keyed by student|subject|term|year
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:       &userTable{table: make(map[string]*user.User)},
		teacher:    &teacherTable{table: make(map[string]*roster.Teacher)},
		subject:    &subjectTable{table: make(map[string]*roster.Subject)},
		class:      &classTable{table: make(map[string]*roster.Class)},
		student:    &studentTable{table: make(map[string]*roster.Student)},
		session:    &sessionTable{table: make(map[string]*attendance.Session)},
		assignment: &assignmentTable{table: make(map[string]*homework.Assignment)},
		assessment: &assessmentTable{table: make(map[string]*grades.Assessment)},
		record:     &recordTable{table: make(map[string]*grades.GradeRecord)},
	}
	return db, nil
}
