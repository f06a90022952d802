package roster_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/roster"
	testutil "github.com/trezcool/darasa/tests"
)

func TestRollNumberLess(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"1", "2", true},
		{"2", "10", true}, // numeric, not lexicographic
		{"10", "2", false},
		{"3", "3", false},
		{"A1", "A2", true},
		{"10", "A1", true}, // mixed falls back to lexicographic
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, roster.RollNumberLess(tt.a, tt.b), "RollNumberLess(%q, %q)", tt.a, tt.b)
	}
}

func TestService_EnrollStudent(t *testing.T) {
	fix := testutil.NewRosterFixture(t, 3)
	assert.Equal(t, 3, fix.Class.CurrentStrength)

	// per-class roll number uniqueness
	_, err := fix.Roster.EnrollStudent(roster.NewStudent{
		StudentNo: "STU009", Name: "Dup Roll", RollNumber: "2", ClassRef: fix.Class.ID,
	})
	var vErr *core.ValidationError
	assert.ErrorAs(t, err, &vErr)

	// the same roll number is free in another class
	other, err := fix.Roster.CreateClass(roster.NewClass{
		Grade: "Grade 11", Section: "B", MaxStudents: 2, AcademicYear: fix.Conf.AcademicYear,
	})
	assert.NoError(t, err)
	_, err = fix.Roster.EnrollStudent(roster.NewStudent{
		StudentNo: "STU010", Name: "Other Class", RollNumber: "2", ClassRef: other.ID,
	})
	assert.NoError(t, err)

	// capacity is enforced
	_, err = fix.Roster.EnrollStudent(roster.NewStudent{
		StudentNo: "STU011", Name: "Fits", RollNumber: "3", ClassRef: other.ID,
	})
	assert.NoError(t, err)
	_, err = fix.Roster.EnrollStudent(roster.NewStudent{
		StudentNo: "STU012", Name: "Does Not", RollNumber: "4", ClassRef: other.ID,
	})
	assert.Equal(t, roster.ErrClassFull, err)

	_, err = fix.Roster.EnrollStudent(roster.NewStudent{
		StudentNo: "STU013", Name: "Lost", RollNumber: "1", ClassRef: "nope",
	})
	assert.True(t, core.IsNotFound(err))
}

func TestService_ActiveStudents(t *testing.T) {
	fix := testutil.NewRosterFixture(t, 12)

	students, err := fix.Roster.ActiveStudents(fix.Class.ID)
	assert.NoError(t, err)
	if assert.Len(t, students, 12) {
		// numeric roll order: "2" before "10"
		for i, st := range students {
			assert.Equal(t, fmt.Sprintf("%d", i+1), st.RollNumber)
		}
	}

	// deactivation frees the seat and drops the student from the roster
	dropped, err := fix.Roster.DeactivateStudent(students[4].ID)
	assert.NoError(t, err)
	assert.False(t, dropped.IsActive)

	students, err = fix.Roster.ActiveStudents(fix.Class.ID)
	assert.NoError(t, err)
	assert.Len(t, students, 11)

	class, err := fix.Roster.GetClass(fix.Class.ID)
	assert.NoError(t, err)
	assert.Equal(t, 11, class.CurrentStrength)

	// the freed roll number is reusable
	_, err = fix.Roster.EnrollStudent(roster.NewStudent{
		StudentNo: "STU099", Name: "Replacement", RollNumber: dropped.RollNumber, ClassRef: fix.Class.ID,
	})
	assert.NoError(t, err)

	_, err = fix.Roster.ActiveStudents("nope")
	assert.True(t, core.IsNotFound(err))
}

func TestService_ValidateMembership(t *testing.T) {
	fix := testutil.NewRosterFixture(t, 2)

	ok, err := fix.Roster.ValidateMembership(fix.Students[0].ID, fix.Class.ID)
	assert.NoError(t, err)
	assert.True(t, ok)

	// wrong class
	ok, err = fix.Roster.ValidateMembership(fix.Students[0].ID, "other")
	assert.NoError(t, err)
	assert.False(t, ok)

	// unknown student is not an error, just not a member
	ok, err = fix.Roster.ValidateMembership("nope", fix.Class.ID)
	assert.NoError(t, err)
	assert.False(t, ok)

	// deactivated students lose membership
	_, err = fix.Roster.DeactivateStudent(fix.Students[1].ID)
	assert.NoError(t, err)
	ok, err = fix.Roster.ValidateMembership(fix.Students[1].ID, fix.Class.ID)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestService_AssignTeacher(t *testing.T) {
	fix := testutil.NewRosterFixture(t, 1)

	// rebinding the same teacher just updates the weekly periods
	class, err := fix.Roster.AssignTeacher(fix.Teacher.ID, fix.Class.ID, fix.Subject.ID, 7)
	assert.NoError(t, err)
	if assert.Len(t, class.Subjects, 1) {
		assert.Equal(t, 7, class.Subjects[0].PeriodsPerWeek)
	}

	// an already-bound pair rejects a different teacher
	rival, err := fix.Roster.CreateTeacher(roster.NewTeacher{TeacherNo: "TCH002", Name: "Kwame Mensah", Department: "Science"})
	assert.NoError(t, err)
	_, err = fix.Roster.AssignTeacher(rival.ID, fix.Class.ID, fix.Subject.ID, 5)
	assert.Equal(t, roster.ErrTeacherConflict, err)

	// a second subject binds independently
	eng, err := fix.Roster.CreateSubject(roster.NewSubject{Name: "English", Code: "eng"})
	assert.NoError(t, err)
	class, err = fix.Roster.AssignTeacher(rival.ID, fix.Class.ID, eng.ID, 4)
	assert.NoError(t, err)
	assert.Len(t, class.Subjects, 2)

	_, err = fix.Roster.AssignTeacher("nope", fix.Class.ID, fix.Subject.ID, 5)
	assert.True(t, core.IsNotFound(err))
	_, err = fix.Roster.AssignTeacher(fix.Teacher.ID, fix.Class.ID, "nope", 5)
	assert.True(t, core.IsNotFound(err))
}

func TestService_TeacherClasses(t *testing.T) {
	fix := testutil.NewRosterFixture(t, 1)

	classes, err := fix.Roster.TeacherClasses(fix.Teacher.ID)
	assert.NoError(t, err)
	if assert.Len(t, classes, 1) {
		assert.Equal(t, fix.Class.ID, classes[0].ID)
	}

	classes, err = fix.Roster.TeacherClasses("nope")
	assert.NoError(t, err)
	assert.Empty(t, classes)
}
