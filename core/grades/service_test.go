package grades

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/roster"
)

func TestLetter(t *testing.T) {
	tests := []struct {
		percentage float64
		want       string
	}{
		{100, "A+"},
		{90, "A+"},
		{89.9, "A"},
		{80, "A"},
		{70, "B+"},
		{60, "B"},
		{50, "C+"},
		{40, "C"},
		{33, "D"},
		{32.9, "F"},
		{0, "F"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Letter(tt.percentage), "Letter(%v)", tt.percentage)
	}
}

type fakeGradeRepo struct {
	assessments map[string]Assessment
	records     map[string]GradeRecord // keyed by student tuple
}

var _ Repository = (*fakeGradeRepo)(nil)

func newFakeGradeRepo() *fakeGradeRepo {
	return &fakeGradeRepo{
		assessments: make(map[string]Assessment),
		records:     make(map[string]GradeRecord),
	}
}

func recordKey(r GradeRecord) string {
	return r.StudentRef + "|" + r.SubjectRef + "|" + r.Term + "|" + r.AcademicYear
}

func (r *fakeGradeRepo) CreateAssessment(_ context.Context, a Assessment) (Assessment, error) {
	r.assessments[a.ID] = a
	return a, nil
}

func (r *fakeGradeRepo) GetAssessment(_ context.Context, id string) (Assessment, error) {
	a, ok := r.assessments[id]
	if !ok {
		return Assessment{}, ErrAssessmentNotFound
	}
	return a, nil
}

func (r *fakeGradeRepo) UpdateAssessment(_ context.Context, a Assessment) (Assessment, error) {
	if _, ok := r.assessments[a.ID]; !ok {
		return Assessment{}, ErrAssessmentNotFound
	}
	r.assessments[a.ID] = a
	return a, nil
}

func (r *fakeGradeRepo) QueryAssessments(_ context.Context, classRef, subjectRef, term, academicYear string) ([]Assessment, error) {
	var out []Assessment
	for _, a := range r.assessments {
		if a.ClassRef == classRef && a.SubjectRef == subjectRef && a.Term == term && a.AcademicYear == academicYear {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeGradeRepo) UpsertGradeRecord(_ context.Context, rec GradeRecord) (GradeRecord, error) {
	key := recordKey(rec)
	if existing, ok := r.records[key]; ok {
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
		if rec.Rank == 0 {
			rec.Rank = existing.Rank
		}
	}
	r.records[key] = rec
	return rec, nil
}

func (r *fakeGradeRepo) GetGradeRecord(_ context.Context, studentRef, subjectRef, term, academicYear string) (GradeRecord, error) {
	rec, ok := r.records[studentRef+"|"+subjectRef+"|"+term+"|"+academicYear]
	if !ok {
		return GradeRecord{}, ErrGradeRecordNotFound
	}
	return rec, nil
}

func (r *fakeGradeRepo) QueryGradeRecords(_ context.Context, classRef, subjectRef, term, academicYear string) ([]GradeRecord, error) {
	var out []GradeRecord
	for _, rec := range r.records {
		if rec.ClassRef == classRef && rec.SubjectRef == subjectRef && rec.Term == term && rec.AcademicYear == academicYear {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeGradeRepo) QueryGradeRecordsByStudent(_ context.Context, studentRef, academicYear string) ([]GradeRecord, error) {
	var out []GradeRecord
	for _, rec := range r.records {
		if rec.StudentRef == studentRef && rec.AcademicYear == academicYear {
			out = append(out, rec)
		}
	}
	return out, nil
}

// rosterStub serves a single canned class; unused methods panic.
type rosterStub struct {
	roster.ServiceInterface
	class    roster.Class
	students []roster.Student
}

func (s *rosterStub) GetClass(classRef string) (roster.Class, error) {
	if classRef != s.class.ID {
		return roster.Class{}, roster.ErrClassNotFound
	}
	return s.class, nil
}

func (s *rosterStub) ValidateMembership(studentRef, classRef string) (bool, error) {
	for _, st := range s.students {
		if st.ID == studentRef {
			return st.IsActive && st.ClassRef == classRef, nil
		}
	}
	return false, nil
}

type eventRecorder struct {
	published []core.Event
}

func (r *eventRecorder) Publish(events ...core.Event) {
	r.published = append(r.published, events...)
}

func newTestService(t *testing.T) (*Service, *eventRecorder) {
	t.Helper()

	rosterSvc := &rosterStub{
		class: roster.Class{
			ID:       "class1",
			IsActive: true,
			Subjects: []roster.ClassSubject{{SubjectRef: "math", TeacherRef: "teacher1", PeriodsPerWeek: 5}},
		},
		students: []roster.Student{
			{ID: "s1", RollNumber: "1", ClassRef: "class1", IsActive: true},
			{ID: "s2", RollNumber: "2", ClassRef: "class1", IsActive: true},
			{ID: "s3", RollNumber: "3", ClassRef: "class1", IsActive: true},
		},
	}
	events := &eventRecorder{}
	svc := NewService(newFakeGradeRepo(), rosterSvc, events, &core.Config{AcademicYear: "2025-26"})
	return svc, events
}

func newAssessment(t *testing.T, svc *Service, title string, maxMarks int, weightage float64) Assessment {
	t.Helper()
	a, err := svc.CreateAssessment("teacher1", NewAssessment{
		ClassRef:   "class1",
		SubjectRef: "math",
		Title:      title,
		Type:       "test",
		Term:       "Term 1",
		MaxMarks:   maxMarks,
		Weightage:  weightage,
	})
	if err != nil {
		t.Fatalf("CreateAssessment() failed: %v", err)
	}
	return a
}

func TestService_CreateAssessment(t *testing.T) {
	svc, _ := newTestService(t)

	a := newAssessment(t, svc, "Midterm", 50, 50)
	assert.Equal(t, "teacher1", a.TeacherRef)
	assert.Equal(t, "2025-26", a.AcademicYear)
	assert.Empty(t, a.Results)

	_, err := svc.CreateAssessment("teacher2", NewAssessment{
		ClassRef: "class1", SubjectRef: "math", Title: "x", Term: "Term 1", MaxMarks: 50, Weightage: 50,
	})
	assert.Equal(t, ErrNotAssignedTeacher, err)

	_, err = svc.CreateAssessment("teacher1", NewAssessment{
		ClassRef: "nope", SubjectRef: "math", Title: "x", Term: "Term 1", MaxMarks: 50, Weightage: 50,
	})
	assert.True(t, core.IsNotFound(err))
}

func TestService_RecordResult(t *testing.T) {
	svc, events := newTestService(t)
	midterm := newAssessment(t, svc, "Midterm", 50, 50)
	quiz := newAssessment(t, svc, "Quiz 1", 50, 50)

	_, err := svc.RecordResult(midterm.ID, NewResult{StudentRef: "stranger", MarksObtained: 10})
	assert.Equal(t, ErrUnknownStudent, err)

	_, err = svc.RecordResult(midterm.ID, NewResult{StudentRef: "s1", MarksObtained: 45})
	assert.NoError(t, err)

	// one result in: the record covers only the assessed components
	rec, err := svc.GetGradeRecord("s1", "math", "Term 1")
	assert.NoError(t, err)
	assert.Len(t, rec.Assessments, 1)
	assert.Equal(t, 50, rec.TotalMarks)
	assert.Equal(t, 45, rec.MarksObtained)
	assert.InDelta(t, 90.0, rec.Percentage, 0.001)
	assert.Equal(t, "A+", rec.Grade)
	assert.Equal(t, 1, rec.Rank)

	_, err = svc.RecordResult(quiz.ID, NewResult{StudentRef: "s1", MarksObtained: 40})
	assert.NoError(t, err)

	rec, err = svc.GetGradeRecord("s1", "math", "Term 1")
	assert.NoError(t, err)
	assert.Len(t, rec.Assessments, 2)
	assert.Equal(t, 100, rec.TotalMarks)
	assert.Equal(t, 85, rec.MarksObtained)
	assert.InDelta(t, 85.0, rec.Percentage, 0.001) // (90% + 80%) / 2, equal weights
	assert.Equal(t, "A", rec.Grade)

	if assert.NotEmpty(t, events.published) {
		assert.Equal(t, "grade_record", events.published[0].EntityType)
		assert.Equal(t, "s1", events.published[0].EntityID)
	}
}

func TestService_RecordResult_clampAndAbsence(t *testing.T) {
	svc, _ := newTestService(t)
	midterm := newAssessment(t, svc, "Midterm", 50, 100)

	// marks above the maximum are clamped and flagged
	a, err := svc.RecordResult(midterm.ID, NewResult{StudentRef: "s1", MarksObtained: 60})
	assert.NoError(t, err)
	if assert.Len(t, a.Results, 1) {
		assert.Equal(t, 50, a.Results[0].MarksObtained)
		assert.True(t, a.Results[0].Adjusted)
	}

	// an absent student scores 0, not a skip
	a, err = svc.RecordResult(midterm.ID, NewResult{StudentRef: "s2", MarksObtained: 30, IsAbsent: true})
	assert.NoError(t, err)
	assert.Zero(t, a.Results[1].MarksObtained)

	rec, err := svc.GetGradeRecord("s2", "math", "Term 1")
	assert.NoError(t, err)
	assert.Zero(t, rec.MarksObtained)
	assert.Equal(t, "F", rec.Grade)

	// re-recording replaces the earlier result
	a, err = svc.RecordResult(midterm.ID, NewResult{StudentRef: "s1", MarksObtained: 35})
	assert.NoError(t, err)
	assert.Len(t, a.Results, 2)
	assert.Equal(t, 35, a.Results[0].MarksObtained)
	assert.False(t, a.Results[0].Adjusted)
}

func TestService_Ranking(t *testing.T) {
	svc, _ := newTestService(t)
	midterm := newAssessment(t, svc, "Midterm", 100, 100)

	for ref, marks := range map[string]int{"s1": 70, "s2": 90, "s3": 70} {
		_, err := svc.RecordResult(midterm.ID, NewResult{StudentRef: ref, MarksObtained: marks})
		assert.NoError(t, err)
	}

	records, err := svc.ClassGradeRecords("class1", "math", "Term 1")
	assert.NoError(t, err)
	assert.Len(t, records, 3)

	byStudent := make(map[string]GradeRecord, len(records))
	for _, rec := range records {
		byStudent[rec.StudentRef] = rec
	}
	assert.Equal(t, 1, byStudent["s2"].Rank)
	assert.Equal(t, 2, byStudent["s1"].Rank) // percentage tie with s3; student ref breaks it
	assert.Equal(t, 3, byStudent["s3"].Rank)

	// an improved result reshuffles the whole tuple
	_, err = svc.RecordResult(midterm.ID, NewResult{StudentRef: "s3", MarksObtained: 95})
	assert.NoError(t, err)
	records, err = svc.ClassGradeRecords("class1", "math", "Term 1")
	assert.NoError(t, err)
	for _, rec := range records {
		byStudent[rec.StudentRef] = rec
	}
	assert.Equal(t, 1, byStudent["s3"].Rank)
	assert.Equal(t, 2, byStudent["s2"].Rank)
	assert.Equal(t, 3, byStudent["s1"].Rank)
}

func TestService_StudentGradeRecords(t *testing.T) {
	svc, _ := newTestService(t)
	midterm := newAssessment(t, svc, "Midterm", 50, 50)

	_, err := svc.RecordResult(midterm.ID, NewResult{StudentRef: "s1", MarksObtained: 30})
	assert.NoError(t, err)

	records, err := svc.StudentGradeRecords("s1")
	assert.NoError(t, err)
	assert.Len(t, records, 1)

	_, err = svc.GetGradeRecord("s2", "math", "Term 1")
	assert.True(t, core.IsNotFound(err))
}
