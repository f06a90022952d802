package grades

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

// Letter grade thresholds, descending. Fixed school-wide.
var letterThresholds = []struct {
	min    float64
	letter string
}{
	{90, "A+"},
	{80, "A"},
	{70, "B+"},
	{60, "B"},
	{50, "C+"},
	{40, "C"},
	{33, "D"},
}

// Letter maps a 0-100 percentage to its letter grade.
func Letter(percentage float64) string {
	for _, t := range letterThresholds {
		if percentage >= t.min {
			return t.letter
		}
	}
	return "F"
}

// AssessmentResult is one student's outcome on an assessment. An absent
// student scores 0: absence counts against the term grade, it is not a skip.
type AssessmentResult struct {
	StudentRef    string    `json:"student_ref"`
	MarksObtained int       `json:"marks_obtained"`
	IsAbsent      bool      `json:"is_absent"`
	Adjusted      bool      `json:"adjusted,omitempty"` // marks were clamped on entry
	Remarks       string    `json:"remarks,omitempty"`
	RecordedAt    time.Time `json:"recorded_at"` // UTC
}

// Assessment is one graded exercise contributing Weightage points of its
// subject's term grade.
type Assessment struct {
	ID           string             `json:"id"`
	TeacherRef   string             `json:"teacher_ref"`
	ClassRef     string             `json:"class_ref"`
	SubjectRef   string             `json:"subject_ref"`
	Title        string             `json:"title"`
	Type         string             `json:"type"` // "test", "quiz", "project", "assignment"
	Term         string             `json:"term"` // "Term 1", "Term 2", "Final"
	AcademicYear string             `json:"academic_year"`
	MaxMarks     int                `json:"max_marks"`
	Weightage    float64            `json:"weightage"`
	Results      []AssessmentResult `json:"results"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (a *Assessment) result(studentRef string) *AssessmentResult {
	for i := range a.Results {
		if a.Results[i].StudentRef == studentRef {
			return &a.Results[i]
		}
	}
	return nil
}

// GradeComponent is one assessment's contribution inside a GradeRecord.
type GradeComponent struct {
	AssessmentRef string  `json:"assessment_ref"`
	MarksObtained int     `json:"marks_obtained"`
	MaxMarks      int     `json:"max_marks"`
	Weightage     float64 `json:"weightage"`
}

// GradeRecord aggregates every assessment result of one
// (student, subject, term, academic year) tuple. It is system-computed:
// writable only through assessment result entry, recomputed whenever any
// contributing result changes.
type GradeRecord struct {
	ID           string           `json:"id"`
	StudentRef   string           `json:"student_ref"`
	ClassRef     string           `json:"class_ref"`
	SubjectRef   string           `json:"subject_ref"`
	Term         string           `json:"term"`
	AcademicYear string           `json:"academic_year"`
	Assessments  []GradeComponent `json:"assessments"`

	TotalMarks    int     `json:"total_marks"`    // Σ max marks
	MarksObtained int     `json:"marks_obtained"` // Σ obtained marks
	Percentage    float64 `json:"percentage"`
	Grade         string  `json:"grade"`
	Rank          int     `json:"rank"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// TupleKey identifies the rank scope of a grade record's class.
func TupleKey(classRef, subjectRef, term, academicYear string) string {
	return classRef + "|" + subjectRef + "|" + term + "|" + academicYear
}

// Inputs

type NewAssessment struct {
	ClassRef   string  `json:"class_ref" validate:"required"`
	SubjectRef string  `json:"subject_ref" validate:"required"`
	Title      string  `json:"title" validate:"required"`
	Type       string  `json:"type" validate:"omitempty,oneof=test quiz project assignment"`
	Term       string  `json:"term" validate:"required"`
	MaxMarks   int     `json:"max_marks" validate:"required,gt=0"`
	Weightage  float64 `json:"weightage" validate:"required,gt=0"`
}

func (na *NewAssessment) Validate(validate *validator.Validate, translator ut.Translator) error {
	na.ClassRef = core.CleanString(na.ClassRef)
	na.SubjectRef = core.CleanString(na.SubjectRef)
	na.Title = core.CleanString(na.Title)
	na.Type = core.CleanString(na.Type, true /* lower */)
	na.Term = core.CleanString(na.Term)
	return validate.Struct(na)
}

type NewResult struct {
	StudentRef    string `json:"student_ref" validate:"required"`
	MarksObtained int    `json:"marks_obtained" validate:"gte=0"`
	IsAbsent      bool   `json:"is_absent"`
	Remarks       string `json:"remarks"`
}

func (nr *NewResult) Validate(validate *validator.Validate, translator ut.Translator) error {
	nr.StudentRef = core.CleanString(nr.StudentRef)
	nr.Remarks = core.CleanString(nr.Remarks)
	return validate.Struct(nr)
}
