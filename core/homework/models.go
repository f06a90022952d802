package homework

import (
	"math"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
)

// Assignment statuses
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Submission statuses
const (
	SubmissionPending   = "pending"
	SubmissionSubmitted = "submitted"
	SubmissionLate      = "late"
	SubmissionGraded    = "graded"
)

// Submission is one student's slot on an assignment; one slot exists per
// roster student at assignment-creation time.
type Submission struct {
	StudentRef  string `json:"student_ref"`
	RollNumber  string `json:"roll_number"`
	StudentName string `json:"student_name"`
	Status      string `json:"status"`

	Content     string    `json:"content,omitempty"`
	Attachments []string  `json:"attachments,omitempty"`
	SubmittedAt null.Time `json:"submitted_at,omitempty"`

	MarksObtained null.Int  `json:"marks_obtained,omitempty"`
	Grade         string    `json:"grade,omitempty"`
	Feedback      string    `json:"feedback,omitempty"`
	GradedBy      string    `json:"graded_by,omitempty"`
	GradedAt      null.Time `json:"graded_at,omitempty"`
	// Adjusted marks a grade whose marks were clamped to the assignment
	// maximum on entry.
	Adjusted bool `json:"adjusted,omitempty"`
}

// IsTerminal reports whether the slot has left the pending state.
func (s *Submission) IsTerminal() bool {
	switch s.Status {
	case SubmissionSubmitted, SubmissionLate, SubmissionGraded:
		return true
	}
	return false
}

type Assignment struct {
	ID           string       `json:"id"`
	TeacherRef   string       `json:"teacher_ref"`
	ClassRef     string       `json:"class_ref"`
	SubjectRef   string       `json:"subject_ref"`
	Title        string       `json:"title"`
	Description  string       `json:"description,omitempty"`
	Instructions string       `json:"instructions,omitempty"`
	Attachments  []string     `json:"attachments,omitempty"`
	AssignedAt   time.Time    `json:"assigned_at"`
	DueDate      time.Time    `json:"due_date"`
	MaxMarks     int          `json:"max_marks"`
	AcademicYear string       `json:"academic_year"`
	Status       string       `json:"status"`
	Submissions  []Submission `json:"submissions"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (a *Assignment) IsActive() bool { return a.Status == StatusActive }

func (a *Assignment) submission(studentRef string) *Submission {
	for i := range a.Submissions {
		if a.Submissions[i].StudentRef == studentRef {
			return &a.Submissions[i]
		}
	}
	return nil
}

// SubmissionCount is derived from the submission list: the number of slots
// that have left pending. It is never stored independently.
func (a *Assignment) SubmissionCount() int {
	var n int
	for i := range a.Submissions {
		if a.Submissions[i].IsTerminal() {
			n++
		}
	}
	return n
}

// SubmissionRate is round(100 × SubmissionCount/|Submissions|); 0 when the
// roster was empty.
func (a *Assignment) SubmissionRate() int {
	if len(a.Submissions) == 0 {
		return 0
	}
	return int(math.Round(100 * float64(a.SubmissionCount()) / float64(len(a.Submissions))))
}

func (a *Assignment) allTerminal() bool {
	for i := range a.Submissions {
		if !a.Submissions[i].IsTerminal() {
			return false
		}
	}
	return true
}

func (a *Assignment) allGraded() bool {
	for i := range a.Submissions {
		if a.Submissions[i].Status != SubmissionGraded {
			return false
		}
	}
	return true
}

// Inputs

type NewAssignment struct {
	ClassRef     string    `json:"class_ref" validate:"required"`
	SubjectRef   string    `json:"subject_ref" validate:"required"`
	Title        string    `json:"title" validate:"required"`
	Description  string    `json:"description"`
	Instructions string    `json:"instructions"`
	Attachments  []string  `json:"attachments"`
	DueDate      time.Time `json:"due_date" validate:"required"`
	MaxMarks     int       `json:"max_marks" validate:"required,gt=0"`
}

func (na *NewAssignment) Validate(validate *validator.Validate, translator ut.Translator) error {
	na.ClassRef = core.CleanString(na.ClassRef)
	na.SubjectRef = core.CleanString(na.SubjectRef)
	na.Title = core.CleanString(na.Title)
	return validate.Struct(na)
}

type NewSubmission struct {
	StudentRef  string   `json:"student_ref" validate:"required"`
	Content     string   `json:"content" validate:"required"`
	Attachments []string `json:"attachments"`
}

func (ns *NewSubmission) Validate(validate *validator.Validate, translator ut.Translator) error {
	ns.StudentRef = core.CleanString(ns.StudentRef)
	return validate.Struct(ns)
}

type GradeSubmission struct {
	StudentRef    string `json:"student_ref" validate:"required"`
	MarksObtained int    `json:"marks_obtained" validate:"gte=0"`
	Feedback      string `json:"feedback"`
}

func (gs *GradeSubmission) Validate(validate *validator.Validate, translator ut.Translator) error {
	gs.StudentRef = core.CleanString(gs.StudentRef)
	gs.Feedback = core.CleanString(gs.Feedback)
	return validate.Struct(gs)
}
