package homework

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/grades"
	"github.com/trezcool/darasa/core/roster"
)

var (
	// errors
	ErrAssignmentNotFound  = core.NewNotFoundError("assignment not found")
	ErrAssignmentNotActive = core.NewRejectedError("assignment is not active")
	ErrUnknownStudent      = core.NewRejectedError("student is not on this assignment's roster")
	ErrNotSubmitted        = core.NewRejectedError("submission has not been handed in yet")
	ErrAlreadyGraded       = core.NewRejectedError("submission has already been graded")
	ErrNotAssignedTeacher  = core.NewRejectedError("teacher does not own this assignment")
	ErrInvalidDueDate      = errors.New("due date must be after the assignment date")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		GetAssignment(ctx context.Context, id string) (Assignment, error)
		UpdateAssignment(ctx context.Context, a Assignment) (Assignment, error)
		QueryAssignmentsByTeacher(ctx context.Context, teacherRef string) ([]Assignment, error)
		QueryAssignmentsByClass(ctx context.Context, classRef string) ([]Assignment, error)
		// QueryActiveAssignmentsDueBefore feeds the auto-completion sweep.
		QueryActiveAssignmentsDueBefore(ctx context.Context, due time.Time) ([]Assignment, error)
	}

	ServiceInterface interface {
		CreateAssignment(teacherRef string, in NewAssignment) (Assignment, error)
		GetAssignment(id string) (Assignment, error)
		Submit(assignmentID string, in NewSubmission) (Assignment, error)
		Grade(assignmentID, gradedBy string, in GradeSubmission) (Assignment, error)
		Cancel(assignmentID, teacherRef string) (Assignment, error)
		GetSubmissionRate(assignmentID string) (int, error)
		QueryByTeacher(teacherRef string) ([]Assignment, error)
		QueryByClass(classRef string) ([]Assignment, error)
		Sweep() (int, error)
	}

	Service struct {
		repo   Repository
		roster roster.ServiceInterface
		events core.EventService
		conf   *core.Config
		locks  core.KeyedMutex // serializes per-assignment recomputes
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, rosterSvc roster.ServiceInterface, events core.EventService, conf *core.Config) *Service {
	return &Service{repo: repo, roster: rosterSvc, events: events, conf: conf}
}

// CreateAssignment materializes one pending submission slot per active roster
// student; the roster snapshot is frozen at creation time.
func (svc *Service) CreateAssignment(teacherRef string, in NewAssignment) (Assignment, error) {
	ctx := context.Background()

	class, err := svc.roster.GetClass(in.ClassRef)
	if err != nil {
		return Assignment{}, err
	}
	if bound, ok := class.SubjectTeacher(in.SubjectRef); !ok || bound != teacherRef {
		return Assignment{}, ErrNotAssignedTeacher
	}

	now := nowFunc().UTC()
	if !in.DueDate.After(now) {
		return Assignment{}, core.NewValidationError(
			ErrInvalidDueDate, core.FieldError{Field: "due_date", Error: ErrInvalidDueDate.Error()})
	}

	students, err := svc.roster.ActiveStudents(class.ID)
	if err != nil {
		return Assignment{}, err
	}
	if len(students) == 0 {
		return Assignment{}, roster.ErrEmptyRoster
	}

	subs := make([]Submission, 0, len(students))
	for _, st := range students {
		subs = append(subs, Submission{
			StudentRef:  st.ID,
			RollNumber:  st.RollNumber,
			StudentName: st.Name,
			Status:      SubmissionPending,
		})
	}

	a := Assignment{
		ID:           uuid.New().String(),
		TeacherRef:   teacherRef,
		ClassRef:     class.ID,
		SubjectRef:   in.SubjectRef,
		Title:        in.Title,
		Description:  in.Description,
		Instructions: in.Instructions,
		Attachments:  in.Attachments,
		AssignedAt:   now,
		DueDate:      in.DueDate.UTC(),
		MaxMarks:     in.MaxMarks,
		AcademicYear: svc.conf.AcademicYear,
		Status:       StatusActive,
		Submissions:  subs,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return svc.repo.CreateAssignment(ctx, a)
}

// GetAssignment also runs the on-read auto-completion check.
func (svc *Service) GetAssignment(id string) (Assignment, error) {
	svc.locks.Lock(id)
	defer svc.locks.Unlock(id)

	a, err := svc.repo.GetAssignment(context.Background(), id)
	if err != nil {
		return Assignment{}, err
	}
	return svc.maybeComplete(a)
}

// Submit hands in a student's work. Past the due date the slot turns late;
// a resubmission before grading overwrites content and refreshes the
// timestamp but never reverts late back to submitted.
func (svc *Service) Submit(assignmentID string, in NewSubmission) (Assignment, error) {
	svc.locks.Lock(assignmentID)
	defer svc.locks.Unlock(assignmentID)

	ctx := context.Background()
	a, err := svc.repo.GetAssignment(ctx, assignmentID)
	if err != nil {
		return Assignment{}, err
	}
	// no auto-completion here: an overdue assignment whose slots are all
	// terminal must still honor a resubmission before grading
	if !a.IsActive() {
		return Assignment{}, ErrAssignmentNotActive
	}

	sub := a.submission(in.StudentRef)
	if sub == nil {
		return Assignment{}, ErrUnknownStudent
	}
	if sub.Status == SubmissionGraded {
		return Assignment{}, ErrAlreadyGraded
	}

	now := nowFunc().UTC()
	if sub.Status != SubmissionLate { // late is sticky
		if now.After(a.DueDate) {
			sub.Status = SubmissionLate
		} else {
			sub.Status = SubmissionSubmitted
		}
	}
	sub.Content = in.Content
	sub.Attachments = in.Attachments
	sub.SubmittedAt = null.TimeFrom(now)

	a.UpdatedAt = now
	return svc.repo.UpdateAssignment(ctx, a)
}

// Grade marks a handed-in submission. Marks above the assignment maximum are
// clamped and flagged, never silently accepted nor rejected.
func (svc *Service) Grade(assignmentID, gradedBy string, in GradeSubmission) (Assignment, error) {
	svc.locks.Lock(assignmentID)
	defer svc.locks.Unlock(assignmentID)

	ctx := context.Background()
	a, err := svc.repo.GetAssignment(ctx, assignmentID)
	if err != nil {
		return Assignment{}, err
	}

	sub := a.submission(in.StudentRef)
	if sub == nil {
		return Assignment{}, ErrUnknownStudent
	}
	if sub.Status == SubmissionGraded {
		return Assignment{}, ErrAlreadyGraded
	}
	if sub.Status != SubmissionSubmitted && sub.Status != SubmissionLate {
		return Assignment{}, ErrNotSubmitted
	}

	marks := in.MarksObtained
	if marks > a.MaxMarks {
		marks = a.MaxMarks
		sub.Adjusted = true
	}
	now := nowFunc().UTC()
	sub.Status = SubmissionGraded
	sub.MarksObtained = null.IntFrom(marks)
	sub.Grade = grades.Letter(100 * float64(marks) / float64(a.MaxMarks))
	sub.Feedback = in.Feedback
	sub.GradedBy = gradedBy
	sub.GradedAt = null.TimeFrom(now)

	a.UpdatedAt = now
	if a, err = svc.maybeComplete(a); err != nil {
		return Assignment{}, err
	}
	if a.IsActive() { // maybeComplete persists when it transitions
		return svc.repo.UpdateAssignment(ctx, a)
	}
	return a, nil
}

// Cancel is an explicit, irreversible teacher action on an active assignment.
func (svc *Service) Cancel(assignmentID, teacherRef string) (Assignment, error) {
	svc.locks.Lock(assignmentID)
	defer svc.locks.Unlock(assignmentID)

	ctx := context.Background()
	a, err := svc.repo.GetAssignment(ctx, assignmentID)
	if err != nil {
		return Assignment{}, err
	}
	if a.TeacherRef != teacherRef {
		return Assignment{}, ErrNotAssignedTeacher
	}
	if !a.IsActive() {
		return Assignment{}, ErrAssignmentNotActive
	}

	a.Status = StatusCancelled
	a.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateAssignment(ctx, a)
}

func (svc *Service) GetSubmissionRate(assignmentID string) (int, error) {
	a, err := svc.repo.GetAssignment(context.Background(), assignmentID)
	if err != nil {
		return 0, err
	}
	return a.SubmissionRate(), nil
}

func (svc *Service) QueryByTeacher(teacherRef string) ([]Assignment, error) {
	return svc.repo.QueryAssignmentsByTeacher(context.Background(), teacherRef)
}

func (svc *Service) QueryByClass(classRef string) ([]Assignment, error) {
	return svc.repo.QueryAssignmentsByClass(context.Background(), classRef)
}

// Sweep transitions overdue active assignments whose slots are all terminal.
// It returns the number of assignments completed.
func (svc *Service) Sweep() (int, error) {
	ctx := context.Background()

	due, err := svc.repo.QueryActiveAssignmentsDueBefore(ctx, nowFunc().UTC())
	if err != nil {
		return 0, errors.Wrap(err, "querying due assignments")
	}

	var n int
	for _, a := range due {
		svc.locks.Lock(a.ID)
		latest, err := svc.repo.GetAssignment(ctx, a.ID) // re-read under the lock
		if err == nil {
			if latest, err = svc.maybeComplete(latest); err == nil && !latest.IsActive() {
				n++
			}
		}
		svc.locks.Unlock(a.ID)
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// maybeComplete applies the auto-completion rule: an active assignment
// completes once every slot is graded, or once the due date has elapsed and
// every slot is terminal. The transition is persisted and announced.
func (svc *Service) maybeComplete(a Assignment) (Assignment, error) {
	if !a.IsActive() {
		return a, nil
	}
	overdue := nowFunc().UTC().After(a.DueDate)
	if !(a.allGraded() || (overdue && a.allTerminal())) {
		return a, nil
	}

	a.Status = StatusCompleted
	a.UpdatedAt = nowFunc().UTC()
	a, err := svc.repo.UpdateAssignment(context.Background(), a)
	if err != nil {
		return Assignment{}, err
	}

	svc.events.Publish(core.Event{
		EntityType: "homework_assignment",
		EntityID:   a.ID,
		ClassRef:   a.ClassRef,
		Summary: fmt.Sprintf("Homework %q completed: %d/%d submissions in",
			a.Title, a.SubmissionCount(), len(a.Submissions)),
	})
	return a, nil
}
