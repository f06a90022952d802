package grades

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/roster"
)

var (
	// errors
	ErrAssessmentNotFound  = core.NewNotFoundError("assessment not found")
	ErrGradeRecordNotFound = core.NewNotFoundError("grade record not found")
	ErrUnknownStudent      = core.NewRejectedError("student is not an active member of the assessed class")
	ErrNotAssignedTeacher  = core.NewRejectedError("teacher is not bound to this class/subject pair")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateAssessment(ctx context.Context, a Assessment) (Assessment, error)
		GetAssessment(ctx context.Context, id string) (Assessment, error)
		UpdateAssessment(ctx context.Context, a Assessment) (Assessment, error)
		QueryAssessments(ctx context.Context, classRef, subjectRef, term, academicYear string) ([]Assessment, error)

		// UpsertGradeRecord keys on (StudentRef, SubjectRef, Term, AcademicYear).
		UpsertGradeRecord(ctx context.Context, r GradeRecord) (GradeRecord, error)
		GetGradeRecord(ctx context.Context, studentRef, subjectRef, term, academicYear string) (GradeRecord, error)
		QueryGradeRecords(ctx context.Context, classRef, subjectRef, term, academicYear string) ([]GradeRecord, error)
		QueryGradeRecordsByStudent(ctx context.Context, studentRef, academicYear string) ([]GradeRecord, error)
	}

	ServiceInterface interface {
		CreateAssessment(teacherRef string, in NewAssessment) (Assessment, error)
		GetAssessment(id string) (Assessment, error)
		RecordResult(assessmentID string, in NewResult) (Assessment, error)
		GetGradeRecord(studentRef, subjectRef, term string) (GradeRecord, error)
		StudentGradeRecords(studentRef string) ([]GradeRecord, error)
		ClassGradeRecords(classRef, subjectRef, term string) ([]GradeRecord, error)
	}

	Service struct {
		repo   Repository
		roster roster.ServiceInterface
		events core.EventService
		conf   *core.Config
		locks  core.KeyedMutex // serializes rank recomputes per class tuple
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, rosterSvc roster.ServiceInterface, events core.EventService, conf *core.Config) *Service {
	return &Service{repo: repo, roster: rosterSvc, events: events, conf: conf}
}

func (svc *Service) CreateAssessment(teacherRef string, in NewAssessment) (Assessment, error) {
	ctx := context.Background()

	class, err := svc.roster.GetClass(in.ClassRef)
	if err != nil {
		return Assessment{}, err
	}
	if bound, ok := class.SubjectTeacher(in.SubjectRef); !ok || bound != teacherRef {
		return Assessment{}, ErrNotAssignedTeacher
	}

	now := nowFunc().UTC()
	a := Assessment{
		ID:           uuid.New().String(),
		TeacherRef:   teacherRef,
		ClassRef:     class.ID,
		SubjectRef:   in.SubjectRef,
		Title:        in.Title,
		Type:         in.Type,
		Term:         in.Term,
		AcademicYear: svc.conf.AcademicYear,
		MaxMarks:     in.MaxMarks,
		Weightage:    in.Weightage,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return svc.repo.CreateAssessment(ctx, a)
}

func (svc *Service) GetAssessment(id string) (Assessment, error) {
	return svc.repo.GetAssessment(context.Background(), id)
}

// RecordResult upserts one student's result on an assessment, then recomputes
// the student's grade record and re-ranks the whole class tuple. Marks above
// the assessment maximum are clamped and flagged; an absent student scores 0.
func (svc *Service) RecordResult(assessmentID string, in NewResult) (Assessment, error) {
	ctx := context.Background()

	a, err := svc.repo.GetAssessment(ctx, assessmentID)
	if err != nil {
		return Assessment{}, err
	}

	member, err := svc.roster.ValidateMembership(in.StudentRef, a.ClassRef)
	if err != nil {
		return Assessment{}, errors.Wrap(err, "validating membership")
	}
	if !member {
		return Assessment{}, ErrUnknownStudent
	}

	marks := in.MarksObtained
	var adjusted bool
	if in.IsAbsent {
		marks = 0
	} else if marks > a.MaxMarks {
		marks = a.MaxMarks
		adjusted = true
	}

	tuple := TupleKey(a.ClassRef, a.SubjectRef, a.Term, a.AcademicYear)
	svc.locks.Lock(tuple)
	defer svc.locks.Unlock(tuple)

	now := nowFunc().UTC()
	res := AssessmentResult{
		StudentRef:    in.StudentRef,
		MarksObtained: marks,
		IsAbsent:      in.IsAbsent,
		Adjusted:      adjusted,
		Remarks:       in.Remarks,
		RecordedAt:    now,
	}
	if existing := a.result(in.StudentRef); existing != nil {
		*existing = res
	} else {
		a.Results = append(a.Results, res)
	}
	a.UpdatedAt = now
	if a, err = svc.repo.UpdateAssessment(ctx, a); err != nil {
		return Assessment{}, errors.Wrap(err, "updating assessment")
	}

	if err = svc.recompute(ctx, a.ClassRef, in.StudentRef, a.SubjectRef, a.Term, a.AcademicYear); err != nil {
		return Assessment{}, err
	}
	if err = svc.recomputeRanks(ctx, a.ClassRef, a.SubjectRef, a.Term, a.AcademicYear); err != nil {
		return Assessment{}, err
	}

	svc.events.Publish(core.Event{
		EntityType: "grade_record",
		EntityID:   in.StudentRef,
		ClassRef:   a.ClassRef,
		Summary:    fmt.Sprintf("Grade updated for %s %s", a.Term, a.Title),
	})
	return a, nil
}

func (svc *Service) GetGradeRecord(studentRef, subjectRef, term string) (GradeRecord, error) {
	return svc.repo.GetGradeRecord(context.Background(), studentRef, subjectRef, term, svc.conf.AcademicYear)
}

func (svc *Service) StudentGradeRecords(studentRef string) ([]GradeRecord, error) {
	return svc.repo.QueryGradeRecordsByStudent(context.Background(), studentRef, svc.conf.AcademicYear)
}

func (svc *Service) ClassGradeRecords(classRef, subjectRef, term string) ([]GradeRecord, error) {
	return svc.repo.QueryGradeRecords(context.Background(), classRef, subjectRef, term, svc.conf.AcademicYear)
}

// recompute rebuilds one student's grade record from every assessment in the
// (class, subject, term, year) tuple:
// percentage = 100 × Σ(marks_i/max_i × weight_i) / Σweight_i, clamped [0,100].
func (svc *Service) recompute(ctx context.Context, classRef, studentRef, subjectRef, term, academicYear string) error {
	assessments, err := svc.repo.QueryAssessments(ctx, classRef, subjectRef, term, academicYear)
	if err != nil {
		return errors.Wrap(err, "querying assessments")
	}

	var components []GradeComponent
	var weightSum, weighted float64
	var totalMax, totalObtained int
	for i := range assessments {
		a := &assessments[i]
		res := a.result(studentRef)
		if res == nil {
			continue // no result recorded yet; not a 0, simply absent from the record
		}
		components = append(components, GradeComponent{
			AssessmentRef: a.ID,
			MarksObtained: res.MarksObtained,
			MaxMarks:      a.MaxMarks,
			Weightage:     a.Weightage,
		})
		weighted += float64(res.MarksObtained) / float64(a.MaxMarks) * a.Weightage
		weightSum += a.Weightage
		totalMax += a.MaxMarks
		totalObtained += res.MarksObtained
	}

	var pct float64
	if weightSum > 0 {
		pct = 100 * weighted / weightSum
	}
	if pct < 0 {
		pct = 0
	} else if pct > 100 {
		pct = 100
	}

	now := nowFunc().UTC()
	rec := GradeRecord{
		ID:            uuid.New().String(), // kept by the store when the tuple already exists
		StudentRef:    studentRef,
		ClassRef:      classRef,
		SubjectRef:    subjectRef,
		Term:          term,
		AcademicYear:  academicYear,
		Assessments:   components,
		TotalMarks:    totalMax,
		MarksObtained: totalObtained,
		Percentage:    pct,
		Grade:         Letter(pct),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	_, err = svc.repo.UpsertGradeRecord(ctx, rec)
	return errors.Wrap(err, "upserting grade record")
}

// recomputeRanks re-sorts every grade record in the tuple and reassigns ranks
// 1..N. Full re-rank: correctness over micro-optimization, class sizes are
// bounded. Callers must hold the tuple lock.
func (svc *Service) recomputeRanks(ctx context.Context, classRef, subjectRef, term, academicYear string) error {
	records, err := svc.repo.QueryGradeRecords(ctx, classRef, subjectRef, term, academicYear)
	if err != nil {
		return errors.Wrap(err, "querying grade records")
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Percentage != records[j].Percentage {
			return records[i].Percentage > records[j].Percentage
		}
		if records[i].MarksObtained != records[j].MarksObtained {
			return records[i].MarksObtained > records[j].MarksObtained
		}
		return records[i].StudentRef < records[j].StudentRef
	})

	for i := range records {
		if records[i].Rank == i+1 {
			continue
		}
		records[i].Rank = i + 1
		records[i].UpdatedAt = nowFunc().UTC()
		if _, err = svc.repo.UpsertGradeRecord(ctx, records[i]); err != nil {
			return errors.Wrap(err, "updating rank")
		}
	}
	return nil
}
