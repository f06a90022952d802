package roster

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

var (
	// errors
	ErrClassNotFound   = core.NewNotFoundError("class not found")
	ErrTeacherNotFound = core.NewNotFoundError("teacher not found")
	ErrStudentNotFound = core.NewNotFoundError("student not found")
	ErrSubjectNotFound = core.NewNotFoundError("subject not found")
	ErrTeacherConflict = core.NewConflictError("this class/subject pair is already bound to another teacher")
	ErrClassFull       = core.NewRejectedError("class is at maximum strength")
	ErrEmptyRoster     = core.NewRejectedError("class roster has no active students")
	ErrRollNumberTaken = errors.New("this roll number is already taken in this class")
)

type (
	Repository interface {
		CreateTeacher(ctx context.Context, t Teacher) (Teacher, error)
		GetTeacher(ctx context.Context, id string) (Teacher, error)
		UpdateTeacher(ctx context.Context, t Teacher) (Teacher, error)

		CreateSubject(ctx context.Context, s Subject) (Subject, error)
		GetSubject(ctx context.Context, id string) (Subject, error)

		CreateClass(ctx context.Context, c Class) (Class, error)
		GetClass(ctx context.Context, id string) (Class, error)
		UpdateClass(ctx context.Context, c Class) (Class, error)
		QueryClassesByTeacher(ctx context.Context, teacherRef string) ([]Class, error)

		CreateStudent(ctx context.Context, s Student) (Student, error)
		GetStudent(ctx context.Context, id string) (Student, error)
		UpdateStudent(ctx context.Context, s Student) (Student, error)
		// QueryStudentsByClass returns every student whose ClassRef points at
		// the class, active or not.
		QueryStudentsByClass(ctx context.Context, classRef string) ([]Student, error)
	}

	ServiceInterface interface {
		CreateTeacher(nt NewTeacher) (Teacher, error)
		CreateSubject(ns NewSubject) (Subject, error)
		CreateClass(nc NewClass) (Class, error)
		EnrollStudent(ns NewStudent) (Student, error)
		DeactivateStudent(id string) (Student, error)
		DeactivateTeacher(id string) (Teacher, error)

		GetClass(classRef string) (Class, error)
		GetStudent(id string) (Student, error)
		GetTeacher(id string) (Teacher, error)
		ActiveStudents(classRef string) ([]Student, error)
		ValidateMembership(studentRef, classRef string) (bool, error)
		AssignTeacher(teacherRef, classRef, subjectRef string, periodsPerWeek int) (Class, error)
		TeacherClasses(teacherRef string) ([]Class, error)
	}

	Service struct {
		repo Repository
		conf *core.Config
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, conf *core.Config) *Service {
	return &Service{repo: repo, conf: conf}
}

func (svc *Service) CreateTeacher(nt NewTeacher) (Teacher, error) {
	now := time.Now().UTC()
	t := Teacher{
		ID:          uuid.New().String(),
		TeacherNo:   nt.TeacherNo,
		Name:        nt.Name,
		Email:       nt.Email,
		Phone:       nt.Phone,
		Department:  nt.Department,
		Designation: nt.Designation,
		Subjects:    nt.Subjects,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateTeacher(context.Background(), t)
}

func (svc *Service) CreateSubject(ns NewSubject) (Subject, error) {
	s := Subject{
		ID:         uuid.New().String(),
		Name:       ns.Name,
		Code:       ns.Code,
		Department: ns.Department,
		IsOptional: ns.IsOptional,
		IsActive:   true,
		CreatedAt:  time.Now().UTC(),
	}
	return svc.repo.CreateSubject(context.Background(), s)
}

func (svc *Service) CreateClass(nc NewClass) (Class, error) {
	now := time.Now().UTC()
	c := Class{
		ID:           uuid.New().String(),
		Grade:        nc.Grade,
		Section:      nc.Section,
		Label:        nc.Label(),
		MaxStudents:  nc.MaxStudents,
		AcademicYear: nc.AcademicYear,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return svc.repo.CreateClass(context.Background(), c)
}

// EnrollStudent registers a student into a class, enforcing per-class roll
// number uniqueness and the class capacity, and refreshes the class's derived
// strength counter.
func (svc *Service) EnrollStudent(ns NewStudent) (Student, error) {
	ctx := context.Background()

	class, err := svc.repo.GetClass(ctx, ns.ClassRef)
	if err != nil {
		return Student{}, err
	}

	classmates, err := svc.repo.QueryStudentsByClass(ctx, class.ID)
	if err != nil {
		return Student{}, errors.Wrap(err, "querying classmates")
	}
	var strength int
	for _, st := range classmates {
		if !st.IsActive {
			continue
		}
		if st.RollNumber == ns.RollNumber {
			return Student{}, core.NewValidationError(
				ErrRollNumberTaken, core.FieldError{Field: "roll_number", Error: ErrRollNumberTaken.Error()})
		}
		strength++
	}
	if strength >= class.MaxStudents {
		return Student{}, ErrClassFull
	}

	now := time.Now().UTC()
	st := Student{
		ID:            uuid.New().String(),
		StudentNo:     ns.StudentNo,
		Name:          ns.Name,
		RollNumber:    ns.RollNumber,
		ClassRef:      class.ID,
		ParentRef:     ns.ParentRef,
		AdmissionDate: now,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if st, err = svc.repo.CreateStudent(ctx, st); err != nil {
		return Student{}, errors.Wrap(err, "creating student")
	}

	if err = svc.refreshStrength(ctx, class); err != nil {
		return Student{}, err
	}
	return st, nil
}

// DeactivateStudent soft-deletes a student; historical records keep
// referencing it. The class's strength counter is refreshed.
func (svc *Service) DeactivateStudent(id string) (Student, error) {
	ctx := context.Background()

	st, err := svc.repo.GetStudent(ctx, id)
	if err != nil {
		return Student{}, err
	}
	st.IsActive = false
	st.UpdatedAt = time.Now().UTC()
	if st, err = svc.repo.UpdateStudent(ctx, st); err != nil {
		return Student{}, errors.Wrap(err, "updating student")
	}

	class, err := svc.repo.GetClass(ctx, st.ClassRef)
	if err != nil {
		return Student{}, err
	}
	if err = svc.refreshStrength(ctx, class); err != nil {
		return Student{}, err
	}
	return st, nil
}

func (svc *Service) DeactivateTeacher(id string) (Teacher, error) {
	ctx := context.Background()

	t, err := svc.repo.GetTeacher(ctx, id)
	if err != nil {
		return Teacher{}, err
	}
	t.IsActive = false
	t.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateTeacher(ctx, t)
}

func (svc *Service) GetClass(classRef string) (Class, error) {
	return svc.repo.GetClass(context.Background(), classRef)
}

func (svc *Service) GetStudent(id string) (Student, error) {
	return svc.repo.GetStudent(context.Background(), id)
}

func (svc *Service) GetTeacher(id string) (Teacher, error) {
	return svc.repo.GetTeacher(context.Background(), id)
}

// ActiveStudents returns the class's active roster ordered by roll number.
// Consumers materialize their per-student detail rows from this snapshot.
func (svc *Service) ActiveStudents(classRef string) ([]Student, error) {
	ctx := context.Background()

	if _, err := svc.repo.GetClass(ctx, classRef); err != nil {
		return nil, err
	}
	all, err := svc.repo.QueryStudentsByClass(ctx, classRef)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}

	active := make([]Student, 0, len(all))
	for _, st := range all {
		if st.IsActive {
			active = append(active, st)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return RollNumberLess(active[i].RollNumber, active[j].RollNumber)
	})
	return active, nil
}

// ValidateMembership reports whether the student is an active member of the class.
func (svc *Service) ValidateMembership(studentRef, classRef string) (bool, error) {
	st, err := svc.repo.GetStudent(context.Background(), studentRef)
	if err != nil {
		if core.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return st.IsActive && st.ClassRef == classRef, nil
}

// AssignTeacher binds a teacher to a class/subject pair for the active
// academic year. Rebinding the same teacher updates the weekly periods;
// a different teacher on an already-bound pair is a conflict.
func (svc *Service) AssignTeacher(teacherRef, classRef, subjectRef string, periodsPerWeek int) (Class, error) {
	ctx := context.Background()

	t, err := svc.repo.GetTeacher(ctx, teacherRef)
	if err != nil {
		return Class{}, err
	}
	if _, err = svc.repo.GetSubject(ctx, subjectRef); err != nil {
		return Class{}, err
	}
	class, err := svc.repo.GetClass(ctx, classRef)
	if err != nil {
		return Class{}, err
	}

	for i, cs := range class.Subjects {
		if cs.SubjectRef != subjectRef {
			continue
		}
		if cs.TeacherRef != t.ID {
			return Class{}, ErrTeacherConflict
		}
		class.Subjects[i].PeriodsPerWeek = periodsPerWeek
		class.UpdatedAt = time.Now().UTC()
		return svc.repo.UpdateClass(ctx, class)
	}

	class.Subjects = append(class.Subjects, ClassSubject{
		SubjectRef:     subjectRef,
		TeacherRef:     t.ID,
		PeriodsPerWeek: periodsPerWeek,
	})
	class.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateClass(ctx, class)
}

func (svc *Service) TeacherClasses(teacherRef string) ([]Class, error) {
	return svc.repo.QueryClassesByTeacher(context.Background(), teacherRef)
}

// refreshStrength recomputes the derived CurrentStrength counter from the
// class's active memberships and persists it with the class.
func (svc *Service) refreshStrength(ctx context.Context, class Class) error {
	students, err := svc.repo.QueryStudentsByClass(ctx, class.ID)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	var strength int
	for _, st := range students {
		if st.IsActive {
			strength++
		}
	}
	class.CurrentStrength = strength
	class.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateClass(ctx, class)
	return errors.Wrap(err, "updating class strength")
}
