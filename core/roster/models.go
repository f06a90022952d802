package roster

import (
	"strconv"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
)

type Subject struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Code       string    `json:"code"` // "MATH", "ENG", "SCI"
	Department string    `json:"department"`
	IsOptional bool      `json:"is_optional"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"` // UTC
}

type Teacher struct {
	ID          string    `json:"id"`
	TeacherNo   string    `json:"teacher_no"` // "TCH001"
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Department  string    `json:"department"`
	Designation string    `json:"designation"`
	Subjects    []string  `json:"subjects"` // subject ids this teacher may be bound to
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at"` // UTC
}

// ClassSubject binds one subject of a class to the teacher delivering it.
type ClassSubject struct {
	SubjectRef     string `json:"subject_ref"`
	TeacherRef     string `json:"teacher_ref"`
	PeriodsPerWeek int    `json:"periods_per_week"`
}

// Class is scoped to a single academic year; a new year produces a new
// Class instance, it is never mutated across years.
type Class struct {
	ID              string         `json:"id"`
	Grade           string         `json:"grade"`   // "Grade 10"
	Section         string         `json:"section"` // "A"
	Label           string         `json:"label"`   // "Grade 10-A"
	ClassTeacherRef string         `json:"class_teacher_ref,omitempty"`
	Subjects        []ClassSubject `json:"subjects"`
	MaxStudents     int            `json:"max_students"`
	// CurrentStrength is derived from active student memberships; it is
	// recomputed with every enrollment mutation, never written directly.
	CurrentStrength int       `json:"current_strength"`
	AcademicYear    string    `json:"academic_year"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"` // UTC
	UpdatedAt       time.Time `json:"updated_at"` // UTC
}

// SubjectTeacher returns the teacher bound to the given subject, if any.
func (c *Class) SubjectTeacher(subjectRef string) (string, bool) {
	for _, cs := range c.Subjects {
		if cs.SubjectRef == subjectRef {
			return cs.TeacherRef, true
		}
	}
	return "", false
}

type Student struct {
	ID            string    `json:"id"`
	StudentNo     string    `json:"student_no"` // "STU001"
	Name          string    `json:"name"`
	RollNumber    string    `json:"roll_number"` // unique within ClassRef
	ClassRef      string    `json:"class_ref"`
	ParentRef     string    `json:"parent_ref"`
	AdmissionDate time.Time `json:"admission_date"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"` // UTC
	UpdatedAt     time.Time `json:"updated_at"` // UTC
}

// RollNumberLess orders roll numbers ascending, numerically when both sides
// parse as integers ("2" before "10"), lexicographically otherwise.
func RollNumberLess(a, b string) bool {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	if aerr == nil && berr == nil {
		return ai < bi
	}
	return a < b
}

// Inputs

type NewTeacher struct {
	TeacherNo   string   `json:"teacher_no" validate:"required"`
	Name        string   `json:"name" validate:"required"`
	Email       string   `json:"email" validate:"omitempty,email"`
	Phone       string   `json:"phone"`
	Department  string   `json:"department" validate:"required"`
	Designation string   `json:"designation"`
	Subjects    []string `json:"subjects"`
}

func (nt *NewTeacher) Validate(validate *validator.Validate, translator ut.Translator) error {
	nt.TeacherNo = core.CleanString(nt.TeacherNo)
	nt.Name = core.CleanString(nt.Name)
	nt.Email = core.CleanString(nt.Email, true /* lower */)
	nt.Department = core.CleanString(nt.Department)
	return validate.Struct(nt)
}

type NewSubject struct {
	Name       string `json:"name" validate:"required"`
	Code       string `json:"code" validate:"required,alphanum_"`
	Department string `json:"department"`
	IsOptional bool   `json:"is_optional"`
}

func (ns *NewSubject) Validate(validate *validator.Validate, translator ut.Translator) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Code = core.CleanString(ns.Code, true /* lower */)
	return validate.Struct(ns)
}

type NewClass struct {
	Grade        string `json:"grade" validate:"required"`
	Section      string `json:"section" validate:"required,alphanum_"`
	MaxStudents  int    `json:"max_students" validate:"required,gt=0"`
	AcademicYear string `json:"academic_year" validate:"required,academic_year"`
}

func (nc *NewClass) Validate(validate *validator.Validate, translator ut.Translator) error {
	nc.Grade = core.CleanString(nc.Grade)
	nc.Section = core.CleanString(nc.Section)
	return validate.Struct(nc)
}

// Label composes the class display label, e.g. "Grade 10-A".
func (nc *NewClass) Label() string {
	return nc.Grade + "-" + nc.Section
}

type NewStudent struct {
	StudentNo  string `json:"student_no" validate:"required"`
	Name       string `json:"name" validate:"required"`
	RollNumber string `json:"roll_number" validate:"required"`
	ClassRef   string `json:"class_ref" validate:"required"`
	ParentRef  string `json:"parent_ref"`
}

func (ns *NewStudent) Validate(validate *validator.Validate, translator ut.Translator) error {
	ns.StudentNo = core.CleanString(ns.StudentNo)
	ns.Name = core.CleanString(ns.Name)
	ns.RollNumber = core.CleanString(ns.RollNumber)
	return validate.Struct(ns)
}
