package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core/roster"
)

type rosterRepository struct {
	db *sqlx.DB
}

var _ roster.Repository = (*rosterRepository)(nil) // interface compliance check

func NewRosterRepository(db *sqlx.DB) *rosterRepository {
	return &rosterRepository{db: db}
}

type teacherRow struct {
	ID          string         `db:"id"`
	TeacherNo   string         `db:"teacher_no"`
	Name        string         `db:"name"`
	Email       string         `db:"email"`
	Phone       string         `db:"phone"`
	Department  string         `db:"department"`
	Designation string         `db:"designation"`
	Subjects    pq.StringArray `db:"subjects"`
	IsActive    bool           `db:"is_active"`
	CreatedAt   null.Time      `db:"created_at"`
	UpdatedAt   null.Time      `db:"updated_at"`
}

type classRow struct {
	ID              string         `db:"id"`
	Grade           string         `db:"grade"`
	Section         string         `db:"section"`
	Label           string         `db:"label"`
	ClassTeacherRef null.String    `db:"class_teacher_ref"`
	Subjects        types.JSONText `db:"subjects"`
	MaxStudents     int            `db:"max_students"`
	CurrentStrength int            `db:"current_strength"`
	AcademicYear    string         `db:"academic_year"`
	IsActive        bool           `db:"is_active"`
	CreatedAt       null.Time      `db:"created_at"`
	UpdatedAt       null.Time      `db:"updated_at"`
}

func (repo rosterRepository) teacherRow(t roster.Teacher) teacherRow {
	return teacherRow{
		ID:          t.ID,
		TeacherNo:   t.TeacherNo,
		Name:        t.Name,
		Email:       t.Email,
		Phone:       t.Phone,
		Department:  t.Department,
		Designation: t.Designation,
		Subjects:    t.Subjects,
		IsActive:    t.IsActive,
		CreatedAt:   newNullTime(t.CreatedAt),
		UpdatedAt:   newNullTime(t.UpdatedAt),
	}
}

func (repo rosterRepository) unrowTeacher(row teacherRow) roster.Teacher {
	return roster.Teacher{
		ID:          row.ID,
		TeacherNo:   row.TeacherNo,
		Name:        row.Name,
		Email:       row.Email,
		Phone:       row.Phone,
		Department:  row.Department,
		Designation: row.Designation,
		Subjects:    row.Subjects,
		IsActive:    row.IsActive,
		CreatedAt:   row.CreatedAt.Time,
		UpdatedAt:   row.UpdatedAt.Time,
	}
}

func (repo rosterRepository) classRow(c roster.Class) (classRow, error) {
	subjects, err := jsonb(c.Subjects)
	if err != nil {
		return classRow{}, err
	}
	return classRow{
		ID:              c.ID,
		Grade:           c.Grade,
		Section:         c.Section,
		Label:           c.Label,
		ClassTeacherRef: newNullString(c.ClassTeacherRef),
		Subjects:        subjects,
		MaxStudents:     c.MaxStudents,
		CurrentStrength: c.CurrentStrength,
		AcademicYear:    c.AcademicYear,
		IsActive:        c.IsActive,
		CreatedAt:       newNullTime(c.CreatedAt),
		UpdatedAt:       newNullTime(c.UpdatedAt),
	}, nil
}

func (repo rosterRepository) unrowClass(row classRow) (roster.Class, error) {
	c := roster.Class{
		ID:              row.ID,
		Grade:           row.Grade,
		Section:         row.Section,
		Label:           row.Label,
		ClassTeacherRef: row.ClassTeacherRef.String,
		MaxStudents:     row.MaxStudents,
		CurrentStrength: row.CurrentStrength,
		AcademicYear:    row.AcademicYear,
		IsActive:        row.IsActive,
		CreatedAt:       row.CreatedAt.Time,
		UpdatedAt:       row.UpdatedAt.Time,
	}
	if err := unjsonb(row.Subjects, &c.Subjects); err != nil {
		return roster.Class{}, err
	}
	return c, nil
}

func (repo rosterRepository) CreateTeacher(ctx context.Context, t roster.Teacher) (roster.Teacher, error) {
	q := `
INSERT INTO teacher (id, teacher_no, name, email, phone, department, designation, subjects, is_active, created_at, updated_at)
VALUES (:id, :teacher_no, :name, :email, :phone, :department, :designation, :subjects, :is_active, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, repo.teacherRow(t)); err != nil {
		return roster.Teacher{}, errors.Wrap(err, "inserting teacher")
	}
	return t, nil
}

func (repo rosterRepository) GetTeacher(ctx context.Context, id string) (roster.Teacher, error) {
	var row teacherRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM teacher WHERE id = $1`, id); err != nil {
		return roster.Teacher{}, trapNoRowsErr(err, roster.ErrTeacherNotFound, "getting teacher")
	}
	return repo.unrowTeacher(row), nil
}

func (repo rosterRepository) UpdateTeacher(ctx context.Context, t roster.Teacher) (roster.Teacher, error) {
	q := `
UPDATE teacher
SET teacher_no = :teacher_no, name = :name, email = :email, phone = :phone, department = :department,
    designation = :designation, subjects = :subjects, is_active = :is_active, updated_at = :updated_at
WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, repo.teacherRow(t))
	if err != nil {
		return roster.Teacher{}, errors.Wrap(err, "updating teacher")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return roster.Teacher{}, roster.ErrTeacherNotFound
	}
	return t, nil
}

func (repo rosterRepository) CreateSubject(ctx context.Context, s roster.Subject) (roster.Subject, error) {
	q := `
INSERT INTO subject (id, name, code, department, is_optional, is_active, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err := repo.db.ExecContext(ctx, q, s.ID, s.Name, s.Code, s.Department, s.IsOptional, s.IsActive, s.CreatedAt); err != nil {
		return roster.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return s, nil
}

func (repo rosterRepository) GetSubject(ctx context.Context, id string) (roster.Subject, error) {
	var s roster.Subject
	q := `SELECT id, name, code, department, is_optional, is_active, created_at FROM subject WHERE id = $1`
	if err := repo.db.QueryRowxContext(ctx, q, id).
		Scan(&s.ID, &s.Name, &s.Code, &s.Department, &s.IsOptional, &s.IsActive, &s.CreatedAt); err != nil {
		return roster.Subject{}, trapNoRowsErr(err, roster.ErrSubjectNotFound, "getting subject")
	}
	return s, nil
}

func (repo rosterRepository) CreateClass(ctx context.Context, c roster.Class) (roster.Class, error) {
	row, err := repo.classRow(c)
	if err != nil {
		return roster.Class{}, err
	}
	q := `
INSERT INTO class (id, grade, section, label, class_teacher_ref, subjects, max_students, current_strength, academic_year, is_active, created_at, updated_at)
VALUES (:id, :grade, :section, :label, :class_teacher_ref, :subjects, :max_students, :current_strength, :academic_year, :is_active, :created_at, :updated_at)`
	if _, err = repo.db.NamedExecContext(ctx, q, row); err != nil {
		return roster.Class{}, errors.Wrap(err, "inserting class")
	}
	return c, nil
}

func (repo rosterRepository) GetClass(ctx context.Context, id string) (roster.Class, error) {
	var row classRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM class WHERE id = $1`, id); err != nil {
		return roster.Class{}, trapNoRowsErr(err, roster.ErrClassNotFound, "getting class")
	}
	return repo.unrowClass(row)
}

func (repo rosterRepository) UpdateClass(ctx context.Context, c roster.Class) (roster.Class, error) {
	row, err := repo.classRow(c)
	if err != nil {
		return roster.Class{}, err
	}
	q := `
UPDATE class
SET grade = :grade, section = :section, label = :label, class_teacher_ref = :class_teacher_ref,
    subjects = :subjects, max_students = :max_students, current_strength = :current_strength,
    academic_year = :academic_year, is_active = :is_active, updated_at = :updated_at
WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return roster.Class{}, errors.Wrap(err, "updating class")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return roster.Class{}, roster.ErrClassNotFound
	}
	return c, nil
}

func (repo rosterRepository) QueryClassesByTeacher(ctx context.Context, teacherRef string) ([]roster.Class, error) {
	var rows []classRow
	q := `
SELECT * FROM class
WHERE class_teacher_ref = $1
   OR subjects @> jsonb_build_array(jsonb_build_object('teacher_ref', $1::text))`
	if err := repo.db.SelectContext(ctx, &rows, q, teacherRef); err != nil {
		return nil, errors.Wrap(err, "querying classes")
	}

	classes := make([]roster.Class, 0, len(rows))
	for _, row := range rows {
		c, err := repo.unrowClass(row)
		if err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	return classes, nil
}

func (repo rosterRepository) CreateStudent(ctx context.Context, s roster.Student) (roster.Student, error) {
	q := `
INSERT INTO student (id, student_no, name, roll_number, class_ref, parent_ref, admission_date, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := repo.db.ExecContext(ctx, q,
		s.ID, s.StudentNo, s.Name, s.RollNumber, s.ClassRef, newNullString(s.ParentRef),
		s.AdmissionDate, s.IsActive, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return roster.Student{}, errors.Wrap(err, "inserting student")
	}
	return s, nil
}

type studentRow struct {
	ID            string     `db:"id"`
	StudentNo     string     `db:"student_no"`
	Name          string     `db:"name"`
	RollNumber    string     `db:"roll_number"`
	ClassRef      string     `db:"class_ref"`
	ParentRef     null.String`db:"parent_ref"`
	AdmissionDate null.Time  `db:"admission_date"`
	IsActive      bool       `db:"is_active"`
	CreatedAt     null.Time  `db:"created_at"`
	UpdatedAt     null.Time  `db:"updated_at"`
}

func (repo rosterRepository) unrowStudent(row studentRow) roster.Student {
	return roster.Student{
		ID:            row.ID,
		StudentNo:     row.StudentNo,
		Name:          row.Name,
		RollNumber:    row.RollNumber,
		ClassRef:      row.ClassRef,
		ParentRef:     row.ParentRef.String,
		AdmissionDate: row.AdmissionDate.Time,
		IsActive:      row.IsActive,
		CreatedAt:     row.CreatedAt.Time,
		UpdatedAt:     row.UpdatedAt.Time,
	}
}

func (repo rosterRepository) GetStudent(ctx context.Context, id string) (roster.Student, error) {
	var row studentRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM student WHERE id = $1`, id); err != nil {
		return roster.Student{}, trapNoRowsErr(err, roster.ErrStudentNotFound, "getting student")
	}
	return repo.unrowStudent(row), nil
}

func (repo rosterRepository) UpdateStudent(ctx context.Context, s roster.Student) (roster.Student, error) {
	q := `
UPDATE student
SET student_no = $2, name = $3, roll_number = $4, class_ref = $5, parent_ref = $6, is_active = $7, updated_at = $8
WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, q,
		s.ID, s.StudentNo, s.Name, s.RollNumber, s.ClassRef, newNullString(s.ParentRef), s.IsActive, s.UpdatedAt)
	if err != nil {
		return roster.Student{}, errors.Wrap(err, "updating student")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return roster.Student{}, roster.ErrStudentNotFound
	}
	return s, nil
}

func (repo rosterRepository) QueryStudentsByClass(ctx context.Context, classRef string) ([]roster.Student, error) {
	var rows []studentRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT * FROM student WHERE class_ref = $1`, classRef); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]roster.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, repo.unrowStudent(row))
	}
	return students, nil
}
