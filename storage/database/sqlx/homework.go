package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core/homework"
)

type homeworkRepository struct {
	db *sqlx.DB
}

var _ homework.Repository = (*homeworkRepository)(nil) // interface compliance check

func NewHomeworkRepository(db *sqlx.DB) *homeworkRepository {
	return &homeworkRepository{db: db}
}

type assignmentRow struct {
	ID           string         `db:"id"`
	TeacherRef   string         `db:"teacher_ref"`
	ClassRef     string         `db:"class_ref"`
	SubjectRef   string         `db:"subject_ref"`
	Title        string         `db:"title"`
	Description  string         `db:"description"`
	Instructions string         `db:"instructions"`
	Attachments  pq.StringArray `db:"attachments"`
	AssignedAt   null.Time      `db:"assigned_at"`
	DueDate      null.Time      `db:"due_date"`
	MaxMarks     int            `db:"max_marks"`
	AcademicYear string         `db:"academic_year"`
	Status       string         `db:"status"`
	Submissions  types.JSONText `db:"submissions"`
	CreatedAt    null.Time      `db:"created_at"`
	UpdatedAt    null.Time      `db:"updated_at"`
}

func (repo homeworkRepository) row(a homework.Assignment) (assignmentRow, error) {
	subs, err := jsonb(a.Submissions)
	if err != nil {
		return assignmentRow{}, err
	}
	return assignmentRow{
		ID:           a.ID,
		TeacherRef:   a.TeacherRef,
		ClassRef:     a.ClassRef,
		SubjectRef:   a.SubjectRef,
		Title:        a.Title,
		Description:  a.Description,
		Instructions: a.Instructions,
		Attachments:  a.Attachments,
		AssignedAt:   newNullTime(a.AssignedAt),
		DueDate:      newNullTime(a.DueDate),
		MaxMarks:     a.MaxMarks,
		AcademicYear: a.AcademicYear,
		Status:       a.Status,
		Submissions:  subs,
		CreatedAt:    newNullTime(a.CreatedAt),
		UpdatedAt:    newNullTime(a.UpdatedAt),
	}, nil
}

func (repo homeworkRepository) unrow(row assignmentRow) (homework.Assignment, error) {
	a := homework.Assignment{
		ID:           row.ID,
		TeacherRef:   row.TeacherRef,
		ClassRef:     row.ClassRef,
		SubjectRef:   row.SubjectRef,
		Title:        row.Title,
		Description:  row.Description,
		Instructions: row.Instructions,
		Attachments:  row.Attachments,
		AssignedAt:   row.AssignedAt.Time,
		DueDate:      row.DueDate.Time,
		MaxMarks:     row.MaxMarks,
		AcademicYear: row.AcademicYear,
		Status:       row.Status,
		CreatedAt:    row.CreatedAt.Time,
		UpdatedAt:    row.UpdatedAt.Time,
	}
	if err := unjsonb(row.Submissions, &a.Submissions); err != nil {
		return homework.Assignment{}, err
	}
	return a, nil
}

func (repo homeworkRepository) unrowSlice(rows []assignmentRow) ([]homework.Assignment, error) {
	assignments := make([]homework.Assignment, 0, len(rows))
	for _, row := range rows {
		a, err := repo.unrow(row)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, nil
}

func (repo homeworkRepository) CreateAssignment(ctx context.Context, a homework.Assignment) (homework.Assignment, error) {
	row, err := repo.row(a)
	if err != nil {
		return homework.Assignment{}, err
	}
	q := `
INSERT INTO homework_assignment (id, teacher_ref, class_ref, subject_ref, title, description, instructions, attachments, assigned_at, due_date, max_marks, academic_year, status, submissions, created_at, updated_at)
VALUES (:id, :teacher_ref, :class_ref, :subject_ref, :title, :description, :instructions, :attachments, :assigned_at, :due_date, :max_marks, :academic_year, :status, :submissions, :created_at, :updated_at)`
	if _, err = repo.db.NamedExecContext(ctx, q, row); err != nil {
		return homework.Assignment{}, errors.Wrap(err, "inserting assignment")
	}
	return a, nil
}

func (repo homeworkRepository) GetAssignment(ctx context.Context, id string) (homework.Assignment, error) {
	var row assignmentRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM homework_assignment WHERE id = $1`, id); err != nil {
		return homework.Assignment{}, trapNoRowsErr(err, homework.ErrAssignmentNotFound, "getting assignment")
	}
	return repo.unrow(row)
}

func (repo homeworkRepository) UpdateAssignment(ctx context.Context, a homework.Assignment) (homework.Assignment, error) {
	row, err := repo.row(a)
	if err != nil {
		return homework.Assignment{}, err
	}
	q := `
UPDATE homework_assignment
SET title = :title, description = :description, instructions = :instructions, attachments = :attachments,
    due_date = :due_date, max_marks = :max_marks, status = :status, submissions = :submissions, updated_at = :updated_at
WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return homework.Assignment{}, errors.Wrap(err, "updating assignment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return homework.Assignment{}, homework.ErrAssignmentNotFound
	}
	return a, nil
}

func (repo homeworkRepository) QueryAssignmentsByTeacher(ctx context.Context, teacherRef string) ([]homework.Assignment, error) {
	var rows []assignmentRow
	q := `SELECT * FROM homework_assignment WHERE teacher_ref = $1 ORDER BY due_date`
	if err := repo.db.SelectContext(ctx, &rows, q, teacherRef); err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	return repo.unrowSlice(rows)
}

func (repo homeworkRepository) QueryAssignmentsByClass(ctx context.Context, classRef string) ([]homework.Assignment, error) {
	var rows []assignmentRow
	q := `SELECT * FROM homework_assignment WHERE class_ref = $1 ORDER BY due_date`
	if err := repo.db.SelectContext(ctx, &rows, q, classRef); err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	return repo.unrowSlice(rows)
}

func (repo homeworkRepository) QueryActiveAssignmentsDueBefore(ctx context.Context, due time.Time) ([]homework.Assignment, error) {
	var rows []assignmentRow
	q := `SELECT * FROM homework_assignment WHERE status = $1 AND due_date < $2`
	if err := repo.db.SelectContext(ctx, &rows, q, homework.StatusActive, due); err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}
	return repo.unrowSlice(rows)
}
