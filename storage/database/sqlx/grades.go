package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core/grades"
)

type gradeRepository struct {
	db *sqlx.DB
}

var _ grades.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(db *sqlx.DB) *gradeRepository {
	return &gradeRepository{db: db}
}

type assessmentRow struct {
	ID           string         `db:"id"`
	TeacherRef   string         `db:"teacher_ref"`
	ClassRef     string         `db:"class_ref"`
	SubjectRef   string         `db:"subject_ref"`
	Title        string         `db:"title"`
	Type         string         `db:"type"`
	Term         string         `db:"term"`
	AcademicYear string         `db:"academic_year"`
	MaxMarks     int            `db:"max_marks"`
	Weightage    float64        `db:"weightage"`
	Results      types.JSONText `db:"results"`
	CreatedAt    null.Time      `db:"created_at"`
	UpdatedAt    null.Time      `db:"updated_at"`
}

type gradeRecordRow struct {
	ID            string         `db:"id"`
	StudentRef    string         `db:"student_ref"`
	ClassRef      string         `db:"class_ref"`
	SubjectRef    string         `db:"subject_ref"`
	Term          string         `db:"term"`
	AcademicYear  string         `db:"academic_year"`
	Assessments   types.JSONText `db:"assessments"`
	TotalMarks    int            `db:"total_marks"`
	MarksObtained int            `db:"marks_obtained"`
	Percentage    float64        `db:"percentage"`
	Grade         string         `db:"grade"`
	Rank          int            `db:"rank"`
	CreatedAt     null.Time      `db:"created_at"`
	UpdatedAt     null.Time      `db:"updated_at"`
}

func (repo gradeRepository) assessmentRow(a grades.Assessment) (assessmentRow, error) {
	results, err := jsonb(a.Results)
	if err != nil {
		return assessmentRow{}, err
	}
	return assessmentRow{
		ID:           a.ID,
		TeacherRef:   a.TeacherRef,
		ClassRef:     a.ClassRef,
		SubjectRef:   a.SubjectRef,
		Title:        a.Title,
		Type:         a.Type,
		Term:         a.Term,
		AcademicYear: a.AcademicYear,
		MaxMarks:     a.MaxMarks,
		Weightage:    a.Weightage,
		Results:      results,
		CreatedAt:    newNullTime(a.CreatedAt),
		UpdatedAt:    newNullTime(a.UpdatedAt),
	}, nil
}

func (repo gradeRepository) unrowAssessment(row assessmentRow) (grades.Assessment, error) {
	a := grades.Assessment{
		ID:           row.ID,
		TeacherRef:   row.TeacherRef,
		ClassRef:     row.ClassRef,
		SubjectRef:   row.SubjectRef,
		Title:        row.Title,
		Type:         row.Type,
		Term:         row.Term,
		AcademicYear: row.AcademicYear,
		MaxMarks:     row.MaxMarks,
		Weightage:    row.Weightage,
		CreatedAt:    row.CreatedAt.Time,
		UpdatedAt:    row.UpdatedAt.Time,
	}
	if err := unjsonb(row.Results, &a.Results); err != nil {
		return grades.Assessment{}, err
	}
	return a, nil
}

func (repo gradeRepository) recordRow(r grades.GradeRecord) (gradeRecordRow, error) {
	assessments, err := jsonb(r.Assessments)
	if err != nil {
		return gradeRecordRow{}, err
	}
	return gradeRecordRow{
		ID:            r.ID,
		StudentRef:    r.StudentRef,
		ClassRef:      r.ClassRef,
		SubjectRef:    r.SubjectRef,
		Term:          r.Term,
		AcademicYear:  r.AcademicYear,
		Assessments:   assessments,
		TotalMarks:    r.TotalMarks,
		MarksObtained: r.MarksObtained,
		Percentage:    r.Percentage,
		Grade:         r.Grade,
		Rank:          r.Rank,
		CreatedAt:     newNullTime(r.CreatedAt),
		UpdatedAt:     newNullTime(r.UpdatedAt),
	}, nil
}

func (repo gradeRepository) unrowRecord(row gradeRecordRow) (grades.GradeRecord, error) {
	r := grades.GradeRecord{
		ID:            row.ID,
		StudentRef:    row.StudentRef,
		ClassRef:      row.ClassRef,
		SubjectRef:    row.SubjectRef,
		Term:          row.Term,
		AcademicYear:  row.AcademicYear,
		TotalMarks:    row.TotalMarks,
		MarksObtained: row.MarksObtained,
		Percentage:    row.Percentage,
		Grade:         row.Grade,
		Rank:          row.Rank,
		CreatedAt:     row.CreatedAt.Time,
		UpdatedAt:     row.UpdatedAt.Time,
	}
	if err := unjsonb(row.Assessments, &r.Assessments); err != nil {
		return grades.GradeRecord{}, err
	}
	return r, nil
}

func (repo gradeRepository) unrowRecordSlice(rows []gradeRecordRow) ([]grades.GradeRecord, error) {
	records := make([]grades.GradeRecord, 0, len(rows))
	for _, row := range rows {
		r, err := repo.unrowRecord(row)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

func (repo gradeRepository) CreateAssessment(ctx context.Context, a grades.Assessment) (grades.Assessment, error) {
	row, err := repo.assessmentRow(a)
	if err != nil {
		return grades.Assessment{}, err
	}
	q := `
INSERT INTO assessment (id, teacher_ref, class_ref, subject_ref, title, type, term, academic_year, max_marks, weightage, results, created_at, updated_at)
VALUES (:id, :teacher_ref, :class_ref, :subject_ref, :title, :type, :term, :academic_year, :max_marks, :weightage, :results, :created_at, :updated_at)`
	if _, err = repo.db.NamedExecContext(ctx, q, row); err != nil {
		return grades.Assessment{}, errors.Wrap(err, "inserting assessment")
	}
	return a, nil
}

func (repo gradeRepository) GetAssessment(ctx context.Context, id string) (grades.Assessment, error) {
	var row assessmentRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM assessment WHERE id = $1`, id); err != nil {
		return grades.Assessment{}, trapNoRowsErr(err, grades.ErrAssessmentNotFound, "getting assessment")
	}
	return repo.unrowAssessment(row)
}

func (repo gradeRepository) UpdateAssessment(ctx context.Context, a grades.Assessment) (grades.Assessment, error) {
	row, err := repo.assessmentRow(a)
	if err != nil {
		return grades.Assessment{}, err
	}
	q := `
UPDATE assessment
SET title = :title, type = :type, max_marks = :max_marks, weightage = :weightage, results = :results, updated_at = :updated_at
WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return grades.Assessment{}, errors.Wrap(err, "updating assessment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return grades.Assessment{}, grades.ErrAssessmentNotFound
	}
	return a, nil
}

func (repo gradeRepository) QueryAssessments(ctx context.Context, classRef, subjectRef, term, academicYear string) ([]grades.Assessment, error) {
	var rows []assessmentRow
	q := `SELECT * FROM assessment WHERE class_ref = $1 AND subject_ref = $2 AND term = $3 AND academic_year = $4`
	if err := repo.db.SelectContext(ctx, &rows, q, classRef, subjectRef, term, academicYear); err != nil {
		return nil, errors.Wrap(err, "querying assessments")
	}

	assessments := make([]grades.Assessment, 0, len(rows))
	for _, row := range rows {
		a, err := repo.unrowAssessment(row)
		if err != nil {
			return nil, err
		}
		assessments = append(assessments, a)
	}
	return assessments, nil
}

// UpsertGradeRecord writes the record keyed on its
// (student, subject, term, academic year) tuple. A zero incoming rank keeps
// the stored one until the next re-rank pass overwrites it.
func (repo gradeRepository) UpsertGradeRecord(ctx context.Context, r grades.GradeRecord) (grades.GradeRecord, error) {
	row, err := repo.recordRow(r)
	if err != nil {
		return grades.GradeRecord{}, err
	}
	q := `
INSERT INTO grade_record (id, student_ref, class_ref, subject_ref, term, academic_year, assessments, total_marks, marks_obtained, percentage, grade, rank, created_at, updated_at)
VALUES (:id, :student_ref, :class_ref, :subject_ref, :term, :academic_year, :assessments, :total_marks, :marks_obtained, :percentage, :grade, :rank, :created_at, :updated_at)
ON CONFLICT (student_ref, subject_ref, term, academic_year) DO UPDATE
SET assessments = EXCLUDED.assessments, total_marks = EXCLUDED.total_marks, marks_obtained = EXCLUDED.marks_obtained,
    percentage = EXCLUDED.percentage, grade = EXCLUDED.grade,
    rank = CASE WHEN EXCLUDED.rank = 0 THEN grade_record.rank ELSE EXCLUDED.rank END,
    updated_at = EXCLUDED.updated_at`
	if _, err = repo.db.NamedExecContext(ctx, q, row); err != nil {
		return grades.GradeRecord{}, errors.Wrap(err, "upserting grade record")
	}
	return repo.GetGradeRecord(ctx, r.StudentRef, r.SubjectRef, r.Term, r.AcademicYear)
}

func (repo gradeRepository) GetGradeRecord(ctx context.Context, studentRef, subjectRef, term, academicYear string) (grades.GradeRecord, error) {
	var row gradeRecordRow
	q := `SELECT * FROM grade_record WHERE student_ref = $1 AND subject_ref = $2 AND term = $3 AND academic_year = $4`
	if err := repo.db.GetContext(ctx, &row, q, studentRef, subjectRef, term, academicYear); err != nil {
		return grades.GradeRecord{}, trapNoRowsErr(err, grades.ErrGradeRecordNotFound, "getting grade record")
	}
	return repo.unrowRecord(row)
}

func (repo gradeRepository) QueryGradeRecords(ctx context.Context, classRef, subjectRef, term, academicYear string) ([]grades.GradeRecord, error) {
	var rows []gradeRecordRow
	q := `SELECT * FROM grade_record WHERE class_ref = $1 AND subject_ref = $2 AND term = $3 AND academic_year = $4`
	if err := repo.db.SelectContext(ctx, &rows, q, classRef, subjectRef, term, academicYear); err != nil {
		return nil, errors.Wrap(err, "querying grade records")
	}
	return repo.unrowRecordSlice(rows)
}

func (repo gradeRepository) QueryGradeRecordsByStudent(ctx context.Context, studentRef, academicYear string) ([]grades.GradeRecord, error) {
	var rows []gradeRecordRow
	q := `SELECT * FROM grade_record WHERE student_ref = $1 AND academic_year = $2`
	if err := repo.db.SelectContext(ctx, &rows, q, studentRef, academicYear); err != nil {
		return nil, errors.Wrap(err, "querying grade records")
	}
	return repo.unrowRecordSlice(rows)
}
