package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core/attendance"
)

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) *attendanceRepository {
	return &attendanceRepository{db: db}
}

// sessionRow flattens a session for its table; the per-student entries and
// the audit trail live in JSONB columns. The derived counters are not
// persisted, they are recomputed from the entry list on read.
type sessionRow struct {
	ID           string         `db:"id"`
	ClassRef     string         `db:"class_ref"`
	SubjectRef   string         `db:"subject_ref"`
	TeacherRef   string         `db:"teacher_ref"`
	Date         time.Time      `db:"date"`
	Period       int            `db:"period"`
	AcademicYear string         `db:"academic_year"`
	Status       string         `db:"status"`
	Entries      types.JSONText `db:"entries"`
	AuditRemarks types.JSONText `db:"audit_remarks"`
	CreatedAt    null.Time      `db:"created_at"`
	UpdatedAt    null.Time      `db:"updated_at"`
}

func (repo attendanceRepository) row(s attendance.Session) (sessionRow, error) {
	entries, err := jsonb(s.Entries)
	if err != nil {
		return sessionRow{}, err
	}
	remarks, err := jsonb(s.AuditRemarks)
	if err != nil {
		return sessionRow{}, err
	}
	return sessionRow{
		ID:           s.ID,
		ClassRef:     s.ClassRef,
		SubjectRef:   s.SubjectRef,
		TeacherRef:   s.TeacherRef,
		Date:         s.Date,
		Period:       s.Period,
		AcademicYear: s.AcademicYear,
		Status:       s.Status,
		Entries:      entries,
		AuditRemarks: remarks,
		CreatedAt:    newNullTime(s.CreatedAt),
		UpdatedAt:    newNullTime(s.UpdatedAt),
	}, nil
}

func (repo attendanceRepository) unrow(row sessionRow) (attendance.Session, error) {
	s := attendance.Session{
		ID:           row.ID,
		ClassRef:     row.ClassRef,
		SubjectRef:   row.SubjectRef,
		TeacherRef:   row.TeacherRef,
		Date:         attendance.DateOf(row.Date),
		Period:       row.Period,
		AcademicYear: row.AcademicYear,
		Status:       row.Status,
		CreatedAt:    row.CreatedAt.Time,
		UpdatedAt:    row.UpdatedAt.Time,
	}
	if err := unjsonb(row.Entries, &s.Entries); err != nil {
		return attendance.Session{}, err
	}
	if err := unjsonb(row.AuditRemarks, &s.AuditRemarks); err != nil {
		return attendance.Session{}, err
	}
	s.Recount()
	return s, nil
}

func (repo attendanceRepository) unrowSlice(rows []sessionRow) ([]attendance.Session, error) {
	sessions := make([]attendance.Session, 0, len(rows))
	for _, row := range rows {
		s, err := repo.unrow(row)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

func (repo attendanceRepository) CreateSession(ctx context.Context, s attendance.Session) (attendance.Session, error) {
	row, err := repo.row(s)
	if err != nil {
		return attendance.Session{}, err
	}
	q := `
INSERT INTO attendance_session (id, class_ref, subject_ref, teacher_ref, date, period, academic_year, status, entries, audit_remarks, created_at, updated_at)
VALUES (:id, :class_ref, :subject_ref, :teacher_ref, :date, :period, :academic_year, :status, :entries, :audit_remarks, :created_at, :updated_at)`
	if _, err = repo.db.NamedExecContext(ctx, q, row); err != nil {
		return attendance.Session{}, errors.Wrap(err, "inserting attendance session")
	}
	return s, nil
}

func (repo attendanceRepository) GetSession(ctx context.Context, id string) (attendance.Session, error) {
	var row sessionRow
	if err := repo.db.GetContext(ctx, &row, `SELECT * FROM attendance_session WHERE id = $1`, id); err != nil {
		return attendance.Session{}, trapNoRowsErr(err, attendance.ErrSessionNotFound, "getting attendance session")
	}
	return repo.unrow(row)
}

func (repo attendanceRepository) GetSessionByKey(ctx context.Context, key attendance.Key) (attendance.Session, error) {
	var row sessionRow
	q := `
SELECT * FROM attendance_session
WHERE class_ref = $1 AND subject_ref = $2 AND date = $3 AND period = $4 AND academic_year = $5`
	err := repo.db.GetContext(ctx, &row, q, key.ClassRef, key.SubjectRef, key.Date, key.Period, key.AcademicYear)
	if err != nil {
		return attendance.Session{}, trapNoRowsErr(err, attendance.ErrSessionNotFound, "getting attendance session")
	}
	return repo.unrow(row)
}

func (repo attendanceRepository) UpdateSession(ctx context.Context, s attendance.Session) (attendance.Session, error) {
	row, err := repo.row(s)
	if err != nil {
		return attendance.Session{}, err
	}
	q := `
UPDATE attendance_session
SET status = :status, entries = :entries, audit_remarks = :audit_remarks, updated_at = :updated_at
WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, row)
	if err != nil {
		return attendance.Session{}, errors.Wrap(err, "updating attendance session")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return attendance.Session{}, attendance.ErrSessionNotFound
	}
	return s, nil
}

func (repo attendanceRepository) QuerySessionsByClass(ctx context.Context, classRef string, from, to time.Time) ([]attendance.Session, error) {
	rows, err := repo.querySessions(ctx, "class_ref", classRef, from, to)
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance sessions")
	}
	return repo.unrowSlice(rows)
}

func (repo attendanceRepository) QuerySessionsByTeacher(ctx context.Context, teacherRef string, from, to time.Time) ([]attendance.Session, error) {
	rows, err := repo.querySessions(ctx, "teacher_ref", teacherRef, from, to)
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance sessions")
	}
	return repo.unrowSlice(rows)
}

func (repo attendanceRepository) querySessions(ctx context.Context, col, ref string, from, to time.Time) ([]sessionRow, error) {
	q := `SELECT * FROM attendance_session WHERE ` + col + ` = $1`
	args := []interface{}{ref}
	if !from.IsZero() {
		args = append(args, from)
		q += ` AND date >= $2`
	}
	if !to.IsZero() {
		args = append(args, to)
		if from.IsZero() {
			q += ` AND date <= $2`
		} else {
			q += ` AND date <= $3`
		}
	}

	var rows []sessionRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
