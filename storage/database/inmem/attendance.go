package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/darasa/core/attendance"
)

type attendanceRepository struct {
	db *sessionTable
}

var _ attendance.Repository = (*attendanceRepository)(nil)

func NewAttendanceRepository(db *DB) *attendanceRepository {
	return &attendanceRepository{db: db.session}
}

func cloneSession(s attendance.Session) attendance.Session {
	s.Entries = append([]attendance.Entry(nil), s.Entries...)
	s.AuditRemarks = append([]attendance.AuditRemark(nil), s.AuditRemarks...)
	return s
}

func (repo *attendanceRepository) CreateSession(ctx context.Context, s attendance.Session) (attendance.Session, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	cp := cloneSession(s)
	repo.db.table[cp.ID] = &cp
	return cloneSession(cp), nil
}

func (repo *attendanceRepository) GetSession(ctx context.Context, id string) (attendance.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.table[id]; ok {
		return cloneSession(*s), nil
	}
	return attendance.Session{}, attendance.ErrSessionNotFound
}

func (repo *attendanceRepository) GetSessionByKey(ctx context.Context, key attendance.Key) (attendance.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, s := range repo.db.table {
		if s.Key() == key {
			return cloneSession(*s), nil
		}
	}
	return attendance.Session{}, attendance.ErrSessionNotFound
}

func (repo *attendanceRepository) UpdateSession(ctx context.Context, s attendance.Session) (attendance.Session, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[s.ID]; !ok {
		return attendance.Session{}, attendance.ErrSessionNotFound
	}
	cp := cloneSession(s)
	repo.db.table[cp.ID] = &cp
	return cloneSession(cp), nil
}

func (repo *attendanceRepository) QuerySessionsByClass(ctx context.Context, classRef string, from, to time.Time) ([]attendance.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var sessions []attendance.Session
	for _, s := range repo.db.table {
		if s.ClassRef == classRef && inRange(s.Date, from, to) {
			sessions = append(sessions, cloneSession(*s))
		}
	}
	return sessions, nil
}

func (repo *attendanceRepository) QuerySessionsByTeacher(ctx context.Context, teacherRef string, from, to time.Time) ([]attendance.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var sessions []attendance.Session
	for _, s := range repo.db.table {
		if s.TeacherRef == teacherRef && inRange(s.Date, from, to) {
			sessions = append(sessions, cloneSession(*s))
		}
	}
	return sessions, nil
}

// inRange checks from <= d <= to; zero bounds are open-ended.
func inRange(d, from, to time.Time) bool {
	if !from.IsZero() && d.Before(from) {
		return false
	}
	if !to.IsZero() && d.After(to) {
		return false
	}
	return true
}
