package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/darasa/core/homework"
)

type homeworkRepository struct {
	db *assignmentTable
}

var _ homework.Repository = (*homeworkRepository)(nil)

func NewHomeworkRepository(db *DB) *homeworkRepository {
	return &homeworkRepository{db: db.assignment}
}

func cloneAssignment(a homework.Assignment) homework.Assignment {
	a.Attachments = append([]string(nil), a.Attachments...)
	subs := make([]homework.Submission, len(a.Submissions))
	for i, s := range a.Submissions {
		s.Attachments = append([]string(nil), s.Attachments...)
		subs[i] = s
	}
	a.Submissions = subs
	return a
}

func (repo *homeworkRepository) CreateAssignment(ctx context.Context, a homework.Assignment) (homework.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	cp := cloneAssignment(a)
	repo.db.table[cp.ID] = &cp
	return cloneAssignment(cp), nil
}

func (repo *homeworkRepository) GetAssignment(ctx context.Context, id string) (homework.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.table[id]; ok {
		return cloneAssignment(*a), nil
	}
	return homework.Assignment{}, homework.ErrAssignmentNotFound
}

func (repo *homeworkRepository) UpdateAssignment(ctx context.Context, a homework.Assignment) (homework.Assignment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[a.ID]; !ok {
		return homework.Assignment{}, homework.ErrAssignmentNotFound
	}
	cp := cloneAssignment(a)
	repo.db.table[cp.ID] = &cp
	return cloneAssignment(cp), nil
}

func (repo *homeworkRepository) QueryAssignmentsByTeacher(ctx context.Context, teacherRef string) ([]homework.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var assignments []homework.Assignment
	for _, a := range repo.db.table {
		if a.TeacherRef == teacherRef {
			assignments = append(assignments, cloneAssignment(*a))
		}
	}
	return assignments, nil
}

func (repo *homeworkRepository) QueryAssignmentsByClass(ctx context.Context, classRef string) ([]homework.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var assignments []homework.Assignment
	for _, a := range repo.db.table {
		if a.ClassRef == classRef {
			assignments = append(assignments, cloneAssignment(*a))
		}
	}
	return assignments, nil
}

func (repo *homeworkRepository) QueryActiveAssignmentsDueBefore(ctx context.Context, due time.Time) ([]homework.Assignment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var assignments []homework.Assignment
	for _, a := range repo.db.table {
		if a.Status == homework.StatusActive && a.DueDate.Before(due) {
			assignments = append(assignments, cloneAssignment(*a))
		}
	}
	return assignments, nil
}
