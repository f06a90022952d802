package inmemdb

import (
	"context"

	"github.com/trezcool/darasa/core/roster"
)

type rosterRepository struct {
	teachers *teacherTable
	subjects *subjectTable
	classes  *classTable
	students *studentTable
}

var _ roster.Repository = (*rosterRepository)(nil)

func NewRosterRepository(db *DB) *rosterRepository {
	return &rosterRepository{
		teachers: db.teacher,
		subjects: db.subject,
		classes:  db.class,
		students: db.student,
	}
}

func cloneTeacher(t roster.Teacher) roster.Teacher {
	t.Subjects = append([]string(nil), t.Subjects...)
	return t
}

func cloneClass(c roster.Class) roster.Class {
	c.Subjects = append([]roster.ClassSubject(nil), c.Subjects...)
	return c
}

func (repo *rosterRepository) CreateTeacher(ctx context.Context, t roster.Teacher) (roster.Teacher, error) {
	repo.teachers.Lock()
	defer repo.teachers.Unlock()

	cp := cloneTeacher(t)
	repo.teachers.table[cp.ID] = &cp
	return cloneTeacher(cp), nil
}

func (repo *rosterRepository) GetTeacher(ctx context.Context, id string) (roster.Teacher, error) {
	repo.teachers.RLock()
	defer repo.teachers.RUnlock()

	if t, ok := repo.teachers.table[id]; ok {
		return cloneTeacher(*t), nil
	}
	return roster.Teacher{}, roster.ErrTeacherNotFound
}

func (repo *rosterRepository) UpdateTeacher(ctx context.Context, t roster.Teacher) (roster.Teacher, error) {
	repo.teachers.Lock()
	defer repo.teachers.Unlock()

	if _, ok := repo.teachers.table[t.ID]; !ok {
		return roster.Teacher{}, roster.ErrTeacherNotFound
	}
	cp := cloneTeacher(t)
	repo.teachers.table[cp.ID] = &cp
	return cloneTeacher(cp), nil
}

func (repo *rosterRepository) CreateSubject(ctx context.Context, s roster.Subject) (roster.Subject, error) {
	repo.subjects.Lock()
	defer repo.subjects.Unlock()

	cp := s
	repo.subjects.table[cp.ID] = &cp
	return cp, nil
}

func (repo *rosterRepository) GetSubject(ctx context.Context, id string) (roster.Subject, error) {
	repo.subjects.RLock()
	defer repo.subjects.RUnlock()

	if s, ok := repo.subjects.table[id]; ok {
		return *s, nil
	}
	return roster.Subject{}, roster.ErrSubjectNotFound
}

func (repo *rosterRepository) CreateClass(ctx context.Context, c roster.Class) (roster.Class, error) {
	repo.classes.Lock()
	defer repo.classes.Unlock()

	cp := cloneClass(c)
	repo.classes.table[cp.ID] = &cp
	return cloneClass(cp), nil
}

func (repo *rosterRepository) GetClass(ctx context.Context, id string) (roster.Class, error) {
	repo.classes.RLock()
	defer repo.classes.RUnlock()

	if c, ok := repo.classes.table[id]; ok {
		return cloneClass(*c), nil
	}
	return roster.Class{}, roster.ErrClassNotFound
}

func (repo *rosterRepository) UpdateClass(ctx context.Context, c roster.Class) (roster.Class, error) {
	repo.classes.Lock()
	defer repo.classes.Unlock()

	if _, ok := repo.classes.table[c.ID]; !ok {
		return roster.Class{}, roster.ErrClassNotFound
	}
	cp := cloneClass(c)
	repo.classes.table[cp.ID] = &cp
	return cloneClass(cp), nil
}

func (repo *rosterRepository) QueryClassesByTeacher(ctx context.Context, teacherRef string) ([]roster.Class, error) {
	repo.classes.RLock()
	defer repo.classes.RUnlock()

	var classes []roster.Class
	for _, c := range repo.classes.table {
		if c.ClassTeacherRef == teacherRef {
			classes = append(classes, cloneClass(*c))
			continue
		}
		for _, cs := range c.Subjects {
			if cs.TeacherRef == teacherRef {
				classes = append(classes, cloneClass(*c))
				break
			}
		}
	}
	return classes, nil
}

func (repo *rosterRepository) CreateStudent(ctx context.Context, s roster.Student) (roster.Student, error) {
	repo.students.Lock()
	defer repo.students.Unlock()

	cp := s
	repo.students.table[cp.ID] = &cp
	return cp, nil
}

func (repo *rosterRepository) GetStudent(ctx context.Context, id string) (roster.Student, error) {
	repo.students.RLock()
	defer repo.students.RUnlock()

	if s, ok := repo.students.table[id]; ok {
		return *s, nil
	}
	return roster.Student{}, roster.ErrStudentNotFound
}

func (repo *rosterRepository) UpdateStudent(ctx context.Context, s roster.Student) (roster.Student, error) {
	repo.students.Lock()
	defer repo.students.Unlock()

	if _, ok := repo.students.table[s.ID]; !ok {
		return roster.Student{}, roster.ErrStudentNotFound
	}
	cp := s
	repo.students.table[cp.ID] = &cp
	return cp, nil
}

func (repo *rosterRepository) QueryStudentsByClass(ctx context.Context, classRef string) ([]roster.Student, error) {
	repo.students.RLock()
	defer repo.students.RUnlock()

	var students []roster.Student
	for _, s := range repo.students.table {
		if s.ClassRef == classRef {
			students = append(students, *s)
		}
	}
	return students, nil
}
