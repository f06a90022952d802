package inmemdb

import (
	"context"

	"github.com/trezcool/darasa/core/grades"
)

type gradeRepository struct {
	assessments *assessmentTable
	records     *recordTable
}

var _ grades.Repository = (*gradeRepository)(nil)

func NewGradeRepository(db *DB) *gradeRepository {
	return &gradeRepository{assessments: db.assessment, records: db.record}
}

func cloneAssessment(a grades.Assessment) grades.Assessment {
	a.Results = append([]grades.AssessmentResult(nil), a.Results...)
	return a
}

func cloneRecord(r grades.GradeRecord) grades.GradeRecord {
	r.Assessments = append([]grades.GradeComponent(nil), r.Assessments...)
	return r
}

func recordKey(studentRef, subjectRef, term, academicYear string) string {
	return studentRef + "|" + subjectRef + "|" + term + "|" + academicYear
}

func (repo *gradeRepository) CreateAssessment(ctx context.Context, a grades.Assessment) (grades.Assessment, error) {
	repo.assessments.Lock()
	defer repo.assessments.Unlock()

	cp := cloneAssessment(a)
	repo.assessments.table[cp.ID] = &cp
	return cloneAssessment(cp), nil
}

func (repo *gradeRepository) GetAssessment(ctx context.Context, id string) (grades.Assessment, error) {
	repo.assessments.RLock()
	defer repo.assessments.RUnlock()

	if a, ok := repo.assessments.table[id]; ok {
		return cloneAssessment(*a), nil
	}
	return grades.Assessment{}, grades.ErrAssessmentNotFound
}

func (repo *gradeRepository) UpdateAssessment(ctx context.Context, a grades.Assessment) (grades.Assessment, error) {
	repo.assessments.Lock()
	defer repo.assessments.Unlock()

	if _, ok := repo.assessments.table[a.ID]; !ok {
		return grades.Assessment{}, grades.ErrAssessmentNotFound
	}
	cp := cloneAssessment(a)
	repo.assessments.table[cp.ID] = &cp
	return cloneAssessment(cp), nil
}

func (repo *gradeRepository) QueryAssessments(ctx context.Context, classRef, subjectRef, term, academicYear string) ([]grades.Assessment, error) {
	repo.assessments.RLock()
	defer repo.assessments.RUnlock()

	var assessments []grades.Assessment
	for _, a := range repo.assessments.table {
		if a.ClassRef == classRef && a.SubjectRef == subjectRef && a.Term == term && a.AcademicYear == academicYear {
			assessments = append(assessments, cloneAssessment(*a))
		}
	}
	return assessments, nil
}

func (repo *gradeRepository) UpsertGradeRecord(ctx context.Context, r grades.GradeRecord) (grades.GradeRecord, error) {
	repo.records.Lock()
	defer repo.records.Unlock()

	key := recordKey(r.StudentRef, r.SubjectRef, r.Term, r.AcademicYear)
	if existing, ok := repo.records.table[key]; ok {
		r.ID = existing.ID
		r.CreatedAt = existing.CreatedAt
		if r.Rank == 0 {
			r.Rank = existing.Rank // a recompute keeps the last rank until the re-rank pass
		}
	}
	cp := cloneRecord(r)
	repo.records.table[key] = &cp
	return cloneRecord(cp), nil
}

func (repo *gradeRepository) GetGradeRecord(ctx context.Context, studentRef, subjectRef, term, academicYear string) (grades.GradeRecord, error) {
	repo.records.RLock()
	defer repo.records.RUnlock()

	if r, ok := repo.records.table[recordKey(studentRef, subjectRef, term, academicYear)]; ok {
		return cloneRecord(*r), nil
	}
	return grades.GradeRecord{}, grades.ErrGradeRecordNotFound
}

func (repo *gradeRepository) QueryGradeRecords(ctx context.Context, classRef, subjectRef, term, academicYear string) ([]grades.GradeRecord, error) {
	repo.records.RLock()
	defer repo.records.RUnlock()

	var records []grades.GradeRecord
	for _, r := range repo.records.table {
		if r.ClassRef == classRef && r.SubjectRef == subjectRef && r.Term == term && r.AcademicYear == academicYear {
			records = append(records, cloneRecord(*r))
		}
	}
	return records, nil
}

func (repo *gradeRepository) QueryGradeRecordsByStudent(ctx context.Context, studentRef, academicYear string) ([]grades.GradeRecord, error) {
	repo.records.RLock()
	defer repo.records.RUnlock()

	var records []grades.GradeRecord
	for _, r := range repo.records.table {
		if r.StudentRef == studentRef && r.AcademicYear == academicYear {
			records = append(records, cloneRecord(*r))
		}
	}
	return records, nil
}
