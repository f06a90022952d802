package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/roster"
)

type fakeSessionRepo struct {
	sessions map[string]Session
}

var _ Repository = (*fakeSessionRepo)(nil)

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]Session)}
}

func (r *fakeSessionRepo) CreateSession(_ context.Context, s Session) (Session, error) {
	r.sessions[s.ID] = s
	return s, nil
}

func (r *fakeSessionRepo) GetSession(_ context.Context, id string) (Session, error) {
	s, ok := r.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return s, nil
}

func (r *fakeSessionRepo) GetSessionByKey(_ context.Context, key Key) (Session, error) {
	for _, s := range r.sessions {
		if s.Key() == key {
			return s, nil
		}
	}
	return Session{}, ErrSessionNotFound
}

func (r *fakeSessionRepo) UpdateSession(_ context.Context, s Session) (Session, error) {
	if _, ok := r.sessions[s.ID]; !ok {
		return Session{}, ErrSessionNotFound
	}
	r.sessions[s.ID] = s
	return s, nil
}

func (r *fakeSessionRepo) QuerySessionsByClass(_ context.Context, classRef string, from, to time.Time) ([]Session, error) {
	var out []Session
	for _, s := range r.sessions {
		if s.ClassRef == classRef && !s.Date.Before(from) && !s.Date.After(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSessionRepo) QuerySessionsByTeacher(_ context.Context, teacherRef string, from, to time.Time) ([]Session, error) {
	var out []Session
	for _, s := range r.sessions {
		if s.TeacherRef == teacherRef && !s.Date.Before(from) && !s.Date.After(to) {
			out = append(out, s)
		}
	}
	return out, nil
}

// rosterStub serves a single canned class; unused methods panic.
type rosterStub struct {
	roster.ServiceInterface
	class    roster.Class
	students []roster.Student
}

func (s *rosterStub) GetClass(classRef string) (roster.Class, error) {
	if classRef != s.class.ID {
		return roster.Class{}, roster.ErrClassNotFound
	}
	return s.class, nil
}

func (s *rosterStub) ActiveStudents(classRef string) ([]roster.Student, error) {
	if classRef != s.class.ID {
		return nil, roster.ErrClassNotFound
	}
	active := make([]roster.Student, 0, len(s.students))
	for _, st := range s.students {
		if st.IsActive {
			active = append(active, st)
		}
	}
	return active, nil
}

type eventRecorder struct {
	published []core.Event
}

func (r *eventRecorder) Publish(events ...core.Event) {
	r.published = append(r.published, events...)
}

func mockNow(t *testing.T, now time.Time) {
	orig := nowFunc
	nowFunc = func() time.Time { return now }
	t.Cleanup(func() { nowFunc = orig })
}

func newTestService(t *testing.T) (*Service, *fakeSessionRepo, *rosterStub, *eventRecorder) {
	t.Helper()

	rosterSvc := &rosterStub{
		class: roster.Class{
			ID:           "class1",
			Label:        "Grade 10 - A",
			MaxStudents:  40,
			AcademicYear: "2025-26",
			IsActive:     true,
			Subjects:     []roster.ClassSubject{{SubjectRef: "math", TeacherRef: "teacher1", PeriodsPerWeek: 5}},
		},
		students: []roster.Student{
			{ID: "s1", RollNumber: "1", Name: "Binta Diallo", ClassRef: "class1", IsActive: true},
			{ID: "s2", RollNumber: "2", Name: "Chipo Moyo", ClassRef: "class1", IsActive: true},
			{ID: "s3", RollNumber: "3", Name: "Daniel Kamau", ClassRef: "class1", IsActive: true},
		},
	}
	repo := newFakeSessionRepo()
	events := &eventRecorder{}
	svc := NewService(repo, rosterSvc, events, &core.Config{AcademicYear: "2025-26"})
	return svc, repo, rosterSvc, events
}

func TestService_OpenSession(t *testing.T) {
	svc, _, rosterSvc, _ := newTestService(t)
	in := OpenSession{ClassRef: "class1", SubjectRef: "math", Date: time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC), Period: 1}

	s, err := svc.OpenSession("teacher1", in)
	assert.NoError(t, err)
	assert.Equal(t, StatusDraft, s.Status)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), s.Date)
	assert.Equal(t, "2025-26", s.AcademicYear)
	assert.Len(t, s.Entries, 3)
	for _, e := range s.Entries {
		assert.Equal(t, EntryUnset, e.Status)
	}
	assert.Equal(t, 3, s.TotalStudents)
	assert.Zero(t, s.PresentCount)

	// re-opening the same composite key returns the existing session
	again, err := svc.OpenSession("teacher1", in)
	assert.NoError(t, err)
	assert.Equal(t, s.ID, again.ID)

	// a different period is a different session
	in.Period = 2
	other, err := svc.OpenSession("teacher1", in)
	assert.NoError(t, err)
	assert.NotEqual(t, s.ID, other.ID)

	// teacher not bound to the class/subject pair
	_, err = svc.OpenSession("teacher2", OpenSession{ClassRef: "class1", SubjectRef: "math", Date: in.Date, Period: 3})
	assert.Equal(t, ErrNotSubjectTeacher, err)

	_, err = svc.OpenSession("teacher1", OpenSession{ClassRef: "nope", SubjectRef: "math", Date: in.Date, Period: 1})
	assert.True(t, core.IsNotFound(err))

	// enrolments after opening do not touch the frozen snapshot
	rosterSvc.students = append(rosterSvc.students, roster.Student{ID: "s4", RollNumber: "4", ClassRef: "class1", IsActive: true})
	s, err = svc.GetSession(s.ID)
	assert.NoError(t, err)
	assert.Len(t, s.Entries, 3)
}

func TestService_OpenSession_emptyRoster(t *testing.T) {
	svc, _, rosterSvc, _ := newTestService(t)
	for i := range rosterSvc.students {
		rosterSvc.students[i].IsActive = false
	}

	_, err := svc.OpenSession("teacher1", OpenSession{ClassRef: "class1", SubjectRef: "math", Date: time.Now(), Period: 1})
	assert.Equal(t, roster.ErrEmptyRoster, err)
}

func TestService_MarkEntry(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	s, err := svc.OpenSession("teacher1", OpenSession{ClassRef: "class1", SubjectRef: "math", Date: time.Now(), Period: 1})
	assert.NoError(t, err)

	s, err = svc.MarkEntry(s.ID, MarkEntry{StudentRef: "s1", Status: EntryPresent})
	assert.NoError(t, err)
	assert.Equal(t, 1, s.PresentCount)
	assert.Equal(t, 3, s.TotalStudents)

	// marks are idempotent and re-markable while the session is draft
	s, err = svc.MarkEntry(s.ID, MarkEntry{StudentRef: "s1", Status: EntryLate, Remarks: "bus broke down"})
	assert.NoError(t, err)
	assert.Zero(t, s.PresentCount)
	assert.Equal(t, 1, s.LateCount)
	assert.Equal(t, "bus broke down", s.Entries[0].Remarks)

	_, err = svc.MarkEntry(s.ID, MarkEntry{StudentRef: "stranger", Status: EntryPresent})
	assert.Equal(t, ErrUnknownStudent, err)

	_, err = svc.MarkEntry(s.ID, MarkEntry{StudentRef: "s2", Status: "vanished"})
	var vErr *core.ValidationError
	assert.ErrorAs(t, err, &vErr)

	_, err = svc.MarkEntry("nope", MarkEntry{StudentRef: "s1", Status: EntryPresent})
	assert.True(t, core.IsNotFound(err))
}

func TestService_MarkAll_excusedSticky(t *testing.T) {
	svc, _, _, _ := newTestService(t)
	s, err := svc.OpenSession("teacher1", OpenSession{ClassRef: "class1", SubjectRef: "math", Date: time.Now(), Period: 1})
	assert.NoError(t, err)

	_, err = svc.MarkEntry(s.ID, MarkEntry{StudentRef: "s2", Status: EntryExcused})
	assert.NoError(t, err)

	s, err = svc.MarkAll(s.ID, EntryPresent)
	assert.NoError(t, err)
	assert.Equal(t, 2, s.PresentCount)
	assert.Equal(t, EntryExcused, s.Entries[1].Status)

	_, err = svc.MarkAll(s.ID, "vanished")
	var vErr *core.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestService_Finalize(t *testing.T) {
	svc, _, _, events := newTestService(t)
	s, err := svc.OpenSession("teacher1", OpenSession{ClassRef: "class1", SubjectRef: "math", Date: time.Now(), Period: 1})
	assert.NoError(t, err)

	// every entry needs a status first
	_, err = svc.Finalize(s.ID)
	assert.Equal(t, ErrIncompleteEntries, err)

	_, err = svc.MarkAll(s.ID, EntryPresent)
	assert.NoError(t, err)
	_, err = svc.MarkEntry(s.ID, MarkEntry{StudentRef: "s3", Status: EntryAbsent})
	assert.NoError(t, err)

	s, err = svc.Finalize(s.ID)
	assert.NoError(t, err)
	assert.True(t, s.IsFinalized())
	assert.Equal(t, 2, s.PresentCount)
	assert.Equal(t, 1, s.AbsentCount)
	if assert.Len(t, events.published, 1) {
		assert.Equal(t, "attendance_session", events.published[0].EntityType)
		assert.Equal(t, s.ID, events.published[0].EntityID)
	}

	_, err = svc.Finalize(s.ID)
	assert.Equal(t, ErrAlreadyFinalized, err)

	// the status list is frozen...
	_, err = svc.MarkEntry(s.ID, MarkEntry{StudentRef: "s1", Status: EntryAbsent})
	assert.Equal(t, ErrSessionFinalized, err)
	_, err = svc.MarkAll(s.ID, EntryAbsent)
	assert.Equal(t, ErrSessionFinalized, err)

	// ...but audit remarks still land
	s, err = svc.AddRemark(s.ID, "principal", "spot check ok")
	assert.NoError(t, err)
	if assert.Len(t, s.AuditRemarks, 1) {
		assert.Equal(t, "principal", s.AuditRemarks[0].By)
		assert.Equal(t, "spot check ok", s.AuditRemarks[0].Text)
	}
}

func TestService_GetStats(t *testing.T) {
	now := time.Date(2026, 3, 6, 10, 0, 0, 0, time.UTC)
	mockNow(t, now)

	svc, _, _, _ := newTestService(t)
	scope := StatsScope{ClassRef: "class1", DateFrom: now.AddDate(0, 0, -7), DateTo: now}

	// no finalized sessions yet: zeroes, not an error
	stats, err := svc.GetStats(scope)
	assert.NoError(t, err)
	assert.Zero(t, stats.FinalizedSessions)
	assert.Zero(t, stats.OverallAttendancePercent)

	open := func(date time.Time, period int, statuses ...string) Session {
		t.Helper()
		s, err := svc.OpenSession("teacher1", OpenSession{ClassRef: "class1", SubjectRef: "math", Date: date, Period: period})
		assert.NoError(t, err)
		for i, st := range statuses {
			_, err = svc.MarkEntry(s.ID, MarkEntry{StudentRef: s.Entries[i].StudentRef, Status: st})
			assert.NoError(t, err)
		}
		s, err = svc.Finalize(s.ID)
		assert.NoError(t, err)
		return s
	}

	open(now.AddDate(0, 0, -1), 1, EntryPresent, EntryPresent, EntryAbsent) // 2/3
	open(now, 1, EntryPresent, EntryLate, EntryAbsent)                      // 2/3, today

	// a draft session does not count
	_, err = svc.OpenSession("teacher1", OpenSession{ClassRef: "class1", SubjectRef: "math", Date: now, Period: 2})
	assert.NoError(t, err)

	stats, err = svc.GetStats(scope)
	assert.NoError(t, err)
	assert.Equal(t, 2, stats.FinalizedSessions)
	assert.Equal(t, 67, stats.OverallAttendancePercent) // round(100*4/6)
	assert.Equal(t, 2, stats.PresentToday)              // present + late
	assert.Equal(t, 3, stats.AverageClassSize)

	// teacher scope matches the same sessions
	stats, err = svc.GetStats(StatsScope{TeacherRef: "teacher1", DateFrom: scope.DateFrom, DateTo: scope.DateTo})
	assert.NoError(t, err)
	assert.Equal(t, 2, stats.FinalizedSessions)

	// one of class_ref/teacher_ref is required
	_, err = svc.GetStats(StatsScope{DateFrom: scope.DateFrom, DateTo: scope.DateTo})
	var vErr *core.ValidationError
	assert.ErrorAs(t, err, &vErr)
}
