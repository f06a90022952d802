package attendance

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/roster"
)

var (
	// errors
	ErrSessionNotFound    = core.NewNotFoundError("attendance session not found")
	ErrSessionFinalized   = core.NewRejectedError("session is finalized; the status list is frozen")
	ErrUnknownStudent     = core.NewRejectedError("student is not on this session's roster")
	ErrIncompleteEntries  = core.NewRejectedError("every entry needs a status before finalizing")
	ErrAlreadyFinalized   = core.NewConflictError("session is already finalized")
	ErrNotSubjectTeacher  = core.NewRejectedError("teacher is not bound to this class/subject pair")
	ErrInvalidEntryStatus = errors.New("invalid attendance status")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateSession(ctx context.Context, s Session) (Session, error)
		GetSession(ctx context.Context, id string) (Session, error)
		// GetSessionByKey returns ErrSessionNotFound when no session holds
		// the composite key.
		GetSessionByKey(ctx context.Context, key Key) (Session, error)
		UpdateSession(ctx context.Context, s Session) (Session, error)
		QuerySessionsByClass(ctx context.Context, classRef string, from, to time.Time) ([]Session, error)
		QuerySessionsByTeacher(ctx context.Context, teacherRef string, from, to time.Time) ([]Session, error)
	}

	ServiceInterface interface {
		OpenSession(teacherRef string, in OpenSession) (Session, error)
		GetSession(id string) (Session, error)
		MarkEntry(sessionID string, in MarkEntry) (Session, error)
		MarkAll(sessionID, status string) (Session, error)
		Finalize(sessionID string) (Session, error)
		AddRemark(sessionID, by, text string) (Session, error)
		GetStats(scope StatsScope) (Stats, error)
	}

	Service struct {
		repo   Repository
		roster roster.ServiceInterface
		events core.EventService
		conf   *core.Config
		locks  core.KeyedMutex // serializes counter recomputes per session
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, rosterSvc roster.ServiceInterface, events core.EventService, conf *core.Config) *Service {
	return &Service{repo: repo, roster: rosterSvc, events: events, conf: conf}
}

// OpenSession materializes a draft session with one unset entry per active
// roster student. Re-opening an existing composite key returns the existing
// session unchanged; UI retries are common and are not errors.
func (svc *Service) OpenSession(teacherRef string, in OpenSession) (Session, error) {
	ctx := context.Background()

	class, err := svc.roster.GetClass(in.ClassRef)
	if err != nil {
		return Session{}, err
	}
	if bound, ok := class.SubjectTeacher(in.SubjectRef); !ok || bound != teacherRef {
		return Session{}, ErrNotSubjectTeacher
	}

	key := Key{
		ClassRef:     class.ID,
		SubjectRef:   in.SubjectRef,
		Date:         DateOf(in.Date),
		Period:       in.Period,
		AcademicYear: svc.conf.AcademicYear,
	}
	if existing, err := svc.repo.GetSessionByKey(ctx, key); err == nil {
		return existing, nil
	} else if !core.IsNotFound(err) {
		return Session{}, errors.Wrap(err, "looking up session by key")
	}

	students, err := svc.roster.ActiveStudents(class.ID)
	if err != nil {
		return Session{}, err
	}
	if len(students) == 0 {
		return Session{}, roster.ErrEmptyRoster
	}

	entries := make([]Entry, 0, len(students))
	for _, st := range students {
		entries = append(entries, Entry{
			StudentRef:  st.ID,
			RollNumber:  st.RollNumber,
			StudentName: st.Name,
			Status:      EntryUnset,
		})
	}

	now := nowFunc().UTC()
	s := Session{
		ID:           uuid.New().String(),
		ClassRef:     key.ClassRef,
		SubjectRef:   key.SubjectRef,
		TeacherRef:   teacherRef,
		Date:         key.Date,
		Period:       key.Period,
		AcademicYear: key.AcademicYear,
		Status:       StatusDraft,
		Entries:      entries,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.Recount()
	return svc.repo.CreateSession(ctx, s)
}

func (svc *Service) GetSession(id string) (Session, error) {
	return svc.repo.GetSession(context.Background(), id)
}

// MarkEntry sets one student's status. The roster snapshot is frozen at open
// time: a student enrolled later is unknown to this session.
func (svc *Service) MarkEntry(sessionID string, in MarkEntry) (Session, error) {
	svc.locks.Lock(sessionID)
	defer svc.locks.Unlock(sessionID)

	ctx := context.Background()
	s, err := svc.repo.GetSession(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	if s.IsFinalized() {
		return Session{}, ErrSessionFinalized
	}
	if !isEntryStatus(in.Status) {
		return Session{}, core.NewValidationError(
			ErrInvalidEntryStatus, core.FieldError{Field: "status", Error: ErrInvalidEntryStatus.Error()})
	}

	e := s.entry(in.StudentRef)
	if e == nil {
		return Session{}, ErrUnknownStudent
	}
	e.Status = in.Status
	e.ArrivalTime = in.ArrivalTime
	if in.Remarks != "" {
		e.Remarks = in.Remarks
	}

	s.Recount()
	s.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateSession(ctx, s)
}

// MarkAll bulk-sets every entry to the given status. Excused entries are
// sticky within a session and are never overwritten by bulk actions.
func (svc *Service) MarkAll(sessionID, status string) (Session, error) {
	svc.locks.Lock(sessionID)
	defer svc.locks.Unlock(sessionID)

	ctx := context.Background()
	s, err := svc.repo.GetSession(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	if s.IsFinalized() {
		return Session{}, ErrSessionFinalized
	}
	if !isEntryStatus(status) {
		return Session{}, core.NewValidationError(
			ErrInvalidEntryStatus, core.FieldError{Field: "status", Error: ErrInvalidEntryStatus.Error()})
	}

	for i := range s.Entries {
		if s.Entries[i].Status == EntryExcused {
			continue
		}
		s.Entries[i].Status = status
	}

	s.Recount()
	s.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateSession(ctx, s)
}

// Finalize freezes the status list and the derived counters. Every entry must
// have been marked; finalizing twice is a conflict.
func (svc *Service) Finalize(sessionID string) (Session, error) {
	svc.locks.Lock(sessionID)
	defer svc.locks.Unlock(sessionID)

	ctx := context.Background()
	s, err := svc.repo.GetSession(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	if s.IsFinalized() {
		return Session{}, ErrAlreadyFinalized
	}
	for _, e := range s.Entries {
		if e.Status == EntryUnset {
			return Session{}, ErrIncompleteEntries
		}
	}

	s.Recount()
	s.Status = StatusFinalized
	s.UpdatedAt = nowFunc().UTC()
	if s, err = svc.repo.UpdateSession(ctx, s); err != nil {
		return Session{}, err
	}

	svc.events.Publish(core.Event{
		EntityType: "attendance_session",
		EntityID:   s.ID,
		ClassRef:   s.ClassRef,
		Summary: fmt.Sprintf("Attendance finalized for period %d on %s: %d/%d present",
			s.Period, s.Date.Format("2006-01-02"), s.PresentCount+s.LateCount, s.TotalStudents),
	})
	return s, nil
}

// AddRemark appends an audit remark; the one mutation finalized sessions accept.
func (svc *Service) AddRemark(sessionID, by, text string) (Session, error) {
	svc.locks.Lock(sessionID)
	defer svc.locks.Unlock(sessionID)

	ctx := context.Background()
	s, err := svc.repo.GetSession(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}

	s.AuditRemarks = append(s.AuditRemarks, AuditRemark{By: by, Text: text, At: nowFunc().UTC()})
	s.UpdatedAt = nowFunc().UTC()
	return svc.repo.UpdateSession(ctx, s)
}

// GetStats aggregates finalized sessions in the scope's date range.
// A scope with no finalized sessions yields zeroes, not an error.
func (svc *Service) GetStats(scope StatsScope) (Stats, error) {
	ctx := context.Background()

	from, to := DateOf(scope.DateFrom), DateOf(scope.DateTo)
	var sessions []Session
	var err error
	switch {
	case scope.ClassRef != "":
		sessions, err = svc.repo.QuerySessionsByClass(ctx, scope.ClassRef, from, to)
	case scope.TeacherRef != "":
		sessions, err = svc.repo.QuerySessionsByTeacher(ctx, scope.TeacherRef, from, to)
	default:
		return Stats{}, core.NewValidationError(
			errors.New("one of class_ref or teacher_ref is required"),
			core.FieldError{Field: "class_ref", Error: "one of class_ref or teacher_ref is required"})
	}
	if err != nil {
		return Stats{}, errors.Wrap(err, "querying sessions")
	}

	var stats Stats
	var attended, total int
	today := DateOf(nowFunc())
	for _, s := range sessions {
		if !s.IsFinalized() {
			continue
		}
		stats.FinalizedSessions++
		attended += s.PresentCount + s.LateCount
		total += s.TotalStudents
		if s.Date.Equal(today) {
			stats.PresentToday += s.PresentCount + s.LateCount
		}
	}
	if total > 0 {
		stats.OverallAttendancePercent = int(math.Round(100 * float64(attended) / float64(total)))
	}
	if stats.FinalizedSessions > 0 {
		stats.AverageClassSize = int(math.Round(float64(total) / float64(stats.FinalizedSessions)))
	}
	return stats, nil
}
