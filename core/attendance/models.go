package attendance

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/darasa/core"
)

// Session statuses
const (
	StatusDraft     = "draft"
	StatusFinalized = "finalized"
)

// Entry statuses
const (
	EntryUnset   = "unset"
	EntryPresent = "present"
	EntryAbsent  = "absent"
	EntryLate    = "late"
	EntryExcused = "excused"
)

var entryStatuses = []string{EntryPresent, EntryAbsent, EntryLate, EntryExcused}

// Entry is the attendance record of one student within a session. One entry
// exists per student on the class roster at session-open time; the set never
// grows or shrinks afterwards.
type Entry struct {
	StudentRef  string    `json:"student_ref"`
	RollNumber  string    `json:"roll_number"`
	StudentName string    `json:"student_name"`
	Status      string    `json:"status"`
	ArrivalTime null.Time `json:"arrival_time,omitempty"`
	Remarks     string    `json:"remarks,omitempty"`
}

// AuditRemark is an append-only note on a session; the only mutation a
// finalized session accepts.
type AuditRemark struct {
	By   string    `json:"by"`
	Text string    `json:"text"`
	At   time.Time `json:"at"` // UTC
}

// Key is the composite session key; two sessions sharing it within one
// academic year are forbidden.
type Key struct {
	ClassRef     string
	SubjectRef   string
	Date         time.Time // normalized to midnight UTC
	Period       int
	AcademicYear string
}

// Session is one class/subject/date/period attendance-taking unit.
// The four counters are derived from Entries on every write and are never
// set directly.
type Session struct {
	ID           string        `json:"id"`
	ClassRef     string        `json:"class_ref"`
	SubjectRef   string        `json:"subject_ref"`
	TeacherRef   string        `json:"teacher_ref"`
	Date         time.Time     `json:"date"`
	Period       int           `json:"period"`
	AcademicYear string        `json:"academic_year"`
	Status       string        `json:"status"`
	Entries      []Entry       `json:"entries"`
	AuditRemarks []AuditRemark `json:"audit_remarks,omitempty"`

	TotalStudents int `json:"total_students"`
	PresentCount  int `json:"present_count"`
	AbsentCount   int `json:"absent_count"`
	LateCount     int `json:"late_count"`

	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

func (s *Session) Key() Key {
	return Key{
		ClassRef:     s.ClassRef,
		SubjectRef:   s.SubjectRef,
		Date:         s.Date,
		Period:       s.Period,
		AcademicYear: s.AcademicYear,
	}
}

func (s *Session) IsFinalized() bool { return s.Status == StatusFinalized }

func (s *Session) entry(studentRef string) *Entry {
	for i := range s.Entries {
		if s.Entries[i].StudentRef == studentRef {
			return &s.Entries[i]
		}
	}
	return nil
}

// Recount recomputes the derived counters from the entry list.
func (s *Session) Recount() {
	s.TotalStudents = len(s.Entries)
	s.PresentCount, s.AbsentCount, s.LateCount = 0, 0, 0
	for _, e := range s.Entries {
		switch e.Status {
		case EntryPresent:
			s.PresentCount++
		case EntryAbsent:
			s.AbsentCount++
		case EntryLate:
			s.LateCount++
		}
	}
}

func isEntryStatus(status string) bool {
	for _, st := range entryStatuses {
		if st == status {
			return true
		}
	}
	return false
}

// DateOf normalizes a timestamp to its calendar day in UTC.
func DateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Stats is the teacher/class dashboard aggregate over finalized sessions.
type Stats struct {
	OverallAttendancePercent int `json:"overall_attendance_percent"`
	PresentToday             int `json:"present_today"`
	AverageClassSize         int `json:"average_class_size"`
	FinalizedSessions        int `json:"finalized_sessions"`
}

// StatsScope selects the sessions feeding Stats: exactly one of ClassRef or
// TeacherRef, plus an inclusive date range.
type StatsScope struct {
	ClassRef   string    `json:"class_ref,omitempty" query:"class_ref"`
	TeacherRef string    `json:"teacher_ref,omitempty" query:"teacher_ref"`
	DateFrom   time.Time `json:"date_from" query:"date_from"`
	DateTo     time.Time `json:"date_to" query:"date_to"`
}

// Inputs

type OpenSession struct {
	ClassRef   string    `json:"class_ref" validate:"required"`
	SubjectRef string    `json:"subject_ref" validate:"required"`
	Date       time.Time `json:"date" validate:"required"`
	Period     int       `json:"period" validate:"required,gte=1"`
}

func (os *OpenSession) Validate(validate *validator.Validate, translator ut.Translator) error {
	os.ClassRef = core.CleanString(os.ClassRef)
	os.SubjectRef = core.CleanString(os.SubjectRef)
	return validate.Struct(os)
}

type MarkEntry struct {
	StudentRef  string    `json:"student_ref" validate:"required"`
	Status      string    `json:"status" validate:"required,oneof=present absent late excused"`
	ArrivalTime null.Time `json:"arrival_time"`
	Remarks     string    `json:"remarks"`
}

func (me *MarkEntry) Validate(validate *validator.Validate, translator ut.Translator) error {
	me.StudentRef = core.CleanString(me.StudentRef)
	me.Status = core.CleanString(me.Status, true /* lower */)
	me.Remarks = core.CleanString(me.Remarks)
	return validate.Struct(me)
}
