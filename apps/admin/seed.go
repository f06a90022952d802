package main

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/roster"
)

// seed loads a small demo roster: one class, three subjects with a teacher
// bound to each, and a handful of students.
func (cli *commandLine) seed() error {
	teacher, err := cli.rosterSvc.CreateTeacher(roster.NewTeacher{
		TeacherNo:  "TCH001",
		Name:       "Asha Okonkwo",
		Email:      "asha.okonkwo@example.com",
		Department: "Science",
	})
	if err != nil {
		return errors.Wrap(err, "creating teacher")
	}

	class, err := cli.rosterSvc.CreateClass(roster.NewClass{
		Grade:        "Grade 10",
		Section:      "A",
		MaxStudents:  40,
		AcademicYear: "2025-26",
	})
	if err != nil {
		return errors.Wrap(err, "creating class")
	}

	for _, s := range []roster.NewSubject{
		{Name: "Mathematics", Code: "math"},
		{Name: "English", Code: "eng"},
		{Name: "Science", Code: "sci"},
	} {
		subject, err := cli.rosterSvc.CreateSubject(s)
		if err != nil {
			return errors.Wrap(err, "creating subject")
		}
		if _, err = cli.rosterSvc.AssignTeacher(teacher.ID, class.ID, subject.ID, 5); err != nil {
			return errors.Wrap(err, "assigning teacher")
		}
	}

	names := []string{"Binta Diallo", "Chipo Moyo", "Daniel Kamau", "Esther Banda", "Farai Ncube"}
	for i, name := range names {
		_, err := cli.rosterSvc.EnrollStudent(roster.NewStudent{
			StudentNo:  fmt.Sprintf("STU%03d", i+1),
			Name:       name,
			RollNumber: fmt.Sprintf("%d", i+1),
			ClassRef:   class.ID,
		})
		if err != nil {
			return errors.Wrap(err, "enrolling student")
		}
	}

	logger.Printf("seeded class %s with %d students\n", class.Label, len(names))
	return nil
}
