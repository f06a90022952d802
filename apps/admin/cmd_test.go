package main

import (
	"database/sql"
	"fmt"
	"io/fs"
	"log"
	"os"
	"testing"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/roster"
	"github.com/trezcool/darasa/core/user"
	inmemdb "github.com/trezcool/darasa/storage/database/inmem"
)

var (
	usrSvc    user.ServiceInterface
	rosterSvc roster.ServiceInterface
)

func setup(t *testing.T) *commandLine {
	t.Helper()

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags)

	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	usrSvc = user.NewService(inmemdb.NewUserRepository(db))
	rosterSvc = roster.NewService(inmemdb.NewRosterRepository(db), &core.Config{AcademicYear: "2025-26"})

	return &commandLine{
		usrSvc:    usrSvc,
		rosterSvc: rosterSvc,
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s requires a VERSION argument", command)
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to requires a VERSION argument"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_addAdmin(t *testing.T) {
	cli := setup(t)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"addadmin"}, wantErr: errHelp},
		{name: "username but no email", args: []string{"addadmin", "-username", "boss"}, wantErr: errHelp},
		{name: "no password", args: []string{"addadmin", "-username", "boss", "-email", "boss@test.cd"}, wantErr: errHelp},
		{name: "ok", args: []string{"addadmin", "-username", "Boss", "-email", "Boss@test.cd"}, extra: extra{pwd: "s3cret"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				usr, err := usrSvc.GetByUsernameOrEmail("boss")
				if err != nil {
					t.Fatalf("GetByUsernameOrEmail() failed, %v", err)
				}
				if usr.Email != "boss@test.cd" { // lowered on the way in
					t.Errorf("addadmin stored email = %s", usr.Email)
				}
				if !usr.IsAdmin() {
					t.Errorf("addadmin created a non-admin user: roles = %v", usr.Roles)
				}
				if err := usr.CheckPassword("s3cret"); err != nil {
					t.Error("addadmin stored an unusable password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	// the username is now taken
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("s3cret"), nil }
	if err := cli.run([]string{"admin", "addadmin", "-username", "boss", "-email", "other@test.cd"}); err == nil {
		t.Error("cli.run() expected a uniqueness error")
	}
}

// recordingRoster keeps the IDs seed generates so the test can read them back.
type recordingRoster struct {
	roster.ServiceInterface
	teacherID, classID string
}

func (r *recordingRoster) CreateTeacher(nt roster.NewTeacher) (roster.Teacher, error) {
	teacher, err := r.ServiceInterface.CreateTeacher(nt)
	r.teacherID = teacher.ID
	return teacher, err
}

func (r *recordingRoster) CreateClass(nc roster.NewClass) (roster.Class, error) {
	class, err := r.ServiceInterface.CreateClass(nc)
	r.classID = class.ID
	return class, err
}

func Test_commandLine_seed(t *testing.T) {
	cli := setup(t)
	rec := &recordingRoster{ServiceInterface: cli.rosterSvc}
	cli.rosterSvc = rec

	if err := cli.run([]string{"admin", "seed"}); err != nil {
		t.Fatalf("cli.run() failed: %v", err)
	}

	classes, err := rosterSvc.TeacherClasses(rec.teacherID)
	if err != nil {
		t.Fatalf("TeacherClasses() failed: %v", err)
	}
	if len(classes) != 1 {
		t.Fatalf("seeded %d classes, want 1", len(classes))
	}
	if got := len(classes[0].Subjects); got != 3 {
		t.Errorf("seeded class has %d subjects, want 3", got)
	}

	students, err := rosterSvc.ActiveStudents(rec.classID)
	if err != nil {
		t.Fatalf("ActiveStudents() failed: %v", err)
	}
	if len(students) != 5 {
		t.Errorf("seeded %d students, want 5", len(students))
	}
}
