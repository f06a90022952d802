package main

import (
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

// addAdmin creates an admin user carrying every role.
func (cli *commandLine) addAdmin(uname, email, pwd string) error {
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	if err := cli.usrSvc.CheckUniqueness(uname, email); err != nil {
		return errors.Wrap(err, "checking uniqueness")
	}
	_, err := cli.usrSvc.Create(user.NewUser{
		Name:            uname,
		Username:        uname,
		Email:           email,
		Password:        pwd,
		PasswordConfirm: pwd,
		Roles:           user.AllRoles,
	})
	return errors.Wrap(err, "creating admin")
}
