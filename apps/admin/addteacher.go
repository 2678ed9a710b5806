package main

import (
	"context"
	"time"

	"github.com/mwalimu/darasa/core"
	"github.com/mwalimu/darasa/core/user"
)

// addTeacher updates or creates a teacher account.
func (cli *commandLine) addTeacher(name, email, subject, pwd string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)
	subject = core.CleanString(subject)

	now := time.Now().UTC()
	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		usr = user.User{
			Email:     email,
			CreatedAt: now,
		}
	}
	usr.Name = name
	usr.Role = user.RoleTeacher
	if subject != "" {
		usr.Subject = &subject
	}
	usr.UpdatedAt = now
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}

	if usr.ID == 0 {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	}
	return err
}
