package main

import (
	"context"
	"fmt"

	"github.com/textmine/backend/core"
	"github.com/textmine/backend/core/user"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	uu := user.UpdateUser{Password: pwd, PasswordConfirm: pwd}
	if err := cli.validate.Struct(uu); err != nil {
		return core.TranslateValidationErrors(err, cli.translator)
	}

	usr, err := cli.usrSvc.SetPassword(context.Background(), email, pwd)
	if err != nil {
		return err
	}
	fmt.Printf("password of %s updated\n", usr.Email)
	return nil
}
