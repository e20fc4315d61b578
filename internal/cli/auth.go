package cli

import (
	"context"
	"flag"
	"fmt"
)

func (a *app) loginCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	username := fs.String("u", "", "Username (matched case-insensitively)")
	password := fs.String("p", "", "Password (any non-empty value)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sess, err := a.sessions.Login(ctx, *username, *password)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Logged in as %s (%s)\n", sess.User.Name, sess.User.Username)
	return nil
}

func (a *app) logoutCommand() error {
	a.sessions.Logout()
	fmt.Fprintln(a.stdout, "Logged out")
	return nil
}

func (a *app) whoamiCommand() error {
	user := a.sessions.CurrentUser()
	if user == nil || !a.sessions.IsAuthenticated() {
		fmt.Fprintln(a.stdout, "Not logged in")
		return nil
	}
	fmt.Fprintf(a.stdout, "%s (%s) <%s>\n", user.Name, user.Username, user.Email)
	return nil
}
