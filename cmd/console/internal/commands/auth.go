package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jrsteele09/go-platform-console/navigation"
	"github.com/jrsteele09/go-platform-console/session"
	"github.com/jrsteele09/go-platform-console/users"
	"github.com/pkg/errors"
)

var errNotLoggedIn = errors.New("not logged in, run `console login` first")

type LoginCmd struct {
	Email    string `arg:"" help:"Email address"`
	Password string `help:"Password, read from stdin when omitted" env:"CONSOLE_PASSWORD"`
}

func (l *LoginCmd) Run(ctx context.Context, globals *Globals) error {
	password, err := passwordOrPrompt(l.Password, globals.out())
	if err != nil {
		return err
	}

	c, err := globals.open(ctx)
	if err != nil {
		return err
	}
	defer c.close()

	// An earlier session is resolved first so the login replaces it cleanly
	if _, err := c.bootstrap(ctx); err != nil {
		return err
	}

	snap, err := c.sessions.Login(ctx, users.Credentials{Email: l.Email, Password: password})
	if err != nil {
		return errors.Wrap(err, "login")
	}
	c.selection.Wait()

	printWelcome(globals.out(), c, snap)
	return nil
}

type RegisterCmd struct {
	Email     string `arg:"" help:"Email address"`
	FirstName string `required:"" help:"First name"`
	LastName  string `required:"" help:"Last name"`
	Password  string `help:"Password, read from stdin when omitted" env:"CONSOLE_PASSWORD"`
}

func (r *RegisterCmd) Run(ctx context.Context, globals *Globals) error {
	password, err := passwordOrPrompt(r.Password, globals.out())
	if err != nil {
		return err
	}

	c, err := globals.open(ctx)
	if err != nil {
		return err
	}
	defer c.close()

	if _, err := c.bootstrap(ctx); err != nil {
		return err
	}

	snap, err := c.sessions.Register(ctx, users.Registration{
		Email:     r.Email,
		Password:  password,
		FirstName: r.FirstName,
		LastName:  r.LastName,
	})
	if err != nil {
		return errors.Wrap(err, "register")
	}
	c.selection.Wait()

	printWelcome(globals.out(), c, snap)
	return nil
}

type LogoutCmd struct{}

func (l *LogoutCmd) Run(ctx context.Context, globals *Globals) error {
	c, err := globals.open(ctx)
	if err != nil {
		return err
	}
	defer c.close()

	// No bootstrap: logging out must work without the API
	c.sessions.Logout()
	fmtLine(globals.out(), "Logged out")
	return nil
}

type WhoamiCmd struct {
	Offline bool `help:"Print the stored user without contacting the API"`
}

func (w *WhoamiCmd) Run(ctx context.Context, globals *Globals) error {
	c, err := globals.open(ctx)
	if err != nil {
		return err
	}
	defer c.close()

	out := globals.out()
	if w.Offline {
		user, ok := c.sessions.PersistedUser()
		if !ok {
			fmtLine(out, "Not logged in")
			return nil
		}
		fmtLine(out, "%s (%s) [stored]", displayName(user), user.Role)
		return nil
	}

	snap, err := c.bootstrap(ctx)
	if err != nil {
		return err
	}
	if !snap.IsAuthenticated() {
		fmtLine(out, "Not logged in")
		return nil
	}
	fmtLine(out, "%s (%s)", displayName(snap.User), snap.User.Role)
	return nil
}

type LandingCmd struct{}

func (l *LandingCmd) Run(ctx context.Context, globals *Globals) error {
	c, err := globals.open(ctx)
	if err != nil {
		return err
	}
	defer c.close()

	snap, err := c.bootstrap(ctx)
	if err != nil {
		return err
	}
	fmtLine(globals.out(), "%s", navigation.ResolveLanding(snap, c.selection.View()))
	c.notice(globals.out())
	return nil
}

func printWelcome(out io.Writer, c *console, snap session.Snapshot) {
	fmtLine(out, "Logged in as %s (%s)", displayName(snap.User), snap.User.Role)
	view := c.selection.View()
	if p, ok := view.SelectedPlatform(); ok {
		fmtLine(out, "Platform: %s (%s)", p.Name, p.Status)
	}
	fmtLine(out, "Landing: %s", navigation.ResolveLanding(snap, view))
	c.notice(out)
}

func displayName(u *users.User) string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return fmt.Sprintf("%s <%s>", name, u.Email)
}

func passwordOrPrompt(password string, out io.Writer) (string, error) {
	if password != "" {
		return password, nil
	}
	fmt.Fprint(out, "Password: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", errors.Wrap(err, "read password")
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func fmtLine(out io.Writer, format string, args ...any) {
	fmt.Fprintf(out, format+"\n", args...)
}
