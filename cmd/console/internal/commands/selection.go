package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/jrsteele09/go-platform-console/api"
	"github.com/pkg/errors"
)

type PlatformsCmd struct {
	List   PlatformsListCmd   `cmd:"" default:"1" help:"List platforms"`
	Select PlatformsSelectCmd `cmd:"" help:"Select a platform by id or code"`
}

type PlatformsListCmd struct {
	Refresh bool `help:"Fetch the list again before printing"`
}

func (p *PlatformsListCmd) Run(ctx context.Context, globals *Globals) error {
	c, err := globals.open(ctx)
	if err != nil {
		return err
	}
	defer c.close()

	if _, err := c.requireSession(ctx); err != nil {
		return err
	}
	if p.Refresh {
		if err := c.selection.RefreshPlatforms(ctx); err != nil {
			return errors.Wrap(err, "refresh platforms")
		}
		c.selection.Wait()
	}

	view := c.selection.View()
	out := globals.out()
	c.notice(out)
	if len(view.Platforms) == 0 {
		fmtLine(out, "No platforms linked")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tID\tCODE\tNAME\tCONNECTION\tSTATUS\tDEFAULT")
	for _, platform := range view.Platforms {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			marker(platform.ID == view.PlatformID),
			platform.ID,
			platform.Code,
			platform.Name,
			platform.ConnectionType,
			statusOrUnknown(platform.Status),
			yesNo(platform.IsDefault),
		)
	}
	return w.Flush()
}

type PlatformsSelectCmd struct {
	Platform string `arg:"" help:"Platform id or code"`
}

func (p *PlatformsSelectCmd) Run(ctx context.Context, globals *Globals) error {
	c, err := globals.open(ctx)
	if err != nil {
		return err
	}
	defer c.close()

	if _, err := c.requireSession(ctx); err != nil {
		return err
	}

	id := p.Platform
	for _, platform := range c.selection.View().Platforms {
		if platform.Code == p.Platform {
			id = platform.ID
			break
		}
	}
	if err := c.selection.SelectPlatform(id); err != nil {
		return errors.Wrapf(err, "select platform %q", p.Platform)
	}
	c.selection.Wait()

	view := c.selection.View()
	out := globals.out()
	selected, _ := view.SelectedPlatform()
	fmtLine(out, "Selected platform %s (%s)", selected.Name, statusOrUnknown(selected.Status))
	if account, ok := view.SelectedAccount(); ok {
		fmtLine(out, "Selected account %s", account.Label)
	}
	c.notice(out)
	return nil
}

type AccountsCmd struct {
	List   AccountsListCmd   `cmd:"" default:"1" help:"List accounts of the selected platform"`
	Select AccountsSelectCmd `cmd:"" help:"Select an account by id"`
}

type AccountsListCmd struct {
	Refresh bool `help:"Fetch the list again before printing"`
}

func (a *AccountsListCmd) Run(ctx context.Context, globals *Globals) error {
	c, err := globals.open(ctx)
	if err != nil {
		return err
	}
	defer c.close()

	if _, err := c.requireSession(ctx); err != nil {
		return err
	}
	if a.Refresh {
		if err := c.selection.RefreshAccounts(ctx); err != nil {
			return errors.Wrap(err, "refresh accounts")
		}
	}

	view := c.selection.View()
	out := globals.out()
	c.notice(out)
	platform, ok := view.SelectedPlatform()
	if !ok {
		fmtLine(out, "No platform selected")
		return nil
	}
	if len(view.Accounts) == 0 {
		fmtLine(out, "No accounts for %s", platform.Name)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tID\tLABEL\tKEY\tDEFAULT")
	for _, account := range view.Accounts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			marker(account.ID == view.AccountID),
			account.ID,
			account.Label,
			account.APIKeyHint,
			yesNo(account.IsDefault),
		)
	}
	return w.Flush()
}

type AccountsSelectCmd struct {
	Account string `arg:"" help:"Account id"`
}

func (a *AccountsSelectCmd) Run(ctx context.Context, globals *Globals) error {
	c, err := globals.open(ctx)
	if err != nil {
		return err
	}
	defer c.close()

	if _, err := c.requireSession(ctx); err != nil {
		return err
	}
	if err := c.selection.SelectAccount(a.Account); err != nil {
		return errors.Wrapf(err, "select account %q", a.Account)
	}

	account, _ := c.selection.View().SelectedAccount()
	fmtLine(globals.out(), "Selected account %s", account.Label)
	return nil
}

func marker(selected bool) string {
	if selected {
		return "*"
	}
	return ""
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func statusOrUnknown(s api.ConnectionStatus) string {
	if s == "" {
		return "unknown"
	}
	return string(s)
}
