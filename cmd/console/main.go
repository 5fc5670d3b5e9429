package main

import (
	"context"

	"github.com/alecthomas/kong"
	"github.com/jrsteele09/go-platform-console/cmd/console/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Login       commands.LoginCmd       `cmd:"" help:"Log in with email and password"`
		Register    commands.RegisterCmd    `cmd:"" help:"Create a client account and log in"`
		Logout      commands.LogoutCmd      `cmd:"" help:"Forget the stored session"`
		Whoami      commands.WhoamiCmd      `cmd:"" help:"Show the logged in user"`
		Platforms   commands.PlatformsCmd   `cmd:"" help:"List or select trading platforms"`
		Accounts    commands.AccountsCmd    `cmd:"" help:"List or select accounts of the selected platform"`
		Landing     commands.LandingCmd     `cmd:"" help:"Print the landing page for the current session"`
		Serve       commands.ServeCmd       `cmd:"" help:"Run the local web console"`
		DemoBackend commands.DemoBackendCmd `cmd:"" name:"demo-backend" help:"Serve an in-memory demo API"`

		Config    string `help:"Path to a YAML config file." type:"path" env:"CONSOLE_CONFIG"`
		StateDir  string `help:"Directory of the persisted session state." type:"path"`
		APIURL    string `name:"api-url" help:"Base URL of the platform API."`
		Ephemeral bool   `help:"Keep session state in memory only."`
		Debug     bool   `help:"Enable debug mode."`
		Version   kong.VersionFlag
	}
)

func main() {
	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("console"),
		kong.Description("Platform console session and selection client."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{
		Debug:      cli.Debug,
		Version:    version,
		ConfigPath: cli.Config,
		StateDir:   cli.StateDir,
		APIURL:     cli.APIURL,
		Ephemeral:  cli.Ephemeral,
	})
	cmd.FatalIfErrorf(err)
}
