package main

import (
	"log/slog"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/jsdocpreview/cmd/jsdocpreview/commands"
	ferrors "git.home.luguber.info/inful/jsdocpreview/internal/foundation/errors"
	"git.home.luguber.info/inful/jsdocpreview/internal/version"
)

func main() {
	cli := &commands.CLI{}
	ctx := kong.Parse(cli,
		kong.Name("jsdocpreview"),
		kong.Description("Regenerate jsdoc output on save and serve a live-reload preview."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	err := ctx.Run(&commands.Global{Logger: slog.Default()}, cli)
	ferrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
}
