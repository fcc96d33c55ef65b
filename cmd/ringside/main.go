package main

import (
	"errors"
	"io/fs"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Globals

	Version kong.VersionFlag `short:"v" help:"Show version"`
	Server  ServerCmd        `cmd:"" help:"Run the match server"`
	Play    PlayCmd          `cmd:"" help:"Play against a running server"`
	Local   LocalCmd         `cmd:"" help:"Play an offline match in this terminal"`
	Token   TokenCmd         `cmd:"" help:"Issue a signed player token"`
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		_, _ = os.Stderr.WriteString("ringside: ignoring .env: " + err.Error() + "\n")
	}

	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("ringside"),
		kong.Description("Turn-based boxing matches against a bot"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}
