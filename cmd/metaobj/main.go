// metaobj inspects and drives reflected classes: it normalizes
// signatures, describes classes, manages the class catalog and serves or
// calls the remote MetaService.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/urfave/cli.v1"

	"github.com/chazu/metaobject/config"
	_ "github.com/chazu/metaobject/examples/counter"
)

var (
	configFlag = cli.StringFlag{
		Name:  "config, c",
		Usage: "Path to metaobject.toml (default: search upwards from the working directory)",
	}
	verboseFlag = cli.IntFlag{
		Name:  "verbosity",
		Usage: "Override the log verbosity",
		Value: -100,
	}

	// cfg is loaded before any command runs.
	cfg = config.Default()
)

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "metaobj"
	app.Usage = "inspect and invoke reflected classes"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{configFlag, verboseFlag}
	app.Commands = []cli.Command{
		normalizeCommand,
		describeCommand,
		catalogCommand,
		serveCommand,
		callCommand,
	}
	sort.Sort(cli.CommandsByName(app.Commands))

	app.Before = func(ctx *cli.Context) error {
		loaded, err := loadConfig(ctx.GlobalString("config"))
		if err != nil {
			return err
		}
		if v := ctx.GlobalInt(verboseFlag.Name); v != verboseFlag.Value {
			loaded.Log.Verbosity = v
		}
		loaded.Apply()
		cfg = loaded
		return nil
	}
	return app
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.FindAndLoad(".")
	}
	if filepath.Base(path) == config.FileName {
		path = filepath.Dir(path)
	}
	return config.Load(path)
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
