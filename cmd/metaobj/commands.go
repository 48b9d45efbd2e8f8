package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"gopkg.in/urfave/cli.v1"

	"github.com/chazu/metaobject/catalog"
	"github.com/chazu/metaobject/meta"
	"github.com/chazu/metaobject/server"
)

var (
	remoteFlag = cli.StringFlag{
		Name:  "remote",
		Usage: "Base URL of a metaobj server (e.g. http://localhost:4010)",
	}
	catalogFlag = cli.BoolFlag{
		Name:  "catalog",
		Usage: "Read the class from the catalog instead of the process registry",
	}
	addrFlag = cli.StringFlag{
		Name:  "addr",
		Usage: "Listen address (default from [server] addr)",
	}
	connectionFlag = cli.StringFlag{
		Name:  "connection",
		Usage: "Connection type: auto, direct, queued or blocking",
		Value: "auto",
	}
	nameFlag = cli.StringFlag{
		Name:  "name",
		Usage: "Object name for the created instance",
	}
	ctorFlag = cli.StringFlag{
		Name:  "ctor",
		Usage: "Comma-separated constructor arguments",
	}

	normalizeCommand = cli.Command{
		Action:    normalize,
		Name:      "normalize",
		Usage:     "Print the normalized form of method signatures",
		ArgsUsage: "<signature>...",
	}
	describeCommand = cli.Command{
		Action:    describeClass,
		Name:      "describe",
		Usage:     "Describe a class",
		ArgsUsage: "<class>",
		Flags:     []cli.Flag{remoteFlag, catalogFlag},
	}
	catalogCommand = cli.Command{
		Name:  "catalog",
		Usage: "Manage the class catalog",
		Subcommands: []cli.Command{
			{
				Action: catalogList,
				Name:   "list",
				Usage:  "List stored classes",
			},
			{
				Action:    catalogSave,
				Name:      "save",
				Usage:     "Store registered classes and their ancestors",
				ArgsUsage: "<class>...",
			},
			{
				Action:    catalogDelete,
				Name:      "delete",
				Usage:     "Remove a stored class",
				ArgsUsage: "<class>",
			},
		},
	}
	serveCommand = cli.Command{
		Action: serve,
		Name:   "serve",
		Usage:  "Serve registered classes over Connect",
		Flags:  []cli.Flag{addrFlag},
	}
	callCommand = cli.Command{
		Action:    call,
		Name:      "call",
		Usage:     "Create an object on a server and invoke a method on it",
		ArgsUsage: "<class> <method> [arg...]",
		Flags:     []cli.Flag{remoteFlag, connectionFlag, nameFlag, ctorFlag},
		Description: `
Arguments are parsed as int, double or bool when they look like one and
passed as strings otherwise. Prefix an argument with "s:" to force a
string.`,
	}
)

func normalize(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return fmt.Errorf("normalize: at least one signature is required")
	}
	for _, sig := range ctx.Args() {
		fmt.Println(meta.NormalizeSignature(sig))
	}
	return nil
}

func describeClass(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("describe: exactly one class name is required")
	}
	name := ctx.Args().First()

	var m *meta.MetaObject
	switch {
	case ctx.String("remote") != "":
		client := server.NewClient(http.DefaultClient, ctx.String("remote"))
		remote, err := client.DescribeClass(context.Background(), name)
		if err != nil {
			return err
		}
		m = remote
	case ctx.Bool("catalog"):
		cat, err := openCatalog()
		if err != nil {
			return err
		}
		defer cat.Close()
		if m, err = cat.LoadMetaObject(name); err != nil {
			return err
		}
	default:
		if m = meta.Lookup(name); m == nil {
			return fmt.Errorf("describe: class %q is not registered", name)
		}
	}
	describe(os.Stdout, m)
	return nil
}

func openCatalog() (*catalog.Catalog, error) {
	return catalog.Open(cfg.CatalogPath())
}

func catalogList(ctx *cli.Context) error {
	cat, err := openCatalog()
	if err != nil {
		return err
	}
	defer cat.Close()

	entries, err := cat.List()
	if err != nil {
		return err
	}
	for _, e := range entries {
		super := e.Super
		if super == "" {
			super = "-"
		}
		fmt.Printf("%-24s %-24s rev %d\n", e.Name, super, e.Revision)
	}
	return nil
}

func catalogSave(ctx *cli.Context) error {
	if ctx.NArg() == 0 {
		return fmt.Errorf("catalog save: at least one class name is required")
	}
	cat, err := openCatalog()
	if err != nil {
		return err
	}
	defer cat.Close()

	for _, name := range ctx.Args() {
		m := meta.Lookup(name)
		if m == nil {
			return fmt.Errorf("catalog save: class %q is not registered", name)
		}
		if err := cat.SaveChain(m); err != nil {
			return err
		}
		fmt.Printf("saved %s\n", name)
	}
	return nil
}

func catalogDelete(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("catalog delete: exactly one class name is required")
	}
	cat, err := openCatalog()
	if err != nil {
		return err
	}
	defer cat.Close()
	return cat.Delete(ctx.Args().First())
}

func serve(ctx *cli.Context) error {
	addr := cfg.Server.Addr
	if a := ctx.String("addr"); a != "" {
		addr = a
	}

	opts := []server.ServerOption{server.WithHandleTTL(cfg.Server.HandleTTL, cfg.Server.SweepInterval)}
	if len(cfg.Server.Capabilities) > 0 {
		opts = append(opts, server.WithPolicy(server.NewRestrictedPolicy(cfg.Server.Capabilities)))
	}
	srv := server.New(opts...)
	defer srv.Stop()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(sigCtx)
	g.Go(func() error { return srv.ListenAndServe(gctx, addr) })
	g.Go(func() error {
		<-gctx.Done()
		fmt.Println("shutting down")
		return nil
	})
	return g.Wait()
}

func call(ctx *cli.Context) error {
	if ctx.NArg() < 2 {
		return fmt.Errorf("call: class and method are required")
	}
	remote := ctx.String("remote")
	if remote == "" {
		remote = "http://" + cfg.Server.Addr
	}
	ct, err := meta.ParseConnectionType(ctx.String("connection"))
	if err != nil {
		return err
	}

	var ctorArgs []meta.Value
	if s := ctx.String("ctor"); s != "" {
		ctorArgs = parseArgs(strings.Split(s, ","))
	}
	args := parseArgs(ctx.Args()[2:])

	c, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client := server.NewClient(http.DefaultClient, remote)
	obj, err := client.CreateObject(c, ctx.Args().Get(0), ctx.String("name"), ctorArgs...)
	if err != nil {
		return err
	}
	defer client.ReleaseObject(c, obj.Handle)

	ret, err := client.Invoke(c, obj.Handle, ctx.Args().Get(1), ct, args...)
	if err != nil {
		return err
	}
	if ret.IsValid() {
		fmt.Printf("%v (%s)\n", ret, ret.TypeName())
	}
	return nil
}

// parseArgs boxes command-line arguments.
func parseArgs(raw []string) []meta.Value {
	out := make([]meta.Value, len(raw))
	for i, s := range raw {
		out[i] = parseArg(s)
	}
	return out
}

func parseArg(s string) meta.Value {
	if rest, ok := strings.CutPrefix(s, "s:"); ok {
		return meta.ValueOf(rest)
	}
	if n, err := strconv.Atoi(s); err == nil {
		return meta.ValueOf(n)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return meta.ValueOf(f)
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return meta.ValueOf(b)
	}
	return meta.ValueOf(s)
}
