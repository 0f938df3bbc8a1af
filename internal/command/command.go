// Package command implements the tmplstream command line.
package command

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/tmplstream"
	"github.com/hashicorp/tmplstream/engine"
	"github.com/hashicorp/tmplstream/engine/gotemplate"
	"github.com/hashicorp/tmplstream/engine/handlebars"
	"github.com/hashicorp/tmplstream/engine/pongo"
	"github.com/hashicorp/tmplstream/events"
	"github.com/hashicorp/tmplstream/internal/config"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
)

// Defaults is the single source of flag defaults.
var Defaults = config.DefaultConfig()

// Command is the root command.
var Command = &cli.Command{
	Name:     "tmplstream",
	Usage:    "render streams of templates",
	Commands: []*cli.Command{renderCommand},
}

var renderCommand = &cli.Command{
	Name:   "render",
	Usage:  "render templates into an output directory",
	Action: renderAction,
	Flags: append([]cli.Flag{
		&cli.StringFlag{Name: "config", Usage: "YAML or JSON config file"},
		&cli.StringFlag{Name: "templates", Value: Defaults.Templates,
			Usage: "template directory or glob pattern"},
		&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Value: Defaults.Output,
			Usage: "output directory"},
		&cli.StringFlag{Name: "ext", Usage: "replace the extension of rendered files"},
		&cli.StringSliceFlag{Name: "data", Usage: "data files (JSON, YAML, TOML), merged in order"},
		&cli.StringFlag{Name: "partials", Usage: "partials directory"},
		&cli.StringFlag{Name: "helpers", Usage: "helpers directory (.go helper modules)"},
		&cli.StringFlag{Name: "engine", Value: Defaults.Engine,
			Usage: "handlebars, gotemplate or pongo"},
		&cli.StringFlag{Name: "filter", Usage: "only render items matching this expression"},
		&cli.StringSliceFlag{Name: "deny", Usage: "gotemplate builtins to disable, e.g. env"},
		&cli.IntFlag{Name: "buffer", Value: int64(Defaults.Buffer), Usage: "output buffer size"},
		&cli.BoolFlag{Name: "backup", Usage: "keep a .bak copy of overwritten files"},
		&cli.BoolFlag{Name: "dry-run", Usage: "report without writing"},
		&cli.StringFlag{Name: "log-level", Value: Defaults.LogLevel},
		&cli.StringFlag{Name: "consul-address"},
		&cli.StringFlag{Name: "consul-namespace"},
		&cli.StringFlag{Name: "consul-token"},
		&cli.StringFlag{Name: "consul-partials", Usage: "KV prefix holding partials"},
		&cli.StringFlag{Name: "consul-data", Usage: "KV key holding data"},
		&cli.StringFlag{Name: "vault-address"},
		&cli.StringFlag{Name: "vault-namespace"},
		&cli.StringFlag{Name: "vault-token"},
		&cli.StringFlag{Name: "vault-data", Usage: "secret path read as data"},
	}, append(tlsFlags("consul"), tlsFlags("vault")...)...),
}

// tlsFlags are the flags of a config.TLSConfig under prefix.
func tlsFlags(prefix string) []cli.Flag {
	name := func(s string) string { return prefix + "-tls-" + s }
	return []cli.Flag{
		&cli.BoolFlag{Name: name("enabled"), Usage: "use https for " + prefix},
		&cli.StringFlag{Name: name("ca-cert"), Usage: "CA certificate file"},
		&cli.StringFlag{Name: name("ca-path"), Usage: "directory of CA certificates"},
		&cli.StringFlag{Name: name("cert"), Usage: "client certificate file"},
		&cli.StringFlag{Name: name("key"), Usage: "client key file"},
		&cli.StringFlag{Name: name("server-name"), Usage: "server name to verify"},
		&cli.BoolFlag{Name: name("insecure"), Usage: "skip certificate verification"},
	}
}

func renderAction(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(config.LoadInput{
		Command: cmd,
		Path:    cmd.String("config"),
	})
	if err != nil {
		return err
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "tmplstream",
		Level:  hclog.LevelFromString(cfg.LogLevel),
		Output: os.Stderr,
	})
	return Run(ctx, cfg, logger, cmd.Root().Writer)
}

// Run renders the configured templates. It returns an error when any item
// failed.
func Run(ctx context.Context, cfg *config.Config, logger hclog.Logger, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}

	clients, err := newClients(cfg)
	if err != nil {
		return err
	}
	defer clients.Stop()

	eng, err := newEngine(cfg.Engine, cfg.Deny)
	if err != nil {
		return err
	}

	remote := tmplstream.NewRemote(tmplstream.RemoteInput{
		Clients:      clients,
		EventHandler: eventLogger(logger.Named("remote")),
	})

	tr := tmplstream.NewTransform(tmplstream.TransformInput{
		Data:         dataSource(cfg, remote),
		Partials:     partialSource(cfg, remote),
		Helpers:      helperSource(cfg),
		Engine:       eng,
		Filter:       cfg.Filter,
		BufferSize:   cfg.Buffer,
		Logger:       logger,
		EventHandler: eventLogger(logger.Named("events")),
	})
	defer tr.Stop()

	var backup tmplstream.BackupFunc
	if cfg.Backup {
		backup = tmplstream.Backup
	}
	fr := tmplstream.NewFileRenderer(tmplstream.FileRendererInput{
		Dir:            cfg.Output,
		Ext:            cfg.Ext,
		CreateDestDirs: true,
		Backup:         backup,
		DryRun:         cfg.DryRun,
	})

	results, errs := fr.Consume(tr.Stream(ctx, templateSource(cfg.Templates)))
	rendered := 0
	for _, r := range results {
		if r.WouldRender {
			fmt.Fprintln(out, r.Path)
		}
		if r.DidRender {
			rendered++
		}
	}
	for _, err := range errs {
		logger.Error("item failed", "error", err)
	}
	logger.Info("done", "items", len(results), "rendered", rendered, "failed", len(errs))

	if len(errs) > 0 {
		return cli.Exit(fmt.Sprintf("%d item(s) failed", len(errs)), 1)
	}
	return nil
}

func newClients(cfg *config.Config) (*tmplstream.ClientSet, error) {
	clients := tmplstream.NewClientSet()
	if cfg.Consul.Address != "" {
		err := clients.AddConsul(tmplstream.ConsulInput{
			Address:   cfg.Consul.Address,
			Namespace: cfg.Consul.Namespace,
			Token:     cfg.Consul.Token,
			TLS:       tlsInput(cfg.Consul.TLS),
		})
		if err != nil {
			return nil, errors.Wrap(err, "consul")
		}
	}
	if cfg.Vault.Address != "" {
		err := clients.AddVault(tmplstream.VaultInput{
			Address:   cfg.Vault.Address,
			Namespace: cfg.Vault.Namespace,
			Token:     cfg.Vault.Token,
			TLS:       tlsInput(cfg.Vault.TLS),
		})
		if err != nil {
			clients.Stop()
			return nil, errors.Wrap(err, "vault")
		}
	}
	return clients, nil
}

func tlsInput(c config.TLSConfig) tmplstream.TLSInput {
	return tmplstream.TLSInput{
		Enabled:    c.Enabled,
		CACert:     c.CACert,
		CAPath:     c.CAPath,
		Cert:       c.Cert,
		Key:        c.Key,
		ServerName: c.ServerName,
		Insecure:   c.Insecure,
	}
}

func newEngine(name string, deny []string) (engine.Engine, error) {
	switch strings.ToLower(name) {
	case "", "handlebars", "hbs":
		return handlebars.New(), nil
	case "gotemplate", "go":
		return gotemplate.New(gotemplate.Input{Deny: deny}), nil
	case "pongo", "pongo2", "django":
		return pongo.New(), nil
	}
	return nil, fmt.Errorf("unknown engine %q", name)
}

// templateSource walks a directory or expands a glob.
func templateSource(s string) tmplstream.ItemSource {
	if fi, err := os.Stat(s); err == nil && fi.IsDir() {
		return tmplstream.DirItems(s, "")
	}
	return tmplstream.GlobItems(s)
}

func dataSource(cfg *config.Config, remote *tmplstream.Remote) tmplstream.Source {
	var sources []tmplstream.Deferred
	for _, path := range cfg.Data {
		sources = append(sources, tmplstream.DataFile(path))
	}
	if cfg.Consul.Data != "" {
		sources = append(sources, remote.ConsulData(cfg.Consul.Data))
	}
	if cfg.Vault.Data != "" {
		sources = append(sources, remote.VaultData(cfg.Vault.Data))
	}
	if len(sources) == 0 {
		return tmplstream.Value(nil)
	}
	return tmplstream.Defer(tmplstream.MergeData(sources...))
}

func partialSource(cfg *config.Config, remote *tmplstream.Remote) *tmplstream.Collection {
	var srcs []tmplstream.ItemSource
	if cfg.Partials != "" {
		srcs = append(srcs, tmplstream.DirItems(cfg.Partials, ""))
	}
	if cfg.Consul.Partials != "" {
		srcs = append(srcs, remote.ConsulKeys(cfg.Consul.Partials))
	}
	if len(srcs) == 0 {
		return nil
	}
	return tmplstream.Sequence(tmplstream.Concat(srcs...))
}

func helperSource(cfg *config.Config) *tmplstream.Collection {
	if cfg.Helpers == "" {
		return nil
	}
	return tmplstream.Sequence(tmplstream.DirItems(cfg.Helpers, ""))
}

// eventLogger traces every event.
func eventLogger(logger hclog.Logger) events.EventHandler {
	return func(e events.Event) {
		switch ev := e.(type) {
		case events.RetryAttempt:
			logger.Warn("retrying", "id", ev.ID, "attempt", ev.Attempt,
				"sleep", ev.Sleep, "error", ev.Error)
		case events.MaxRetries:
			logger.Error("retry limit reached", "id", ev.ID, "count", ev.Count)
		default:
			logger.Trace("event", "type", fmt.Sprintf("%T", e), "event", fmt.Sprintf("%+v", e))
		}
	}
}
