package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ByLCY/folio/config"
)

// version is set by the linker.
var version = "dev"

type envKey struct{}

// env keeps everything commands need in a single place.
type env struct {
	Cfg   *config.Config
	Log   *zap.Logger
	start time.Time
}

func envFromContext(ctx context.Context) *env {
	if e, ok := ctx.Value(envKey{}).(*env); ok {
		return e
	}
	panic("env not found in context")
}

func contextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, &env{Log: zap.NewNop(), start: time.Now()})
}

// initializeAppContext runs after the command line has been parsed.
func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.NArg() == 0 {
		return ctx, nil
	}
	e := envFromContext(ctx)

	var err error
	configFile := cmd.String("config")
	if e.Cfg, err = config.LoadConfiguration(configFile); err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}
	if cmd.Bool("debug") {
		e.Cfg.Logging.ConsoleLogger.Level = "debug"
	}
	if e.Log, err = e.Cfg.Logging.Prepare(); err != nil {
		return ctx, fmt.Errorf("unable to prepare logs: %w", err)
	}
	e.Log.Debug("Program started", zap.Strings("args", os.Args), zap.String("ver", version), zap.String("runtime", runtime.Version()))
	if len(configFile) == 0 {
		e.Log.Debug("Using defaults (no configuration file)")
	}
	return ctx, nil
}

func destroyAppContext(ctx context.Context, cmd *cli.Command) (err error) {
	e := envFromContext(ctx)
	e.Log.Debug("Program ended", zap.Duration("elapsed", time.Since(e.start)), zap.Strings("parsed args", cmd.Args().Slice()))
	if er := e.Log.Sync(); er != nil && !isStdSyncError(er) {
		err = multierr.Append(err, fmt.Errorf("unable to flush logs: %w", er))
	}
	return
}

// Syncing a terminal returns EINVAL or ENOTTY, neither is worth reporting.
func isStdSyncError(err error) bool {
	for _, e := range multierr.Errors(err) {
		if !errors.Is(e, syscall.EINVAL) && !errors.Is(e, syscall.ENOTTY) && !errors.Is(e, syscall.EBADF) {
			return false
		}
	}
	return true
}

var errWasHandled bool

func exitErrHandler(ctx context.Context, _ *cli.Command, err error) {
	e := envFromContext(ctx)
	if e.Cfg != nil {
		e.Log.Error("Program ended with error", zap.Error(err))
		errWasHandled = true
	}
}

func usageErrorHandler(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return err
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:            config.AppName,
		Usage:           "paginated preview engine for thesis documents",
		Version:         version + " (" + runtime.Version() + ")",
		HideHelpCommand: true,
		Before:          initializeAppContext,
		After:           destroyAppContext,
		OnUsageError:    usageErrorHandler,
		ExitErrHandler:  exitErrHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "log debug messages to console"},
		},
		Commands: []*cli.Command{
			{
				Name:         "render",
				Usage:        "Paginates a document and writes the PDF preview",
				OnUsageError: usageErrorHandler,
				Action:       renderDocument,
				ArgsUsage:    "SOURCE [DESTINATION]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "assets", Usage: "resolve relative figure paths against `DIR` (default: directory of SOURCE)"},
					&cli.StringFlag{Name: "layout-json", Usage: "also write the pagination result to `FILE`"},
				},
				CustomHelpTemplate: fmt.Sprintf(`%s
SOURCE:
    project file (.json) with content, settings and registries, or a plain
    text document paginated with the configured layout settings

DESTINATION:
    PDF file name, if absent - SOURCE with .pdf extension
`, cli.CommandHelpTemplate),
			},
			{
				Name:         "pages",
				Usage:        "Prints the page breakdown of a document",
				OnUsageError: usageErrorHandler,
				Action:       listPages,
				ArgsUsage:    "SOURCE",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "print the full pagination result as JSON"},
				},
			},
			{
				Name:         "renumber",
				Usage:        "Renumbers figure and table references by chapter",
				OnUsageError: usageErrorHandler,
				Action:       renumberProject,
				ArgsUsage:    "PROJECT",
			},
			{
				Name:         "figure",
				Usage:        "Uploads an image and appends a figure reference to the project",
				OnUsageError: usageErrorHandler,
				Action:       insertFigure,
				ArgsUsage:    "PROJECT IMAGE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "caption", Required: true, Usage: "figure caption"},
					&cli.FloatFlag{Name: "scale", Value: 100, Usage: "width as `PERCENT` of the text width"},
					&cli.StringFlag{Name: "assets", Usage: "store uploads in `DIR` (default: uploads next to PROJECT)"},
				},
			},
			{
				Name:         "cite",
				Usage:        "Adds a bibliography entry or lists the bibliography",
				OnUsageError: usageErrorHandler,
				Action:       citeProject,
				ArgsUsage:    "PROJECT",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "author"},
					&cli.StringFlag{Name: "year"},
					&cli.StringFlag{Name: "title"},
					&cli.StringFlag{Name: "publisher"},
					&cli.StringFlag{Name: "url"},
					&cli.StringFlag{Name: "type", Usage: "citation `TYPE` (default: book)"},
				},
			},
			{
				Name:         "check",
				Usage:        "Reports missing spaces after punctuation and LaTeX the exporter cannot draw",
				OnUsageError: usageErrorHandler,
				Action:       checkDocument,
				ArgsUsage:    "SOURCE",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "fix", Usage: "insert the missing spaces and save SOURCE"},
					&cli.BoolFlag{Name: "json", Usage: "print the issues as JSON"},
				},
			},
			{
				Name:         "abbr",
				Usage:        "Manages the list of abbreviations and symbols",
				OnUsageError: usageErrorHandler,
				Action:       abbreviationsProject,
				ArgsUsage:    "PROJECT",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "abbr", Usage: "abbreviation or symbol to add"},
					&cli.StringFlag{Name: "full", Usage: "full form of the entry"},
					&cli.BoolFlag{Name: "symbol", Usage: "store the entry as a symbol"},
					&cli.StringFlag{Name: "update", Usage: "replace the entry with `ID` instead of adding"},
					&cli.StringFlag{Name: "delete", Usage: "delete the entry with `ID`"},
					&cli.StringFlag{Name: "import", Usage: "import entries from JSON `FILE`"},
					&cli.BoolFlag{Name: "replace", Usage: "replace the list on import instead of appending"},
					&cli.StringFlag{Name: "export", Usage: "write the list to JSON `FILE`"},
				},
			},
			{
				Name:         "dumpconfig",
				Usage:        "Dumps either default or actual configuration (YAML)",
				OnUsageError: usageErrorHandler,
				Action:       outputConfiguration,
				ArgsUsage:    "DESTINATION",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "default", Usage: "output default embedded configuration"},
				},
			},
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(contextWithEnv(context.Background()), os.Interrupt, syscall.SIGTERM)

	var err error
	defer func() {
		stop()
		if err != nil {
			if !errWasHandled {
				fmt.Fprintf(os.Stderr, "Program ended with error: %v\n", err)
			}
			os.Exit(1)
		}
	}()
	err = newApp().Run(ctx, os.Args)
}
