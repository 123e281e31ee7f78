package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/livetemplate/mint/internal/config"
	"github.com/livetemplate/mint/internal/platform"
	"github.com/livetemplate/mint/internal/sandbox"
	"github.com/livetemplate/mint/internal/transform"
)

// documentRunner executes a preview document and reports what it posted.
type documentRunner interface {
	Run(ctx context.Context, doc *sandbox.Document) (*sandbox.Result, error)
}

// CheckFailedError reports a component that did not render.
type CheckFailedError struct {
	Path    string
	Message sandbox.Message
}

func (e *CheckFailedError) Error() string {
	if e.Message.Line > 0 {
		return fmt.Sprintf("%s: line %d, column %d: %s", e.Path, e.Message.Line, e.Message.Column, e.Message.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message.Message)
}

// CheckCommand renders a component in headless Chrome and reports whether
// it mounted.
func CheckCommand(args []string) error {
	flagSet := flag.NewFlagSet("check", flag.ContinueOnError)
	platformName := flagSet.String("platform", "", "Platform profile: ios or android (default from config)")
	remote := flagSet.String("remote", "", "DevTools URL of a running Chrome (default from config)")
	configPath := flagSet.String("config", "", "Path to mint.yaml")
	timeout := flagSet.Duration("timeout", 0, "Maximum time to wait for the component")
	verbose := flagSet.Bool("verbose", false, "Print dialogs and console output")
	flagSet.Usage = func() {
		fmt.Println("Usage: mint check [options] [file]")
		fmt.Println()
		fmt.Println("Options:")
		flagSet.PrintDefaults()
	}
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.LoadFromDir(".")
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	p := cfg.Editor.GetPlatform()
	if *platformName != "" {
		if p, err = platform.Parse(*platformName); err != nil {
			return err
		}
	}

	path := cfg.Editor.Entry
	if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	src, err := readSource(path)
	if err != nil {
		return err
	}

	builder, err := sandbox.NewBuilder(sandbox.Options{
		ReactURL:    cfg.Sandbox.ReactURL,
		ReactDOMURL: cfg.Sandbox.ReactDOMURL,
		BabelURL:    cfg.Sandbox.BabelURL,
	})
	if err != nil {
		return err
	}

	runner := &sandbox.HeadlessRunner{
		RemoteURL: cfg.Sandbox.GetRemoteChrome(),
		Timeout:   cfg.Sandbox.GetTimeout(),
	}
	if *remote != "" {
		runner.RemoteURL = *remote
	}
	if *timeout > 0 {
		runner.Timeout = *timeout
	}

	return runCheck(context.Background(), os.Stdout, runner, builder, path, src, p, *verbose)
}

func runCheck(ctx context.Context, w io.Writer, runner documentRunner, b *sandbox.Builder, path, src string, p platform.Profile, verbose bool) error {
	unit, err := transform.Transform(src)
	if err != nil {
		var terr *transform.Error
		if errors.As(err, &terr) {
			return &CheckFailedError{Path: path, Message: sandbox.Message{
				Type:    sandbox.TypeError,
				Message: terr.Message,
				Line:    terr.Line,
				Column:  terr.Column,
			}}
		}
		return err
	}

	doc, err := b.Build(1, unit, p)
	if err != nil {
		return err
	}

	res, err := runner.Run(ctx, doc)
	if err != nil {
		return fmt.Errorf("run %s: %w", path, err)
	}

	if verbose {
		for _, d := range res.Dialogs {
			fmt.Fprintf(w, "dialog: %s\n", d)
		}
		for _, c := range res.Console {
			fmt.Fprintf(w, "console: %s\n", c)
		}
	}

	outcome, ok := res.Outcome()
	if !ok {
		return fmt.Errorf("%s: %w", path, sandbox.ErrNoOutcome)
	}
	if outcome.Type == sandbox.TypeError {
		return &CheckFailedError{Path: path, Message: outcome}
	}
	if errs := res.Errors(); len(errs) > 0 {
		return &CheckFailedError{Path: path, Message: errs[0]}
	}

	fmt.Fprintf(w, "✅ %s rendered %s on %s\n", path, unit.Entry, p)
	return nil
}
