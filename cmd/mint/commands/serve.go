package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/livetemplate/mint/internal/config"
	"github.com/livetemplate/mint/internal/server"
	"github.com/livetemplate/mint/internal/snack"
	"github.com/livetemplate/mint/internal/store"
)

type serveOptions struct {
	dir        string
	configPath string
	port       string
	host       string
	watch      *bool
	debug      bool
	noSnack    bool
	noStore    bool
}

func parseServeFlags(args []string) (serveOptions, error) {
	opts := serveOptions{dir: "."}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "--watch", "-w":
			v := true
			opts.watch = &v
		case "--no-watch":
			v := false
			opts.watch = &v
		case "--debug", "-d":
			opts.debug = true
		case "--no-snack":
			opts.noSnack = true
		case "--no-store":
			opts.noStore = true
		case "--port", "-p", "--host", "--config", "-c":
			if i+1 >= len(args) {
				return opts, fmt.Errorf("%s requires a value", arg)
			}
			i++
			switch arg {
			case "--port", "-p":
				opts.port = args[i]
			case "--host":
				opts.host = args[i]
			default:
				opts.configPath = args[i]
			}
		default:
			if strings.HasPrefix(arg, "-") {
				return opts, fmt.Errorf("unknown flag: %s", arg)
			}
			opts.dir = arg
		}
	}
	return opts, nil
}

// loadServeConfig loads the project configuration and applies CLI overrides.
func loadServeConfig(absDir string, opts serveOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.Load(opts.configPath)
	} else {
		cfg, err = config.LoadFromDir(absDir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if opts.port != "" {
		port, err := strconv.Atoi(opts.port)
		if err != nil {
			return nil, fmt.Errorf("invalid port: %s", opts.port)
		}
		cfg.Server.Port = port
	}
	if opts.host != "" {
		cfg.Server.Host = opts.host
	}
	if opts.watch != nil {
		cfg.Features.Watch = *opts.watch
	}
	if opts.debug {
		cfg.Server.Debug = true
	}
	if opts.noSnack {
		cfg.Snack.Enabled = false
	}
	return cfg, cfg.Validate()
}

func snackClient(cfg *config.Config) *snack.Client {
	sc := snack.DefaultConfig()
	sc.Endpoint = cfg.Snack.GetEndpoint()
	sc.Timeout = cfg.Snack.GetTimeout()
	sc.CacheTTL = cfg.Snack.GetCacheTTL()
	sc.Retry.MaxRetries = cfg.Snack.GetRetryMaxRetries()
	sc.Retry.BaseDelay = cfg.Snack.GetRetryBaseDelay()
	sc.Retry.MaxDelay = cfg.Snack.GetRetryMaxDelay()
	sc.Retry.EnableLog = cfg.Server.Debug
	sc.Debug = cfg.Server.Debug
	return snack.New(sc)
}

// ServeCommand implements the serve command.
func ServeCommand(args []string) error {
	opts, err := parseServeFlags(args)
	if err != nil {
		return err
	}

	if _, err := os.Stat(opts.dir); os.IsNotExist(err) {
		return fmt.Errorf("directory does not exist: %s", opts.dir)
	}
	absDir, err := filepath.Abs(opts.dir)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}

	cfg, err := loadServeConfig(absDir, opts)
	if err != nil {
		return err
	}

	var srvOpts server.Options
	if !opts.noStore {
		st, err := store.Open(cfg.StorePath(absDir), cfg.Server.Debug)
		if err != nil {
			return err
		}
		defer st.Close()
		seeded, err := st.Seed(context.Background(), cfg.Store.Project)
		if err != nil {
			return err
		}
		if seeded {
			fmt.Printf("🌱 Seeded project %q with the starter app\n", cfg.Store.Project)
		}
		srvOpts.Store = st
	}
	if cfg.Snack.Enabled {
		srvOpts.Snack = snackClient(cfg)
		defer srvOpts.Snack.Close()
	}

	srv, err := server.New(absDir, cfg, srvOpts)
	if err != nil {
		return err
	}
	defer srv.Close()

	fmt.Printf("📱 %s\n\n", cfg.Title)
	fmt.Printf("Serving: %s\n", absDir)
	fmt.Printf("Entry:   %s (%s)\n", cfg.Editor.Entry, cfg.Editor.GetPlatform())

	if cfg.Features.Watch {
		if err := srv.EnableWatch(); err != nil {
			return fmt.Errorf("failed to enable watch mode: %w", err)
		}
		fmt.Printf("\n👀 Watch mode enabled - edits to %s are pushed to open editors\n", cfg.Editor.Entry)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("\n🌐 Editor running at http://%s\n", addr)
	if cfg.Features.Docs {
		fmt.Printf("📚 Component reference at http://%s/docs\n", addr)
	}
	if srvOpts.Snack != nil {
		fmt.Printf("🔗 Snack publishing enabled\n")
	}
	fmt.Printf("Press Ctrl+C to stop\n\n")

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Printf("[Server] Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func init() {
	log.SetFlags(0) // Remove timestamp from logs
}
