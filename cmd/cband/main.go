package main

import (
	"context"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path"
	"syscall"

	"github.com/relaymesh/cband/internal/cband"
	"github.com/relaymesh/cband/irc"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

//go:embed cband/config
var cfgTemplate embed.FS

// Values swapped in by go-releaser at build time
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

type options struct {
	netInterface string
	port         int
	configDir    string
	logLevel     string
	logFile      string
	init         bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options

	rootCmd := &cobra.Command{
		Use:           "cband",
		Short:         "IRC relay server with replicated channel bans",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT, os.Interrupt)
			defer stop()

			return run(ctx, opts)
		},
	}

	rootCmd.Flags().StringVar(&opts.netInterface, "interface", "", "IP addr of interface to listen on.  Defaults to all interfaces.")
	rootCmd.Flags().IntVar(&opts.port, "bind", 6667, "Client port")
	rootCmd.Flags().StringVar(&opts.configDir, "config", findConfigPath(), "Path to config root")
	rootCmd.Flags().StringVar(&opts.logLevel, "log-level", "info", "Log level")
	rootCmd.Flags().StringVar(&opts.logFile, "log-file", "", "Path to log file")
	rootCmd.Flags().BoolVar(&opts.init, "init", false, "Populate the config dir with default configuration")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version and exit",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("cband %s, commit %s, built at %s\n", version, commit, date)
		},
	})

	return rootCmd
}

func run(ctx context.Context, opts options) error {
	slogger := cband.NewLogger(opts.logLevel, opts.logFile)

	// It's important for Windows compatibility to use path.Join and not filepath.Join for the config dir initialization.
	// https://github.com/golang/go/issues/44305
	if opts.init {
		if _, err := os.Stat(path.Join(opts.configDir, "/config.yaml")); os.IsNotExist(err) {
			if err := os.MkdirAll(opts.configDir, 0750); err != nil {
				slogger.Error(fmt.Sprintf("error creating config dir: %s", err))
				return err
			}
			if err := copyDir(path.Join("cband", "config"), opts.configDir); err != nil {
				slogger.Error(fmt.Sprintf("error copying config dir: %s", err))
				return err
			}
			slogger.Info("Config dir initialized at " + opts.configDir)
		} else {
			slogger.Info("Existing config dir found.  Skipping initialization.")
		}
	}

	config, err := cband.LoadConfig(path.Join(opts.configDir, "config.yaml"))
	if err != nil {
		slogger.Error(fmt.Sprintf("Error loading config: %v", err))
		return err
	}

	serverOpts := []irc.Option{
		irc.WithInterface(opts.netInterface),
		irc.WithLogger(slogger),
		irc.WithPort(opts.port),
		irc.WithConfig(*config),
	}

	link, err := cband.NewLink(*config, slogger)
	if err != nil {
		slogger.Error(fmt.Sprintf("Error connecting replication link: %v", err))
		return err
	}
	if link != nil {
		defer func() {
			if err := link.Close(); err != nil {
				slogger.Error("Error closing replication link", "err", err)
			}
		}()
		serverOpts = append(serverOpts, irc.WithLink(link))
	}

	srv, err := irc.NewServer(serverOpts...)
	if err != nil {
		slogger.Error(fmt.Sprintf("Error starting server: %s", err))
		return err
	}

	// Assign functions to handle specific client commands
	cband.RegisterHandlers(srv)

	slogger.Info("IRC server started",
		"version", version,
		"config", opts.configDir,
		"name", config.ServerName,
		"port", fmt.Sprintf("%s:%v", opts.netInterface, opts.port),
		"link", config.Link.Transport,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(ctx) })
	g.Go(func() error { return srv.ServeLink(ctx) })

	err = g.Wait()

	slogger.Info("IRC server stopped", "stats", srv.Stats.Values())

	return err
}

// findConfigPath returns the first directory in the config search order that exists.
func findConfigPath() string {
	for _, cfgPath := range cband.ConfigSearchOrder {
		if info, err := os.Stat(cfgPath); err == nil && info.IsDir() {
			return cfgPath
		}
	}

	return "config"
}

// copyDir copies the embedded directory src to dst.
func copyDir(src, dst string) error {
	if _, err := fs.ReadDir(cfgTemplate, src); err != nil {
		return fmt.Errorf("failed to read source directory: %w", err)
	}

	return copyDirRecursive(src, dst)
}

func copyDirRecursive(src, dst string) error {
	entries, err := fs.ReadDir(cfgTemplate, src)
	if err != nil {
		return fmt.Errorf("failed to read source directory: %w", err)
	}

	for _, entry := range entries {
		srcPath := path.Join(src, entry.Name())
		dstPath := path.Join(dst, entry.Name())

		if entry.IsDir() {
			if err := os.MkdirAll(dstPath, 0750); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
			if err := copyDirRecursive(srcPath, dstPath); err != nil {
				return err
			}
			continue
		}

		if err := copyFile(srcPath, dstPath); err != nil {
			return err
		}
	}

	return nil
}

func copyFile(src, dst string) error {
	srcFile, err := cfgTemplate.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer func() { _ = srcFile.Close() }()

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}

	if _, err := io.Copy(f, srcFile); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to copy file: %w", err)
	}

	return f.Close()
}
