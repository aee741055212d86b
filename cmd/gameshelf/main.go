package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sameehj/gameshelf/pkg/config"
	"github.com/sameehj/gameshelf/pkg/env"
	"github.com/sameehj/gameshelf/pkg/game"
	"github.com/sameehj/gameshelf/pkg/launch"
	"github.com/sameehj/gameshelf/pkg/logging"
	"github.com/sameehj/gameshelf/pkg/scan"
	"github.com/sameehj/gameshelf/pkg/settings"
	"github.com/sameehj/gameshelf/pkg/steam"
	"github.com/sameehj/gameshelf/pkg/system"
	"github.com/sameehj/gameshelf/pkg/track"
	"github.com/sameehj/gameshelf/pkg/version"
	"github.com/sameehj/gameshelf/server"
)

var cfgFile string

func main() {
	_ = env.LoadFromDir(".")

	root := &cobra.Command{
		Use:     "gameshelf",
		Short:   "Folder-first game library and launcher",
		Version: version.String(),
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.gameshelf/config.yaml)")

	root.AddCommand(serveCmd())
	root.AddCommand(gamesCmd())
	root.AddCommand(launchCmd())
	root.AddCommand(doctorCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig honors --config when given and otherwise picks up the
// default config file only if it exists.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if p := config.DefaultConfigPath(); fileExists(p) {
			path = p
		}
	}
	return config.LoadConfig(path)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func buildLibrary(cfg *config.Config) *game.Library {
	return &game.Library{
		Root: cfg.GamesRoot,
		Scanner: &scan.Scanner{
			ImageExts: cfg.Scan.ImageExts,
			ExecExts:  cfg.Scan.ExecExts,
			MaxDepth:  cfg.Scan.MaxDepth,
		},
		MetaFile:     cfg.Scan.MetaFile,
		IgnoreFile:   cfg.Scan.IgnoreFile,
		TargetAspect: cfg.Scan.TargetAspect,
	}
}

// resolveGame accepts either a game ID or a plain folder name.
func resolveGame(lib *game.Library, ref string) (game.Game, error) {
	if g, err := lib.Get(ref); err == nil {
		return g, nil
	}
	if g, err := lib.Get(game.EncodeID(ref)); err == nil {
		return g, nil
	}
	return game.Game{}, fmt.Errorf("game not found: %s", ref)
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the library server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Bind = addr
			}
			info, err := os.Stat(cfg.GamesRoot)
			if err != nil || !info.IsDir() {
				return fmt.Errorf("games root %s does not exist", cfg.GamesRoot)
			}

			logger := logging.New(cfg.LogLevel, cfg.LogFormat)
			supervisor := track.NewSupervisor(logger)
			srv := server.New(cfg, buildLibrary(cfg), supervisor, logger)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.Start(ctx, srv, cfg.Bind)
			}()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			fmt.Printf("gameshelf listening on http://%s\n", cfg.Bind)
			select {
			case err := <-errCh:
				return err
			case <-sigCh:
				cancel()
				<-errCh
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func gamesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "games", Short: "Game library"}
	cmd.AddCommand(gamesListCmd())
	cmd.AddCommand(gamesShowCmd())
	return cmd
}

func gamesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List games under the root",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			for _, g := range buildLibrary(cfg).Games() {
				status := ""
				if track.Running(g.Folder) {
					status = "\trunning"
				}
				fmt.Printf("%s\t%s%s\n", g.ID, g.Meta.Title, status)
			}
			return nil
		},
	}
}

func gamesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show GAME",
		Short: "Show one game with detected files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			g, err := resolveGame(buildLibrary(cfg), args[0])
			if err != nil {
				return err
			}

			fmt.Printf("Title: %s\nID: %s\nFolder: %s\nSandbox: %s\n",
				g.Meta.Title, g.ID, g.Folder, g.Meta.Sandboxed)
			if g.Meta.CoverImage != "" {
				fmt.Printf("Cover: %s\n", g.Meta.CoverImage)
			}
			if len(g.Meta.Launchers) > 0 {
				fmt.Println("Launchers:")
				for _, l := range g.Meta.Launchers {
					line := "  " + l.ID + "\t" + l.Name + "\t" + l.RelPath
					if l.Args != "" {
						line += " " + l.Args
					}
					if l.ID == g.Meta.LastLauncher {
						line += "\t(last used)"
					}
					fmt.Println(line)
				}
			}
			if len(g.Execs) > 0 {
				fmt.Println("Detected executables:")
				for _, e := range g.Execs {
					fmt.Println("  " + e)
				}
			}
			if len(g.Images) > 0 {
				fmt.Println("Detected images:")
				for _, img := range g.Images {
					fmt.Println("  " + img)
				}
			}
			if track.Running(g.Folder) {
				fmt.Println("Status: running")
			} else if rec, ok := track.ReadExit(g.Folder); ok {
				if rec.Exit != nil {
					fmt.Printf("Last exit: %d\n", *rec.Exit)
				} else {
					fmt.Println("Last exit: unknown")
				}
			}
			return nil
		},
	}
}

func launchCmd() *cobra.Command {
	var sandbox, noSandbox bool

	cmd := &cobra.Command{
		Use:   "launch GAME [LAUNCHER]",
		Short: "Launch a game and wait for it to exit",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			g, err := resolveGame(buildLibrary(cfg), args[0])
			if err != nil {
				return err
			}

			ref := ""
			if len(args) == 2 {
				ref = args[1]
			}
			l, ok := g.Meta.ResolveLauncher(ref)
			if !ok {
				switch {
				case len(g.Meta.Launchers) == 0:
					return fmt.Errorf("no launchers configured for %s", g.Meta.Title)
				case ref != "":
					return fmt.Errorf("launcher %q not found", ref)
				default:
					return fmt.Errorf("%s has %d launchers, name one", g.Meta.Title, len(g.Meta.Launchers))
				}
			}

			mode := g.Meta.Sandboxed.Effective(settings.Load(cfg.GamesRoot).DefaultSandboxed)
			if sandbox {
				mode = true
			}
			if noSandbox {
				mode = false
			}

			logger := logging.New(cfg.LogLevel, cfg.LogFormat)
			supervisor := track.NewSupervisor(logger)
			resolver := &launch.Resolver{
				Profile: system.Detect(),
				Box:     cfg.Sandbox.Box,
				Spawner: supervisor,
				Logger:  logger,
			}

			res := resolver.Launch(launch.Request{
				Folder:  g.Folder,
				RelPath: l.RelPath,
				Args:    l.Args,
				Sandbox: mode,
			})
			if !res.OK {
				return errors.New(res.Message)
			}

			g.Meta.LastLauncher = l.ID
			if err := game.SaveMeta(g.Folder, cfg.Scan.MetaFile, g.Meta); err != nil {
				fmt.Fprintln(os.Stderr, err)
			}
			fmt.Println(res.Message)

			// Stay alive until the game exits so the exit record lands.
			supervisor.Wait()
			return nil
		},
	}

	cmd.Flags().BoolVar(&sandbox, "sandbox", false, "force sandboxed launch")
	cmd.Flags().BoolVar(&noSandbox, "no-sandbox", false, "force normal launch")
	return cmd
}

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Show host capabilities and library status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			profile := system.Detect()

			fmt.Printf("OS: %s\nDistro: %s %s\nKernel: %s\nArch: %s\nShell: %s\n",
				profile.OS, profile.Distro, profile.Version, profile.Kernel, profile.Arch, profile.Shell)
			fmt.Printf("WSL available: %v\n", profile.WSL)
			fmt.Printf("Git Bash: %s\n", orNotFound(profile.GitBash))
			fmt.Printf("Sandboxie: %s\n", orNotFound(profile.Sandboxie))
			fmt.Printf("Shell wrapper: %s\n", orNotFound(profile.ShellWrapper))

			fmt.Printf("Games root: %s\n", cfg.GamesRoot)
			fmt.Printf("Games found: %d\n", len(buildLibrary(cfg).Games()))

			libs, err := steam.Libraries()
			switch {
			case err != nil:
				fmt.Printf("Steam: %v\n", err)
			case len(libs) == 0:
				fmt.Println("Steam: not found")
			default:
				for _, sl := range libs {
					fmt.Printf("Steam library: %s (%d apps)\n", sl.Path, len(sl.Apps))
				}
			}
			return nil
		},
	}
}

func orNotFound(s string) string {
	if s == "" {
		return "not found"
	}
	return s
}
