package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/kingrea/droidcfg/internal/config"
	"github.com/kingrea/droidcfg/internal/configure"
	"github.com/kingrea/droidcfg/internal/tui"
	"github.com/kingrea/droidcfg/internal/watch"
)

func (c *cli) newInitCmd() *cobra.Command {
	var primary, buildDir string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create droidcfg.yaml and the .droidcfg state directory",
		Long: `Create the workspace state directory and a default droidcfg.yaml.

An existing droidcfg.yaml is left alone unless --primary or --build-dir is
given, in which case only those values are updated.

Examples:
  droidcfg init
  droidcfg init --primary mobile --build-dir ../../out`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			created, err := config.InitWorkspace(c.root)
			if err != nil {
				return err
			}
			cfg, err := config.Load(c.root)
			if err != nil {
				return err
			}
			if primary != "" {
				if err := cfg.SetPrimary(primary); err != nil {
					return err
				}
			}
			if buildDir != "" {
				if err := cfg.SetBuildDir(buildDir); err != nil {
					return err
				}
			}
			out := cmd.OutOrStdout()
			if created {
				fmt.Fprintf(out, "Created %s\n", cfg.SettingsPath())
			} else {
				fmt.Fprintf(out, "Using existing %s\n", cfg.SettingsPath())
			}
			fmt.Fprintf(out, "primary %s, build dir %s\n", cfg.Settings.Primary, cfg.Settings.BuildDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&primary, "primary", "", "project every other project evaluates after")
	cmd.Flags().StringVar(&buildDir, "build-dir", "", "shared build directory, relative to <workspace>/build")
	return cmd
}

func (c *cli) newConfigureCmd() *cobra.Command {
	var dryRun, asJSON bool
	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Resolve every project and record the result",
		Long: `Run the configuration pass over the workspace.

Projects are visited in evaluation order. Each one gets its build directory
under the shared build root and the workspace repositories. Android library
projects are pinned to the workspace compile SDK and build tools. Android
projects without a namespace get the package declared in
src/main/AndroidManifest.xml.

The resolved model is written to <build root>/.droidcfg/resolved.json unless
--dry-run is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, _, err := c.newEngine(dryRun)
			if err != nil {
				return err
			}
			report, err := engine.Run(cmd.Context())
			if err != nil {
				return err
			}
			return printReport(cmd.OutOrStdout(), report, asJSON)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "resolve without writing anything")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func (c *cli) newProjectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List discovered projects in evaluation order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, _, err := c.newEngine(true)
			if err != nil {
				return err
			}
			projects, g, err := engine.Plan()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, p := range projects {
				plugins := strings.Join(p.Plugins, ",")
				if plugins == "" {
					plugins = "-"
				}
				after := "-"
				if node, ok := g.Node(p.Path()); ok && len(node.Dependencies) > 0 {
					after = strings.Join(node.Dependencies, ",")
				}
				fmt.Fprintf(out, "%-20s %-40s after %s\n", p.Path(), plugins, after)
			}
			return nil
		},
	}
}

func (c *cli) newReportCmd() *cobra.Command {
	var useTUI, asJSON bool
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show the last recorded configuration",
		Long: `Show the configuration recorded by the last "droidcfg configure".

When nothing has been recorded yet a dry run is shown instead. --tui opens an
interactive viewer with the run history.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, cfg, err := c.newEngine(true)
			if err != nil {
				return err
			}
			load := func() (*configure.Report, error) {
				report, err := engine.LastReport()
				if err != nil || report != nil {
					return report, err
				}
				return engine.Run(cmd.Context())
			}
			report, err := load()
			if err != nil {
				return err
			}
			if !useTUI {
				return printReport(cmd.OutOrStdout(), report, asJSON)
			}
			app := tui.NewApp(report, tui.WithLogbook(existingLogbook(cfg)), tui.WithReload(load))
			p := tea.NewProgram(app,
				tea.WithAltScreen(),
				tea.WithContext(cmd.Context()),
				tea.WithOutput(cmd.OutOrStdout()),
			)
			_, err = p.Run()
			return err
		},
	}
	cmd.Flags().BoolVar(&useTUI, "tui", false, "open the interactive viewer")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func (c *cli) newCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Delete the shared build root",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			engine, err := c.newCleanEngine()
			if err != nil {
				return err
			}
			if err := engine.Clean(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", engine.Layout().Root())
			return nil
		},
	}
}

func (c *cli) newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Re-run configure whenever descriptors, settings or manifests change",
		Long: `Run the configuration pass, then watch the workspace and re-run it
after every burst of changes to droidcfg.yaml, project descriptors or
AndroidManifest.xml files. Settings are reloaded on every pass.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			w, err := watch.New(watch.Options{
				Paths: func() ([]string, error) {
					engine, _, err := c.newEngine(true)
					if err != nil {
						return nil, err
					}
					return engine.WatchPaths()
				},
				Run: func(ctx context.Context) error {
					engine, _, err := c.newEngine(false)
					if err != nil {
						return err
					}
					report, err := engine.Run(ctx)
					if err != nil {
						return err
					}
					return printReport(out, report, false)
				},
				Logger: c.logger,
			})
			if err != nil {
				return err
			}
			return w.Run(cmd.Context())
		},
	}
}

func printReport(out io.Writer, report *configure.Report, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	_, err := io.WriteString(out, tui.RenderReport(report))
	return err
}
