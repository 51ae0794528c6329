// Package main provides the entry point for the theway CLI application
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/theway/theway-go/internal/app"
	"github.com/theway/theway-go/internal/config"
	"github.com/theway/theway-go/internal/geo"
	"github.com/theway/theway-go/internal/theme"
)

// rootOptions holds the flags shared by every command
type rootOptions struct {
	configPath string
	baseURL    string
	cookie     string
	themeName  string
	exportDir  string
	overlays   []string
	listThemes bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "theway",
		Short: "theway - vessel track clustering and route planning map",
		Long: `theway - vessel track clustering and route planning map

Interactive terminal map for the clustering and route-graph backend.
Settings saved to ~/.config/theway/settings.json

Map:
  [1]/[2] then Enter or click     Pick start/end point
  [A]/[B]                         Type start/end as "lat, lon"
  [C] / [G]                       Run clustering / build route
  [D]                             Choose, refresh or delete datasets

Export:
  [S] Screenshot (HTML)           Export view as styled HTML
  [E] Legend to CSV               Export the results legend
  [Ctrl+E] Legend to JSON         Export the results legend as JSON

Examples:
  theway --base-url http://localhost:5000
  theway --theme night --overlay fairways.geojson
  theway cluster --dataset 1 --eps 0.4
  theway graph --dataset 1 --start "43.10, 131.90" --end "42.80, 132.90"
  theway datasets list`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMap(cmd, opts)
		},
	}

	// Global flags (available to all commands)
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Settings file (default ~/.config/theway/settings.json)")
	cmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", "", "Backend base URL")
	cmd.PersistentFlags().StringVar(&opts.cookie, "cookie", "", "Session cookie sent to the backend (or THEWAY_CONNECTION_SESSION_COOKIE)")

	// Root command flags
	cmd.Flags().StringVar(&opts.themeName, "theme", "", "Color theme")
	cmd.Flags().StringSliceVar(&opts.overlays, "overlay", []string{}, "Draw a GeoJSON overlay file")
	cmd.Flags().BoolVar(&opts.listThemes, "list-themes", false, "List available themes")
	cmd.Flags().StringVar(&opts.exportDir, "export-dir", "", "Directory for export files (default: current directory)")

	cmd.AddCommand(newClusterCmd(opts))
	cmd.AddCommand(newGraphCmd(opts))
	cmd.AddCommand(newDatasetsCmd(opts))
	cmd.AddCommand(newConfigureCmd(opts))

	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// settingsPath returns the settings file the command works on
func (o *rootOptions) settingsPath() string {
	if o.configPath != "" {
		return o.configPath
	}
	return config.GetConfigPath()
}

// loadConfig reads the settings file and applies command line overrides
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFrom(o.settingsPath())
	if err != nil {
		return nil, err
	}

	if o.baseURL != "" {
		cfg.Connection.BaseURL = o.baseURL
	}
	if o.cookie != "" {
		cfg.Connection.SessionCookie = o.cookie
	}
	if o.themeName != "" {
		cfg.Display.Theme = o.themeName
	}
	if o.exportDir != "" {
		absPath, err := filepath.Abs(o.exportDir)
		if err == nil {
			cfg.Export.Directory = absPath
		} else {
			cfg.Export.Directory = o.exportDir
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func printThemes(w io.Writer) {
	fmt.Fprintln(w, "\nAvailable Themes:")
	for _, t := range theme.GetInfo() {
		fmt.Fprintf(w, "  %-15s %-15s - %s\n", t.Key, t.Name, t.Description)
	}
	fmt.Fprintln(w)
}

func printBanner(w io.Writer, cfg *config.Config) {
	t := theme.Get(cfg.Display.Theme)
	style := lipgloss.NewStyle().Foreground(t.PrimaryBright)

	fmt.Fprintln(w, style.Render("  ╔════════════════════════════════════════════╗"))
	fmt.Fprintln(w, style.Render("  ║        THEWAY ROUTE PLANNER - LOADING      ║"))
	fmt.Fprintln(w, style.Render("  ╚════════════════════════════════════════════╝"))
	fmt.Fprintf(w, "  Theme: %s\n", t.Name)
	fmt.Fprintf(w, "  Backend: %s\n\n", cfg.Connection.BaseURL)
}

func runMap(cmd *cobra.Command, opts *rootOptions) error {
	out := cmd.OutOrStdout()

	if opts.listThemes {
		printThemes(out)
		return nil
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	overlays := make([]*geo.Overlay, 0, len(opts.overlays))
	for _, path := range opts.overlays {
		o, err := geo.LoadOverlay(path)
		if err != nil {
			return err
		}
		overlays = append(overlays, o)
	}

	b, err := newBackend(cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	stopMetrics := b.serveMetrics(cfg.Metrics.ListenAddr)
	defer stopMetrics()

	cfg.AddRecentURL(cfg.Connection.BaseURL)
	printBanner(out, cfg)

	path := opts.settingsPath()
	save := func(c *config.Config) error { return config.SaveTo(c, path) }

	model := app.NewModel(cfg, b.newSession(), b.client,
		app.WithLogger(b.logger.Named("app")),
		app.WithSaveFunc(save),
		app.WithOverlays(overlays...),
	)

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(cmd.Context()),
	)

	if _, err := p.Run(); err != nil {
		return err
	}

	// Save config on exit
	if err := save(cfg); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n  Settings saved. Fair winds!\n\n")

	return nil
}
