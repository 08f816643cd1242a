package reconcile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/flarebyte/seshat-tally/internal/config"
	"github.com/flarebyte/seshat-tally/internal/counter"
	"github.com/flarebyte/seshat-tally/internal/gitchange"
	engine "github.com/flarebyte/seshat-tally/internal/reconcile"
	"github.com/flarebyte/seshat-tally/internal/registry"
)

var (
	cfgPath       string
	flagRoot      string
	flagForce     bool
	flagPublisher string
	flagDryRun    bool
)

// Cmd represents the `seshat reconcile` command.
var Cmd = &cobra.Command{
	Use:           "reconcile",
	Short:         "Reconcile unit release versions with history and the marketplace",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings := config.Defaults()
		if cfgPath != "" {
			loaded, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			settings = loaded
		}
		settings.ApplyEnv(nil)
		if cmd.Flags().Changed("force") {
			settings.ForceUpdate = flagForce
		}
		if cmd.Flags().Changed("publisher") {
			settings.PublisherID = flagPublisher
		}

		root, err := filepath.Abs(flagRoot)
		if err != nil {
			return fmt.Errorf("invalid root: %w", err)
		}

		store := counter.NewStore(filepath.Join(root, filepath.FromSlash(settings.CounterPath)))
		counterIn := store.Read()

		opts := engine.Options{
			Root:         root,
			UnitsRoot:    settings.UnitsRoot,
			ManifestName: settings.ManifestName,
			PublisherID:  settings.PublisherID,
			ForceUpdate:  settings.ForceUpdate,
			DryRun:       flagDryRun,
			FilterLua:    settings.FilterLua,
			Progress:     os.Stdout,
		}
		deps := engine.Deps{
			Detector: gitchange.NewDetector(root),
			Registry: registry.NewToolClient(settings.RegistryTool, settings.RegistryTimeoutMs),
		}
		if !flagDryRun {
			deps.PersistCounter = store.Write
		}

		summary, _, err := engine.Run(opts, deps, counterIn)
		if err != nil {
			return err
		}
		if settings.ReportPath != "" && !flagDryRun {
			reportAbs := filepath.Join(root, filepath.FromSlash(settings.ReportPath))
			if err := engine.WriteReport(reportAbs, &summary); err != nil {
				return fmt.Errorf("writing report: %w", err)
			}
		}
		// The summary is the last thing emitted.
		summary.Render(os.Stdout)
		return nil
	},
}

func init() {
	Cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to config file (.cue)")
	Cmd.Flags().StringVar(&flagRoot, "root", ".", "Repository root")
	Cmd.Flags().BoolVar(&flagForce, "force", false, "Treat every unit as changed")
	Cmd.Flags().StringVar(&flagPublisher, "publisher", "", "Marketplace publisher id (enables the registry floor)")
	Cmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "Compute everything, write nothing")
}
