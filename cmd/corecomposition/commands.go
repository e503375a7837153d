// Copyright (c) 2025 ToeiRei
// corecomposition - white dwarf core composition pipeline
// This source code is licensed under the MIT license found in the LICENSE file.

// commands.go sets up the command-line interface using Cobra: the root
// command, the build/analyze pipeline stages, and the database utility
// commands (backup, restore, maintenance, version).
package main

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/toeirei/corecomposition/internal/config"
	"github.com/toeirei/corecomposition/internal/db"
	"github.com/toeirei/corecomposition/internal/logging"
	"github.com/toeirei/corecomposition/internal/pipeline"
)

// Set by the linker, e.g.
// go build -ldflags "-X main.version=1.2.3 -X main.gitCommit=abc1234".
var (
	version   = "dev"
	gitCommit = "dev"
	buildDate = ""
)

var (
	cfgFile   string
	verbose   bool
	appConfig config.Config
)

// setupConfig loads the configuration and switches on verbose logging.
// Commands that only read config (like maintenance) use this directly.
func setupConfig(cmd *cobra.Command, args []string) error {
	var err error
	appConfig, err = config.Load(cmd, cfgFile)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	logging.SetVerbose(verbose)
	db.SetDebug(verbose)
	return nil
}

// setupServices loads config and opens the results database. Every
// command that touches stored data uses this as its PreRunE.
func setupServices(cmd *cobra.Command, args []string) error {
	if err := setupConfig(cmd, args); err != nil {
		return err
	}
	if err := db.InitDB(appConfig.Database.Type, appConfig.Database.DSN); err != nil {
		return fmt.Errorf("error initializing database: %w", err)
	}
	return nil
}

// NewRootCmd builds the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "corecomposition",
		Short: "White dwarf core composition pipeline",
		Long: `corecomposition catalogs white-dwarf + main-sequence binary candidates,
measures white-dwarf radii from photometry against cooling-model grids,
and derives gravitational-redshift velocities from radial-velocity
observations.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.ini", "Path to the INI config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output (debug logging)")
	rootCmd.PersistentFlags().String("db-type", "sqlite", "Database type (sqlite, postgres, mysql)")
	rootCmd.PersistentFlags().String("db-dsn", "./corecomposition.db", "Database connection string")

	rootCmd.AddCommand(
		newBuildCmd(),
		newAnalyzeCmd(),
		newBackupCmd(),
		newRestoreCmd(),
		newMaintenanceCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

func newBuildCmd() *cobra.Command {
	var (
		catFile      string
		highmassPath string
		radiusPath   string
		deredden     bool
		plotRadii    bool
	)
	cmd := &cobra.Command{
		Use:   "build <pairs-table>",
		Short: "Build the high-mass targets table from a source pair table",
		Long: `Reads the white-dwarf + main-sequence pair table, applies the quality
and mass cuts, measures a radius per candidate and engine, joins the
radii onto the catalog, and writes the targets table sorted by apparent
G magnitude. The result is also stored in the results database.`,
		Args:    cobra.ExactArgs(1),
		PreRunE: setupServices,
		RunE: func(cmd *cobra.Command, args []string) error {
			return pipeline.Build(appConfig, pipeline.BuildOptions{
				SourcePath:   args[0],
				CatFile:      catFile,
				HighmassPath: highmassPath,
				RadiusPath:   radiusPath,
				Deredden:     deredden,
				PlotRadii:    plotRadii,
			})
		},
	}
	cmd.Flags().StringVar(&catFile, "catfile", "targets.csv", "Output path for the targets table")
	cmd.Flags().StringVar(&highmassPath, "highmass-path", "", "Optional output path for the high-mass subset")
	cmd.Flags().StringVar(&radiusPath, "radius-path", "", "Optional output path for the per-engine radii")
	cmd.Flags().BoolVar(&deredden, "deredden", false, "Subtract the extinction columns before deriving magnitudes")
	cmd.Flags().BoolVar(&plotRadii, "plot-radii", false, "Print terminal diagnostics for the radius measurements")
	return cmd
}

func newAnalyzeCmd() *cobra.Command {
	var (
		obsPath string
		outFile string
		rvPath  string
	)
	cmd := &cobra.Command{
		Use:   "analyze <targets-table>",
		Short: "Derive gravitational-redshift velocities for the targets",
		Long: `Aggregates the per-exposure radial velocities from the observation
table, drops sources with an unstable spread, joins the measurements
onto the targets table, and writes the output with gravz = rv - ms_rv
per target. Measurements and gravz values are stored in the results
database.`,
		Args:    cobra.ExactArgs(1),
		PreRunE: setupServices,
		RunE: func(cmd *cobra.Command, args []string) error {
			return pipeline.Analyze(appConfig, pipeline.AnalyzeOptions{
				TargetsPath: args[0],
				ObsPath:     obsPath,
				OutFile:     outFile,
				RVPath:      rvPath,
			})
		},
	}
	cmd.Flags().StringVar(&obsPath, "obspath", "", "Path to the per-exposure observation table (required)")
	cmd.Flags().StringVar(&outFile, "outfile", "gravz.csv", "Output path for the analyzed targets")
	cmd.Flags().StringVar(&rvPath, "rv-path", "", "Optional output path for the aggregated RV measurements")
	_ = cmd.MarkFlagRequired("obspath")
	return cmd
}

func newBackupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup [output-file]",
		Short: "Create a compressed (zstd) JSON backup of the database",
		Long: `Dumps the targets, RV measurements, and run log into a single
Zstandard-compressed JSON file, usable for disaster recovery or for
migrating between database backends.

If no output file is given, corecomposition-backup-YYYY-MM-DD.json.zst
is used.`,
		Args:    cobra.MaximumNArgs(1),
		PreRunE: setupServices,
		RunE: func(cmd *cobra.Command, args []string) error {
			var outputFile string
			if len(args) == 0 {
				outputFile = fmt.Sprintf("corecomposition-backup-%s.json.zst", time.Now().Format("2006-01-02"))
			} else {
				outputFile = args[0]
				if !strings.HasSuffix(outputFile, ".zst") {
					outputFile += ".zst"
				}
			}
			data, err := db.ExportDataForBackup()
			if err != nil {
				return fmt.Errorf("could not export database: %w", err)
			}
			if err := writeCompressedBackup(outputFile, data); err != nil {
				return err
			}
			logging.Infof("backup written to %s (%d targets, %d rv measurements)",
				outputFile, len(data.Targets), len(data.RVs))
			return nil
		},
	}
}

func newRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <backup-file.zst>",
		Short: "Restore the database from a compressed JSON backup",
		Long: `Restores the entire results database from a Zstandard-compressed JSON
backup file. Existing data is wiped before the import.`,
		Args:    cobra.ExactArgs(1),
		PreRunE: setupServices,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readCompressedBackup(args[0])
			if err != nil {
				return err
			}
			if err := db.ImportDataFromBackup(data); err != nil {
				return fmt.Errorf("could not import backup: %w", err)
			}
			logging.Infof("restored %d targets, %d rv measurements, %d run log entries",
				len(data.Targets), len(data.RVs), len(data.RunLog))
			return nil
		},
	}
}

func newMaintenanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "maintenance",
		Short:   "Run engine-specific database maintenance (VACUUM etc.)",
		PreRunE: setupConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := db.RunDBMaintenance(appConfig.Database.Type, appConfig.Database.DSN); err != nil {
				return err
			}
			logging.Infof("maintenance complete for %s database", appConfig.Database.Type)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			resolvedVersion := version
			resolvedCommit := gitCommit
			resolvedDate := buildDate
			if info, ok := debug.ReadBuildInfo(); ok {
				if info.Main.Version != "" && info.Main.Version != "(devel)" {
					resolvedVersion = info.Main.Version
				}
				for _, s := range info.Settings {
					switch s.Key {
					case "vcs.revision":
						if resolvedCommit == "dev" && len(s.Value) >= 7 {
							resolvedCommit = s.Value[:7]
						}
					case "vcs.time":
						if resolvedDate == "" {
							resolvedDate = s.Value
						}
					}
				}
			}
			out := fmt.Sprintf("corecomposition %s", resolvedVersion)
			if resolvedCommit != "" && resolvedCommit != "dev" {
				out += fmt.Sprintf(" (%s)", resolvedCommit)
			}
			if resolvedDate != "" {
				out += fmt.Sprintf(" built %s", resolvedDate)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
		},
	}
}
