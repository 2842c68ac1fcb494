package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/warp/census-tracker/census"
	"github.com/warp/census-tracker/config"
	"github.com/warp/census-tracker/logging"
	"github.com/warp/census-tracker/store/sqlite"
)

// app carries flags and the opened tracker across one command run.
type app struct {
	out    io.Writer
	errOut io.Writer

	dbPath     string
	configPath string
	logMode    string
	jsonOut    bool

	tracker *census.Tracker
	store   *sqlite.Store
	logger  *logging.Logger
	render  *renderer
}

func newApp(out, errOut io.Writer) *app {
	return &app{out: out, errOut: errOut}
}

const defaultCLILogMode = "quiet"

// usageError marks errors caused by command-line arguments.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var ue usageError
	if errors.As(err, &ue) || census.IsClientError(err) {
		return ExitUser
	}
	return ExitInternal
}

// =============================================================================
// ROOT
// =============================================================================

func (a *app) root() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "census",
		Short:             "Census Tracker - population data collection and analysis",
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.open,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.dbPath, "db", "", "SQLite database path")
	flags.StringVar(&a.configPath, "config", "", "YAML configuration file")
	flags.StringVar(&a.logMode, "log-mode", defaultCLILogMode, "Log mode: quiet, dev, prod")
	flags.BoolVar(&a.jsonOut, "json", false, "Render JSON instead of text")

	rootCmd.AddCommand(
		a.statusCmd(),
		a.exportCmd(),
		a.listCmd(),
		a.addDistrictCmd(),
		a.recordCmd(),
		a.summaryCmd(),
		a.regionCmd(),
	)
	return rootCmd
}

func (a *app) open(cmd *cobra.Command, args []string) error {
	// The CLI's log mode default replaces the server's; the file and
	// environment still override it.
	base := config.Default()
	base.LogMode = defaultCLILogMode
	cfg, err := config.LoadFrom(base, a.configPath)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.DBPath = a.dbPath
	}
	if cmd.Flags().Changed("log-mode") {
		cfg.LogMode = a.logMode
	}
	if err := cfg.ValidateStore(); err != nil {
		return usageError{err}
	}

	a.logger, err = logging.New(cfg.LogMode)
	if err != nil {
		return err
	}

	a.store, err = sqlite.New(cfg.DBPath)
	if err != nil {
		return err
	}
	a.tracker = census.NewTracker(a.store, census.WithLogger(a.logger))
	a.render = newRenderer(a.out)
	return nil
}

func (a *app) close() error {
	if a.logger != nil {
		a.logger.Sync()
	}
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

// =============================================================================
// REPORTING COMMANDS
// =============================================================================

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "System status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.tracker.Status(cmd.Context())
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(a.out, st)
			}
			a.render.Status(st)
			return nil
		},
	}
}

func (a *app) exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Export all data as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			exp, err := a.tracker.ExportAll(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(a.out, exp)
		},
	}
}

func (a *app) listCmd() *cobra.Command {
	var region string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List districts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			districts, err := a.tracker.ListDistricts(cmd.Context(), region)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(a.out, districts)
			}
			a.render.Districts(districts, region)
			return nil
		},
	}
	cmd.Flags().StringVar(&region, "region", "", "Only districts in this region")
	return cmd
}

func (a *app) summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary DISTRICT",
		Short: "Population summary for a district",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.tracker.Summary(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(a.out, s)
			}
			a.render.Summary(s)
			return nil
		},
	}
}

func (a *app) regionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "region REGION",
		Short: "Regional aggregate report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rep, err := a.tracker.RegionalReport(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(a.out, rep)
			}
			a.render.Region(rep)
			return nil
		},
	}
}

// =============================================================================
// WRITE COMMANDS
// =============================================================================

func (a *app) addDistrictCmd() *cobra.Command {
	var in census.DistrictInput
	cmd := &cobra.Command{
		Use:   "add-district NAME",
		Short: "Register a district",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Name = args[0]
			d, err := a.tracker.AddDistrict(cmd.Context(), in)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(a.out, d)
			}
			a.render.DistrictAdded(d)
			return nil
		},
	}
	cmd.Flags().StringVar(&in.Region, "region", census.DefaultRegion, "Region")
	cmd.Flags().Float64Var(&in.AreaSqKm, "area", 0, "Area in km²")
	cmd.Flags().StringVar(&in.DistrictType, "type", census.DefaultDistrictType, "District type")
	return cmd
}

func (a *app) recordCmd() *cobra.Command {
	var in census.CensusInput
	cmd := &cobra.Command{
		Use:   "record DISTRICT YEAR POPULATION",
		Short: "Record census data",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := strconv.Atoi(args[1])
			if err != nil {
				return usageError{fmt.Errorf("invalid year %q", args[1])}
			}
			population, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil {
				return usageError{fmt.Errorf("invalid population %q", args[2])}
			}
			in.DistrictName = args[0]
			in.Year = year
			in.Population = population

			rec, err := a.tracker.RecordCensus(cmd.Context(), in)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(a.out, rec)
			}
			a.render.CensusRecorded(rec)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.Int64Var(&in.Households, "households", 0, "Households")
	flags.Float64Var(&in.AvgAge, "avg-age", 0, "Average age")
	flags.Float64Var(&in.MedianIncome, "income", 0, "Median income")
	flags.Float64Var(&in.UnemploymentRate, "unemployment", 0, "Unemployment rate (%)")
	flags.StringVar(&in.Notes, "notes", "", "Free-text notes")
	return cmd
}
