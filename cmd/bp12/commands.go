package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/bioperiant/bp12-tools/internal/adapter/store/csv"
	"github.com/bioperiant/bp12-tools/internal/adapter/store/model"
	"github.com/bioperiant/bp12-tools/internal/adapter/store/reference"
	"github.com/bioperiant/bp12-tools/internal/analysis"
	"github.com/bioperiant/bp12-tools/internal/config"
	"github.com/bioperiant/bp12-tools/internal/plot"
	"github.com/bioperiant/bp12-tools/internal/usecase"
)

const version = "0.1.0"

// app holds what the subcommands share once configuration is loaded.
type app struct {
	v      *viper.Viper
	log    *logrus.Logger
	loader *model.Loader
	uc     *usecase.SeriesUseCase
}

func (a *app) setup() error {
	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.log = cfg.NewLogger()
	analysis.Log = a.log
	a.loader = model.NewLoader(cfg.ModelDir, model.WithLogger(a.log))
	a.uc = usecase.NewSeriesUseCase(a.loader, reference.NewLocalStore(cfg.DataDir, a.log), csv.NewSeriesStore(cfg.DataDir), a.log)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}
	root := &cobra.Command{
		Use:   "bp12",
		Short: "Query and plot BIOPERIANT12 model output.",
		Long: `bp12 reads BIOPERIANT12 pentad output and its reference data to build
biome or point time series, trend tests, value distributions and maps.

Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'BP12_var' where 'var' is the
name of the variable to be set, e.g. BP12_MODEL_DIR.`,
		SilenceUsage:      true,
		DisableAutoGenTag: true,
		PersistentPreRunE: func(*cobra.Command, []string) error { return a.setup() },
	}
	if err := config.BindFlags(a.v, root.PersistentFlags(),
		config.KeyConfig, config.KeyModelDir, config.KeyDataDir, config.KeyLogLevel, config.KeyLogFormat); err != nil {
		panic(err)
	}

	root.AddCommand(
		versionCmd(),
		a.infoCmd(),
		a.datesCmd(),
		a.filesCmd(),
		a.seriesCmd(),
		a.pdfCmd(),
		a.mapCmd(),
		a.timeseriesCmd(),
	)
	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "version",
		Short:             "Print the version number",
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("bp12 v%s\n", version)
		},
		DisableAutoGenTag: true,
	}
}

func (a *app) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info VARIABLE",
		Short: "Describe a model variable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := usecase.DescribeVariable(args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), resp)
		},
	}
}

func (a *app) datesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dates SPEC",
		Short: "List the pentad tags of a date specification",
		Long: `dates expands a date specification (y2003, y2003m02, y2003m02d09, ...) into
the model output tags it covers and their timestamps.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := usecase.ExpandDates(args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), resp)
		},
	}
}

func (a *app) filesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "files VARIABLE SPEC",
		Short: "List the model files a variable is read from",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := usecase.ListFiles(a.loader, args[0], args[1])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), resp)
		},
	}
}

// regionFlags registers --biome, --lat and --lon.
type regionFlags struct {
	biome    int
	lat, lon float64
}

func (r *regionFlags) register(fs *pflag.FlagSet) {
	fs.IntVar(&r.biome, "biome", 0, "biome mask label; default whole ocean")
	fs.Float64Var(&r.lat, "lat", 0, "sample latitude (with --lon)")
	fs.Float64Var(&r.lon, "lon", 0, "sample longitude (with --lat)")
}

// values returns pointers for the flags that were given.
func (r *regionFlags) values(fs *pflag.FlagSet) (biome *int, lat, lon *float64) {
	if fs.Changed("biome") {
		biome = &r.biome
	}
	if fs.Changed("lat") {
		lat = &r.lat
	}
	if fs.Changed("lon") {
		lon = &r.lon
	}
	return biome, lat, lon
}

func (a *app) seriesCmd() *cobra.Command {
	var (
		region    regionFlags
		zlev      int
		test, obs string
	)
	cmd := &cobra.Command{
		Use:   "series VARIABLE SPEC...",
		Short: "Print a biome-mean, point or whole-ocean time series",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := usecase.SeriesRequest{Variable: args[0], Dates: args[1:], ZLev: zlev, Test: test, Obs: obs}
			req.Biome, req.Lat, req.Lon = region.values(cmd.Flags())
			resp, err := a.uc.Execute(req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), resp)
		},
	}
	region.register(cmd.Flags())
	cmd.Flags().IntVar(&zlev, "zlev", 0, "depth level index")
	cmd.Flags().StringVar(&test, "test", "", "Mann-Kendall test: original, hamed_rao, yue_wang, trend_free_pre_whitening, pre_whitening, seasonal")
	cmd.Flags().StringVar(&obs, "obs", "", "observation series to include")
	return cmd
}

func (a *app) pdfCmd() *cobra.Command {
	var (
		zlev     int
		outliers bool
	)
	cmd := &cobra.Command{
		Use:   "pdf VARIABLE SPEC...",
		Short: "Fit a normal density to the outlier-trimmed values of a field",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := a.uc.FieldPDF(args[0], args[1:], zlev, outliers)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().IntVar(&zlev, "zlev", 0, "depth level index")
	cmd.Flags().BoolVar(&outliers, "outliers", false, "report the share of points beyond the outlier bounds")
	return cmd
}

// figureFlags are shared by the figure commands.
type figureFlags struct {
	out            string
	dpi            int
	title          string
	min, max, tick float64
}

func (f *figureFlags) register(fs *pflag.FlagSet, defaultOut string) {
	fs.StringVarP(&f.out, "out", "o", defaultOut, "output file; the extension selects png, jpg, svg or pdf")
	fs.IntVar(&f.dpi, "dpi", plot.DefaultDPI, "output resolution")
	fs.StringVar(&f.title, "title", "", "figure title")
	fs.Float64Var(&f.min, "min", 0, "axis or color scale minimum (with --max and --tick)")
	fs.Float64Var(&f.max, "max", 0, "axis or color scale maximum")
	fs.Float64Var(&f.tick, "tick", 0, "tick spacing")
}

func (f *figureFlags) limits(fs *pflag.FlagSet) (*plot.Limits, error) {
	n := 0
	for _, name := range []string{"min", "max", "tick"} {
		if fs.Changed(name) {
			n++
		}
	}
	switch {
	case n == 0:
		return nil, nil
	case n != 3:
		return nil, fmt.Errorf("--min, --max and --tick must be given together")
	case f.max <= f.min || f.tick <= 0:
		return nil, fmt.Errorf("limits need min < max and tick > 0")
	}
	return &plot.Limits{Min: f.min, Max: f.max, Tick: f.tick}, nil
}

func (f *figureFlags) save(cmd *cobra.Command, fig *plot.Figure) error {
	fig.DPI = f.dpi
	if err := fig.Save(f.out); err != nil {
		return err
	}
	cmd.Printf("wrote %s\n", f.out)
	return nil
}

func (a *app) mapCmd() *cobra.Command {
	var (
		ff     figureFlags
		req    usecase.MapRequest
		source string
	)
	cmd := &cobra.Command{
		Use:   "map VARIABLE SPEC...",
		Short: "Draw the time mean of a variable on a south-polar map",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lim, err := ff.limits(cmd.Flags())
			if err != nil {
				return err
			}
			req.Variable, req.Dates, req.Limits, req.Title = args[0], args[1:], lim, ff.title
			req.FrontSource = reference.Source(source)
			fig, err := a.uc.MapFigure(req)
			if err != nil {
				return err
			}
			return ff.save(cmd, fig)
		},
	}
	ff.register(cmd.Flags(), "map.png")
	cmd.Flags().IntVar(&req.ZLev, "zlev", 0, "depth level index")
	cmd.Flags().BoolVar(&req.Fronts, "fronts", false, "draw the SAF and PF")
	cmd.Flags().IntVar(&req.Month, "month", 0, "front month 1-12; 0 draws the annual mean")
	cmd.Flags().BoolVar(&req.Biomes, "biomes", false, "draw biome boundaries")
	cmd.Flags().BoolVar(&req.FM2014, "fm2014", false, "use the Fay & McKinley (2014) biome colors")
	cmd.Flags().StringVar(&source, "source", string(reference.SourceModel), "front and biome climatology: mdl or obs")
	return cmd
}

func (a *app) timeseriesCmd() *cobra.Command {
	var (
		ff     figureFlags
		region regionFlags
		req    usecase.TimeseriesRequest
	)
	cmd := &cobra.Command{
		Use:   "timeseries VARIABLES SPEC...",
		Short: "Plot up to three comma-separated variables, or one against an observation series",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lim, err := ff.limits(cmd.Flags())
			if err != nil {
				return err
			}
			req.Variables = strings.Split(args[0], ",")
			req.Dates, req.Title = args[1:], ff.title
			if lim != nil {
				req.Limits = make([]plot.Limits, len(req.Variables))
				for i := range req.Limits {
					req.Limits[i] = *lim
				}
			}
			req.Biome, req.Lat, req.Lon = region.values(cmd.Flags())
			fig, err := a.uc.TimeseriesFigure(req)
			if err != nil {
				return err
			}
			return ff.save(cmd, fig)
		},
	}
	ff.register(cmd.Flags(), "timeseries.png")
	region.register(cmd.Flags())
	cmd.Flags().IntVar(&req.ZLev, "zlev", 0, "depth level index")
	cmd.Flags().StringVar(&req.Obs, "obs", "", "observation series to plot against a single variable")
	cmd.Flags().StringSliceVar(&req.Colors, "colors", nil, "line colors, one per variable")
	cmd.Flags().BoolVar(&req.Trend, "trend", false, "annotate Mann-Kendall trends")
	cmd.Flags().BoolVar(&req.Seasons, "seasons", false, "shade summer and winter")
	return cmd
}
