package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kass/go-realestate/pkg/config"
	"github.com/kass/go-realestate/pkg/geo"
	"github.com/kass/go-realestate/pkg/logging"
	"github.com/kass/go-realestate/pkg/models"
	"github.com/kass/go-realestate/pkg/normalize"
	"github.com/kass/go-realestate/pkg/report"
)

// app holds flag values and the configuration resolved before each command.
type app struct {
	configFile   string
	sourceA      string
	sourceB      string
	exchangeRate float64
	onMalformed  string
	outDir       string
	logLevel     string
	verbose      bool

	lat, lon  float64
	radius    float64
	neighbors int
	limit     int

	cfg    *config.Config
	log    *slog.Logger
	out    io.Writer
	errOut io.Writer
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	rootCmd := &cobra.Command{
		Use:   "realestate",
		Short: "Brazil real estate listing normalizer",
		Long: `Loads the two Brazil real estate listing files, normalizes them into one
table of lat, lon, state, area_m2 and price_usd, and renders an analysis report.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.configFile, "config", "c", "", "YAML config file")
	flags.StringVar(&a.sourceA, "source-a", "", "Source A CSV (lat-lon, place_with_parent_names, price_usd)")
	flags.StringVar(&a.sourceB, "source-b", "", "Source B CSV (lat, lon, state, price_brl)")
	flags.Float64Var(&a.exchangeRate, "exchange-rate", normalize.DefaultExchangeRate, "BRL per USD used to convert Source B prices")
	flags.StringVar(&a.onMalformed, "on-malformed", "skip", "Malformed row policy: skip or abort")
	flags.StringVar(&a.logLevel, "log-level", "info", "Log level: debug, info, warn or error")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Verbose output (debug logging)")

	normalizeCmd := &cobra.Command{
		Use:   "normalize",
		Short: "Normalize both sources and print the unified table info",
		RunE:  a.runNormalize,
	}

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Render charts, report.md and summary.xlsx",
		RunE:  a.runReport,
	}
	reportCmd.Flags().StringVarP(&a.outDir, "out", "o", "", "Output directory")

	nearbyCmd := &cobra.Command{
		Use:   "nearby",
		Short: "List listings near a location",
		Long:  `Finds listings within --radius km of --lat/--lon, or the --k nearest when no radius is given.`,
		RunE:  a.runNearby,
	}
	nearbyCmd.Flags().Float64Var(&a.lat, "lat", 0, "Latitude")
	nearbyCmd.Flags().Float64Var(&a.lon, "lon", 0, "Longitude")
	nearbyCmd.Flags().Float64VarP(&a.radius, "radius", "r", 0, "Search radius in km")
	nearbyCmd.Flags().IntVar(&a.neighbors, "k", 10, "Number of nearest listings when no radius is given")
	nearbyCmd.Flags().IntVarP(&a.limit, "limit", "l", 20, "Maximum rows to print")
	_ = nearbyCmd.MarkFlagRequired("lat")
	_ = nearbyCmd.MarkFlagRequired("lon")

	rootCmd.AddCommand(normalizeCmd, reportCmd, nearbyCmd)
	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setup resolves configuration (defaults, file, env, then changed flags),
// validates it and installs the logger.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("source-a") {
		cfg.Sources.SourceA = a.sourceA
	}
	if flags.Changed("source-b") {
		cfg.Sources.SourceB = a.sourceB
	}
	if flags.Changed("exchange-rate") {
		cfg.Normalize.ExchangeRate = a.exchangeRate
	}
	if flags.Changed("on-malformed") {
		cfg.Normalize.OnMalformed = a.onMalformed
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = a.logLevel
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}
	if flags.Changed("out") {
		cfg.Report.OutDir = a.outDir
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	a.cfg = cfg
	a.log = logging.New(cfg.Logging, a.errOut)
	slog.SetDefault(a.log)
	return nil
}

func (a *app) pipeline(ctx context.Context) (normalize.Result, error) {
	policy, err := normalize.ParsePolicy(a.cfg.Normalize.OnMalformed)
	if err != nil {
		return normalize.Result{}, err
	}

	p := &normalize.Pipeline{
		SourceA:      a.cfg.Sources.SourceA,
		SourceB:      a.cfg.Sources.SourceB,
		ExchangeRate: a.cfg.Normalize.ExchangeRate,
		Options: normalize.Options{
			OnMalformed: policy,
			Logger:      a.log,
		},
	}
	return p.Run(ctx)
}

func (a *app) runNormalize(cmd *cobra.Command, _ []string) error {
	res, err := a.pipeline(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, report.TableInfo(res.Table, res.StatsA, res.StatsB))
	return nil
}

func (a *app) runReport(cmd *cobra.Command, _ []string) error {
	res, err := a.pipeline(cmd.Context())
	if err != nil {
		return err
	}

	rc := a.cfg.Report
	s, err := report.Render(cmd.Context(), res, report.Options{
		OutDir:        rc.OutDir,
		HistogramBins: rc.HistogramBins,
		FocusState:    rc.FocusState,
		FocusRegion:   rc.FocusRegion,
		MapCenter:     models.Location{Lat: rc.MapCenterLat, Lon: rc.MapCenterLon},
		Logger:        a.log,
	})
	if err != nil {
		return err
	}
	return report.WriteConsole(a.out, s, rc.OutDir)
}

func (a *app) runNearby(cmd *cobra.Command, _ []string) error {
	center := models.Location{Lat: a.lat, Lon: a.lon}
	if center.Lat < -90 || center.Lat > 90 || center.Lon < -180 || center.Lon > 180 {
		return fmt.Errorf("invalid location %.4f,%.4f", center.Lat, center.Lon)
	}

	res, err := a.pipeline(cmd.Context())
	if err != nil {
		return err
	}

	index := geo.NewListingIndex()
	index.Index(res.Table.Records)

	var hits []geo.Hit
	if a.radius > 0 {
		if hits, err = index.SearchRadius(center, a.radius); err != nil {
			return err
		}
		sort.Slice(hits, func(i, j int) bool {
			return geo.Distance(center, hits[i].Listing.Location()) < geo.Distance(center, hits[j].Listing.Location())
		})
	} else {
		hits = index.NearestNeighbors(center, a.neighbors)
	}

	a.log.Debug("Nearby search",
		slog.Float64("lat", center.Lat),
		slog.Float64("lon", center.Lon),
		slog.Float64("radius_km", a.radius),
		slog.Int("hits", len(hits)))

	return writeHits(a.out, center, hits, a.limit)
}

func writeHits(w io.Writer, center models.Location, hits []geo.Hit, limit int) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ROW\tSTATE\tLAT\tLON\tAREA_M2\tPRICE_USD\tDIST_KM")
	for i, h := range hits {
		if limit > 0 && i >= limit {
			break
		}
		l := h.Listing
		fmt.Fprintf(tw, "%d\t%s\t%.5f\t%.5f\t%.1f\t%.2f\t%.2f\n",
			h.Row, l.State, l.Lat, l.Lon, l.AreaM2, l.PriceUSD, geo.Distance(center, l.Location()))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d listings found\n", len(hits))
	return err
}
