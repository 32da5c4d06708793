package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/agromonitor/copernicus/pkg/collector"
	"github.com/agromonitor/copernicus/pkg/quota"
	"github.com/agromonitor/copernicus/pkg/sink"
)

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run one collection cycle",
	Long: `Run one budgeted collection cycle: satellite maps and indices per the
selected mode, current weather, and persistence to the configured sinks.

Modes:
  normal    RGB and NDVI maps plus NDVI, NDWI, and NDSI indices (~220 PU)
  economic  indices only (~90 PU)
  minimal   NDVI only (~30 PU)`,
	RunE: runCollect,
}

var (
	collectMode    string
	collectTimeout time.Duration
)

func init() {
	rootCmd.AddCommand(collectCmd)

	collectCmd.Flags().StringVar(&collectMode, "mode", "normal", "Collection mode: normal, economic, or minimal")
	collectCmd.Flags().DurationVar(&collectTimeout, "timeout", 5*time.Minute, "Overall run timeout")
}

func runCollect(cmd *cobra.Command, args []string) error {
	mode, err := quota.ParseMode(collectMode)
	if err != nil {
		return fmt.Errorf("invalid --mode %q: use normal, economic, or minimal", collectMode)
	}

	a, err := loadApp(nil)
	if err != nil {
		return err
	}
	defer a.close()

	sat, err := a.newSatellite()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()

	sinks, closeSinks, err := buildSinks(ctx, a)
	if err != nil {
		return err
	}
	defer closeSinks()

	cfg := collector.Config{
		Gate:         a.gate,
		Satellite:    sat,
		Sink:         sinks,
		MapsDir:      a.cfg.Storage.MapsDir,
		PolygonID:    a.cfg.Field.PolygonID,
		LookbackDays: a.cfg.Sentinel.LookbackDays,
		Logger:       a.quotaLogger(),
	}
	if wx, err := a.newWeather(); err != nil {
		return err
	} else if wx != nil {
		cfg.Weather = wx
	}

	c, err := collector.New(cfg)
	if err != nil {
		return err
	}

	result, err := c.Run(ctx, mode)
	if errors.Is(err, collector.ErrQuotaExhausted) {
		fmt.Println("Collection refused: monthly quota exhausted.")
		printStatus(ctx, a)
		return err
	}
	if err != nil {
		return err
	}

	fmt.Printf("Collection finished: %d completed, %d skipped, %d failed, %d PU spent.\n",
		len(result.Completed), len(result.Skipped), len(result.Failed), result.PUSpent)
	printStatus(ctx, a)
	return nil
}

// buildSinks assembles the configured sinks: CSV always, Postgres when a
// DSN is configured.
func buildSinks(ctx context.Context, a *app) (sink.Sink, func(), error) {
	sinks := sink.Multi{sink.NewCSV(a.cfg.Storage.CSVPath)}
	closer := func() {}

	if dsn := a.cfg.Storage.PostgresDSN; dsn != "" {
		pg, err := sink.NewPostgres(ctx, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting result database: %w", err)
		}
		sinks = append(sinks, pg)
		closer = pg.Close
	}
	return sinks, closer, nil
}

func printStatus(ctx context.Context, a *app) {
	status, err := a.gate.Status(ctx)
	if err != nil {
		a.log.Error().Err(err).Msg("reading quota status")
		return
	}
	fmt.Println(status.Banner())
}
