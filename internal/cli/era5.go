package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/agromonitor/copernicus/pkg/cds"
)

var era5Cmd = &cobra.Command{
	Use:   "era5",
	Short: "Download an ERA5-Land climate archive for one month",
	Long: `Download ERA5-Land reanalysis data from the Climate Data Store for the
configured field. CDS retrievals are free and do not consume the Sentinel
Hub budget, but they are asynchronous and can take several minutes.`,
	RunE: runERA5,
}

var (
	era5Year  int
	era5Month int
	era5Out   string
)

func init() {
	rootCmd.AddCommand(era5Cmd)

	now := time.Now().AddDate(0, -1, 0)
	era5Cmd.Flags().IntVar(&era5Year, "year", now.Year(), "Year to retrieve")
	era5Cmd.Flags().IntVar(&era5Month, "month", int(now.Month()), "Month to retrieve (1-12)")
	era5Cmd.Flags().StringVar(&era5Out, "out", "", "Destination file (default data/era5_climate_<YYYY-MM>.nc)")
}

func runERA5(cmd *cobra.Command, args []string) error {
	if era5Month < 1 || era5Month > 12 {
		return fmt.Errorf("invalid --month %d", era5Month)
	}

	a, err := loadApp(nil)
	if err != nil {
		return err
	}
	defer a.close()

	if a.cfg.CDS.Key == "" {
		return fmt.Errorf("cds.key is not configured")
	}

	client, err := cds.NewClient(cds.Config{
		BaseURL: a.cfg.CDS.BaseURL,
		Key:     a.cfg.CDS.Key,
	})
	if err != nil {
		return err
	}

	dest := era5Out
	if dest == "" {
		dest = filepath.Join("data", fmt.Sprintf("era5_climate_%04d-%02d.nc", era5Year, era5Month))
	}

	// [north, west, south, east] around the field bbox.
	b := a.cfg.Field.BBox
	area := [4]float64{b[3], b[0], b[1], b[2]}

	a.log.Info().Int("year", era5Year).Int("month", era5Month).Str("dest", dest).
		Msg("submitting era5-land retrieval")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if err := client.RetrieveERA5Land(ctx, cds.Request{
		Year:  era5Year,
		Month: time.Month(era5Month),
		Area:  area,
	}, dest); err != nil {
		return err
	}

	fmt.Printf("ERA5-Land archive written to %s\n", dest)
	return nil
}
