package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"classattend/internal/config"
	"classattend/internal/geo"
)

var distanceCmd = &cobra.Command{
	Use:   "distance <lat1> <lon1> <lat2> <lon2>",
	Short: "Check whether a student position falls inside a classroom radius",
	Long: `Computes the great-circle distance between a student position
(lat1, lon1) and a classroom (lat2, lon2) and reports whether it is
within --radius meters.`,
	Args: cobra.ExactArgs(4),
	RunE: runDistance,
}

func init() {
	distanceCmd.Flags().Float64("radius", 0, "Allowed radius in meters (defaults to DEFAULT_RADIUS_M)")
	rootCmd.AddCommand(distanceCmd)
}

func runDistance(cmd *cobra.Command, args []string) error {
	vals := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return fmt.Errorf("argument %d: %q is not a number", i+1, a)
		}
		vals[i] = v
	}

	cfg := config.Load()
	v := geo.NewValidator(cfg.Proximity.DefaultRadiusMeters, cfg.Proximity.EarthRadiusMeters)

	site := &geo.Site{Coordinates: geo.Coordinates{Latitude: &vals[2], Longitude: &vals[3]}}
	if r := mustGetFloat64(cmd, "radius"); r > 0 {
		site.RadiusMeters = &r
	}
	res := v.Validate(&geo.Coordinates{Latitude: &vals[0], Longitude: &vals[1]}, site)

	out := cmd.OutOrStdout()
	if res.DistanceMeters != nil {
		fmt.Fprintf(out, "distance: %.1fm\n", *res.DistanceMeters)
	}
	fmt.Fprintf(out, "radius:   %.1fm\n", res.RadiusMeters)
	fmt.Fprintf(out, "within:   %t\n", res.Valid)
	return nil
}
