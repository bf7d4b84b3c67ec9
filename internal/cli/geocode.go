package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newGeocodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "geocode <lat> <lon>",
		Short: "Look up the address for coordinates",
		Args:  cobra.ExactArgs(2),
		RunE:  runGeocode,
	}
}

func runGeocode(cmd *cobra.Command, args []string) error {
	lat, err := strconv.ParseFloat(args[0], 64)
	if err != nil || lat < -90 || lat > 90 {
		return fmt.Errorf("invalid latitude: %s", args[0])
	}
	lon, err := strconv.ParseFloat(args[1], 64)
	if err != nil || lon < -180 || lon > 180 {
		return fmt.Errorf("invalid longitude: %s", args[1])
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), resolveTimeout)
	defer cancel()

	address, err := newResolver().Reverse(ctx, lat, lon)
	if err != nil {
		return fmt.Errorf("looking up address: %w", err)
	}

	if isJSON() {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"latitude":  lat,
			"longitude": lon,
			"address":   address,
		})
	}

	fmt.Fprintln(cmd.OutOrStdout(), address)
	return nil
}
