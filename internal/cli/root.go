// Package cli defines the cobra command tree for field-visits.
package cli

import (
	"errors"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/evcraddock/field-visits/internal/client"
	"github.com/evcraddock/field-visits/internal/geocode"
	"github.com/evcraddock/field-visits/internal/logging"
)

var flagFormat string

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fv",
		Short:         "Track field marketing visits",
		Long:          "Record company visits with contacts, location and follow-up status. Manage entries from the command line or run the mobile web UI.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.Setup(isDevMode())
		},
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format (text|json)")

	root.AddCommand(
		newListCmd(),
		newShowCmd(),
		newAddCmd(),
		newEditCmd(),
		newRemoveCmd(),
		newGeocodeCmd(),
		newRemindersCmd(),
		newServeCmd(),
		newStatusCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)

	return root
}

// newAPIClient creates an HTTP client for the field visits API.
func newAPIClient() (*client.Client, error) {
	apiURL := getAPIURL()
	if apiURL == "" {
		return nil, errors.New("API URL not configured; set FV_API_URL or run 'fv config set api_url <url>'")
	}
	return client.New(apiURL, getAPIKey()), nil
}

// newResolver creates the reverse geocoder.
func newResolver() *geocode.Resolver {
	return geocode.NewResolver(getGeocoderURL(), "")
}

// isJSON returns true if the --format flag is set to json.
func isJSON() bool {
	return flagFormat == "json"
}

// isDevMode reports whether FV_DEV_MODE enables verbose text logging.
func isDevMode() bool {
	dev, _ := strconv.ParseBool(os.Getenv("FV_DEV_MODE"))
	return dev
}
