package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/field-visits/internal/client"
	"github.com/evcraddock/field-visits/internal/location"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check API connection",
		Long:  "Shows the configured endpoints and tests the connection to the entries API.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd)
		},
	}
}

func runStatus(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	apiURL := getAPIURL()
	apiKey := getAPIKey()

	fmt.Fprintf(out, "API:      %s\n", orNotSet(apiURL))
	fmt.Fprintf(out, "API Key:  %s\n", orNotSet(maskKey(apiKey)))
	fmt.Fprintf(out, "Geocoder: %s\n", getGeocoderURL())
	fmt.Fprintf(out, "Location: %s\n", location.Probe(os.Getenv, false))

	if apiURL == "" {
		fmt.Fprintln(out, "\nRun 'fv config set api_url <url>' to configure the API.")
		return nil
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	entries, err := client.New(apiURL, apiKey).ListEntries(ctx)
	var apiErr *client.APIError
	switch {
	case err == nil:
		fmt.Fprintf(out, "Status:   ✓ connected (%d entries)\n", len(entries))
	case errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden):
		fmt.Fprintln(out, "Status:   ✗ API key rejected")
		fmt.Fprintln(out, "\nRun 'fv config set api_key <key>' to update it.")
	case errors.As(err, &apiErr):
		fmt.Fprintf(out, "Status:   ✗ unexpected response (%d)\n", apiErr.StatusCode)
	default:
		fmt.Fprintf(out, "Status:   ✗ cannot reach API (%v)\n", err)
	}

	return nil
}

func orNotSet(s string) string {
	if s == "" {
		return "not configured"
	}
	return s
}
