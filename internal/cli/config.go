package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/evcraddock/field-visits/internal/geocode"
)

// CLIConfig holds CLI configuration persisted to disk.
type CLIConfig struct {
	APIURL        string `yaml:"api_url,omitempty"`
	APIKey        string `yaml:"api_key,omitempty"`
	GeocoderURL   string `yaml:"geocoder_url,omitempty"`
	ReminderPhone string `yaml:"reminder_phone,omitempty"`
	ReminderEmail string `yaml:"reminder_email,omitempty"`
}

// configKeys maps config file keys to their fields.
var configKeys = map[string]func(*CLIConfig) *string{
	"api_url":        func(c *CLIConfig) *string { return &c.APIURL },
	"api_key":        func(c *CLIConfig) *string { return &c.APIKey },
	"geocoder_url":   func(c *CLIConfig) *string { return &c.GeocoderURL },
	"reminder_phone": func(c *CLIConfig) *string { return &c.ReminderPhone },
	"reminder_email": func(c *CLIConfig) *string { return &c.ReminderEmail },
}

// configPath returns the path to the CLI config file.
func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "fv", "config.yaml"), nil
}

// loadConfig reads the CLI config from disk.
// Returns a zero-value config if the file doesn't exist.
func loadConfig() (CLIConfig, error) {
	path, err := configPath()
	if err != nil {
		return CLIConfig{}, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return CLIConfig{}, nil
	}
	if err != nil {
		return CLIConfig{}, fmt.Errorf("reading config: %w", err)
	}

	var cfg CLIConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return CLIConfig{}, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// saveConfig writes the CLI config to disk.
func saveConfig(cfg CLIConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// setting returns the env var if set, else the config file value.
func setting(env string, field func(CLIConfig) string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	cfg, err := loadConfig()
	if err == nil {
		return field(cfg)
	}
	return ""
}

// getAPIURL returns the API root from env var or config.
func getAPIURL() string {
	return setting("FV_API_URL", func(c CLIConfig) string { return c.APIURL })
}

// getAPIKey returns the API key from env var or config.
func getAPIKey() string {
	return setting("FV_API_KEY", func(c CLIConfig) string { return c.APIKey })
}

// getGeocoderURL returns the reverse geocoding endpoint, defaulting to Nominatim.
func getGeocoderURL() string {
	if v := setting("FV_GEOCODER_URL", func(c CLIConfig) string { return c.GeocoderURL }); v != "" {
		return v
	}
	return geocode.DefaultURL
}

// getReminderPhone returns the number reminders are texted to.
func getReminderPhone() string {
	return setting("FV_REMINDER_PHONE", func(c CLIConfig) string { return c.ReminderPhone })
}

// getReminderEmail returns the address reminders are mailed to.
func getReminderEmail() string {
	return setting("FV_REMINDER_EMAIL", func(c CLIConfig) string { return c.ReminderEmail })
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change CLI settings",
		Args:  cobra.NoArgs,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Set a config value",
			Long:  "Set a config value. Keys: api_url, api_key, geocoder_url, reminder_phone, reminder_email.",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConfigSet(cmd, args[0], args[1])
			},
		},
		&cobra.Command{
			Use:   "show",
			Short: "Show the effective settings",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runConfigShow(cmd)
			},
		},
	)

	return cmd
}

func runConfigSet(cmd *cobra.Command, key, value string) error {
	field, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key %q (valid: %s)", key, validConfigKeys())
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	*field(&cfg) = value
	if err := saveConfig(cfg); err != nil {
		return err
	}

	if isJSON() {
		return printJSON(cmd.OutOrStdout(), map[string]string{"key": key, "status": "saved"})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s.\n", key)
	return nil
}

func runConfigShow(cmd *cobra.Command) error {
	effective := map[string]string{
		"api_url":        getAPIURL(),
		"api_key":        maskKey(getAPIKey()),
		"geocoder_url":   getGeocoderURL(),
		"reminder_phone": getReminderPhone(),
		"reminder_email": getReminderEmail(),
	}

	if isJSON() {
		return printJSON(cmd.OutOrStdout(), effective)
	}

	out := cmd.OutOrStdout()
	for _, key := range sortedKeys(effective) {
		v := effective[key]
		if v == "" {
			v = "(not set)"
		}
		fmt.Fprintf(out, "%-15s %s\n", key+":", v)
	}
	return nil
}

func validConfigKeys() string {
	keys := make([]string, 0, len(configKeys))
	for k := range configKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprint(keys)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// maskKey shows only the first characters of a secret.
func maskKey(key string) string {
	if key == "" {
		return ""
	}
	prefix := key
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return prefix + "…"
}
