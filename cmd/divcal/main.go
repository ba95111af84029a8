// Command divcal builds the dividend calendar, serves it over HTTP and runs
// what-if dividend simulations from the terminal.
package main

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"divcal/config"
	"divcal/observability"
)

const envPrefix = "DIVCAL"

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		observability.Debug("no .env file found, using environment variables")
	}

	if err := newRootCmd(viper.New()).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "divcal",
		Short:        "Dividend calendar and earnings simulator",
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.String("provider", "", "market data provider (fmp or yahoo)")
	flags.String("symbols", "", "comma separated symbol universe")
	flags.String("symbols-file", "", "YAML file with the symbol universe")
	flags.String("database-url", "", "Postgres URL for the market data cache")
	flags.String("target-currency", "", "currency for simulations (ISO code)")
	flags.Int("max-concurrent", 0, "parallel symbol fetches")
	flags.String("log-level", "", "debug, info, warn or error")
	flags.Bool("log-json", false, "log as JSON")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	v.BindPFlags(flags)

	rootCmd.AddCommand(
		newServeCmd(v),
		newCatalogCmd(v),
		newSimulateCmd(v),
		newExportCmd(v),
	)
	return rootCmd
}

// loadConfig reads the environment configuration and applies flag and
// DIVCAL_ overrides on top of it
func loadConfig(v *viper.Viper) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	applyOverrides(cfg, v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	observability.InitLoggerWithLevel(cfg.Log.Production, observability.ParseLevel(cfg.Log.Level))
	observability.InitMetrics()
	return cfg, nil
}

func applyOverrides(cfg *config.Config, v *viper.Viper) {
	if s := v.GetString("provider"); s != "" {
		cfg.Provider.Name = strings.ToLower(s)
	}
	if s := v.GetString("symbols"); s != "" {
		cfg.Calendar.Symbols = s
	}
	if s := v.GetString("symbols-file"); s != "" {
		cfg.Calendar.SymbolsFile = s
	}
	if s := v.GetString("database-url"); s != "" {
		cfg.Database.URL = s
	}
	if s := v.GetString("target-currency"); s != "" {
		cfg.Currency.Target = strings.ToUpper(s)
	}
	if n := v.GetInt("max-concurrent"); n > 0 {
		cfg.Calendar.MaxConcurrent = n
	}
	if s := v.GetString("log-level"); s != "" {
		cfg.Log.Level = s
	}
	if v.GetBool("log-json") {
		cfg.Log.Production = true
	}
	if n := v.GetInt("port"); n > 0 {
		cfg.HTTP.Port = n
	}
}
