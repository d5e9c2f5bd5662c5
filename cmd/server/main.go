package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "linkpulse",
	Short: "A link shortener with click analytics",
	Long:  "A link shortening service with cached redirects, SQLite or PostgreSQL storage and asynchronous click analytics (geolocation, device, browser)",
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the link shortening server",
	RunE:  runServer,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	RunE:  runMigrate,
}

var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Client commands for interacting with the server",
}

var shortenCmd = &cobra.Command{
	Use:   "shorten [URL]",
	Short: "Create a short URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runShorten,
}

var infoCmd = &cobra.Command{
	Use:   "info [SLUG]",
	Short: "Get information about a short URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List short URLs, newest first",
	RunE:  runList,
}

var deactivateCmd = &cobra.Command{
	Use:   "deactivate [SLUG]",
	Short: "Deactivate a short URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeactivate,
}

var analyticsCmd = &cobra.Command{
	Use:   "analytics [SLUG]",
	Short: "Show click analytics for a short URL",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalytics,
}

func init() {
	for _, cmd := range []*cobra.Command{serverCmd, migrateCmd} {
		cmd.Flags().StringP("config", "c", "", "Path to a YAML config file")
		cmd.Flags().String("db-driver", "", "Database driver (sqlite or postgres)")
		cmd.Flags().String("db-path", "", "SQLite database file path")
		cmd.Flags().String("db-dsn", "", "PostgreSQL connection string")
	}

	serverCmd.Flags().IntP("port", "p", 0, "Server port")
	serverCmd.Flags().String("base-url", "", "Public base URL used in short links")
	serverCmd.Flags().String("cache-backend", "", "Lookup cache backend (memory or redis)")
	serverCmd.Flags().String("tracker-backend", "", "Click tracker backend (channel or nats)")
	serverCmd.Flags().String("geo-city-db", "", "GeoIP2/GeoLite2 city database path")
	serverCmd.Flags().String("geo-country-db", "", "GeoIP2/GeoLite2 country database path")
	serverCmd.Flags().BoolP("verbose", "v", false, "Enable verbose logging (HTTP requests/responses and error details)")

	clientCmd.PersistentFlags().StringP("server-url", "u", "http://localhost:8080", "Server URL")

	shortenCmd.Flags().String("slug", "", "Custom slug")
	shortenCmd.Flags().String("owner", "", "Owner reference")
	shortenCmd.Flags().Duration("expires-in", 0, "Expire the link after this duration")
	listCmd.Flags().String("owner", "", "Only list links of this owner")

	clientCmd.AddCommand(shortenCmd, infoCmd, listCmd, deactivateCmd, analyticsCmd)
	rootCmd.AddCommand(serverCmd, migrateCmd, clientCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
