package config

import "strings"

const (
	// DefaultPort is the default HTTP server port.
	DefaultPort = "8080"

	// DefaultDatabaseURL is empty; must be provided via flag or environment.
	DefaultDatabaseURL = ""

	// DefaultMaxConns and DefaultMinConns bound the pgx connection pool.
	DefaultMaxConns = 10
	DefaultMinConns = 2

	// DefaultEnvFile is loaded before flags are parsed when it exists.
	DefaultEnvFile = ".env"
)

// Database holds connection settings for the storage layer.
type Database struct {
	URL      string
	MaxConns int32
	MinConns int32
}

// HTTP holds listener settings for the web server.
type HTTP struct {
	Port string
}

// CORS holds the cross-origin policy applied to every route.
type CORS struct {
	AllowedOrigins   []string
	AllowCredentials bool
}

// Config is assembled once at process start and passed to the components that need it.
type Config struct {
	HTTP     HTTP
	Database Database
	CORS     CORS
}

// SplitList parses a comma-separated value, dropping blanks.
// An empty input yields nil.
func SplitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}

	var out []string
	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		if entry != "" {
			out = append(out, entry)
		}
	}
	return out
}
