package config

import (
	"fmt"
	"strings"
)

// Environment variable names recognized by radiosync.
const (
	EnvAPIKey     = "TARANA_API_KEY"
	EnvAPIBaseURL = "TARANA_API_BASE_URL"
	EnvCPIID      = "CPI_ID"
	EnvDBDriver   = "DB_DRIVER"
	EnvDBPath     = "DB_PATH"
	EnvDBHost     = "DB_HOST"
	EnvDBPort     = "DB_PORT"
	EnvDBName     = "DB_NAME"
	EnvDBUser     = "DB_USER"
	EnvDBPassword = "DB_PASSWORD"
)

const defaultAPIBaseURL = "https://api.trial.cloud.taranawireless.com"

// Database holds connection parameters for the deployment database.
// Driver is either "sqlite" (Path) or "postgres" (Host/Port/Name/User/Password).
type Database struct {
	Driver   string
	Path     string
	Host     string
	Port     string
	Name     string
	User     string
	Password string
}

// Settings bundles the credentials and endpoints radiosync needs at runtime.
type Settings struct {
	APIKey     string
	APIBaseURL string
	CPIID      string
	Database   Database
}

// Load reads settings from the environment (after .env resolution).
func Load() Settings {
	return Settings{
		APIKey:     String(EnvAPIKey, ""),
		APIBaseURL: String(EnvAPIBaseURL, defaultAPIBaseURL),
		CPIID:      String(EnvCPIID, ""),
		Database: Database{
			Driver:   String(EnvDBDriver, "sqlite"),
			Path:     String(EnvDBPath, "radiosync.db"),
			Host:     String(EnvDBHost, ""),
			Port:     String(EnvDBPort, "5432"),
			Name:     String(EnvDBName, ""),
			User:     String(EnvDBUser, ""),
			Password: String(EnvDBPassword, ""),
		},
	}
}

// ConfigurationError reports required settings that are absent. It is fatal to
// the whole invocation and is raised before any per-device work starts.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Missing, ", "))
}

// ValidateAPI checks the settings required for any vendor API operation.
func (s Settings) ValidateAPI() error {
	if strings.TrimSpace(s.APIKey) == "" {
		return &ConfigurationError{Missing: []string{EnvAPIKey}}
	}
	return nil
}

// ValidateDatabase checks the settings required for the deploy operation.
func (s Settings) ValidateDatabase() error {
	var missing []string
	switch strings.ToLower(strings.TrimSpace(s.Database.Driver)) {
	case "", "sqlite":
		if strings.TrimSpace(s.Database.Path) == "" {
			missing = append(missing, EnvDBPath)
		}
	case "postgres":
		if strings.TrimSpace(s.Database.Host) == "" {
			missing = append(missing, EnvDBHost)
		}
		if strings.TrimSpace(s.Database.Name) == "" {
			missing = append(missing, EnvDBName)
		}
		if strings.TrimSpace(s.Database.User) == "" {
			missing = append(missing, EnvDBUser)
		}
	default:
		return fmt.Errorf("unsupported database driver %q", s.Database.Driver)
	}
	if len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}
	return nil
}
