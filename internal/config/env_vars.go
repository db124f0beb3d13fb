package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	portEnvVar     = "PORT"
	appNameVar     = "APP_NAME"
	folderEnvVar   = "FOLDER"
	apiBaseURLVar  = "PORTAL_API_URL"
	logLevelEnvVar = "LOG_LEVEL"
)

type EnvVars struct {
	source
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := e.get(portEnvVar, "5173")
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.get(appNameVar, "Faculty Portal")
}

func (e EnvVars) GetDataFolder() string {
	return e.get(folderEnvVar, defaultDataFolder())
}

func (e EnvVars) GetEnv() string {
	return e.get("ENV", "DEV")
}

func (e EnvVars) GetLogLevel() string {
	return e.get(logLevelEnvVar, "info")
}

// GetAPIBaseURL returns the REST backend root (e.g., "https://portal.example.edu").
// All /api/... paths are resolved against it.
func (e EnvVars) GetAPIBaseURL() string {
	return strings.TrimRight(e.get(apiBaseURLVar, "http://localhost:8000"), "/")
}

func defaultDataFolder() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "./data"
	}
	return home + string(os.PathSeparator) + ".portal"
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
