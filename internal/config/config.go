package config

import (
	"time"

	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	SessionConfig
	CorsConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetAPIBaseURL() string
	GetDataFolder() string
}

type SessionConfig interface {
	GetSessionStore() StoreKind
	GetSessionPath() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisKey() string
	GetRequestTimeout() time.Duration
	GetStartupRetries() int
	GetStartupRetryBackoff() time.Duration
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Session
	Cors
}

// New loads an optional .env file, then reads settings from the environment
// and an optional portal.yaml. Environment variables win over the file.
func New() Config {
	_ = godotenv.Load()
	src := newSource()
	return mainConfig{
		EnvVars: EnvVars{src},
		Session: Session{src},
		Cors:    Cors{src},
	}
}
