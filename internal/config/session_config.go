package config

import (
	"path/filepath"
	"strings"
	"time"
)

// StoreKind selects the backing store for the persisted session.
type StoreKind string

const (
	StoreFile   StoreKind = "file"
	StoreSQLite StoreKind = "sqlite"
	StoreRedis  StoreKind = "redis"
	StoreMemory StoreKind = "memory"
)

type Session struct {
	source
}

var _ SessionConfig = Session{}

func (s Session) GetSessionStore() StoreKind {
	switch kind := StoreKind(strings.ToLower(s.get("SESSION_STORE", string(StoreFile)))); kind {
	case StoreFile, StoreSQLite, StoreRedis, StoreMemory:
		return kind
	default:
		return StoreFile
	}
}

// GetSessionPath is the file used by the file and sqlite stores.
func (s Session) GetSessionPath() string {
	folder := EnvVars(s).GetDataFolder()
	switch s.GetSessionStore() {
	case StoreSQLite:
		return s.get("SESSION_PATH", filepath.Join(folder, "session.db"))
	default:
		return s.get("SESSION_PATH", filepath.Join(folder, "session.json"))
	}
}

func (s Session) GetRedisAddr() string {
	return s.get("REDIS_ADDR", "127.0.0.1:6379")
}

func (s Session) GetRedisPassword() string {
	return s.get("REDIS_PASSWORD", "")
}

func (s Session) GetRedisKey() string {
	return s.get("REDIS_KEY", "portal:session")
}

func (s Session) GetRequestTimeout() time.Duration {
	return s.getDuration("REQUEST_TIMEOUT", 30*time.Second)
}

// GetStartupRetries is the number of extra validation attempts made when the
// profile check fails at the transport level. Zero logs the user out on the
// first network failure.
func (s Session) GetStartupRetries() int {
	return s.getInt("STARTUP_RETRIES", 0)
}

func (s Session) GetStartupRetryBackoff() time.Duration {
	return s.getDuration("STARTUP_RETRY_BACKOFF", 500*time.Millisecond)
}
