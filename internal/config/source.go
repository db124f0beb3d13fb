package config

import (
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const configFileName = "portal"

type source struct {
	v *viper.Viper
}

func newSource() source {
	v := viper.New()
	v.SetConfigName(configFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.portal")
	v.AutomaticEnv()

	var notFound viper.ConfigFileNotFoundError
	if err := v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
		log.Warn().Err(err).Msg("ignoring unreadable config file")
	}
	return source{v: v}
}

func (s source) get(key, defaultValue string) string {
	if s.v == nil {
		return GetEnv(key, defaultValue)
	}
	value := s.v.GetString(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func (s source) getDuration(key string, defaultValue time.Duration) time.Duration {
	value := s.get(key, "")
	if value == "" {
		return defaultValue
	}
	if parsed, err := time.ParseDuration(value); err == nil {
		return parsed
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}

func (s source) getInt(key string, defaultValue int) int {
	value := s.get(key, "")
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
