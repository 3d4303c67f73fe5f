// Package config resolves client settings from the environment.
package config

type Config interface {
	APIConfig
	LoggingConfig
}

// APIConfig carries everything needed to reach the API.
type APIConfig interface {
	GetHost() string
	GetAppVersion() string
	GetUserAgent() string
	GetClientSecret() string
	GetRedirectURI() string
}

// LoggingConfig carries log output settings.
type LoggingConfig interface {
	GetLogLevel() string
}

type mainConfig struct {
	EnvVars
}

func New() Config {
	return mainConfig{}
}
