package config

import "os"

const (
	hostEnvVar         = "PROTON_HOST"
	appVersionEnvVar   = "PROTON_APP_VERSION"
	userAgentEnvVar    = "PROTON_USER_AGENT"
	clientSecretEnvVar = "PROTON_CLIENT_SECRET"
	redirectURIEnvVar  = "PROTON_REDIRECT_URI"
	logLevelEnvVar     = "PROTON_LOG_LEVEL"
)

type EnvVars struct{}

var _ Config = EnvVars{}

func (EnvVars) GetHost() string {
	return GetEnv(hostEnvVar, "https://mail.protonmail.ch/api")
}

func (EnvVars) GetAppVersion() string {
	return GetEnv(appVersionEnvVar, "Other")
}

func (EnvVars) GetUserAgent() string {
	return GetEnv(userAgentEnvVar, "")
}

func (EnvVars) GetClientSecret() string {
	return GetEnv(clientSecretEnvVar, "")
}

func (EnvVars) GetRedirectURI() string {
	return GetEnv(redirectURIEnvVar, "https://protonmail.ch")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelEnvVar, "info")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
