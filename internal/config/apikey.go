package config

import (
	"errors"
	"fmt"
	"os"
)

// Credential sources accepted by api_key_source and token_source.
const (
	SourceEnv     = "env"
	SourceConfig  = "config"
	SourceKeyring = "keyring"
	SourceNone    = "none"
)

var errNoConfigValue = errors.New("no api_key value provided")

// ResolveAPIKey returns the credential named by source. "env" and "keyring"
// read envVar (there is no keyring backend yet), "config" returns
// configValue and "none" returns an empty key for servers without auth.
func ResolveAPIKey(source, configValue, envVar string) (string, error) {
	switch source {
	case SourceEnv, SourceKeyring:
		if envVar == "" {
			return "", fmt.Errorf("api_key_source %q: no environment variable name", source)
		}
		if v, ok := os.LookupEnv(envVar); ok && v != "" {
			return v, nil
		}
		return "", fmt.Errorf("environment variable %s is not set", envVar)
	case SourceConfig:
		if configValue == "" {
			return "", fmt.Errorf("api_key_source %q: %w", source, errNoConfigValue)
		}
		return configValue, nil
	case SourceNone:
		return "", nil
	}
	return "", fmt.Errorf("unknown api_key_source: %q", source)
}

// ResolveOptionalToken resolves a token for hosts that also serve anonymous
// requests. An empty source means "env", and an unset variable is not an
// error.
func ResolveOptionalToken(source, configValue, envVar string) (string, error) {
	if source == "" || source == SourceEnv {
		return os.Getenv(envVar), nil
	}
	return ResolveAPIKey(source, configValue, envVar)
}
