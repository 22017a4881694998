package config

import (
	"os"
	"strconv"

	"github.com/fiware/idm-consent/logging"
)

var logger = logging.Log()

type Config interface {
	ProviderId() string
	SigningSecret() []byte
	AccessHistoryLimit() int
}

type EnvConfig struct{}

func (EnvConfig) ProviderId() string {
	providerId := os.Getenv("PROVIDER_ID")
	if providerId == "" {
		logger.Warnf("No provider id configured, use an empty provider.")
	}
	return providerId
}

/**
* The symmetric key used for signing and verifying tokens. The process cannot
* work without it, startup fails when its not configured.
 */
func (EnvConfig) SigningSecret() []byte {
	secret := os.Getenv("SIGNING_SECRET")
	if secret == "" {
		logger.Fatal("No signing secret was configured.")
	}
	return []byte(secret)
}

func (EnvConfig) AccessHistoryLimit() int {
	return readIntEnv("ACCESS_HISTORY_LIMIT", 1000)
}

func readIntEnv(envVar string, defaultValue int) int {
	envValue := os.Getenv(envVar)
	if envValue == "" {
		return defaultValue
	}
	parsedValue, err := strconv.Atoi(envValue)
	if err != nil {
		logger.Warnf("Invalid value %s configured for %s, use default %d.", envValue, envVar, defaultValue)
		return defaultValue
	}
	return parsedValue
}
