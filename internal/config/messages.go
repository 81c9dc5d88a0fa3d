package config

import (
	"fmt"
	"strings"
)

const (
	errRequiredEnvNotSetFmt = "required environment variable %s is not set"
	errRequiredEnvsNotSet   = "required environment variables are not set: %s"
	errEnvIgnoredFmt        = "%s=%q is not a valid %s, using default"
)

type messageBuilders struct {
	requiredEnvNotSet func(keys ...string) error
	envIgnored        func(key, value, kind string) string
}

func newMessageBuilders() messageBuilders {
	return messageBuilders{
		requiredEnvNotSet: func(keys ...string) error {
			if len(keys) == 1 {
				return fmt.Errorf(errRequiredEnvNotSetFmt, keys[0])
			}
			return fmt.Errorf(errRequiredEnvsNotSet, strings.Join(keys, ", "))
		},
		envIgnored: func(key, value, kind string) string {
			return fmt.Sprintf(errEnvIgnoredFmt, key, value, kind)
		},
	}
}

var messages = newMessageBuilders()
