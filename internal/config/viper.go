package config

import (
	"os"

	"github.com/spf13/viper"
)

// GetString is a helper to get string values from Viper.
// It checks both OS environment variables and Viper configuration.
func GetString(v *viper.Viper, key string) string {
	// Check OS env directly first
	osValue := os.Getenv(key)
	viperValue := v.GetString(key)

	// If Viper doesn't have it but OS does, return OS value
	if viperValue == "" && osValue != "" {
		return osValue
	}
	return viperValue
}

// keyFallbacks maps config keys to the conventional environment variables
// consulted when the key itself is unset.
var keyFallbacks = map[string]string{
	"sources.geoip_key": "GEOIP_API_KEY",
	"events.brokers":    "KAFKA_BROKERS",
}

// applyFallbacks fills unset keys from their conventional variables.
func applyFallbacks(v *viper.Viper) {
	for key, env := range keyFallbacks {
		if v.GetString(key) != "" {
			continue
		}
		if value := GetString(v, env); value != "" {
			v.Set(key, value)
		}
	}
}
