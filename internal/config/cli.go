package config

import (
	"errors"
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// BindFlag binds a command-line flag to a configuration key.
func BindFlag(configViper *viper.Viper, flags *pflag.FlagSet, key, flag string) error {
	lookup := flags.Lookup(flag)
	if lookup == nil {
		return fmt.Errorf("config: flag %q is not defined", flag)
	}
	return configViper.BindPFlag(key, lookup)
}

// ReadSources loads the dotenv file and then the optional config file. A missing
// config file is an error only when one was named explicitly.
func ReadSources(configViper *viper.Viper, configFile, envFile string) error {
	if err := LoadDotEnv(envFile); err != nil {
		return err
	}

	if configFile != "" {
		configViper.SetConfigFile(configFile)
	}

	if err := configViper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &configNotFound) {
			return fmt.Errorf("config: read %s: %w", configFile, err)
		}
	}

	return nil
}
