package config

import (
	"errors"

	"cortx-e2e/tools/toolcfg"

	"github.com/spf13/viper"
)

// App config struct
type Config struct {
	Jira     Jira
	TestPlan string
	Output   string
	Logger   toolcfg.Logger
}

type Jira struct {
	URL   string
	User  string
	Token string
}

// Load config file from given path, environment variables override file values
func LoadConfig(filename string) (*viper.Viper, error) {
	v := viper.New()

	v.SetConfigFile(filename)
	v.SetDefault("output", "jira_report.csv")
	v.SetDefault("logger.level", "info")
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil, errors.New("config file not found")
		}
		return nil, err
	}

	return v, nil
}

// Parse config file
func ParseConfig(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	if c.Jira.URL == "" {
		return nil, errors.New("jira url not configured")
	}
	return &c, nil
}
