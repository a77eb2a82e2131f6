package config

import (
	"os"

	"github.com/GlintPay/defcheck/utils"
	"github.com/caarlos0/env/v6"
	"github.com/rs/zerolog/log"
	"sigs.k8s.io/yaml"
)

// LoadEnvironment reads process-level settings from the environment
func LoadEnvironment() (Configuration, error) {
	envConfig := Configuration{}
	err := env.Parse(&envConfig)
	return envConfig, err
}

// ReadApplicationConfig loads the service's YAML config file. A missing file leaves defaults in place.
func ReadApplicationConfig(filePath string) (ApplicationConfiguration, error) {
	appConfig := ApplicationConfiguration{}

	yamlFile, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info().Msgf("No config file found: %s", utils.FriendlyFileName(filePath))
			return appConfig.withDefaults(), nil
		}
		return appConfig, err
	}

	log.Debug().Msgf("Loading YAML config from %s", utils.FriendlyFileName(filePath))
	if err := yaml.Unmarshal(yamlFile, &appConfig); err != nil {
		return appConfig, err
	}
	return appConfig.withDefaults(), nil
}

func (c ApplicationConfiguration) withDefaults() ApplicationConfiguration {
	if c.Server.Port == 0 {
		c.Server.Port = 80
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.File.Path == "" && !c.File.Disabled && c.Git.Uri == "" && !c.K8s.Enabled {
		c.File.Path = "."
	}
	return c
}
