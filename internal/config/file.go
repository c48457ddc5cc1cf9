package config

import (
	"os"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// mergeFile reads a YAML configuration file and merges it below flags and
// environment. Example:
//
//	server:
//	  address: ":5051"
//	supervisor:
//	  transport: cli
//	  home: /home/deploy/.pm2
func mergeFile(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var values map[string]any
	if err := yaml.Unmarshal(data, &values); err != nil {
		return err
	}

	return v.MergeConfigMap(values)
}
