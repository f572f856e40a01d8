package app

import (
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the service specific section of the config file, found under the
// "app" key. Services decode it with mapstructure.
type Config map[string]interface{}

// BaseConfig is shared by every service started through Run
type BaseConfig struct {
	AppName  string `mapstructure:"app_name"`
	LogLevel string `mapstructure:"log_level"`

	ListenAddress      string `mapstructure:"listen_address"`
	DebugListenAddress string `mapstructure:"debug_listen_address"`

	// File URLs for serving HTTPS. Both or neither must be set.
	TLSCertificate string `mapstructure:"tls_certificate"`
	TLSKey         string `mapstructure:"tls_private_key"`

	ReadHeaderTimeout   time.Duration `mapstructure:"read_header_timeout"`
	ShutdownGracePeriod time.Duration `mapstructure:"shutdown_grace_period"`

	EnablePprof  bool `mapstructure:"enable_pprof"`
	EnableExpvar bool `mapstructure:"enable_expvar"`

	// BallastCapacity is a fraction of system memory, capped at 0.5
	EnableBallast   bool    `mapstructure:"enable_ballast"`
	BallastCapacity float32 `mapstructure:"ballast_capacity"`

	// RestartSchedule is a cron expression at which the process exits so its
	// supervisor starts a fresh one
	EnableScheduledRestart bool   `mapstructure:"enable_scheduled_restart"`
	RestartSchedule        string `mapstructure:"restart_schedule"`

	NewRelicLicenseKey string `mapstructure:"new_relic_license_key"`

	AppConfig Config `mapstructure:"app"`
}

func defaultBaseConfig() BaseConfig {
	return BaseConfig{
		LogLevel:            "info",
		ListenAddress:       ":8080",
		DebugListenAddress:  ":8123",
		ReadHeaderTimeout:   10 * time.Second,
		ShutdownGracePeriod: 30 * time.Second,
		EnablePprof:         true,
		EnableExpvar:        true,
		BallastCapacity:     0.333,
		RestartSchedule:     "0 5 * * *",
	}
}

// Every base key can be overridden by its upper cased environment variable
var envKeys = []string{
	"app_name",
	"log_level",
	"listen_address",
	"debug_listen_address",
	"tls_certificate",
	"tls_private_key",
	"read_header_timeout",
	"shutdown_grace_period",
	"enable_pprof",
	"enable_expvar",
	"enable_ballast",
	"ballast_capacity",
	"enable_scheduled_restart",
	"restart_schedule",
	"new_relic_license_key",
}

// loadConfig reads path, when it exists, layered under the environment. A
// missing file is not an error so services can be configured by env alone.
func loadConfig(v *viper.Viper, path string) (BaseConfig, error) {
	for _, key := range envKeys {
		if err := v.BindEnv(key, strings.ToUpper(key)); err != nil {
			return BaseConfig{}, errors.Wrapf(err, "error binding %s", key)
		}
	}

	_, err := os.Stat(path)
	switch {
	case err == nil:
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return BaseConfig{}, errors.Wrapf(err, "error reading %s", path)
		}
	case !os.IsNotExist(err):
		return BaseConfig{}, errors.Wrapf(err, "error checking %s", path)
	}

	config := defaultBaseConfig()
	if err := v.Unmarshal(&config); err != nil {
		return BaseConfig{}, errors.Wrap(err, "error decoding config")
	}

	if config.AppName == "" {
		return BaseConfig{}, errors.New("app_name is required")
	}
	if (config.TLSCertificate == "") != (config.TLSKey == "") {
		return BaseConfig{}, errors.New("tls_certificate and tls_private_key must be set together")
	}
	return config, nil
}
