package config

import (
	"github.com/jxo-me/talpa/consts"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const (
	ConfigFilePathENV = "TALPA_CONFIG_FILE_PATH"
	EnvPrefix         = "TALPA"

	defaultConfigFile      = ".talpa.yaml"
	defaultCredentialsFile = ".config/talpa/credentials.yaml"
)

// ErrNoConfigFile is returned with the defaults when there is no file to read.
var ErrNoConfigFile = errors.New("no configuration file")

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.output", "stderr")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("api.baseURL", consts.DefaultAPIBaseURL)
	v.SetDefault("api.timeout", consts.DefaultRequestTimeout*time.Second)
	v.SetDefault("api.maxRetries", consts.DefaultMaxRetries)
	v.SetDefault("credentials.backend", DefaultCredentialBackend())
	v.SetDefault("credentials.file", GetCredentialsFilePathDefault())
	v.SetDefault("credentials.service", consts.DefaultKeychainService)
	v.SetDefault("webhook.url", "")
	v.SetDefault("webhook.requestBody", "")
	v.SetDefault("webhook.headers", "")
}

// ReadConfigFile loads path, or GetConfigFilePath when path is empty, with
// TALPA_* environment overrides. A missing file yields the defaults together
// with ErrNoConfigFile.
func ReadConfigFile(path string, log *zerolog.Logger) (*Config, error) {
	if path == "" {
		path = GetConfigFilePath()
	}
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	var readErr error
	if err := v.ReadInConfig(); err != nil {
		var pathErr *fs.PathError
		if !errors.As(err, &pathErr) || !os.IsNotExist(pathErr) {
			return nil, errors.Wrapf(err, "read config file %s", path)
		}
		log.Debug().Str("path", path).Msg("no config file, using defaults")
		readErr = ErrNoConfigFile
	} else {
		log.Debug().Str("path", path).Msg("loaded config file")
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrapf(err, "decode config file %s", path)
	}
	cfg.Credentials.File = expandHome(cfg.Credentials.File)
	if cfg.Log != nil {
		cfg.Log.Output = expandHome(cfg.Log.Output)
	}
	return cfg, readErr
}

// GetConfigFilePath 获得配置文件路径
func GetConfigFilePath() string {
	configFilePath := os.Getenv(ConfigFilePathENV)
	if configFilePath != "" {
		return configFilePath
	}
	return GetConfigFilePathDefault()
}

// GetConfigFilePathDefault 获得默认的配置文件路径
func GetConfigFilePathDefault() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return defaultConfigFile
	}
	return filepath.Join(dir, defaultConfigFile)
}

func GetCredentialsFilePathDefault() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Base(defaultCredentialsFile)
	}
	return filepath.Join(dir, defaultCredentialsFile)
}

// DefaultCredentialBackend is the keychain on macOS and a file elsewhere.
func DefaultCredentialBackend() string {
	if runtime.GOOS == "darwin" {
		return "keychain"
	}
	return "file"
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	dir, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(dir, strings.TrimPrefix(p, "~"))
}
