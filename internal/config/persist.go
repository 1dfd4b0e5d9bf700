package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"treetally/internal/domain"
	"treetally/internal/services"
)

const (
	configDirName  = "treetally"
	configFileName = "config.yaml"
	envPrefix      = "TREETALLY"
)

func DefaultConfig() Config {
	cachePath, err := services.DefaultCachePath()
	if err != nil {
		cachePath = filepath.Join(".", configDirName+"-cache.csv")
	}
	return Config{
		CachePath:  cachePath,
		Roots:      []string{},
		Workers:    services.DefaultWorkerCount(),
		Concurrent: true,
		Refresh:    RefreshConfig{BatchSize: services.DefaultShakeBatch},
		Policy: PolicyConfig{
			IgnorePrefixes:   append([]string{}, services.DefaultIgnorePrefixes...),
			IgnoreNames:      append([]string{}, services.DefaultIgnoreNames...),
			ScriptExtensions: append([]string{}, services.DefaultScriptExtensions...),
		},
		Log:      LogConfig{Level: "info"},
		Theme:    "dark",
		SortMode: domain.SortBySize,
	}
}

func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, configDirName), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// LoadConfig layers defaults, the config file, TREETALLY_* variables and any
// changed flags, in increasing precedence. An empty file searches the user
// config dir and the working directory; a missing file is not an error
// unless it was named explicitly.
func LoadConfig(fs afero.Fs, file string, flags *pflag.FlagSet) (Config, error) {
	v := newViper(fs)
	if file != "" {
		v.SetConfigFile(file)
	} else {
		if dir, err := ConfigDir(); err == nil {
			v.AddConfigPath(dir)
		}
		v.AddConfigPath(".")
	}
	if err := bindFlags(v, flags); err != nil {
		return DefaultConfig(), err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return DefaultConfig(), err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return DefaultConfig(), err
	}
	cfg.SortMode = domain.ParseSortMode(string(cfg.SortMode), domain.SortBySize)
	return cfg, nil
}

func SaveConfig(fs afero.Fs, path string, cfg Config) error {
	if path == "" {
		resolved, err := ConfigPath()
		if err != nil {
			return err
		}
		path = resolved
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigType("yaml")
	for key, value := range settings(cfg) {
		v.Set(key, value)
	}
	return v.WriteConfigAs(path)
}

func newViper(fs afero.Fs) *viper.Viper {
	v := viper.New()
	v.SetFs(fs)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range settings(DefaultConfig()) {
		v.SetDefault(key, value)
	}
	return v
}

func settings(cfg Config) map[string]any {
	return map[string]any{
		"cache_path":               cfg.CachePath,
		"roots":                    cfg.Roots,
		"workers":                  cfg.Workers,
		"concurrent":               cfg.Concurrent,
		"refresh.batch_size":       cfg.Refresh.BatchSize,
		"policy.ignore_prefixes":   cfg.Policy.IgnorePrefixes,
		"policy.ignore_names":      cfg.Policy.IgnoreNames,
		"policy.script_extensions": cfg.Policy.ScriptExtensions,
		"policy.opaque_dotfiles":   cfg.Policy.OpaqueDotfiles,
		"log.level":                cfg.Log.Level,
		"log.file":                 cfg.Log.File,
		"theme":                    cfg.Theme,
		"sort_mode":                string(cfg.SortMode),
	}
}
