package config

import (
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"treetally/internal/services"
)

var flagKeys = map[string]string{
	"cache":           "cache_path",
	"workers":         "workers",
	"concurrent":      "concurrent",
	"batch-size":      "refresh.batch_size",
	"opaque-dotfiles": "policy.opaque_dotfiles",
	"log-level":       "log.level",
	"log-file":        "log.file",
	"theme":           "theme",
	"sort":            "sort_mode",
}

func RegisterFlags(flags *pflag.FlagSet, base Config) {
	flags.String("cache", base.CachePath, "Cache file path")
	flags.Int("workers", base.Workers, "Worker count for the concurrent walker")
	flags.Bool("concurrent", base.Concurrent, "Walk directories with a worker pool")
	flags.Int("batch-size", base.Refresh.BatchSize, "Cache entries checked per refresh (0 checks all)")
	flags.Bool("opaque-dotfiles", base.Policy.OpaqueDotfiles, "Measure dot-directories as single leaves")
	flags.String("log-level", base.Log.Level, "Log level (debug, info, warn, error)")
	flags.String("log-file", base.Log.File, "Also write logs to this file")
	flags.String("theme", base.Theme, "Browser theme (dark, light)")
	flags.String("sort", string(base.SortMode), "Browser sort order (size, name, script)")
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if flags == nil {
		return nil
	}
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return err
		}
	}
	return nil
}

func (cfg Config) PolicyOptions() services.PolicyOptions {
	return services.PolicyOptions{
		IgnorePrefixes:   cfg.Policy.IgnorePrefixes,
		IgnoreNames:      cfg.Policy.IgnoreNames,
		ScriptExtensions: cfg.Policy.ScriptExtensions,
		OpaqueDotfiles:   cfg.Policy.OpaqueDotfiles,
	}
}

// RefresherConfig overrides the configured roots when roots is non-empty.
func (cfg Config) RefresherConfig(fs afero.Fs, roots []string) services.RefresherConfig {
	if len(roots) == 0 {
		roots = cfg.Roots
	}
	return services.RefresherConfig{
		FS:         fs,
		Policy:     services.NewPolicy(cfg.PolicyOptions()),
		CachePath:  cfg.CachePath,
		Roots:      roots,
		Workers:    cfg.Workers,
		Concurrent: cfg.Concurrent,
		ShakeBatch: cfg.Refresh.BatchSize,
	}
}
