package config

import "treetally/internal/domain"

type Config struct {
	CachePath  string          `mapstructure:"cache_path"`
	Roots      []string        `mapstructure:"roots"`
	Workers    int             `mapstructure:"workers"`
	Concurrent bool            `mapstructure:"concurrent"`
	Refresh    RefreshConfig   `mapstructure:"refresh"`
	Policy     PolicyConfig    `mapstructure:"policy"`
	Log        LogConfig       `mapstructure:"log"`
	Theme      string          `mapstructure:"theme"`
	SortMode   domain.SortMode `mapstructure:"sort_mode"`
}

type RefreshConfig struct {
	BatchSize int `mapstructure:"batch_size"`
}

type PolicyConfig struct {
	IgnorePrefixes   []string `mapstructure:"ignore_prefixes"`
	IgnoreNames      []string `mapstructure:"ignore_names"`
	ScriptExtensions []string `mapstructure:"script_extensions"`
	OpaqueDotfiles   bool     `mapstructure:"opaque_dotfiles"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}
