// Package config loads the service configuration from a TOML file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"cexd/internal/compiler"
	"cexd/internal/diagparse"
)

const (
	DefaultListen      = ":10240"
	DefaultCleanupSecs = 600
	DefaultConcurrency = 2
)

type Config struct {
	Server    ServerConfig     `toml:"server"`
	Workspace WorkspaceConfig  `toml:"workspace"`
	Queue     QueueConfig      `toml:"queue"`
	Cache     CacheConfig      `toml:"cache"`
	Errors    ErrorsConfig     `toml:"errors"`
	Compilers []CompilerConfig `toml:"compiler"`
}

type ServerConfig struct {
	Listen     string `toml:"listen"`
	TextBanner string `toml:"text_banner"`
}

type WorkspaceConfig struct {
	// TempRoot is where build directories are created; "" means os.TempDir().
	TempRoot    string `toml:"temp_root"`
	CleanupSecs int    `toml:"cleanup_secs"`
}

type QueueConfig struct {
	Concurrency int `toml:"concurrency"`
}

type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type ErrorsConfig struct {
	SentryDSN   string `toml:"sentry_dsn"`
	Environment string `toml:"environment"`
}

type RemoteConfig struct {
	Target string `toml:"target"`
	Path   string `toml:"path"`
}

type CompilerConfig struct {
	ID              string        `toml:"id"`
	Name            string        `toml:"name"`
	Lang            string        `toml:"lang"`
	Exe             string        `toml:"exe"`
	Type            string        `toml:"type"`
	Alias           []string      `toml:"alias"`
	Options         string        `toml:"options"`
	Version         string        `toml:"version"`
	Dialect         string        `toml:"dialect"`
	InstructionSet  string        `toml:"instruction_set"`
	SupportsExecute bool          `toml:"supports_execute"`
	SupportsIntel   bool          `toml:"supports_intel"`
	Remote          *RemoteConfig `toml:"remote"`
	Repository      string        `toml:"repository"`
	CMake           string        `toml:"cmake"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Server:    ServerConfig{Listen: DefaultListen},
		Workspace: WorkspaceConfig{CleanupSecs: DefaultCleanupSecs},
		Queue:     QueueConfig{Concurrency: DefaultConcurrency},
		Cache:     CacheConfig{Enabled: true},
	}
}

// Load reads path on top of Default. An empty path returns Default.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.validate(meta); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate(meta toml.MetaData) error {
	if meta.IsDefined("server", "listen") && strings.TrimSpace(c.Server.Listen) == "" {
		return errors.New("[server].listen must not be empty")
	}
	if meta.IsDefined("workspace", "cleanup_secs") && c.Workspace.CleanupSecs <= 0 {
		return errors.New("[workspace].cleanup_secs must be positive")
	}
	if meta.IsDefined("queue", "concurrency") && c.Queue.Concurrency <= 0 {
		return errors.New("[queue].concurrency must be positive")
	}

	seen := make(map[string]bool, len(c.Compilers))
	for i := range c.Compilers {
		cc := &c.Compilers[i]
		where := fmt.Sprintf("[[compiler]] #%d", i+1)
		if strings.TrimSpace(cc.ID) == "" {
			return fmt.Errorf("%s: missing id", where)
		}
		where = fmt.Sprintf("[[compiler]] %q", cc.ID)
		if strings.TrimSpace(cc.Lang) == "" {
			return fmt.Errorf("%s: missing lang", where)
		}
		if cc.Remote != nil {
			if cc.Remote.Target == "" || cc.Remote.Path == "" {
				return fmt.Errorf("%s: remote needs target and path", where)
			}
		} else if strings.TrimSpace(cc.Exe) == "" {
			return fmt.Errorf("%s: missing exe", where)
		}
		switch cc.Type {
		case "", compiler.TypeDefault, compiler.TypeFortran:
		case compiler.TypeRepository:
			if cc.Repository == "" {
				return fmt.Errorf("%s: type %q needs repository", where, cc.Type)
			}
		default:
			return fmt.Errorf("%s: unknown type %q", where, cc.Type)
		}
		if _, err := diagparse.ForDialect(cc.Dialect); err != nil {
			return fmt.Errorf("%s: %w", where, err)
		}
		key := cc.Lang + "\x00" + cc.ID
		if seen[key] {
			return fmt.Errorf("%s: duplicate id for lang %q", where, cc.Lang)
		}
		seen[key] = true
	}
	return nil
}

// CleanupInterval is the janitor period.
func (c Config) CleanupInterval() time.Duration {
	if c.Workspace.CleanupSecs <= 0 {
		return DefaultCleanupSecs * time.Second
	}
	return time.Duration(c.Workspace.CleanupSecs) * time.Second
}

// Infos converts the [[compiler]] tables into registry input.
func (c Config) Infos() []compiler.Info {
	out := make([]compiler.Info, 0, len(c.Compilers))
	for _, cc := range c.Compilers {
		info := compiler.Info{
			ID:              cc.ID,
			Name:            cc.Name,
			Lang:            cc.Lang,
			Alias:           append([]string(nil), cc.Alias...),
			Exe:             cc.Exe,
			Type:            cc.Type,
			Options:         cc.Options,
			Version:         cc.Version,
			Dialect:         cc.Dialect,
			InstructionSet:  cc.InstructionSet,
			SupportsExecute: cc.SupportsExecute,
			SupportsIntel:   cc.SupportsIntel,
			CMake:           cc.CMake,
		}
		if info.Name == "" {
			info.Name = cc.ID
		}
		if info.Type == "" {
			info.Type = compiler.TypeDefault
		}
		if cc.Remote != nil {
			info.Remote = &compiler.Remote{Target: cc.Remote.Target, Path: cc.Remote.Path}
		}
		if cc.Repository != "" {
			info.Repository = &compiler.RepositorySource{Path: cc.Repository}
		}
		out = append(out, info)
	}
	return out
}
