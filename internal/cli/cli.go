package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/resolvekit/pkg/buildinfo"
	"github.com/matzehuels/resolvekit/pkg/cache"
	"github.com/matzehuels/resolvekit/pkg/filesystem"
	"github.com/matzehuels/resolvekit/pkg/pipeline"
	"github.com/matzehuels/resolvekit/pkg/resolve"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "resolvekit"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// Config is loaded before any command runs.
	Config     *Config
	configPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: defaultConfig(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Resolvekit resolves module specifiers the way Node.js does",
		Long: `Resolvekit maps require() and import specifiers to files, following the
Node.js CommonJS and ES module algorithms: package exports and imports,
self-references, node_modules lookup and symbolic links.`,
		Version:      buildinfo.Get().Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, err := loadConfig(c.configPath)
			if err != nil {
				return err
			}
			c.Config = cfg
			if path != "" {
				c.Logger.Debug("loaded config", "path", path)
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: ./resolvekit.toml or ./resolvekit.yaml)")

	root.AddCommand(c.resolveCommand())
	root.AddCommand(c.traceCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner over the host filesystem for CLI use.
func (c *CLI) newRunner(noCache bool) (*pipeline.Runner, error) {
	store, err := c.newCache(noCache)
	if err != nil {
		return nil, err
	}
	return c.newRunnerWithCache(store)
}

// newRunnerWithCache creates a pipeline runner over the host filesystem
// that stores results in store.
func (c *CLI) newRunnerWithCache(store cache.Cache) (*pipeline.Runner, error) {
	session := resolve.NewSession(filesystem.OS{})
	c.Logger.Debug("session started", "id", session.ID)
	runner := pipeline.NewRunner(store, nil, session, c.Logger)
	runner.TTL = c.Config.Cache.TTLDuration()
	return runner, nil
}

func (c *CLI) newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := c.cacheDir()
	if err != nil {
		c.Logger.Warn("caching disabled", "err", err)
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// newServerCache prefers Redis when configured so several servers share
// results, falling back to the file cache.
func (c *CLI) newServerCache(ctx context.Context, noCache bool) (cache.Cache, error) {
	redisCfg := c.Config.Cache.Redis
	if noCache || redisCfg.Addr == "" {
		return c.newCache(noCache)
	}
	return cache.NewRedisCache(ctx, cache.RedisConfig{
		Addr:     redisCfg.Addr,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
		Prefix:   redisCfg.Prefix,
	})
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the configured cache directory, or the XDG default.
func (c *CLI) cacheDir() (string, error) {
	if c.Config != nil && c.Config.Cache.Dir != "" {
		return c.Config.Cache.Dir, nil
	}
	return cacheDir()
}

// cacheDir returns the cache directory using XDG standard (~/.cache/resolvekit/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// requestOptions merges flag values over the configuration.
func (c *CLI) requestOptions(spec, parent, mode string, conditions, extensions []string) pipeline.Options {
	if mode == "" {
		mode = c.Config.Mode
	}
	if len(conditions) == 0 {
		conditions = c.Config.Conditions
	}
	if len(extensions) == 0 {
		extensions = c.Config.Extensions
	}
	return pipeline.Options{
		Specifier:  spec,
		Parent:     parent,
		Mode:       mode,
		Conditions: conditions,
		Extensions: extensions,
	}
}
