package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/brettbedarf/restfs"
	"github.com/brettbedarf/restfs/internal/util"
	"gopkg.in/yaml.v3"
)

// Default configuration constants. See [Config] for field descriptions.
const (
	DefaultFsName = "restfs"
	DefaultName   = "restfs"
	DefaultLogLvl = util.InfoLevel

	// DefaultRemoteType selects the REST client from the adapters registry
	DefaultRemoteType = "rest"

	// Collection layout of the management API
	DefaultBasePath       = "/mgmt/tm"
	DefaultContainersPath = "sys/folder"
	DefaultObjectsPath    = "ltm/rule"

	// DefaultSuffix is appended to every object name in the tree
	DefaultSuffix = ".tcl"

	// DefaultSeparator replaces "/" when projecting a path to a remote identifier
	DefaultSeparator = "~"

	DefaultStrictTLS = true
	DefaultTimeout   = 30 * time.Second

	// DefaultNotifyDelay is how long change records are coalesced before delivery
	DefaultNotifyDelay = 5 * time.Millisecond

	// DefaultAttrTimeout is the attribute cache timeout in seconds
	DefaultAttrTimeout = 1.0

	// DefaultEntryTimeout is the directory entry cache timeout in seconds
	DefaultEntryTimeout = 1.0

	// DefaultDirectIO determines whether to bypass page cache for mounted objects
	DefaultDirectIO = true
)

// CLI style verbosity levels accepted in config files and flags
const (
	ErrorVerbose = iota + 1
	WarnVerbose
	InfoVerbose
	DebugVerbose
	TraceVerbose
)

// Config contains runtime configuration values for the filesystem.
type Config struct {
	MountOptions
	LogLvl util.LogLevel
	Remote RemoteConfig

	NotifyDelay time.Duration // Change batch coalescing window (Default 5ms)

	// NOTE: FUSE cache tuning only applies to the mount command

	AttrTimeout  float64 // Attribute cache timeout in seconds (Default 1.0)
	EntryTimeout float64 // Directory entry cache timeout in seconds (Default 1.0)
	DirectIO     bool    // Whether to bypass page cache for objects (Default true)
}

// RemoteConfig describes how to reach the management API
type RemoteConfig struct {
	Type           string        // Registered client type (Default "rest")
	Host           string        // Host, optionally with scheme and port
	Username       string        // Basic auth user
	Password       string        // Basic auth password
	StrictTLS      bool          // Verify server certificates (Default true)
	BasePath       string        // API prefix (Default /mgmt/tm)
	ContainersPath string        // Container collection below BasePath (Default sys/folder)
	ObjectsPath    string        // Object collection below BasePath (Default ltm/rule)
	Suffix         string        // Object name suffix in the tree (Default .tcl)
	Separator      string        // Remote identifier separator (Default ~)
	Timeout        time.Duration // Per request timeout (Default 30s)
	SnapshotPath   string        // Fixture file for the snapshot client type
}

// Credentials builds the connect credentials from the remote settings
func (c *Config) Credentials() restfs.Credentials {
	return restfs.Credentials{
		Host:      c.Remote.Host,
		Username:  c.Remote.Username,
		Password:  c.Remote.Password,
		StrictTLS: c.Remote.StrictTLS,
	}
}

// ConfigOverride uses pointer fields to distinguish between unset and zero values
// when loading partial configuration. See [Config] for field descriptions.
type ConfigOverride struct {
	FsName *string `yaml:"fs_name,omitempty" json:"fs_name,omitempty"`
	Name   *string `yaml:"name,omitempty" json:"name,omitempty"`
	Debug  *bool   `yaml:"debug,omitempty" json:"debug,omitempty"`
	LogLvl *int    `yaml:"verbose,omitempty" json:"verbose,omitempty"` // 1 (error) .. 5 (trace)

	RemoteType     *string `yaml:"remote_type,omitempty" json:"remote_type,omitempty"`
	Host           *string `yaml:"host,omitempty" json:"host,omitempty"`
	Username       *string `yaml:"username,omitempty" json:"username,omitempty"`
	Password       *string `yaml:"password,omitempty" json:"password,omitempty"`
	StrictTLS      *bool   `yaml:"strict_tls,omitempty" json:"strict_tls,omitempty"`
	BasePath       *string `yaml:"base_path,omitempty" json:"base_path,omitempty"`
	ContainersPath *string `yaml:"containers_path,omitempty" json:"containers_path,omitempty"`
	ObjectsPath    *string `yaml:"objects_path,omitempty" json:"objects_path,omitempty"`
	Suffix         *string `yaml:"suffix,omitempty" json:"suffix,omitempty"`
	Separator      *string `yaml:"separator,omitempty" json:"separator,omitempty"`
	TimeoutMs      *int    `yaml:"timeout_ms,omitempty" json:"timeout_ms,omitempty"`
	SnapshotPath   *string `yaml:"snapshot_path,omitempty" json:"snapshot_path,omitempty"`

	NotifyDelayMs *int     `yaml:"notify_delay_ms,omitempty" json:"notify_delay_ms,omitempty"`
	AttrTimeout   *float64 `yaml:"attr_timeout,omitempty" json:"attr_timeout,omitempty"`
	EntryTimeout  *float64 `yaml:"entry_timeout,omitempty" json:"entry_timeout,omitempty"`
	DirectIO      *bool    `yaml:"direct_io,omitempty" json:"direct_io,omitempty"`
}

// NewDefaultConfig creates a new Config with all default values.
func NewDefaultConfig() *Config {
	return &Config{
		MountOptions: MountOptions{
			FsName: DefaultFsName,
			Name:   DefaultName,
		},
		LogLvl: DefaultLogLvl,
		Remote: RemoteConfig{
			Type:           DefaultRemoteType,
			StrictTLS:      DefaultStrictTLS,
			BasePath:       DefaultBasePath,
			ContainersPath: DefaultContainersPath,
			ObjectsPath:    DefaultObjectsPath,
			Suffix:         DefaultSuffix,
			Separator:      DefaultSeparator,
			Timeout:        DefaultTimeout,
		},
		NotifyDelay:  DefaultNotifyDelay,
		AttrTimeout:  DefaultAttrTimeout,
		EntryTimeout: DefaultEntryTimeout,
		DirectIO:     DefaultDirectIO,
	}
}

// NewConfig returns the defaults with override applied. A nil override
// yields the defaults.
func NewConfig(override *ConfigOverride) *Config {
	cfg := NewDefaultConfig()
	if override != nil {
		cfg.Merge(override)
	}
	return cfg
}

// VerbosityToLogLevel maps 1 (error) .. 5 (trace), clamping out of range values
func VerbosityToLogLevel(verbose int) util.LogLevel {
	verbose = max(ErrorVerbose, min(TraceVerbose, verbose))
	// util levels run trace(0) .. error(4)
	return util.LogLevel(TraceVerbose - verbose)
}

// Merge applies non-nil values from override onto this Config.
// This allows partial configuration updates while preserving existing values.
func (c *Config) Merge(override *ConfigOverride) {
	setIf(&c.FsName, override.FsName)
	setIf(&c.Name, override.Name)
	setIf(&c.Debug, override.Debug)
	if override.LogLvl != nil {
		c.LogLvl = VerbosityToLogLevel(*override.LogLvl)
	}

	setIf(&c.Remote.Type, override.RemoteType)
	setIf(&c.Remote.Host, override.Host)
	setIf(&c.Remote.Username, override.Username)
	setIf(&c.Remote.Password, override.Password)
	setIf(&c.Remote.StrictTLS, override.StrictTLS)
	setIf(&c.Remote.BasePath, override.BasePath)
	setIf(&c.Remote.ContainersPath, override.ContainersPath)
	setIf(&c.Remote.ObjectsPath, override.ObjectsPath)
	setIf(&c.Remote.Suffix, override.Suffix)
	setIf(&c.Remote.Separator, override.Separator)
	setIf(&c.Remote.SnapshotPath, override.SnapshotPath)
	if override.TimeoutMs != nil {
		c.Remote.Timeout = time.Duration(*override.TimeoutMs) * time.Millisecond
	}

	if override.NotifyDelayMs != nil {
		c.NotifyDelay = time.Duration(*override.NotifyDelayMs) * time.Millisecond
	}
	setIf(&c.AttrTimeout, override.AttrTimeout)
	setIf(&c.EntryTimeout, override.EntryTimeout)
	setIf(&c.DirectIO, override.DirectIO)
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// LoadConfigOverrideFile loads configuration overrides from a file without merging.
// Supports both YAML (.yaml, .yml) and JSON (.json) formats.
func LoadConfigOverrideFile(path string) (*ConfigOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var override ConfigOverride

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config file extension: %s", path)
	}

	return &override, nil
}

// NewConfigFromFile creates a new Config by merging file overrides with defaults.
func NewConfigFromFile(path string) (*Config, error) {
	override, err := LoadConfigOverrideFile(path)
	if err != nil {
		return nil, err
	}
	return NewConfig(override), nil
}
