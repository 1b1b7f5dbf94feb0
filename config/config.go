package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/creasty/defaults"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Options controls where Load looks for configuration.
type Options struct {
	BasePath string
	FileName string
	FileType string
	Mode     Mode
	// Flags, when set, override files and environment for the keys in flagKeys.
	Flags *pflag.FlagSet
}

// DefaultOptions reads sncicd*.yaml from CONFIG_PATH (or the working
// directory) in the mode given by GO_ENV_MODE.
func DefaultOptions() Options {
	basePath := os.Getenv("CONFIG_PATH")
	if basePath == "" {
		basePath = "."
	}

	return Options{
		BasePath: basePath,
		FileName: "sncicd",
		FileType: "yaml",
		Mode:     CurrentMode(),
	}
}

// envKeys binds configuration keys to their environment variables. The
// first non-empty variable wins.
var envKeys = map[string][]string{
	"credentials.username": {EnvUsername, "SNOW_USERNAME"},
	"credentials.password": {EnvPassword, "SNOW_PASSWORD"},
	"instance.name":        {EnvInstance, "SNOW_INSTALL_INSTANCE"},
	"instance.domain":      {"SNOW_DOMAIN"},
	"instance.scheme":      {"SNOW_SCHEME"},
	"instance.base-url":    {"SNOW_BASE_URL"},
	"poll.timeout":         {"SNCICD_POLL_TIMEOUT"},
	"http.timeout":         {"SNCICD_HTTP_TIMEOUT"},
	"log.level":            {"SNCICD_LOG_LEVEL"},
	"log.format":           {"SNCICD_LOG_FORMAT"},
	"log.director":         {"SNCICD_LOG_DIR"},
}

// flagKeys maps configuration keys to command line flag names.
var flagKeys = map[string]string{
	"plugin-id":     "plugin-id",
	"instance.name": "instance",
	"poll.timeout":  "poll-timeout",
	"log.level":     "log-level",
	"log.format":    "log-format",
}

// Load reads the layered files, environment and flags into Settings.
// Missing files are skipped. The result is not validated.
func Load(opts Options) (*Settings, error) {
	v, err := newViper(opts)
	if err != nil {
		return nil, err
	}

	settings := &Settings{}
	if err := defaults.Set(settings); err != nil {
		return nil, fmt.Errorf("failed to set defaults: %w", err)
	}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config (path: %s, file: %s.%s): %w",
			opts.BasePath, opts.FileName, opts.FileType, err)
	}
	// Fields emptied by the sources get their defaults back.
	if err := defaults.Set(settings); err != nil {
		return nil, fmt.Errorf("failed to set defaults after unmarshal: %w", err)
	}

	return settings, nil
}

func newViper(opts Options) (*viper.Viper, error) {
	v := viper.New()
	if opts.FileType != "" {
		v.SetConfigType(opts.FileType)
	}

	for i, path := range getConfigFilePaths(opts) {
		v.SetConfigFile(path)
		read := v.MergeInConfig
		if i == 0 {
			read = v.ReadInConfig
		}
		if err := read(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	}

	for key, names := range envKeys {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if opts.Flags != nil {
		for key, name := range flagKeys {
			flag := opts.Flags.Lookup(name)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, fmt.Errorf("failed to bind flag --%s: %w", name, err)
			}
		}
	}

	return v, nil
}

// getConfigFilePaths lists the existing layered files, lowest priority first:
// base, base.local, then base.<mode> and base.<mode>.local per mode alias.
func getConfigFilePaths(opts Options) (configFiles []string) {
	if opts.FileName == "" || opts.FileType == "" {
		return nil
	}

	fileNames := []string{
		opts.FileName,
		opts.FileName + ".local",
	}
	for _, alias := range opts.Mode.aliases() {
		fileNames = append(fileNames,
			fmt.Sprintf("%s.%s", opts.FileName, alias),
			fmt.Sprintf("%s.%s.local", opts.FileName, alias),
		)
	}

	for _, fileName := range fileNames {
		file := filepath.Join(opts.BasePath, fmt.Sprintf("%s.%s", fileName, opts.FileType))
		if isDir, exists, _ := exists(file); exists && !isDir {
			configFiles = append(configFiles, file)
		}
	}

	return configFiles
}

func exists(path string) (isDir bool, exists bool, err error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return info.IsDir(), true, nil
}
