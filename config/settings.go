package config

import (
	"time"

	"github.com/leeforge/sncicd-plugin-activate/logging"
)

// Environment variables that carry the workflow secrets.
const (
	EnvUsername = "snowUsername"
	EnvPassword = "snowPassword"
	EnvInstance = "snowInstallInstance"
)

// Settings is everything one activation run needs.
type Settings struct {
	// Credentials come before Instance so missing secrets are reported
	// username, password, instance.
	Credentials Credentials    `mapstructure:"credentials" yaml:"credentials"`
	Instance    Instance       `mapstructure:"instance" yaml:"instance"`
	PluginID    string         `mapstructure:"plugin-id" yaml:"plugin-id"`
	Poll        Poll           `mapstructure:"poll" yaml:"poll"`
	HTTP        HTTP           `mapstructure:"http" yaml:"http"`
	Log         logging.Config `mapstructure:"log" yaml:"log"`
}

type Credentials struct {
	Username string `mapstructure:"username" yaml:"username" env:"snowUsername" validate:"required"`
	Password string `mapstructure:"password" yaml:"password" env:"snowPassword" validate:"required"`
}

// Instance identifies the ServiceNow instance. Name is the host label in
// {name}.{domain}; BaseURL, when set, replaces {scheme}://{name}.{domain}.
type Instance struct {
	Name    string `mapstructure:"name" yaml:"name" env:"snowInstallInstance" validate:"required"`
	Domain  string `mapstructure:"domain" yaml:"domain" default:"service-now.com"`
	Scheme  string `mapstructure:"scheme" yaml:"scheme" default:"https" validate:"oneof=http https"`
	BaseURL string `mapstructure:"base-url" yaml:"base-url" validate:"omitempty,url"`
}

// Poll bounds the polling loop. The delay between polls is fixed.
type Poll struct {
	// Timeout bounds the whole run; zero means poll until a terminal status.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

type HTTP struct {
	// Timeout applies per request; zero disables it.
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}
