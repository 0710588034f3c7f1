// Package config manages the portalctl context file: one entry per portal
// endpoint, each carrying the session cookies of the last login.
package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	AppName        = "portalctl"
	ConfigFileName = "config"
	ConfigFileType = "yaml"
)

// Cookie is a persisted session cookie.
type Cookie struct {
	Name  string `mapstructure:"name" yaml:"name"`
	Value string `mapstructure:"value" yaml:"value"`
}

// Context represents a single CLI context (API endpoint and session).
type Context struct {
	Name       string   `mapstructure:"name" yaml:"name"`
	APIBaseURL string   `mapstructure:"api_base_url" yaml:"api_base_url"`
	Email      string   `mapstructure:"email,omitempty" yaml:"email,omitempty"`
	Cookies    []Cookie `mapstructure:"cookies,omitempty" yaml:"cookies,omitempty"`
}

// LoggedIn reports whether a session cookie is stored.
func (c *Context) LoggedIn() bool {
	return len(c.Cookies) > 0
}

// HTTPCookies converts the stored cookies for a cookie jar.
func (c *Context) HTTPCookies() []*http.Cookie {
	out := make([]*http.Cookie, 0, len(c.Cookies))
	for _, ck := range c.Cookies {
		out = append(out, &http.Cookie{Name: ck.Name, Value: ck.Value, Path: "/"})
	}
	return out
}

// SetHTTPCookies replaces the stored cookies.
func (c *Context) SetHTTPCookies(cookies []*http.Cookie) {
	c.Cookies = c.Cookies[:0]
	for _, ck := range cookies {
		c.Cookies = append(c.Cookies, Cookie{Name: ck.Name, Value: ck.Value})
	}
}

// ClearSession forgets the stored login.
func (c *Context) ClearSession() {
	c.Cookies = nil
	c.Email = ""
}

// CLIConfig holds the overall CLI configuration.
type CLIConfig struct {
	CurrentContext string              `mapstructure:"current_context" yaml:"current_context"`
	Contexts       map[string]*Context `mapstructure:"contexts" yaml:"contexts"`
}

var GlobalConfig *CLIConfig
var CfgFile string // Path to the config file used

// InitConfig reads the context file. A missing file yields an empty
// configuration that SaveConfig creates on first write.
func InitConfig() error {
	v := viper.New()
	if CfgFile != "" {
		v.SetConfigFile(CfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get user home directory: %w", err)
		}
		configPath := filepath.Join(home, "."+AppName) // $HOME/.portalctl

		v.AddConfigPath(configPath)
		v.SetConfigName(ConfigFileName)
		v.SetConfigType(ConfigFileType)
		CfgFile = filepath.Join(configPath, ConfigFileName+"."+ConfigFileType)
	}

	GlobalConfig = &CLIConfig{Contexts: make(map[string]*Context)}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("error reading config file %s: %w", CfgFile, err)
		}
		return nil
	}
	CfgFile = v.ConfigFileUsed()

	if err := v.Unmarshal(GlobalConfig); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if GlobalConfig.Contexts == nil {
		GlobalConfig.Contexts = make(map[string]*Context)
	}
	for name, c := range GlobalConfig.Contexts {
		c.Name = name
	}
	return nil
}

// SaveConfig writes GlobalConfig to the config file. The file holds
// session cookies, so it is only readable by the owner.
func SaveConfig() error {
	if GlobalConfig == nil {
		return errors.New("config not initialized")
	}
	if CfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		CfgFile = filepath.Join(home, "."+AppName, ConfigFileName+"."+ConfigFileType)
	}
	if err := os.MkdirAll(filepath.Dir(CfgFile), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", filepath.Dir(CfgFile), err)
	}

	v := viper.New()
	v.SetConfigType(ConfigFileType)
	v.Set("current_context", GlobalConfig.CurrentContext)
	v.Set("contexts", GlobalConfig.Contexts)
	if err := v.WriteConfigAs(CfgFile); err != nil {
		return fmt.Errorf("failed to save config to %s: %w", CfgFile, err)
	}
	if err := os.Chmod(CfgFile, 0o600); err != nil {
		return fmt.Errorf("failed to restrict config file permissions: %w", err)
	}
	return nil
}

// GetCurrentContext returns the currently active context configuration.
func GetCurrentContext() (*Context, error) {
	if GlobalConfig == nil || GlobalConfig.Contexts == nil {
		return nil, errors.New("config not initialized properly")
	}
	if GlobalConfig.CurrentContext == "" {
		return nil, fmt.Errorf("no current context set. Use '%s config set-context <name> --api <url>'", AppName)
	}
	ctx, exists := GlobalConfig.Contexts[GlobalConfig.CurrentContext]
	if !exists {
		return nil, fmt.Errorf("current context '%s' not found in configuration", GlobalConfig.CurrentContext)
	}
	return ctx, nil
}

// SetContext creates or updates name and makes it current when no other
// context is. Names are case-insensitive, as viper lowercases map keys.
func SetContext(name, apiBaseURL string) *Context {
	name = strings.ToLower(name)
	c, exists := GlobalConfig.Contexts[name]
	if !exists {
		c = &Context{Name: name}
		GlobalConfig.Contexts[name] = c
	}
	if c.APIBaseURL != apiBaseURL {
		c.ClearSession()
	}
	c.APIBaseURL = apiBaseURL
	if GlobalConfig.CurrentContext == "" {
		GlobalConfig.CurrentContext = name
	}
	return c
}
