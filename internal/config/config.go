// Package config provides functionality for managing configuration options
// for the client and the development server using command-line flags,
// environment variables and an optional JSON config file.
//
// Precedence, highest first: flags set on the command line, GOPHBANK_*
// environment variables, the config file, defaults.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by this package.
const EnvPrefix = "GOPHBANK"

// ClientOptions holds the configuration of the interactive client.
type ClientOptions struct {
	// URL is the bank API base URL, without the /api/v1 suffix.
	URL string
	// CAFile is an optional PEM bundle trusted for HTTPS.
	CAFile string
	// TokenFile persists the session token between runs.
	TokenFile string
	// TokenSecret, when set, encrypts the persisted token.
	TokenSecret string
	// Timeout bounds every API request.
	Timeout time.Duration
	// LogLevel is a zap level name.
	LogLevel string
	// LogFile receives the client log so it does not mix with the shell.
	LogFile string
	// Config is the path to the config file.
	Config string
	// Version asks for build metadata only.
	Version bool
}

// ServerOptions holds the configuration of the development server.
type ServerOptions struct {
	// Addr is the listening address (ip:port).
	Addr string
	// JWTSecret signs bearer tokens. A random secret is used when empty.
	JWTSecret string
	// TokenTTL is the lifetime of issued tokens.
	TokenTTL time.Duration
	// LogLevel is a zap level name.
	LogLevel string
	// AdminUser and AdminPassword seed an administrator. Seeding is skipped
	// without a password.
	AdminUser     string
	AdminPassword string
	// TLSCert and TLSKey switch the server to HTTPS when both are set.
	TLSCert string
	TLSKey  string
	// Config is the path to the config file.
	Config string
	// Version asks for build metadata only.
	Version bool
}

func defaultTokenFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".gophbank", "token.json")
	}
	return filepath.Join(home, ".gophbank", "token.json")
}

// LoadClient parses args (without the program name) into ClientOptions.
func LoadClient(args []string) (*ClientOptions, error) {
	v := newViper()
	v.SetDefault("url", "http://localhost:8080")
	v.SetDefault("ca_file", "")
	v.SetDefault("token_file", defaultTokenFile())
	v.SetDefault("token_secret", "")
	v.SetDefault("timeout", 10*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "gophbank.log")

	fs := flag.NewFlagSet("gophbank", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.String("url", "", "bank API base URL")
	fs.String("ca", "", "path to CA cert")
	fs.String("token-file", "", "where the session token is kept")
	fs.String("token-secret", "", "secret encrypting the stored token")
	fs.Duration("timeout", 0, "request timeout")
	fs.String("log-level", "", "log level")
	fs.String("log-file", "", "log file")
	config := registerConfig(fs)
	showVer := fs.Bool("version", false, "show build version and date")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	rename := map[string]string{
		"ca": "ca_file", "token-file": "token_file", "token-secret": "token_secret",
		"log-level": "log_level", "log-file": "log_file",
	}
	path, err := layer(v, fs, *config, rename)
	if err != nil {
		return nil, err
	}

	return &ClientOptions{
		URL:         strings.TrimRight(v.GetString("url"), "/"),
		CAFile:      v.GetString("ca_file"),
		TokenFile:   v.GetString("token_file"),
		TokenSecret: v.GetString("token_secret"),
		Timeout:     v.GetDuration("timeout"),
		LogLevel:    v.GetString("log_level"),
		LogFile:     v.GetString("log_file"),
		Config:      path,
		Version:     *showVer,
	}, nil
}

// LoadServer parses args (without the program name) into ServerOptions.
func LoadServer(args []string) (*ServerOptions, error) {
	v := newViper()
	v.SetDefault("addr", "localhost:8080")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("token_ttl", time.Hour)
	v.SetDefault("log_level", "info")
	v.SetDefault("admin_user", "admin")
	v.SetDefault("admin_password", "")
	v.SetDefault("tls_cert", "")
	v.SetDefault("tls_key", "")

	fs := flag.NewFlagSet("gophbank-server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.String("a", "", "run on ip:port server")
	fs.String("jwt-secret", "", "secret signing bearer tokens")
	fs.Duration("token-ttl", 0, "token lifetime")
	fs.String("log-level", "", "log level")
	fs.String("admin-user", "", "seeded administrator name")
	fs.String("admin-password", "", "seeded administrator password")
	fs.String("tls-cert", "", "server certificate PEM")
	fs.String("tls-key", "", "server private key PEM")
	config := registerConfig(fs)
	showVer := fs.Bool("version", false, "show build version and date")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	rename := map[string]string{
		"a": "addr", "jwt-secret": "jwt_secret", "token-ttl": "token_ttl",
		"log-level": "log_level", "admin-user": "admin_user", "admin-password": "admin_password",
		"tls-cert": "tls_cert", "tls-key": "tls_key",
	}
	path, err := layer(v, fs, *config, rename)
	if err != nil {
		return nil, err
	}

	opts := &ServerOptions{
		Addr:          v.GetString("addr"),
		JWTSecret:     v.GetString("jwt_secret"),
		TokenTTL:      v.GetDuration("token_ttl"),
		LogLevel:      v.GetString("log_level"),
		AdminUser:     v.GetString("admin_user"),
		AdminPassword: v.GetString("admin_password"),
		TLSCert:       v.GetString("tls_cert"),
		TLSKey:        v.GetString("tls_key"),
		Config:        path,
		Version:       *showVer,
	}
	if opts.JWTSecret == "" {
		opts.JWTSecret = uuid.NewString()
	}
	if (opts.TLSCert == "") != (opts.TLSKey == "") {
		return nil, errors.New("tls cert and key must be set together")
	}
	if opts.TokenTTL <= 0 {
		return nil, errors.New("token ttl must be positive")
	}
	return opts, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

func registerConfig(fs *flag.FlagSet) *string {
	config := fs.String("config", "", "path to config file")
	fs.StringVar(config, "c", "", "path to config file (shorthand)")
	return config
}

// layer merges the config file and the explicitly set flags into v and
// returns the config path in use.
func layer(v *viper.Viper, fs *flag.FlagSet, path string, rename map[string]string) (string, error) {
	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("json")
			if err := v.ReadInConfig(); err != nil {
				return "", fmt.Errorf("error while parsing config file: %w", err)
			}
		}
	}

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "config" || f.Name == "c" || f.Name == "version" {
			return
		}
		key := f.Name
		if k, ok := rename[key]; ok {
			key = k
		}
		if g, ok := f.Value.(flag.Getter); ok {
			v.Set(key, g.Get())
		} else {
			v.Set(key, f.Value.String())
		}
	})
	return path, nil
}
