// Package config loads trznica's runtime options from defaults, an optional
// YAML file, a .env file and TRZNICA_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/erazemk/trznica/internal/auth"
	"github.com/erazemk/trznica/internal/ratelimit"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "TRZNICA_"

// Options are the server settings.
type Options struct {
	Addr     string `yaml:"addr"`
	DBPath   string `yaml:"db"`
	ImageDir string `yaml:"image_dir"`
	LogPath  string `yaml:"log"`

	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`

	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	RateLimit  int           `yaml:"rate_limit"`
	RateWindow time.Duration `yaml:"rate_window"`
}

// Defaults returns the built-in options.
func Defaults() Options {
	return Options{
		Addr:       ":8080",
		DBPath:     "trznica.sqlite3",
		ImageDir:   "images",
		TokenTTL:   auth.DefaultTTL,
		RateLimit:  ratelimit.DefaultLimit,
		RateWindow: ratelimit.DefaultWindow,
	}
}

// Load builds the options. A missing envFile is ignored, a missing YAML file
// is not. Process environment wins over the .env file.
func Load(path, envFile string) (Options, error) {
	return load(path, envFile, os.LookupEnv)
}

func load(path, envFile string, lookup func(string) (string, bool)) (Options, error) {
	opts := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return opts, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &opts); err != nil {
			return opts, fmt.Errorf("parsing config file: %w", err)
		}
	}

	dotenv := map[string]string{}
	if envFile != "" {
		m, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			dotenv = m
		case errors.Is(err, fs.ErrNotExist):
		default:
			return opts, fmt.Errorf("reading env file: %w", err)
		}
	}

	get := func(name string) (string, bool) {
		if v, ok := lookup(EnvPrefix + name); ok {
			return v, true
		}
		v, ok := dotenv[EnvPrefix+name]
		return v, ok
	}

	setString(get, "ADDR", &opts.Addr)
	setString(get, "DB", &opts.DBPath)
	setString(get, "IMAGE_DIR", &opts.ImageDir)
	setString(get, "LOG", &opts.LogPath)
	setString(get, "JWT_SECRET", &opts.JWTSecret)
	setString(get, "REDIS_ADDR", &opts.RedisAddr)
	setString(get, "REDIS_PASSWORD", &opts.RedisPassword)

	if err := setInt(get, "REDIS_DB", &opts.RedisDB); err != nil {
		return opts, err
	}
	if err := setInt(get, "RATE_LIMIT", &opts.RateLimit); err != nil {
		return opts, err
	}
	if err := setDuration(get, "TOKEN_TTL", &opts.TokenTTL); err != nil {
		return opts, err
	}
	if err := setDuration(get, "RATE_WINDOW", &opts.RateWindow); err != nil {
		return opts, err
	}

	return opts, opts.Validate()
}

// Validate rejects options the server cannot run with.
func (o Options) Validate() error {
	switch {
	case o.Addr == "":
		return errors.New("addr must not be empty")
	case o.DBPath == "":
		return errors.New("db path must not be empty")
	case o.ImageDir == "":
		return errors.New("image dir must not be empty")
	case o.TokenTTL <= 0:
		return errors.New("token ttl must be positive")
	case o.RateLimit < 0:
		return errors.New("rate limit must not be negative")
	case o.RateWindow <= 0:
		return errors.New("rate window must be positive")
	}
	return nil
}

type getter func(string) (string, bool)

func setString(get getter, name string, dst *string) {
	if v, ok := get(name); ok {
		*dst = v
	}
}

func setInt(get getter, name string, dst *int) error {
	v, ok := get(name)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
	}
	*dst = n
	return nil
}

func setDuration(get getter, name string, dst *time.Duration) error {
	v, ok := get(name)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
	}
	*dst = d
	return nil
}
