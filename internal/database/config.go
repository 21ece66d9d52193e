package database

import (
	"errors"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes the environment variables read by LoadConfig,
// e.g. VERSO_HOST or VERSO_MAX_OPEN_CONNS.
const EnvPrefix = "VERSO"

// ConfigFs is the filesystem LoadConfig reads the config file and .env from.
var ConfigFs = afero.NewOsFs()

// Config describes a connection.
type Config struct {
	Driver          string
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	Charset         string
	SSLMode         string
	Debug           bool
	Autocommit      bool
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	HealthInterval  time.Duration
}

var configDefaults = map[string]any{
	"driver":            "mysql",
	"host":              "localhost",
	"port":              3306,
	"name":              "",
	"user":              "",
	"password":          "",
	"charset":           "utf8",
	"ssl_mode":          "disable",
	"debug":             true,
	"autocommit":        true,
	"max_open_conns":    0,
	"max_idle_conns":    0,
	"conn_max_lifetime": time.Duration(0),
	"health_interval":   time.Duration(0),
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return configFrom(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetFs(ConfigFs)
	for k, val := range configDefaults {
		v.SetDefault(k, val)
	}
	return v
}

// LoadConfig reads the configuration from, in increasing priority: the
// defaults, the file at path (yaml, json or toml; skipped when path is
// empty), a .env file in the working directory and VERSO_* environment
// variables.
func LoadConfig(path string) (Config, error) {
	v := newViper()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	dotenv, err := readDotenv(".env")
	if err != nil {
		return Config{}, err
	}
	for key := range configDefaults {
		name := EnvPrefix + "_" + strings.ToUpper(key)
		if _, set := os.LookupEnv(name); set {
			continue
		}
		if val, ok := dotenv[name]; ok {
			v.Set(key, val)
		}
	}

	return configFrom(v), nil
}

// readDotenv parses a .env file; a missing file yields no variables.
func readDotenv(name string) (map[string]string, error) {
	f, err := ConfigFs.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer func() { _ = f.Close() }()

	return godotenv.Parse(f)
}

func configFrom(v *viper.Viper) Config {
	return Config{
		Driver:          v.GetString("driver"),
		Host:            v.GetString("host"),
		Port:            v.GetInt("port"),
		Name:            v.GetString("name"),
		User:            v.GetString("user"),
		Password:        v.GetString("password"),
		Charset:         v.GetString("charset"),
		SSLMode:         v.GetString("ssl_mode"),
		Debug:           v.GetBool("debug"),
		Autocommit:      v.GetBool("autocommit"),
		MaxOpenConns:    v.GetInt("max_open_conns"),
		MaxIdleConns:    v.GetInt("max_idle_conns"),
		ConnMaxLifetime: v.GetDuration("conn_max_lifetime"),
		HealthInterval:  v.GetDuration("health_interval"),
	}
}

// DSN formats the data source name for the configured driver.
//
// MySQL connections report matched rather than changed rows for UPDATE,
// so an update that rewrites identical values still counts its rows.
func (c Config) DSN() string {
	addr := net.JoinHostPort(c.Host, strconv.Itoa(c.Port))

	switch c.Driver {
	case "postgres", "postgresql":
		u := url.URL{
			Scheme: "postgres",
			Host:   addr,
			Path:   "/" + c.Name,
		}
		if c.User != "" {
			u.User = url.UserPassword(c.User, c.Password)
		}
		q := url.Values{}
		if c.SSLMode != "" {
			q.Set("sslmode", c.SSLMode)
		}
		u.RawQuery = q.Encode()
		return u.String()

	case "sqlite", "sqlite3":
		return c.Name

	default:
		mc := mysql.NewConfig()
		mc.User = c.User
		mc.Passwd = c.Password
		mc.Net = "tcp"
		mc.Addr = addr
		mc.DBName = c.Name
		mc.ClientFoundRows = true
		mc.Params = map[string]string{
			"autocommit": strconv.FormatBool(c.Autocommit),
		}
		if c.Charset != "" {
			mc.Params["charset"] = c.Charset
		}
		return mc.FormatDSN()
	}
}

// options converts the pool settings to options.
func (c Config) options() []Option {
	opts := []Option{WithDebug(c.Debug)}
	if c.MaxOpenConns > 0 {
		opts = append(opts, WithMaxOpenConns(c.MaxOpenConns))
	}
	if c.MaxIdleConns > 0 {
		opts = append(opts, WithMaxIdleConns(c.MaxIdleConns))
	}
	if c.ConnMaxLifetime > 0 {
		opts = append(opts, WithConnMaxLifetime(c.ConnMaxLifetime))
	}
	if c.HealthInterval > 0 {
		opts = append(opts, WithHealthCheck(c.HealthInterval))
	}
	return opts
}
