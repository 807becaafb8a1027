package config

import (
	"bytes"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"github.com/vypdev/vaultstadio-sub005/internal/domain"
	"github.com/vypdev/vaultstadio-sub005/internal/logger"
	"github.com/vypdev/vaultstadio-sub005/pkg/errors"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

var configTemplate = `# config.toml

 [server]
   # Hostname or IP address for the server to listen on.
   # Default: "{{ .host }}" (e.g., "127.0.0.1" for local access, "0.0.0.0" for all interfaces, especially in Docker)
   host = "{{ .host }}"

   # Port for the server to listen on.
   # Default: 8484
   port = 8484

   # Base URL for serving the application under a subdirectory.
   # Leave empty if serving from the root or using a subdomain.
   # Optional.
   # Default: ""
   #base_url = ""

 [database]
   # Database type to use.
   # Supported: "sqlite", "postgres"
   # Optional.
   # Default: "sqlite"
   type = "sqlite"

   # --- PostgreSQL Settings ---
   # These settings are only used if database.type is set to "postgres".
   [database.postgres]
     # Hostname or IP address of the PostgreSQL server.
     # Default: "localhost"
     host = "localhost"

     # Port of the PostgreSQL server.
     # Default: 5432
     port = 5432

     # Name of the PostgreSQL database.
     # Default: "postgres"
     database = "postgres"

     # Username for connecting to the PostgreSQL database.
     # Default: "postgres"
     username = "postgres"

     # Password for the PostgreSQL user.
     # Default: "postgres"
     password = "postgres"

     # PostgreSQL SSL mode.
     # Options: "disable", "allow", "prefer", "require", "verify-ca", "verify-full"
     # Default: "disable"
     ssl_mode = "disable"

 [logging]
   # Log file path.
   # If empty or not set, logs will be written to standard output (stdout).
   # Use forward slashes for paths (e.g., "log/").
   # Optional.
   # Default: ""
   path = "log/"

   # Log level.
   # Options: "ERROR", "WARN", "INFO", "DEBUG", "TRACE"
   # Default: "DEBUG"
   level = "DEBUG"

   # Maximum size of a log file in megabytes (MB) before it is rotated.
   # Default: 50
   max_file_size = 50

   # Maximum number of old log files to keep.
   # Default: 3
   max_backup_count = 3

 [valkey]
   # Valkey server address (e.g., "localhost:6379").
   # Optional.
   # Default: "localhost:6379"
   address = "localhost:6379"

   # Password for Valkey server.
   # Optional.
   # Default: ""
   password = ""

   # Valkey database number.
   # Optional.
   # Default: 0
   db = 0

 [rate_limits]
   # Enable rate limiting for the sync endpoints
   # Default: true
   enabled = true

   # Maximum number of requests allowed per time window
   # Default: 60
   requests_per_minute = 60

   # Time window in seconds for rate limiting
   # Default: 60 (1 minute)
   window_seconds = 60

   # Comma-separated list of internal IPs exempt from rate limiting
   # Default: "127.0.0.1,::1"
   exempt_internal_ips = "127.0.0.1,::1"

 [sync]
   # Maximum number of changes returned per pull page.
   # Default: 500
   page_limit = 500

   # Default block size in bytes for file signatures.
   # Default: 4096
   signature_block_size = 4096

   # Bounded retry count for cursor allocation races.
   # Default: 5
   cursor_retries = 5

 [retention]
   # Enable the scheduled retention sweep of old sync history
   # Default: true
   enabled = true

   # Cron schedule for the sweep job
   # Default: "0 4 * * *" (4 AM daily)
   schedule = "0 4 * * *"

   # Changes and resolved conflicts older than this many days are pruned.
   # Pending conflicts are never pruned.
   # Default: 30
   horizon_days = 30
 `

func writeConfig(configPath string, configFile string) error {
	cfgPath := filepath.Join(configPath, configFile)

	// check if configPath exists, if not create it
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		err := os.MkdirAll(configPath, os.ModePerm)
		if err != nil {
			log.Println(err)
			return err
		}
	}

	// check if config exists, if not create it
	if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
		// set default host
		host := "127.0.0.1"

		if _, dockerErr := os.Stat("/.dockerenv"); dockerErr == nil {
			host = "0.0.0.0"
		} else if pd, cgroupErr := os.Open("/proc/1/cgroup"); cgroupErr == nil {
			defer func(pd *os.File) {
				errClose := pd.Close()
				if errClose != nil {
					log.Printf("error closing proc/cgroup: %q", errClose)
				}
			}(pd)
			b := make([]byte, 4096)
			_, readErr := pd.Read(b)
			if readErr != nil {
				log.Printf("error reading /proc/1/cgroup: %v", readErr)
			} else {
				if strings.Contains(string(b), "/docker") || strings.Contains(string(b), "/lxc") {
					host = "0.0.0.0"
				}
			}
		}

		f, createErr := os.Create(cfgPath)
		if createErr != nil {
			log.Printf("error creating file: %q", createErr)
			return createErr
		}
		defer func(f *os.File) {
			errClose := f.Close()
			if errClose != nil {
				log.Printf("error closing file: %q", errClose)
			}
		}(f)

		tmpl, tmplErr := template.New("config").Parse(configTemplate)
		if tmplErr != nil {
			return errors.Wrap(tmplErr, "could not create config template")
		}

		tmplVars := map[string]string{
			"host": host,
		}

		var buffer bytes.Buffer
		if execErr := tmpl.Execute(&buffer, &tmplVars); execErr != nil {
			return errors.Wrap(execErr, "could not write config template output")
		}

		if _, writeErr := f.WriteString(buffer.String()); writeErr != nil {
			log.Printf("error writing contents to file: %v %q", configPath, writeErr)
			return writeErr
		}

		return f.Sync()
	}

	return nil
}

type Config interface {
	DynamicReload(log logger.Logger)
}

type AppConfig struct {
	Config *domain.Config
	m      sync.Mutex
}

func New(configPath string, version string) *AppConfig {
	c := &AppConfig{}
	c.defaults()
	c.Config.Version = version
	c.Config.ConfigPath = configPath

	c.load(configPath)

	return c
}

func (c *AppConfig) defaults() {
	c.Config = &domain.Config{
		Version:    "dev",
		ConfigPath: "",
		Server: domain.ServerConfig{
			Host:    "127.0.0.1",
			Port:    8484,
			BaseURL: "",
		},
		Database: domain.DatabaseConfig{
			Type: "sqlite",
			Postgres: domain.PostgresConfig{
				Host:     "localhost",
				Port:     5432,
				Database: "postgres",
				User:     "postgres",
				Pass:     "postgres",
				SslMode:  "disable",
			},
		},
		Logging: domain.LoggingConfig{
			Path:           "",
			Level:          "DEBUG",
			MaxFileSize:    50,
			MaxBackupCount: 3,
		},
		Valkey: domain.ValkeyConfig{
			Address:  "localhost:6379",
			Password: "",
			DB:       0,
		},
		RateLimit: domain.RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 60,
			WindowSeconds:     60,
			ExemptInternalIPs: "127.0.0.1,::1",
		},
		Sync: domain.SyncConfig{
			PageLimit:          500,
			SignatureBlockSize: 4096,
			CursorRetries:      5,
		},
		Retention: domain.RetentionConfig{
			Enabled:     true,
			Schedule:    "0 4 * * *",
			HorizonDays: 30,
		},
	}
}

func (c *AppConfig) load(configPath string) {
	viper.SetConfigType("toml")
	configPath = path.Clean(configPath)

	if configPath != "" {
		if err := writeConfig(configPath, "config.toml"); err != nil {
			log.Printf("writeConfig error during load: %q", err)
			// Continue to attempt reading, defaults might be used or file might exist partially
		}
		viper.SetConfigFile(path.Join(configPath, "config.toml"))
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.config/vaultstadio")
		viper.AddConfigPath("$HOME/.vaultstadio")
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Printf("Config file not found, using defaults: %s", viper.ConfigFileUsed())
		} else {
			log.Printf("Config read error: %q. Using defaults.", err)
		}
	}

	if err := viper.Unmarshal(&c.Config); err != nil {
		log.Fatalf("Could not unmarshal config file into struct: %v. Config file used: %s", err, viper.ConfigFileUsed())
	}
}

func (c *AppConfig) DynamicReload(log logger.Logger) {
	viper.OnConfigChange(func(e fsnotify.Event) {
		c.m.Lock()
		defer c.m.Unlock()

		log.Info().Msgf("Config file changed: %s. Reloading configuration.", e.Name)

		if err := viper.ReadInConfig(); err != nil {
			log.Error().Err(err).Msg("Error reading config file during dynamic reload")
			return
		}

		var newConfig domain.Config
		// Version and ConfigPath are not sourced from the file
		newConfig.Version = c.Config.Version
		newConfig.ConfigPath = c.Config.ConfigPath

		if err := viper.Unmarshal(&newConfig); err != nil {
			log.Error().Err(err).Msg("Error unmarshalling config during dynamic reload")
			return
		}

		c.Config = &newConfig

		log.SetLogLevel(c.Config.Logging.Level)

		log.Debug().Msg("Configuration reloaded successfully!")
	})
	viper.WatchConfig()
}
