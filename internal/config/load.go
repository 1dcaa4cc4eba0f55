package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/studentrisk-backend/internal/platform/envutil"
)

// UnmarshalYAML accepts "5s"-style strings or integer nanoseconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	s := strings.TrimSpace(node.Value)
	if s == "" || s == "null" || s == "~" {
		d.Duration = 0
		return nil
	}
	if node.Tag == "!!int" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		d.Duration = time.Duration(n)
		return nil
	}
	dd, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("duration must be a string like \"5s\" or an int nanoseconds: %w", err)
	}
	d.Duration = dd
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// writeTimeoutMargin covers persistence and encoding after inference returns.
const writeTimeoutMargin = 30 * time.Second

func defaultConfig() *Config {
	return &Config{
		Env:     "development",
		Service: "studentrisk",
		HTTP: HTTPConfig{
			Addr:              ":8000",
			ReadHeaderTimeout: Duration{Duration: 5 * time.Second},
			ReadTimeout:       Duration{Duration: 30 * time.Second},
			IdleTimeout:       Duration{Duration: 2 * time.Minute},
			ShutdownTimeout:   Duration{Duration: 15 * time.Second},
			MaxRequestBytes:   1 << 20,
			CORSOrigins: []string{
				"http://localhost:3000",
				"http://localhost:5173",
				"http://127.0.0.1:3000",
				"http://127.0.0.1:5173",
			},
		},
		Inference: InferenceConfig{
			Mode:       "process",
			PythonPath: "python3",
			ScriptPath: "model/predict.py",
			Timeout:    Duration{Duration: 60 * time.Second},
		},
		Storage: StorageConfig{
			Driver:      "postgres",
			Table:       "students",
			AutoMigrate: true,
			Postgres: PostgresConfig{
				Host:    "localhost",
				Port:    "5432",
				User:    "postgres",
				Name:    "studentrisk",
				SSLMode: "disable",
			},
			SQLitePath: "studentrisk.db",
			REST: RESTConfig{
				Timeout: Duration{Duration: 15 * time.Second},
			},
		},
		Events: EventsConfig{
			Channel: "predictions",
		},
		Query: QueryConfig{
			DefaultLimit: 100,
			MaxLimit:     1000,
		},
	}
}

// Load builds the config from defaults, an optional YAML file and env
// overrides, in that order.
func Load() (*Config, error) {
	cfg := defaultConfig()

	cfgPath := strings.TrimSpace(os.Getenv("SR_CONFIG_PATH"))
	if cfgPath == "" {
		if wd, err := os.Getwd(); err == nil {
			p := filepath.Join(wd, "config", "config.yaml")
			if _, err := os.Stat(p); err == nil {
				cfgPath = p
			}
		}
	}
	if cfgPath != "" {
		b, err := os.ReadFile(cfgPath)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgPath, err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", cfgPath, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Env = envutil.String("LOG_MODE", cfg.Env)
	cfg.Version = envutil.String("SR_VERSION", cfg.Version)
	cfg.HTTP.Addr = envutil.String("SR_HTTP_ADDR", cfg.HTTP.Addr)
	cfg.HTTP.WriteTimeout.Duration = envutil.Duration("SR_HTTP_WRITE_TIMEOUT", cfg.HTTP.WriteTimeout.Duration)
	if v := envutil.String("SR_CORS_ORIGINS", ""); v != "" {
		cfg.HTTP.CORSOrigins = splitList(v)
	}

	cfg.Inference.Mode = envutil.String("SR_INFERENCE_MODE", cfg.Inference.Mode)
	cfg.Inference.PythonPath = envutil.String("PYTHON_PATH", cfg.Inference.PythonPath)
	cfg.Inference.ScriptPath = envutil.String("SR_MODEL_SCRIPT", cfg.Inference.ScriptPath)
	cfg.Inference.WorkDir = envutil.String("SR_MODEL_WORKDIR", cfg.Inference.WorkDir)
	cfg.Inference.Timeout.Duration = envutil.Duration("SR_INFERENCE_TIMEOUT", cfg.Inference.Timeout.Duration)
	cfg.Inference.StaticOutput = envutil.String("SR_INFERENCE_STATIC_OUTPUT", cfg.Inference.StaticOutput)

	cfg.Storage.Driver = envutil.String("SR_STORAGE_DRIVER", cfg.Storage.Driver)
	cfg.Storage.Table = envutil.String("SR_STORAGE_TABLE", cfg.Storage.Table)
	cfg.Storage.AutoMigrate = envutil.Bool("SR_STORAGE_AUTO_MIGRATE", cfg.Storage.AutoMigrate)
	cfg.Storage.Postgres.Host = envutil.String("POSTGRES_HOST", cfg.Storage.Postgres.Host)
	cfg.Storage.Postgres.Port = envutil.String("POSTGRES_PORT", cfg.Storage.Postgres.Port)
	cfg.Storage.Postgres.User = envutil.String("POSTGRES_USER", cfg.Storage.Postgres.User)
	cfg.Storage.Postgres.Password = envutil.String("POSTGRES_PASSWORD", cfg.Storage.Postgres.Password)
	cfg.Storage.Postgres.Name = envutil.String("POSTGRES_NAME", cfg.Storage.Postgres.Name)
	cfg.Storage.Postgres.SSLMode = envutil.String("POSTGRES_SSLMODE", cfg.Storage.Postgres.SSLMode)
	cfg.Storage.SQLitePath = envutil.String("SQLITE_PATH", cfg.Storage.SQLitePath)
	cfg.Storage.REST.BaseURL = envutil.String("SUPABASE_URL", cfg.Storage.REST.BaseURL)
	cfg.Storage.REST.APIKey = envutil.String("SUPABASE_KEY", cfg.Storage.REST.APIKey)

	cfg.Query.DefaultLimit = envutil.Int("SR_QUERY_DEFAULT_LIMIT", cfg.Query.DefaultLimit)
	cfg.Query.MaxLimit = envutil.Int("SR_QUERY_MAX_LIMIT", cfg.Query.MaxLimit)

	cfg.Events.RedisAddr = envutil.String("REDIS_ADDR", cfg.Events.RedisAddr)
	cfg.Events.Channel = envutil.String("REDIS_CHANNEL", cfg.Events.Channel)
}

func (cfg *Config) normalize() error {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "development"
	}
	if strings.TrimSpace(cfg.Service) == "" {
		cfg.Service = "studentrisk"
	}
	if strings.TrimSpace(cfg.HTTP.Addr) == "" {
		cfg.HTTP.Addr = ":8000"
	}
	if cfg.HTTP.MaxRequestBytes <= 0 {
		cfg.HTTP.MaxRequestBytes = 1 << 20
	}

	inf := &cfg.Inference
	inf.Mode = strings.ToLower(strings.TrimSpace(inf.Mode))
	switch inf.Mode {
	case "", "process":
		inf.Mode = "process"
		if strings.TrimSpace(inf.PythonPath) == "" {
			return fmt.Errorf("inference.python_path is required")
		}
		if strings.TrimSpace(inf.ScriptPath) == "" {
			return fmt.Errorf("inference.script_path is required")
		}
	case "static":
		if strings.TrimSpace(inf.StaticOutput) == "" {
			inf.StaticOutput = "Graduate"
		}
	default:
		return fmt.Errorf("invalid inference.mode=%q", inf.Mode)
	}
	if inf.Timeout.Duration < 0 {
		return fmt.Errorf("inference.timeout must not be negative")
	}
	if cfg.HTTP.WriteTimeout.Duration < 0 {
		return fmt.Errorf("http.write_timeout must not be negative")
	}
	if cfg.HTTP.WriteTimeout.Duration == 0 && inf.Timeout.Duration > 0 {
		cfg.HTTP.WriteTimeout.Duration = inf.Timeout.Duration + writeTimeoutMargin
	}

	st := &cfg.Storage
	st.Driver = strings.ToLower(strings.TrimSpace(st.Driver))
	if strings.TrimSpace(st.Table) == "" {
		st.Table = "students"
	}
	switch st.Driver {
	case "postgres", "postgresql":
		st.Driver = "postgres"
	case "sqlite":
		if strings.TrimSpace(st.SQLitePath) == "" {
			return fmt.Errorf("storage.sqlite_path is required for the sqlite driver")
		}
	case "rest", "supabase":
		st.Driver = "rest"
		st.REST.BaseURL = strings.TrimRight(strings.TrimSpace(st.REST.BaseURL), "/")
		if st.REST.BaseURL == "" {
			return fmt.Errorf("storage.rest.base_url (SUPABASE_URL) is required for the rest driver")
		}
		if !strings.HasSuffix(st.REST.BaseURL, "/rest/v1") {
			st.REST.BaseURL += "/rest/v1"
		}
		if st.REST.Timeout.Duration <= 0 {
			st.REST.Timeout = Duration{Duration: 15 * time.Second}
		}
	default:
		return fmt.Errorf("invalid storage.driver=%q", st.Driver)
	}

	if strings.TrimSpace(cfg.Events.Channel) == "" {
		cfg.Events.Channel = "predictions"
	}
	if cfg.Query.DefaultLimit <= 0 {
		cfg.Query.DefaultLimit = 100
	}
	if cfg.Query.MaxLimit < cfg.Query.DefaultLimit {
		cfg.Query.MaxLimit = cfg.Query.DefaultLimit
	}
	return nil
}

// PostgresDSN renders the connection string for the postgres driver.
func (cfg *Config) PostgresDSN() string {
	pg := cfg.Storage.Postgres
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		pg.User,
		pg.Password,
		pg.Host,
		pg.Port,
		pg.Name,
		pg.SSLMode,
	)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
