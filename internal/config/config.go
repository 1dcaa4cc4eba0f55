package config

import "time"

type Duration struct {
	Duration time.Duration
}

type HTTPConfig struct {
	Addr              string   `yaml:"addr"`
	ReadHeaderTimeout Duration `yaml:"read_header_timeout"`
	ReadTimeout       Duration `yaml:"read_timeout"`
	// WriteTimeout defaults to the inference timeout plus a margin for
	// storage; it stays off when inference has no timeout.
	WriteTimeout Duration `yaml:"write_timeout"`
	IdleTimeout  Duration `yaml:"idle_timeout"`
	ShutdownTimeout   Duration `yaml:"shutdown_timeout"`
	MaxRequestBytes   int64    `yaml:"max_request_bytes"`
	CORSOrigins       []string `yaml:"cors_origins"`
}

type InferenceConfig struct {
	// Mode is "process" (spawn the model script) or "static" (fixed output,
	// for local development without a model).
	Mode string `yaml:"mode"`

	PythonPath string   `yaml:"python_path"`
	ScriptPath string   `yaml:"script_path"`
	ExtraArgs  []string `yaml:"extra_args,omitempty"`
	WorkDir    string   `yaml:"work_dir,omitempty"`

	// Timeout bounds a single model run. Zero disables it.
	Timeout Duration `yaml:"timeout"`

	// StaticOutput is returned verbatim when Mode is "static".
	StaticOutput string `yaml:"static_output,omitempty"`
}

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

type RESTConfig struct {
	// BaseURL is the PostgREST root, e.g. https://<project>.supabase.co/rest/v1
	BaseURL string   `yaml:"base_url"`
	APIKey  string   `yaml:"api_key"`
	Timeout Duration `yaml:"timeout"`
}

type StorageConfig struct {
	// Driver is "postgres", "sqlite" or "rest".
	Driver      string         `yaml:"driver"`
	Table       string         `yaml:"table"`
	AutoMigrate bool           `yaml:"auto_migrate"`
	Postgres    PostgresConfig `yaml:"postgres"`
	SQLitePath  string         `yaml:"sqlite_path"`
	REST        RESTConfig     `yaml:"rest"`
}

type EventsConfig struct {
	RedisAddr string `yaml:"redis_addr"`
	Channel   string `yaml:"channel"`
}

type QueryConfig struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

type Config struct {
	Env       string          `yaml:"env"`
	Service   string          `yaml:"service"`
	Version   string          `yaml:"version"`
	HTTP      HTTPConfig      `yaml:"http"`
	Inference InferenceConfig `yaml:"inference"`
	Storage   StorageConfig   `yaml:"storage"`
	Events    EventsConfig    `yaml:"events"`
	Query     QueryConfig     `yaml:"query"`
}
