package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Queue    QueueConfig    `mapstructure:"queue"    validate:"required"`
	Signing  SigningConfig  `mapstructure:"signing"  validate:"required"`
	Database DatabaseConfig `mapstructure:"database"`
}

// ServerConfig contains the HTTP server settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// QueueConfig contains the queueing and result-routing settings. Cached and
// Sync are the process-wide defaults applied when a submission does not set
// the corresponding option explicitly; they are threaded into the client at
// construction, never read ambiently.
type QueueConfig struct {
	// ListKey is the namespace prefix for every cache key the platform owns.
	ListKey string `mapstructure:"list_key" validate:"required"`

	// Cached routes results through the broker cache by default.
	Cached bool `mapstructure:"cached"`

	// Sync executes every submission synchronously, in-process. Intended for
	// development and tests.
	Sync bool `mapstructure:"sync"`

	// Save persists finished records to the durable store by default.
	Save bool `mapstructure:"save"`

	// Workers is the cluster worker-pool size.
	Workers int `mapstructure:"workers" validate:"required,gt=0"`

	// QueueSize is the in-memory broker's queue capacity.
	QueueSize int `mapstructure:"queue_size" validate:"required,gt=0"`
}

// SigningConfig contains the package-signing settings.
type SigningConfig struct {
	// Secret is the key material the codec derives its signing key from.
	Secret string `mapstructure:"secret" validate:"required,min=32"`
}

// DatabaseConfig contains the durable store settings. An empty URL selects
// the in-memory store.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}
