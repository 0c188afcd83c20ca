package config

import (
	"fmt"
	"os"

	"Go2ResSpectra/internal/resources"

	"github.com/nats-io/nats.go"
	"gopkg.in/yaml.v3"
)

const (
	DefaultSubject    = "/testing/Resources"
	DefaultKafkaTopic = "testing.Resources"
	DefaultKafkaGroup = "resspectra"
	DefaultListenAddr = ":8080"
)

// KafkaConfig holds the settings for the Kafka transport.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
	Group   string   `yaml:"group"`
}

// TransportConfig selects and configures the bus the resource snapshots arrive on.
type TransportConfig struct {
	Type    string      `yaml:"type"` // nats | kafka
	NATSURL string      `yaml:"nats_url"`
	Subject string      `yaml:"subject"`
	Kafka   KafkaConfig `yaml:"kafka"`
}

// RecorderConfig controls the raw snapshot recorder.
type RecorderConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Path              string `yaml:"path"`
	Encoding          string `yaml:"encoding"` // gob | text
	NumWorkers        int    `yaml:"num_workers"`
	ChannelBufferSize int    `yaml:"channel_buffer_size"`
}

// APIConfig holds the settings for the control API.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// YAMLWriterConfig holds the settings for the YAML results writer.
type YAMLWriterConfig struct {
	RootPath string `yaml:"root_path"`
}

// ClickHouseConfig holds the settings for the ClickHouse results writer.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// PostgresConfig holds the settings for the Postgres results writer.
type PostgresConfig struct {
	ConnString string `yaml:"conn_string"`
	Table      string `yaml:"table"`
}

// WriterDef defines one results writer.
type WriterDef struct {
	Type       string           `yaml:"type"`
	Enabled    bool             `yaml:"enabled"`
	YAML       YAMLWriterConfig `yaml:"yaml"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Postgres   PostgresConfig   `yaml:"postgres"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	// Resources maps a resource name (cpu, mem, io, network) to the nodes it is collected for.
	Resources map[string][]string `yaml:"resources"`
	Transport TransportConfig     `yaml:"transport"`
	Recorder  RecorderConfig      `yaml:"recorder"`
	API       APIConfig           `yaml:"api"`
	Writers   []WriterDef         `yaml:"writers"`
}

// LoadConfig reads the configuration from a YAML file and returns a Config struct.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML document, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Transport.Type == "" {
		c.Transport.Type = "nats"
	}
	if c.Transport.NATSURL == "" {
		c.Transport.NATSURL = nats.DefaultURL
	}
	if c.Transport.Subject == "" {
		c.Transport.Subject = DefaultSubject
	}
	if c.Transport.Kafka.Topic == "" {
		c.Transport.Kafka.Topic = DefaultKafkaTopic
	}
	if c.Transport.Kafka.Group == "" {
		c.Transport.Kafka.Group = DefaultKafkaGroup
	}
	if c.Recorder.Encoding == "" {
		c.Recorder.Encoding = "gob"
	}
	if c.Recorder.Path == "" {
		c.Recorder.Path = "./recordings"
	}
	if c.API.ListenAddr == "" {
		c.API.ListenAddr = DefaultListenAddr
	}
	for i := range c.Writers {
		w := &c.Writers[i]
		if w.Type == "yaml" && w.YAML.RootPath == "" {
			w.YAML.RootPath = "./results"
		}
		if w.Type == "clickhouse" && w.ClickHouse.Port == 0 {
			w.ClickHouse.Port = 9000
		}
		if w.Type == "postgres" && w.Postgres.Table == "" {
			w.Postgres.Table = "resource_metrics"
		}
	}
}

// Validate checks the parts of the configuration that cannot be defaulted.
func (c *Config) Validate() error {
	if _, err := c.Spec(); err != nil {
		return err
	}
	switch c.Transport.Type {
	case "nats":
	case "kafka":
		if len(c.Transport.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka transport requires at least one broker")
		}
	default:
		return fmt.Errorf("unknown transport type: '%s'", c.Transport.Type)
	}
	switch c.Recorder.Encoding {
	case "gob", "text":
	default:
		return fmt.Errorf("unknown recorder encoding: '%s'", c.Recorder.Encoding)
	}
	return nil
}

// Spec returns the resource spec the aggregator is built from.
func (c *Config) Spec() (resources.Spec, error) {
	return resources.ParseSpec(c.Resources)
}
