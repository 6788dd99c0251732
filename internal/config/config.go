package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"elevator_dispatch/internal/elevator"
)

type CarConfig struct {
	ID       string `json:"id"`
	Capacity int    `json:"capacity"`
}

type DatabaseConfig struct {
	Enabled  bool   `json:"enabled"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"dbname"`
}

// DSN renders the connection settings as a postgres:// URL so credentials
// with spaces or reserved characters survive.
func (c DatabaseConfig) DSN() string {
	host := c.Host
	if c.Port != 0 {
		host = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	}
	dsn := url.URL{
		Scheme:   "postgres",
		Host:     host,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=disable",
	}
	if c.User != "" {
		dsn.User = url.UserPassword(c.User, c.Password)
	}
	return dsn.String()
}

type MongoConfig struct {
	Enabled    bool   `json:"enabled"`
	URI        string `json:"uri"`
	Database   string `json:"database"`
	Collection string `json:"collection"`
}

type SnapshotConfig struct {
	IntervalSeconds int            `json:"interval_seconds"`
	Postgres        DatabaseConfig `json:"postgres"`
	Mongo           MongoConfig    `json:"mongo"`
}

func (c SnapshotConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// MetricsConfig controls the Prometheus scrape endpoint and the optional
// OTLP/HTTP push exporter. Either may be left empty.
type MetricsConfig struct {
	Addr                  string `json:"addr,omitempty"`
	OTLPEndpoint          string `json:"otlp_endpoint,omitempty"`
	OTLPPath              string `json:"otlp_path,omitempty"`
	ExportIntervalSeconds int    `json:"export_interval_seconds"`
}

func (c MetricsConfig) ExportInterval() time.Duration {
	return time.Duration(c.ExportIntervalSeconds) * time.Second
}

type Config struct {
	Cars           []CarConfig    `json:"cars"`
	HomeFloor      int            `json:"home_floor"`
	StepIntervalMS int            `json:"step_interval_ms"`
	LoggingLevel   string         `json:"logging_level"`
	LogFile        string         `json:"log_file,omitempty"`
	Metrics        MetricsConfig  `json:"metrics"`
	Snapshot       SnapshotConfig `json:"snapshot"`
}

func (c *Config) StepInterval() time.Duration {
	return time.Duration(c.StepIntervalMS) * time.Millisecond
}

// BuildCars creates the configured roster, in configuration order, with every
// car parked at the home floor.
func (c *Config) BuildCars(opts ...elevator.CarOption) []*elevator.Car {
	opts = append([]elevator.CarOption{elevator.WithHomeFloor(c.HomeFloor)}, opts...)
	cars := make([]*elevator.Car, 0, len(c.Cars))
	for _, car := range c.Cars {
		cars = append(cars, elevator.NewCar(car.ID, car.Capacity, opts...))
	}
	return cars
}

// Default mirrors the stock two-car bank.
func Default() *Config {
	return &Config{
		Cars: []CarConfig{
			{ID: "Elevator1", Capacity: 4},
			{ID: "Elevator2", Capacity: 4},
		},
		StepIntervalMS: 1000,
		LoggingLevel:   "info",
		Metrics: MetricsConfig{
			OTLPPath:              "/v1/metrics",
			ExportIntervalSeconds: 15,
		},
		Snapshot: SnapshotConfig{
			IntervalSeconds: 5,
			Mongo: MongoConfig{
				Database:   "elevator",
				Collection: "cars",
			},
		},
	}
}

// LoadConfig decodes filename over Default and validates the result.
func LoadConfig(filename string) (*Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	config := Default()
	decoder := json.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config JSON: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", filename, err)
	}
	return config, nil
}

func (c *Config) Validate() error {
	var errs []error
	if len(c.Cars) == 0 {
		errs = append(errs, errors.New("at least one car is required"))
	}

	seen := make(map[string]bool, len(c.Cars))
	for i, car := range c.Cars {
		switch {
		case car.ID == "":
			errs = append(errs, fmt.Errorf("cars[%d]: id is required", i))
		case seen[car.ID]:
			errs = append(errs, fmt.Errorf("cars[%d]: duplicate id %q", i, car.ID))
		}
		seen[car.ID] = true

		if car.Capacity < 0 {
			errs = append(errs, fmt.Errorf("cars[%d]: capacity must not be negative, got %d", i, car.Capacity))
		}
	}

	if c.StepIntervalMS <= 0 {
		errs = append(errs, fmt.Errorf("step_interval_ms must be positive, got %d", c.StepIntervalMS))
	}
	if c.Snapshot.IntervalSeconds <= 0 {
		errs = append(errs, fmt.Errorf("snapshot.interval_seconds must be positive, got %d", c.Snapshot.IntervalSeconds))
	}
	if c.Metrics.OTLPEndpoint != "" && c.Metrics.ExportIntervalSeconds <= 0 {
		errs = append(errs, fmt.Errorf("metrics.export_interval_seconds must be positive, got %d", c.Metrics.ExportIntervalSeconds))
	}
	if pg := c.Snapshot.Postgres; pg.Enabled {
		if pg.Host == "" {
			errs = append(errs, errors.New("snapshot.postgres.host is required when postgres is enabled"))
		}
		if pg.DBName == "" {
			errs = append(errs, errors.New("snapshot.postgres.dbname is required when postgres is enabled"))
		}
	}
	if c.Snapshot.Mongo.Enabled && c.Snapshot.Mongo.URI == "" {
		errs = append(errs, errors.New("snapshot.mongo.uri is required when mongo is enabled"))
	}

	return errors.Join(errs...)
}
