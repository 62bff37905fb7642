package backtest

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	yaml "gopkg.in/yaml.v2"

	"github.com/meridianfx/fxbacktest/internal/broker"
	"github.com/meridianfx/fxbacktest/pkg/errors"
)

// Config is the full backtest run configuration: account parameters for the
// simulated broker plus the run window and the random seed driving the
// slippage model.
type Config struct {
	Broker broker.Config `yaml:"broker" json:"broker" jsonschema:"title=Broker,description=Simulated broker account and execution parameters"`
	// Seed feeds the slippage random source so runs are reproducible.
	Seed      int64                      `yaml:"seed" json:"seed" jsonschema:"title=Seed,description=Random seed for the slippage model"`
	StartTime optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=Optional start of the backtest period"`
	EndTime   optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Optional end of the backtest period"`
}

// UnmarshalYAML implements custom unmarshaling for Config
func (c *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type plain struct {
		Broker    broker.Config `yaml:"broker"`
		Seed      int64         `yaml:"seed"`
		StartTime *time.Time    `yaml:"start_time"`
		EndTime   *time.Time    `yaml:"end_time"`
	}

	var config plain
	if err := unmarshal(&config); err != nil {
		return err
	}

	c.Broker = config.Broker
	c.Seed = config.Seed
	if config.StartTime != nil {
		c.StartTime = optional.Some(*config.StartTime)
	}
	if config.EndTime != nil {
		c.EndTime = optional.Some(*config.EndTime)
	}

	return nil
}

// ParseConfig parses and validates a YAML config document.
func ParseConfig(data []byte) (Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse backtest config", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

// Validate checks the parsed config for values the engine cannot run with.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid backtest config", err)
	}

	if c.Broker.InitialCapital <= 0 {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "initial capital must be positive, got %v", c.Broker.InitialCapital)
	}

	if c.Broker.Leverage < 0 {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "leverage must not be negative, got %v", c.Broker.Leverage)
	}

	if c.StartTime.IsSome() && c.EndTime.IsSome() && c.EndTime.Unwrap().Before(c.StartTime.Unwrap()) {
		return errors.New(errors.ErrCodeInvalidConfiguration, "end time is before start time")
	}

	return nil
}

// GenerateSchema generates a JSON schema for the Config
func (c *Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t.String() == "optional.Option[time.Time]" {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}
			return nil
		},
	}

	schema := reflector.Reflect(c)

	schema.Title = "fxbacktest-config"
	schema.Description = "Configuration schema for a simulated forex backtest run"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for the Config
func (c *Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}
