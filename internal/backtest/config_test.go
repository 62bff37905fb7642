package backtest

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"

	"github.com/meridianfx/fxbacktest/pkg/errors"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigTestSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) TestParseComplete() {
	yamlDoc := `
broker:
  initial_capital: 10000
  leverage: 100
  stop_out_level: 50
  commission_per_lot:
    default: 3.5
  pricing:
    spread_pips:
      EURUSD: 1.0
      default: 1.5
    base_slippage_pips: 0.2
    volume_slippage_factor_pips_per_million: 0.5
seed: 42
start_time: 2023-01-01T00:00:00Z
end_time: 2023-06-30T23:59:59Z
`

	config, err := ParseConfig([]byte(yamlDoc))
	suite.Require().NoError(err)

	suite.Equal(10000.0, config.Broker.InitialCapital)
	suite.Equal(100.0, config.Broker.Leverage)
	suite.Equal(50.0, config.Broker.StopOutLevel)
	suite.Equal(3.5, config.Broker.CommissionPerLot["default"])
	suite.Equal(1.0, config.Broker.Pricing.SpreadPips["EURUSD"])
	suite.Equal(int64(42), config.Seed)
	suite.True(config.StartTime.IsSome())
	suite.Equal(2023, config.StartTime.Unwrap().Year())
	suite.True(config.EndTime.IsSome())
}

func (suite *ConfigTestSuite) TestParseWithoutTimes() {
	yamlDoc := `
broker:
  initial_capital: 500
`

	config, err := ParseConfig([]byte(yamlDoc))
	suite.Require().NoError(err)
	suite.True(config.StartTime.IsNone())
	suite.True(config.EndTime.IsNone())
}

func (suite *ConfigTestSuite) TestParseRejectsNonPositiveCapital() {
	yamlDoc := `
broker:
  initial_capital: 0
`

	_, err := ParseConfig([]byte(yamlDoc))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *ConfigTestSuite) TestParseRejectsInvertedWindow() {
	yamlDoc := `
broker:
  initial_capital: 1000
start_time: 2023-06-01T00:00:00Z
end_time: 2023-01-01T00:00:00Z
`

	_, err := ParseConfig([]byte(yamlDoc))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *ConfigTestSuite) TestParseRejectsMalformedYAML() {
	_, err := ParseConfig([]byte("broker: ["))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func (suite *ConfigTestSuite) TestValidateWindowOrdering() {
	config := Config{}
	config.Broker.InitialCapital = 1000

	suite.NoError(config.Validate())

	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	config.StartTime = optional.Some(start)
	config.EndTime = optional.Some(start.Add(-time.Hour))
	suite.Error(config.Validate())
}

func (suite *ConfigTestSuite) TestGenerateSchemaJSON() {
	config := Config{}
	schemaJSON, err := config.GenerateSchemaJSON()
	suite.Require().NoError(err)
	suite.NotEmpty(schemaJSON)

	var schema map[string]interface{}
	suite.Require().NoError(json.Unmarshal([]byte(schemaJSON), &schema))
	suite.Equal("fxbacktest-config", schema["title"])
	suite.Contains(schema, "properties")
}
