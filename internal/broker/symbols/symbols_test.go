package symbols

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type SymbolsTestSuite struct {
	suite.Suite
}

func TestSymbolsTestSuite(t *testing.T) {
	suite.Run(t, new(SymbolsTestSuite))
}

func (suite *SymbolsTestSuite) TestSpecFor() {
	tests := []struct {
		name              string
		symbol            string
		expectedPrecision int
		expectedPoint     float64
		expectedPip       float64
	}{
		{"major pair", "EURUSD", 5, 0.00001, 0.0001},
		{"jpy quoted", "USDJPY", 3, 0.001, 0.01},
		{"jpy cross", "EURJPY", 3, 0.001, 0.01},
		{"gold", "XAUUSD", 2, 0.01, 0.01},
		{"gold alias", "GOLD", 2, 0.01, 0.01},
		{"lowercase with separator", "usd/jpy", 3, 0.001, 0.01},
		{"unknown symbol falls back to default", "ABCXYZ", 5, 0.00001, 0.0001},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			spec := SpecFor(tc.symbol)
			suite.Equal(tc.expectedPrecision, spec.PricePrecision)
			suite.InDelta(tc.expectedPoint, spec.PointSize, 1e-12)
			suite.InDelta(tc.expectedPip, spec.PipSize, 1e-12)
			suite.Equal(100_000.0, spec.ContractSize)
		})
	}
}

func (suite *SymbolsTestSuite) TestNormalize() {
	suite.Equal("EURUSD", Normalize("eur/usd"))
	suite.Equal("EURUSD", Normalize(" EUR_USD "))
	suite.Equal("XAUUSD", Normalize("xau-usd"))
}

func (suite *SymbolsTestSuite) TestRoundPrice() {
	fx := SpecFor("EURUSD")
	suite.InDelta(1.10070, fx.RoundPrice(1.10070005), 1e-9)
	suite.InDelta(1.10071, fx.RoundPrice(1.100705), 1e-9)

	jpy := SpecFor("USDJPY")
	suite.InDelta(140.123, jpy.RoundPrice(140.12345), 1e-9)
}
