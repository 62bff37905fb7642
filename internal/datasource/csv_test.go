package datasource

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/meridianfx/fxbacktest/internal/logger"
	"github.com/meridianfx/fxbacktest/pkg/errors"
)

type CSVLoaderTestSuite struct {
	suite.Suite
	loader *CSVLoader
}

func TestCSVLoaderTestSuite(t *testing.T) {
	suite.Run(t, new(CSVLoaderTestSuite))
}

func (suite *CSVLoaderTestSuite) SetupTest() {
	suite.loader = NewCSVLoader(logger.NewNopLogger())
}

func (suite *CSVLoaderTestSuite) TestLoadBasicFile() {
	data := `timestamp,open,high,low,close,volume
1672531200,1.10000,1.10100,1.09900,1.10050,1200
1672531260,1.10050,1.10150,1.10000,1.10120,900
`

	bars, err := suite.loader.Load(strings.NewReader(data))
	suite.Require().NoError(err)
	suite.Require().Len(bars, 2)

	suite.Equal(int64(1672531200), bars[0].Timestamp)
	suite.Equal(1.10000, bars[0].Open)
	suite.Equal(1.10120, bars[1].Close)
	suite.Equal(900.0, bars[1].Volume)
	suite.True(bars[0].BidClose.IsNone())
}

func (suite *CSVLoaderTestSuite) TestLoadHistoricalQuoteColumns() {
	data := `timestamp,open,high,low,close,volume,bid_close,ask_close
1672531200,1.10000,1.10100,1.09900,1.10050,1200,1.10045,1.10055
1672531260,1.10050,1.10150,1.10000,1.10120,900,,
`

	bars, err := suite.loader.Load(strings.NewReader(data))
	suite.Require().NoError(err)
	suite.Require().Len(bars, 2)

	suite.True(bars[0].HasHistoricalQuote())
	suite.Equal(1.10045, bars[0].BidClose.Unwrap())
	suite.Equal(1.10055, bars[0].AskClose.Unwrap())
	suite.False(bars[1].HasHistoricalQuote())
}

func (suite *CSVLoaderTestSuite) TestRejectsNonPositiveBars() {
	data := `timestamp,open,high,low,close
1672531200,1.10000,1.10100,1.09900,1.10050
1672531260,0,1.10150,1.10000,1.10120
1672531320,1.10120,1.10130,-0.5,1.10125
1672531380,1.10125,1.10140,1.10100,1.10110
`

	bars, err := suite.loader.Load(strings.NewReader(data))
	suite.Require().NoError(err)
	suite.Len(bars, 2)
}

func (suite *CSVLoaderTestSuite) TestKeepsInvertedHistoricalQuote() {
	data := `timestamp,open,high,low,close,bid_close,ask_close
1672531200,1.10000,1.10100,1.09900,1.10050,1.10060,1.10040
`

	bars, err := suite.loader.Load(strings.NewReader(data))
	suite.Require().NoError(err)
	suite.Require().Len(bars, 1)
	suite.Greater(bars[0].BidClose.Unwrap(), bars[0].AskClose.Unwrap())
}

func (suite *CSVLoaderTestSuite) TestRFC3339Timestamps() {
	data := `timestamp,open,high,low,close
2023-01-01T00:00:00Z,1.10000,1.10100,1.09900,1.10050
`

	bars, err := suite.loader.Load(strings.NewReader(data))
	suite.Require().NoError(err)
	suite.Equal(int64(1672531200), bars[0].Timestamp)
}

func (suite *CSVLoaderTestSuite) TestMissingColumnFails() {
	data := `timestamp,open,high,low
1672531200,1.1,1.2,1.0
`

	_, err := suite.loader.Load(strings.NewReader(data))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeDataParseFailed))
}

func (suite *CSVLoaderTestSuite) TestMalformedValueFails() {
	data := `timestamp,open,high,low,close
1672531200,not-a-number,1.2,1.0,1.1
`

	_, err := suite.loader.Load(strings.NewReader(data))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeBadHistoricalBar))
}

func (suite *CSVLoaderTestSuite) TestAllBarsRejectedFails() {
	data := `timestamp,open,high,low,close
1672531200,0,0,0,0
`

	_, err := suite.loader.Load(strings.NewReader(data))
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeHistoricalDataEmpty))
}
