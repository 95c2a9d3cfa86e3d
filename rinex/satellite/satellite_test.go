package satellite

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/goblimey/go-rinex/rinex/gnsstime"
)

func TestParseID(t *testing.T) {
	assert := assert.New(t)

	var testData = []struct {
		Text string
		Want ID
	}{
		{"G01", ID{GPS, 1}},
		{"G 1", ID{GPS, 1}},
		{"R24", ID{GLONASS, 24}},
		{"E30", ID{Galileo, 30}},
		{"C61", ID{BeiDou, 61}},
		{"J02", ID{QZSS, 2}},
		{"I09", ID{IRNSS, 9}},
		{"S20", ID{SBAS, 20}},
	}

	for _, td := range testData {
		got, err := ParseID(td.Text)
		if assert.NoError(err, td.Text) {
			assert.Equal(td.Want, got)
		}
	}
}

func TestParseIDErrors(t *testing.T) {
	for _, text := range []string{"X01", " 01", "G00", "Gxx", "G1", "G100", "M01", ""} {
		_, err := ParseID(text)
		assert.Error(t, err, text)
	}
}

func TestIDString(t *testing.T) {
	assert.Equal(t, "G01", NewID(GPS, 1).String())
	assert.Equal(t, "R24", NewID(GLONASS, 24).String())
}

func TestLess(t *testing.T) {
	assert.True(t, NewID(GPS, 2).Less(NewID(GPS, 10)))
	assert.True(t, NewID(Galileo, 30).Less(NewID(GPS, 1)))
	assert.False(t, NewID(GPS, 1).Less(NewID(GPS, 1)))
}

func TestSystem(t *testing.T) {
	sys, err := ParseSystem('R')
	assert.NoError(t, err)
	assert.Equal(t, GLONASS, sys)
	assert.Equal(t, "GLONASS", sys.String())
	assert.Equal(t, "R", sys.Letter())
	assert.Equal(t, gnsstime.GLO, sys.DefaultTimeSystem())
	assert.Equal(t, gnsstime.GPS, Mixed.DefaultTimeSystem())

	_, err = ParseSystem('Z')
	assert.Error(t, err)
	assert.False(t, System('Z').Valid())
}
