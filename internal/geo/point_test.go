package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEWKB_RoundTrip(t *testing.T) {
	p := Point{Lat: 35.6595, Lng: 139.7005}

	data, err := EncodeEWKB(p)
	require.NoError(t, err)
	// byte order + type + srid + 2 float64
	assert.Len(t, data, 1+4+4+16)
	assert.Equal(t, byte(1), data[0])

	got, err := DecodeEWKB(data)
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestDecodeEWKB_Invalid(t *testing.T) {
	_, err := DecodeEWKB([]byte{0x01, 0x02})
	assert.Error(t, err)
}
