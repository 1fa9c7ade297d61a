package geo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/star/darksky/internal/apperr"
)

func TestNauticalZone(t *testing.T) {
	tests := []struct {
		lon  float64
		want string
	}{
		{-80.5752, "Etc/GMT+5"},
		{0, "Etc/GMT"},
		{7.4, "Etc/GMT"},
		{7.6, "Etc/GMT-1"},
		{151.21, "Etc/GMT-10"},
		{-180, "Etc/GMT+12"},
		{180, "Etc/GMT-12"},
	}
	for _, tt := range tests {
		loc, err := NauticalZone(tt.lon)
		require.NoError(t, err)
		require.Equal(t, tt.want, loc.String(), "lon %v", tt.lon)
	}

	_, err := NauticalZone(200)
	require.True(t, apperr.IsCode(err, apperr.CodeInvalidCoordinate))
}

func TestStatic(t *testing.T) {
	ctx := context.Background()

	s, err := NewStatic(Config{ElevationM: 329})
	require.NoError(t, err)
	elev, err := s.ElevationFor(ctx, 43.45, -80.58)
	require.NoError(t, err)
	require.Equal(t, 329.0, elev)
	tz, err := s.TimezoneFor(ctx, 43.45, -80.58)
	require.NoError(t, err)
	require.Equal(t, "Etc/GMT+5", tz.String())

	s, err = NewStatic(Config{DefaultTimezone: "America/Toronto"})
	require.NoError(t, err)
	tz, err = s.TimezoneFor(ctx, -33.87, 151.21)
	require.NoError(t, err)
	require.Equal(t, "America/Toronto", tz.String())

	_, err = NewStatic(Config{DefaultTimezone: "Mars/Olympus_Mons"})
	require.Error(t, err)
}

func TestLocate(t *testing.T) {
	ctx := context.Background()
	s, err := NewStatic(Config{ElevationM: 329})
	require.NoError(t, err)

	loc, err := Locate(ctx, s, 43.4494, -80.5752, "America/Toronto")
	require.NoError(t, err)
	require.Equal(t, "America/Toronto", loc.Timezone.String())
	require.Equal(t, 329.0, loc.ElevationM)
	require.InDelta(t, 43.4494, loc.Latitude, 1e-12)
	require.InDelta(t, 329, loc.Observer().AltM, 1e-12)

	loc, err = Locate(ctx, s, 43.4494, -80.5752, "")
	require.NoError(t, err)
	require.Equal(t, "Etc/GMT+5", loc.Timezone.String())

	_, err = Locate(ctx, s, 43.4494, -80.5752, "Not/AZone")
	require.True(t, apperr.IsCode(err, apperr.CodeParse))
}
