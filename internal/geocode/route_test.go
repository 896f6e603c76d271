package geocode_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/trip-planner/internal/geocode"
	"github.com/neexbeast/trip-planner/internal/itinerary"
)

type fakeDirections struct {
	summary *geocode.RouteSummary
	err     error
}

func (f *fakeDirections) Route(_ context.Context, _, _ itinerary.Coordinates) (*geocode.RouteSummary, error) {
	return f.summary, f.err
}

func TestSplitComposite(t *testing.T) {
	tests := []struct {
		in, from, to string
	}{
		{"Paris TO Lyon", "Paris", "Lyon"},
		{"İstanbul to Ankara", "İstanbul", "Ankara"},
		{"ȺȺȺȺ to x", "ȺȺȺȺ", "x"},
		{"Malmö To Göteborg", "Malmö", "Göteborg"},
	}
	for _, tt := range tests {
		from, to, err := geocode.SplitComposite(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.from, from, tt.in)
		assert.Equal(t, tt.to, to, tt.in)
	}

	for _, bad := range []string{"Paris", "Paris to ", " to Lyon", "A to B to C", ""} {
		_, _, err := geocode.SplitComposite(bad)
		assert.ErrorIs(t, err, geocode.ErrFormat, bad)
	}
}

func TestResolveDrive_BothEnds(t *testing.T) {
	fake := newFake()
	rr := geocode.NewRouteResolver(geocode.NewCache(fake, nil, nil), &fakeDirections{}, nil)

	route, err := rr.ResolveDrive(context.Background(), "Paris to Lyon")
	require.NoError(t, err)
	require.NotNil(t, route.Start)
	require.NotNil(t, route.End)
	require.NotNil(t, route.Midpoint)

	assert.Equal(t, paris, route.Start.Coordinates)
	assert.Equal(t, lyon, route.End.Coordinates)
	assert.True(t, route.Midpoint.Lat < paris.Lat && route.Midpoint.Lat > lyon.Lat)
	assert.True(t, route.Midpoint.Lng > paris.Lng && route.Midpoint.Lng < lyon.Lng)
}

func TestResolveDrive_PartialResult(t *testing.T) {
	rr := geocode.NewRouteResolver(geocode.NewCache(newFake(), nil, nil), &fakeDirections{}, nil)

	route, err := rr.ResolveDrive(context.Background(), "Atlantis to Lyon")
	require.NoError(t, err)
	assert.Nil(t, route.Start)
	assert.ErrorIs(t, route.StartErr, geocode.ErrNotFound)
	require.NotNil(t, route.End)
	assert.Nil(t, route.Midpoint)
}

func TestResolveDrive_FormatError(t *testing.T) {
	fake := newFake()
	rr := geocode.NewRouteResolver(geocode.NewCache(fake, nil, nil), &fakeDirections{}, nil)

	_, err := rr.ResolveDrive(context.Background(), "Paris")
	require.ErrorIs(t, err, geocode.ErrFormat)
	assert.Zero(t, fake.count())
}

func TestGeometryOrStraightLine(t *testing.T) {
	line := []itinerary.Coordinates{paris, {Lng: 3.5, Lat: 47}, lyon}
	ok := geocode.NewRouteResolver(nil, &fakeDirections{summary: &geocode.RouteSummary{Geometry: line}}, nil)
	assert.Equal(t, line, ok.GeometryOrStraightLine(context.Background(), paris, lyon))

	failing := geocode.NewRouteResolver(nil, &fakeDirections{err: errors.New("boom")}, nil)
	assert.Equal(t, []itinerary.Coordinates{paris, lyon}, failing.GeometryOrStraightLine(context.Background(), paris, lyon))
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "465 km", geocode.FormatDistance(465000))
	assert.Equal(t, "850 m", geocode.FormatDistance(850))
	assert.Equal(t, "4h 30m", geocode.FormatDuration(16200))
	assert.Equal(t, "45m", geocode.FormatDuration(2700))
}
