package director

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetsim/emergency-brake/internal/model"
)

func trackerServer(t *testing.T, locations []VehicleLocation) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/vehicles/latest-locations", r.URL.Path)
		json.NewEncoder(w).Encode(locations)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func loc(id string, lat, lng float64) VehicleLocation {
	var v VehicleLocation
	v.VehicleID = id
	v.GPS.Latitude = lat
	v.GPS.Longitude = lng
	return v
}

func withDelta(v VehicleLocation, dlat, dlng float64) VehicleLocation {
	v.PositionDelta = &struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}{Latitude: dlat, Longitude: dlng}
	return v
}

func TestFrontDistanceNearestOther(t *testing.T) {
	// No position delta: the cone check is skipped, nearest neighbor wins.
	srv := trackerServer(t, []VehicleLocation{
		loc("V1", 45.0, 9.0),
		loc("V2", 45.0005, 9.0), // ~55m north
		loc("V3", 45.001, 9.0),  // ~111m north
	})
	cli := NewTrackerClient(srv.URL)

	dist, err := cli.FrontDistance(context.Background(), "V1")
	require.NoError(t, err)
	require.NotNil(t, dist)
	assert.InDelta(t, 55.6, *dist, 2.0)
}

func TestFrontDistanceForwardConeFiltersBehind(t *testing.T) {
	// V1 is heading north; V2 sits behind it, V3 ahead but farther.
	srv := trackerServer(t, []VehicleLocation{
		withDelta(loc("V1", 45.0, 9.0), 0.0001, 0), // moving north
		loc("V2", 44.9995, 9.0),                    // ~55m south, behind
		loc("V3", 45.001, 9.0),                     // ~111m north, ahead
	})
	cli := NewTrackerClient(srv.URL)

	dist, err := cli.FrontDistance(context.Background(), "V1")
	require.NoError(t, err)
	require.NotNil(t, dist)
	assert.InDelta(t, 111.2, *dist, 3.0, "the closer vehicle behind must be ignored")
}

func TestFrontDistanceNobodyAhead(t *testing.T) {
	srv := trackerServer(t, []VehicleLocation{
		withDelta(loc("V1", 45.0, 9.0), 0.0001, 0),
		loc("V2", 44.999, 9.0), // behind only
	})
	cli := NewTrackerClient(srv.URL)

	dist, err := cli.FrontDistance(context.Background(), "V1")
	require.NoError(t, err)
	assert.Nil(t, dist)
}

func TestFrontDistanceUnknownVehicle(t *testing.T) {
	srv := trackerServer(t, []VehicleLocation{loc("V2", 45.0, 9.0)})
	cli := NewTrackerClient(srv.URL)

	dist, err := cli.FrontDistance(context.Background(), "V1")
	require.NoError(t, err)
	assert.Nil(t, dist)
}

func TestFrontDistanceUnavailableCollaborator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	cli := NewTrackerClient(srv.URL)

	_, err := cli.FrontDistance(context.Background(), "V1")
	var unavailable *model.CollaboratorUnavailable
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, "location-tracker", unavailable.Name)
}

func TestFrontDistanceBreakerOpensAfterFailures(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	cli := NewTrackerClient(srv.URL)

	for i := 0; i < 5; i++ {
		_, err := cli.FrontDistance(context.Background(), "V1")
		require.Error(t, err)
	}
	assert.Equal(t, 3, calls, "the open breaker short-circuits further calls")
}

func TestFrontDistanceWithoutBaseURL(t *testing.T) {
	dist, err := NewTrackerClient("").FrontDistance(context.Background(), "V1")
	assert.NoError(t, err)
	assert.Nil(t, dist)
}
