package director

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/fleetsim/emergency-brake/internal/model"
)

const (
	trackerTimeout = 2 * time.Second
	// A vehicle counts as "ahead" when the bearing to it sits inside a
	// +/-45 degree cone around our own heading.
	forwardConeDeg = 45.0
	earthRadiusM   = 6371000.0
)

// VehicleLocation is one entry of the tracker's latest-locations payload.
type VehicleLocation struct {
	VehicleID string `json:"vehicle_id"`
	GPS       struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"gps"`
	PositionDelta *struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"position_delta,omitempty"`
}

// TrackerClient queries the read-only position-tracking collaborator for an
// independently derived front distance. Calls are advisory: a short timeout
// and a circuit breaker keep a slow or dead tracker from ever blocking the
// decision path.
type TrackerClient struct {
	base    string
	httpcli *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewTrackerClient(base string) *TrackerClient {
	return &TrackerClient{
		base:    base,
		httpcli: &http.Client{Timeout: trackerTimeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "location-tracker",
			Timeout: 10 * time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= 3
			},
		}),
	}
}

// FrontDistance returns the distance in meters to the nearest vehicle ahead
// of vehicleID, or nil when the tracker has no answer (vehicle unknown, or
// nobody in the forward cone). A *model.CollaboratorUnavailable error means
// the lookup itself failed and rule 3 must simply be skipped.
func (t *TrackerClient) FrontDistance(ctx context.Context, vehicleID string) (*float64, error) {
	if t == nil || t.base == "" {
		return nil, nil
	}
	res, err := t.breaker.Execute(func() (any, error) {
		return t.fetchLocations(ctx)
	})
	if err != nil {
		return nil, &model.CollaboratorUnavailable{Name: "location-tracker", Err: err}
	}
	locations := res.([]VehicleLocation)
	return nearestAhead(vehicleID, locations), nil
}

func (t *TrackerClient) fetchLocations(ctx context.Context) ([]VehicleLocation, error) {
	url := t.base + "/api/vehicles/latest-locations"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := t.httpcli.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s -> %s", url, resp.Status)
	}
	var locations []VehicleLocation
	if err := json.NewDecoder(resp.Body).Decode(&locations); err != nil {
		return nil, err
	}
	return locations, nil
}

// nearestAhead finds the closest other vehicle inside the forward bearing
// cone. Without a usable position delta the cone check is skipped and any
// direction counts as ahead.
func nearestAhead(vehicleID string, locations []VehicleLocation) *float64 {
	var self *VehicleLocation
	for i := range locations {
		if locations[i].VehicleID == vehicleID {
			self = &locations[i]
			break
		}
	}
	if self == nil {
		return nil
	}

	var heading *float64
	if d := self.PositionDelta; d != nil && (d.Latitude != 0 || d.Longitude != 0) {
		b := bearing(self.GPS.Latitude, self.GPS.Longitude,
			self.GPS.Latitude+d.Latitude, self.GPS.Longitude+d.Longitude)
		heading = &b
	}

	var nearest *float64
	for i := range locations {
		other := &locations[i]
		if other.VehicleID == vehicleID {
			continue
		}
		dist := haversine(self.GPS.Latitude, self.GPS.Longitude,
			other.GPS.Latitude, other.GPS.Longitude)

		if heading != nil {
			diff := math.Abs(bearing(self.GPS.Latitude, self.GPS.Longitude,
				other.GPS.Latitude, other.GPS.Longitude) - *heading)
			if diff > forwardConeDeg && diff < 360-forwardConeDeg {
				continue
			}
		}
		if nearest == nil || dist < *nearest {
			d := dist
			nearest = &d
		}
	}
	return nearest
}

// haversine returns the great-circle distance between two coordinates in
// meters.
func haversine(lat1, lon1, lat2, lon2 float64) float64 {
	rlat1, rlon1 := radians(lat1), radians(lon1)
	rlat2, rlon2 := radians(lat2), radians(lon2)

	dlat := rlat2 - rlat1
	dlon := rlon2 - rlon1

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusM * c
}

// bearing returns the initial bearing from point 1 to point 2 in degrees,
// normalized to [0, 360).
func bearing(lat1, lon1, lat2, lon2 float64) float64 {
	rlat1, rlat2 := radians(lat1), radians(lat2)
	dlon := radians(lon2 - lon1)

	y := math.Sin(dlon) * math.Cos(rlat2)
	x := math.Cos(rlat1)*math.Sin(rlat2) - math.Sin(rlat1)*math.Cos(rlat2)*math.Cos(dlon)
	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
