package director

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fleetsim/emergency-brake/internal/model/messages"
	"github.com/fleetsim/emergency-brake/internal/storage"
)

// vehicleStatus is the read-API view of one vehicle.
type vehicleStatus struct {
	VehicleID           string   `json:"vehicle_id"`
	Brake               bool     `json:"brake"`
	FrontDistance       *float64 `json:"front_distance"`
	RearDistance        *float64 `json:"rear_distance"`
	FrontDistanceChange *float64 `json:"front_distance_change"`
	RearDistanceChange  *float64 `json:"rear_distance_change"`
}

type logsResponse struct {
	Events     []storage.Event    `json:"events"`
	Pagination storage.Pagination `json:"pagination"`
}

// NewRouter builds the director's API: the fleet/log read endpoints plus the
// HTTP ingest path that mirrors the distance_data queue.
func (s *Service) NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/processed-data", s.handleProcessedData).Methods(http.MethodPost)
	r.HandleFunc("/api/vehicles", s.handleVehicles).Methods(http.MethodGet)
	r.HandleFunc("/api/logs", s.handleLogs).Methods(http.MethodGet)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return r
}

// handleProcessedData accepts a posted ProcessedDistance and runs it through
// the same decision path as a queue delivery.
func (s *Service) handleProcessedData(w http.ResponseWriter, r *http.Request) {
	var pd messages.ProcessedDistance
	if err := json.NewDecoder(r.Body).Decode(&pd); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if pd.VehicleID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing 'vehicle_id' in data"})
		return
	}
	s.processDistance(pd)
	writeJSON(w, http.StatusOK, map[string]string{"status": "processed"})
}

func (s *Service) handleVehicles(w http.ResponseWriter, _ *http.Request) {
	now := s.now()
	snapshot := s.fleet.Snapshot()
	out := make([]vehicleStatus, 0, len(snapshot))
	for _, v := range snapshot {
		out = append(out, vehicleStatus{
			VehicleID:           v.VehicleID,
			Brake:               v.Braking(now),
			FrontDistance:       v.FrontDistance,
			RearDistance:        v.RearDistance,
			FrontDistanceChange: v.FrontRate,
			RearDistanceChange:  v.RearRate,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Service) handleLogs(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid 'page' parameter"})
		return
	}
	limit, err := queryInt(r, "limit", 100)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid 'limit' parameter"})
		return
	}

	events, pagination, err := s.events.List(page, limit)
	if err != nil {
		log.Printf("director: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, logsResponse{Events: events, Pagination: pagination})
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	count, err := s.events.Count()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status": "error", "message": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"events_logged": count,
	})
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
