package monitor

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fleetsim/emergency-brake/internal/model/messages"
)

// NewRouter exposes the HTTP ingest path next to the queue consumer: the
// simulator may POST raw samples instead of publishing them.
func (s *Service) NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/sensor-data", s.handleSensorData).Methods(http.MethodPost)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	return r
}

func (s *Service) handleSensorData(w http.ResponseWriter, r *http.Request) {
	var sample messages.SensorSample
	if err := json.NewDecoder(r.Body).Decode(&sample); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if sample.VehicleID == "" {
		writeError(w, http.StatusBadRequest, "missing 'vehicle_id' in data")
		return
	}

	if err := s.Process(&sample); err != nil {
		log.Printf("monitor: processing posted sample for %s: %v", sample.VehicleID, err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "processed"})
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
