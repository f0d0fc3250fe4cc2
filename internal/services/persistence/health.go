package persistence

import (
	"encoding/json"
	"net/http"
	"time"
)

// HealthHandler reports broker connectivity, Influx client presence, and the
// age of the last write error.
func (s *Service) HealthHandler(connState func() string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		type status struct {
			Status          string  `json:"status"`
			BrokerState     string  `json:"broker_state"`
			InfluxOK        bool    `json:"influx_ok"`
			LastWriteErrorS float64 `json:"last_write_error_age_sec"`
		}
		st := status{
			BrokerState:     connState(),
			InfluxOK:        s.client != nil,
			LastWriteErrorS: s.writer.LastErrorAge().Seconds(),
		}
		connected := st.BrokerState == "CONNECTED"
		switch {
		case connected && st.InfluxOK && s.writer.LastErrorAge() > 30*time.Second:
			st.Status = "ok"
		case connected || st.InfluxOK:
			st.Status = "degraded"
		default:
			st.Status = "down"
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(st)
	})
}

// ReadyHandler returns 200 only when every dependency is healthy.
func (s *Service) ReadyHandler(connState func() string, minOkErrorAge time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		ready := connState() == "CONNECTED" && s.client != nil &&
			s.writer.LastErrorAge() > minOkErrorAge
		if !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]bool{"ready": ready})
	})
}
