package monitor

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetsim/emergency-brake/internal/model/messages"
)

func TestPostSensorData(t *testing.T) {
	pub := &capturePublisher{}
	router := NewService(nil, pub, NewFuser()).NewRouter()

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{
			name:     "valid sample",
			body:     `{"vehicle_id":"V1","radar":{"object_distance_m":12.5}}`,
			wantCode: http.StatusOK,
		},
		{
			name:     "invalid json",
			body:     `{broken`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "missing vehicle_id",
			body:     `{"radar":{"object_distance_m":12.5}}`,
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/sensor-data", strings.NewReader(tt.body))
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}

	// Only the valid sample made it to the queue.
	require.Len(t, pub.payloads, 1)
	assert.Equal(t, messages.QueueDistanceData, pub.queues[0])
}

func TestHealthz(t *testing.T) {
	router := NewService(nil, &capturePublisher{}, NewFuser()).NewRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
