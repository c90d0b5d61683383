package http

import (
	"encoding/json"
	"net/http"
)

// Response headers set by the metrics endpoints.
const (
	HeaderMetricsSource   = "X-Metrics-Source"
	HeaderMetricsDegraded = "X-Metrics-Degraded"
)

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The header has already been sent, so an encoding error cannot be reported.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteJSONWithHeaders writes a JSON response with custom headers
func WriteJSONWithHeaders(w http.ResponseWriter, status int, v any, headers map[string]string) {
	for key, value := range headers {
		w.Header().Set(key, value)
	}
	WriteJSON(w, status, v)
}
