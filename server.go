package main

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/banshee-data/gesture.report/internal/config"
	"github.com/banshee-data/gesture.report/internal/vision/storage/sqlite"
	"github.com/banshee-data/gesture.report/internal/version"
)

type Server struct {
	cfg   *config.TuningConfig
	store *sqlite.PersonStore
}

func NewServer(cfg *config.TuningConfig, store *sqlite.PersonStore) *Server {
	return &Server{
		cfg:   cfg,
		store: store,
	}
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.healthHandler)
	mux.HandleFunc("/api/params", s.paramsHandler)
	mux.HandleFunc("/api/persons", s.personsHandler)
	return mux
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte("ok\n"))
}

// paramsHandler reports the effective tuning parameters, with defaults
// filled in for any fields the config file left unset.
func (s *Server) paramsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	params := map[string]interface{}{
		"version":               version.Version,
		"probability_threshold": s.cfg.GetProbabilityThreshold(),
		"roi_padding_px":        s.cfg.GetROIPaddingPx(),
		"link_length_threshold": s.cfg.GetLinkLengthThreshold(),
		"wave_heuristic":        s.cfg.GetWaveHeuristic(),
		"arm_norm_threshold":    s.cfg.GetArmNormThreshold(),
		"neck_norm_threshold":   s.cfg.GetNeckNormThreshold(),
		"detect_timeout":        s.cfg.GetDetectTimeout().String(),
		"max_frame_rate":        s.cfg.GetMaxFrameRate(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(params); err != nil {
		log.Printf("failed to encode params: %v", err)
	}
}

// personsHandler returns recently stored person records for a sensor.
func (s *Server) personsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sensor := r.URL.Query().Get("sensor")
	if sensor == "" {
		http.Error(w, "sensor query parameter is required", http.StatusBadRequest)
		return
	}

	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			http.Error(w, "limit must be between 1 and 1000", http.StatusBadRequest)
			return
		}
		limit = n
	}

	records, err := s.store.RecentPersons(sensor, limit)
	if err != nil {
		log.Printf("failed to query persons: %v", err)
		http.Error(w, "Failed to retrieve persons", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []sqlite.PersonRecord{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(records); err != nil {
		log.Printf("failed to encode persons: %v", err)
	}
}
