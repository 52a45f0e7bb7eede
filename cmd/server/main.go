package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"gopkg.in/yaml.v3"

	stateviz "github.com/stateviz/stateviz"
	"github.com/stateviz/stateviz/internal/log"
)

// config is the optional YAML server configuration.
type config struct {
	Listen         string   `yaml:"listen"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	LogLevel       string   `yaml:"log_level"`
}

func defaultConfig() config {
	return config{
		Listen:         ":8080",
		AllowedOrigins: []string{"http://localhost:5173"},
		LogLevel:       log.LevelInfo,
	}
}

func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func corsMiddleware(allowedOrigins []string, next http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if _, ok := allowed[origin]; ok {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// cascadeRequest carries one stateless cascade evaluation.
type cascadeRequest struct {
	Graph      json.RawMessage `json:"graph"`
	Stylesheet string          `json:"stylesheet"`
}

type cascadeResponse struct {
	Entities []stateviz.EntityDescription `json:"entities"`
	Errors   []string                     `json:"errors,omitempty"`
}

func handleCascade(w http.ResponseWriter, r *http.Request) {
	var body cascadeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(body.Graph) == 0 {
		writeError(w, http.StatusBadRequest, "missing field: graph")
		return
	}
	if body.Stylesheet == "" {
		writeError(w, http.StatusBadRequest, "missing field: stylesheet")
		return
	}

	graph, err := stateviz.LoadGraph(bytes.NewReader(body.Graph))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid graph: %v", err))
		return
	}

	var sheetErrors []string
	sheet, err := stateviz.CompileStylesheet(body.Stylesheet, func(e stateviz.ParseError) {
		sheetErrors = append(sheetErrors, e.Error())
	})
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	mapping := stateviz.Apply(sheet, graph)
	writeJSON(w, http.StatusOK, cascadeResponse{
		Entities: stateviz.DescribeMapping(mapping),
		Errors:   sheetErrors,
	})
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	listen := flag.String("listen", "", "listen address (overrides config)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	log.SetLevel(cfg.LogLevel)

	router := mux.NewRouter()
	router.HandleFunc("/cascade", handleCascade).Methods(http.MethodPost, http.MethodOptions)

	log.Infof("stateviz server listening on %s", cfg.Listen)
	if err := http.ListenAndServe(cfg.Listen, corsMiddleware(cfg.AllowedOrigins, router)); err != nil {
		log.Errorf("server error: %v", err)
		os.Exit(1)
	}
}
