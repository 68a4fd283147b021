package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"app/internal/app/synthesizer"
	"app/pkg/engine"
	"app/pkg/voices"

	"github.com/prometheus/client_golang/prometheus"
)

type Config struct {
	Port    int           `yaml:"port"`
	Timeout time.Duration `yaml:"timeout"`

	// MaxTextLength bounds the input text of every synthesis schema.
	MaxTextLength int `yaml:"max_text_length"`
}

const defaultMaxTextLength = 4096

type API struct {
	logger *slog.Logger

	cfg *Config

	service *synthesizer.Service

	catalog *voices.Catalog
	handle  *engine.Handle

	engineCfg *engine.Config

	metricsReg *prometheus.Registry
}

func NewAPI(cfg *Config, logger *slog.Logger, service *synthesizer.Service,
	catalog *voices.Catalog, handle *engine.Handle, engineCfg *engine.Config,
	metricsReg *prometheus.Registry) *API {
	return &API{
		cfg: cfg,

		logger: logger,

		service: service,

		catalog: catalog,
		handle:  handle,

		engineCfg: engineCfg,

		metricsReg: metricsReg,
	}
}

func (api *API) maxTextLength() int {
	if api.cfg.MaxTextLength > 0 {
		return api.cfg.MaxTextLength
	}

	return defaultMaxTextLength
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(err.Error()))

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
