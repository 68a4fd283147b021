package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogchi "github.com/samber/slog-chi"
)

func (api *API) NewRouter() *chi.Mux {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(slogchi.New(api.logger))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	router.Use(middleware.StripSlashes)

	router.Use(middleware.Recoverer)

	router.Handle("/metrics", promhttp.HandlerFor(api.metricsReg, promhttp.HandlerOpts{}))

	router.Get("/", api.root)
	router.Get("/health", api.health)
	router.Get("/model/info", api.modelInfo)
	router.Post("/model/reload", api.modelReload)

	router.Route("/api/v1", func(router chi.Router) {
		router.Post("/tts", api.ttsMultipart)
		router.Post("/tts/json", api.ttsJSON)
		router.Get("/voices", api.voicesList)
		router.Post("/voices/refresh", api.voicesRefresh)
	})

	router.Route("/v1", func(router chi.Router) {
		router.Post("/audio/speech", api.openaiSpeech)
		router.Get("/audio/voices", api.voicesList)
		router.Get("/voices", api.voicesList)
		router.Get("/models", api.openaiModels)
	})

	return router
}
