// Package http exposes the voice recognition API over HTTP.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"travel-voice-service/internal/app"
	"travel-voice-service/internal/models"
	"travel-voice-service/internal/observability"
	"travel-voice-service/internal/observability/logging"
	"travel-voice-service/internal/schema"
	"travel-voice-service/internal/service/audio"
	"travel-voice-service/internal/service/stt"
	"travel-voice-service/internal/service/voice"
)

// multipartOverhead allows for form boundaries and the language field.
const multipartOverhead = 64 * 1024

type handler struct {
	app      *app.Application
	maxBytes int
}

// NewRouter constructs the HTTP router for the service.
func NewRouter(application *app.Application) http.Handler {
	h := &handler{
		app:      application,
		maxBytes: application.Cfg.Audio.MaxBytes,
	}

	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.HTTPMiddleware(application.Metrics))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   application.Cfg.HTTP.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if d := application.Cfg.HTTP.RequestTimeout; d > 0 {
		r.Use(middleware.Timeout(d))
	}

	// Health endpoints
	r.Get("/v1/liveness", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/v1/readiness", func(w http.ResponseWriter, _ *http.Request) {
		if !application.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	r.Get("/", h.root)
	r.Get("/health", h.health)

	// API routes
	r.Route("/api/voice", func(r chi.Router) {
		r.Post("/recognize", h.recognize)
		r.Post("/upload", h.upload)
	})

	return r
}

func (h *handler) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Welcome to %s API", h.app.Cfg.Service.Name),
		"version": h.app.Cfg.Service.Version,
	})
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "healthy",
		"app":      h.app.Cfg.Service.Name,
		"version":  h.app.Cfg.Service.Version,
		"provider": h.app.Voice.Provider(),
	})
}

// recognize handles a JSON body with base64 audio.
func (h *handler) recognize(w http.ResponseWriter, r *http.Request) {
	logger := logging.WithRequest(middleware.GetReqID(r.Context()), "recognize")

	if h.maxBytes > 0 {
		// base64 expands by 4/3
		r.Body = http.MaxBytesReader(w, r.Body, int64(h.maxBytes)*4/3+multipartOverhead)
	}

	var in models.VoiceInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, logger, voice.ErrAudioTooLarge)
			return
		}
		writeDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.app.Validator.ValidateVoiceInput(in); err != nil {
		writeError(w, logger, err)
		return
	}

	resp, err := h.app.Voice.Recognize(r.Context(), in)
	if err != nil {
		writeError(w, logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// upload handles a multipart form with a "file" part and optional "language".
func (h *handler) upload(w http.ResponseWriter, r *http.Request) {
	logger := logging.WithRequest(middleware.GetReqID(r.Context()), "upload")

	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, int64(h.maxBytes)+multipartOverhead)
	}
	if err := r.ParseMultipartForm(int64(h.maxBytes) + multipartOverhead); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, logger, voice.ErrAudioTooLarge)
			return
		}
		writeDetail(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "could not read uploaded file")
		return
	}

	language := r.FormValue("language")
	if err := h.app.Validator.ValidateLanguage(language); err != nil {
		writeError(w, logger, err)
		return
	}

	resp, err := h.app.Voice.RecognizeFile(r.Context(), raw, language)
	if err != nil {
		writeError(w, logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// StatusFor maps a pipeline error to an HTTP status code.
func StatusFor(err error) int {
	var (
		verr  *schema.ValidationError
		ufe   *audio.UnsupportedFormatError
		rerr  *stt.RemoteError
		proto *stt.ProtocolError
	)
	switch {
	case errors.As(err, &verr),
		errors.Is(err, voice.ErrInvalidAudioEncoding),
		errors.Is(err, audio.ErrEmptyAudio),
		errors.Is(err, stt.ErrEmptyAudio):
		return http.StatusBadRequest
	case errors.Is(err, voice.ErrAudioTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, stt.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &ufe):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &rerr), errors.As(err, &proto):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	code := StatusFor(err)
	detail := err.Error()

	switch code {
	case http.StatusServiceUnavailable:
		detail = "speech recognition is not configured"
	case http.StatusGatewayTimeout:
		detail = "speech recognition timed out"
	case http.StatusBadGateway:
		detail = "speech recognition service error"
	case http.StatusInternalServerError:
		detail = "internal error"
	}
	if code >= http.StatusInternalServerError {
		logger.Error().Err(err).Int("status", code).Msg("Request failed")
	}
	writeDetail(w, code, detail)
}

func writeDetail(w http.ResponseWriter, code int, detail string) {
	writeJSON(w, code, models.ErrorResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// NewServer builds the HTTP server around the router.
func NewServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
