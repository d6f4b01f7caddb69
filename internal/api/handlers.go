package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"hypeflow/internal/domain"
	"hypeflow/internal/media"
	"hypeflow/internal/observability"
	"hypeflow/internal/pipeline"
	"hypeflow/internal/scheduler"
	"hypeflow/internal/solana"
	"hypeflow/internal/storage"
)

const imageCacheControl = "public, max-age=86400"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("solana_address", func(fl validator.FieldLevel) bool {
		return solana.IsValidAddress(fl.Field().String())
	})
	return v
}

// SubscribeRequest is the body of POST /api/collections/subscribe.
type SubscribeRequest struct {
	Address string `json:"address" validate:"required,solana_address"`
}

// SubscribeResponse is returned on success.
type SubscribeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Uptime   string              `json:"uptime"`
	Stores   pipeline.Stats      `json:"stores"`
	Sources  []string            `json:"sources,omitempty"`
	Triggers []scheduler.RunInfo `json:"triggers,omitempty"`
	Breakers map[string]string   `json:"breakers,omitempty"`
}

// listNFTs handles GET /api/nfts. The refresh query parameter is accepted
// and has no effect.
func (s *Server) listNFTs(w http.ResponseWriter, r *http.Request) {
	records := s.pipeline.Records()
	if records == nil {
		records = []*domain.NFTRecord{}
	}
	s.respondJSON(w, http.StatusOK, records)
}

// listCollections handles GET /api/collections.
func (s *Server) listCollections(w http.ResponseWriter, r *http.Request) {
	subs := s.pipeline.Subscriptions()
	if subs == nil {
		subs = []domain.CollectionSubscription{}
	}
	s.respondJSON(w, http.StatusOK, subs)
}

// subscribe handles POST /api/collections/subscribe.
func (s *Server) subscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		s.respondError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	added, found, err := s.pipeline.Subscribe(r.Context(), req.Address)
	switch {
	case errors.Is(err, storage.ErrInvalidInput):
		s.respondError(w, http.StatusBadRequest, "Invalid Solana address")
		return
	case err != nil:
		s.logger.Error("subscribe failed", zap.String("address", req.Address), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "Server error subscribing to collection")
		return
	}
	if added {
		s.logger.Info("initial collection fetch done", zap.String("address", req.Address), zap.Int("admitted", found))
	}

	s.respondJSON(w, http.StatusOK, SubscribeResponse{
		Success: true,
		Message: "Subscribed to collection " + req.Address,
	})
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 && verrs[0].Tag() == "required" {
		return "Collection address is required"
	}
	return "Invalid Solana address"
}

// proxyImage handles GET /api/proxy-image?url=.
func (s *Server) proxyImage(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		http.Error(w, "Image URL is required", http.StatusBadRequest)
		return
	}

	plan := s.proxy.Plan(raw)
	if plan.Redirect != "" {
		observability.RecordProxyOutcome("redirect")
		http.Redirect(w, r, plan.Redirect, http.StatusTemporaryRedirect)
		return
	}

	img, err := s.proxy.Fetch(r.Context(), plan.Fetch)
	if err != nil {
		observability.RecordProxyOutcome("error")
		s.logger.Warn("image proxy failed", zap.String("url", plan.Fetch), zap.Error(err))
		http.Redirect(w, r, media.ErrorImageURL, http.StatusTemporaryRedirect)
		return
	}
	defer img.Body.Close()

	observability.RecordProxyOutcome("fetched")
	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Cache-Control", imageCacheControl)
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, img.Body); err != nil {
		s.logger.Debug("image stream interrupted", zap.String("url", plan.Fetch), zap.Error(err))
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Uptime:  time.Since(s.startedAt).Round(time.Second).String(),
		Stores:  s.pipeline.Stats(),
		Sources: s.sources,
	}
	if s.triggers != nil {
		resp.Triggers = s.triggers()
	}
	if s.breakers != nil {
		resp.Breakers = s.breakers()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
