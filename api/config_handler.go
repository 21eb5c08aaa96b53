package api

import (
	"net/http"

	"github.com/indeksai/indeksai/internal/config"
)

// ConfigResponse is the JSON envelope returned by GET /api/v1/config.
type ConfigResponse struct {
	Config config.Config      `json:"config"`
	Keys   []config.KeyStatus `json:"keys"`
}

// handleGetConfig returns the running configuration with credentials
// removed; their status is reported separately in masked form.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: ConfigResponse{
			Config: redactConfig(s.cfg),
			Keys:   config.CheckAPIKeys(s.cfg),
		},
	})
}

// handleGetConfigKeys returns the status of all sensitive API keys.
func (s *Server) handleGetConfigKeys(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    config.CheckAPIKeys(s.cfg),
	})
}

// redactConfig returns a copy of cfg without secrets.
func redactConfig(cfg *config.Config) config.Config {
	out := *cfg
	out.LLM.GeminiKey = ""
	out.LLM.OpenAIKey = ""
	out.LLM.AnthropicKey = ""
	out.LLM.Fallbacks = append([]string(nil), cfg.LLM.Fallbacks...)
	return out
}
