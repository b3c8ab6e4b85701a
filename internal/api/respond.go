package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/harrylevesque/commandapi/internal/storage"
	"github.com/harrylevesque/commandapi/internal/utils"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, e *utils.APIError) {
	writeJSON(w, e.Status, errorBody{Error: errorDetail{
		Code:      e.Code,
		Message:   e.Message,
		RequestID: RequestIDFrom(r.Context()),
	}})
}

// storeError maps a tagged store failure onto the response. Driver
// messages are logged with the request logger, never returned.
func storeError(w http.ResponseWriter, r *http.Request, err error) {
	switch storage.KindOf(err) {
	case storage.KindNotFound:
		writeError(w, r, utils.NotFound("command not found"))
	case storage.KindInvalid:
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("store rejected write")
		writeError(w, r, utils.InvalidRequest("command violates a storage constraint"))
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("store failure")
		writeError(w, r, utils.Internal())
	}
}
