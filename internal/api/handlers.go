package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/sahilm/fuzzy"

	"github.com/harrylevesque/commandapi/internal/models"
	"github.com/harrylevesque/commandapi/internal/storage"
	"github.com/harrylevesque/commandapi/internal/utils"
)

const maxBodyBytes = 1 << 20

// CommandHandler serves the command resource. It keeps no state between
// requests beyond the injected store.
type CommandHandler struct {
	store storage.CommandStore
}

func NewCommandHandler(store storage.CommandStore) *CommandHandler {
	return &CommandHandler{store: store}
}

// List returns every command in insertion order.
func (h *CommandHandler) List(w http.ResponseWriter, r *http.Request) {
	cmds, err := h.store.List(r.Context())
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cmds)
}

type commandSource []models.Command

func (s commandSource) String(i int) string {
	c := s[i]
	return c.HowTo + " " + c.Platform + " " + c.CommandLine
}

func (s commandSource) Len() int { return len(s) }

// Search fuzzy matches q against every text field, best match first.
func (h *CommandHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, r, utils.InvalidRequest("query parameter q is required"))
		return
	}
	cmds, err := h.store.List(r.Context())
	if err != nil {
		storeError(w, r, err)
		return
	}
	matches := fuzzy.FindFrom(q, commandSource(cmds))
	out := make([]models.Command, 0, len(matches))
	for _, m := range matches {
		out = append(out, cmds[m.Index])
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *CommandHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	cmd, err := h.store.Get(r.Context(), id)
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cmd)
}

// Create ignores any id in the payload. Every store failure is reported
// as an invalid request; nothing is written when it fails.
func (h *CommandHandler) Create(w http.ResponseWriter, r *http.Request) {
	var cmd models.Command
	if !decode(w, r, &cmd) {
		return
	}
	cmd.ID = 0
	if err := cmd.Validate(); err != nil {
		writeError(w, r, utils.InvalidRequest("%s", validationMessage(err)))
		return
	}
	created, err := h.store.Create(r.Context(), cmd)
	if err != nil {
		if !storage.IsInvalid(err) {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("create command")
		}
		writeError(w, r, utils.InvalidRequest("command could not be saved"))
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/commands/%d", created.ID))
	writeJSON(w, http.StatusCreated, created)
}

// Update replaces every field of an existing command. The body id must
// match the path id.
func (h *CommandHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var cmd models.Command
	if !decode(w, r, &cmd) {
		return
	}
	if cmd.ID != id {
		writeError(w, r, utils.InvalidRequest("body id %d does not match path id %d", cmd.ID, id))
		return
	}
	if err := cmd.Validate(); err != nil {
		writeError(w, r, utils.InvalidRequest("%s", validationMessage(err)))
		return
	}
	if err := h.store.Update(r.Context(), cmd); err != nil {
		storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete removes a command and returns what was removed.
func (h *CommandHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	removed, err := h.store.Delete(r.Context(), id)
	if err != nil {
		storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, removed)
}

// Health reports whether the store answers.
func (h *CommandHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("health check failed")
		writeError(w, r, utils.Unavailable("store unavailable"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, r, utils.InvalidRequest("id %q is not an integer", raw))
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err == nil {
		return true
	}
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, io.EOF):
		writeError(w, r, utils.InvalidRequest("request body is required"))
	case errors.As(err, &maxErr):
		writeError(w, r, utils.InvalidRequest("request body exceeds %d bytes", maxErr.Limit))
	default:
		writeError(w, r, utils.InvalidRequest("malformed json: %v", err))
	}
	return false
}

// validationMessage flattens the errors.Join output of models.Validate.
func validationMessage(err error) string {
	return strings.ReplaceAll(err.Error(), "\n", "; ")
}
