package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/chorewheel/internal/archive"
	"github.com/dukerupert/chorewheel/internal/auth"
)

type ArchiveHandler struct {
	exporter *archive.Exporter
	logger   *slog.Logger
}

func NewArchiveHandler(e *archive.Exporter, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{exporter: e, logger: logger}
}

// Export pushes the household's history to archive storage.
func (h *ArchiveHandler) Export(w http.ResponseWriter, r *http.Request) {
	res, err := h.exporter.Export(r.Context(), auth.HouseholdID(r.Context()))
	if errors.Is(err, archive.ErrDisabled) {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
		return
	}
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}
