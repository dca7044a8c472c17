package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tradedesk/pkg/tradedesk"
)

func (h *handler) listJournal(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.ListJournal())
}

func (h *handler) addJournalEntry(w http.ResponseWriter, r *http.Request) {
	var payload addJournalPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	entry, err := h.store.AddJournalEntry(r.Context(), tradedesk.AddJournalEntryRequest{
		Date:        payload.Date,
		MacroReview: payload.MacroReview,
		AltsMarket:  payload.AltsMarket,
		Summary:     payload.Summary,
		Sentiment:   payload.Sentiment,
	})
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *handler) deleteJournalEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteJournalEntry(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) journalDigest(w http.ResponseWriter, r *http.Request) {
	var payload digestPayload
	// An absent body asks for a digest of the stored journal.
	if err := decodeJSON(r, &payload); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	digest, err := h.store.JournalDigest(r.Context(), tradedesk.JournalDigestRequest{Entries: payload.Entries})
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, digest)
}
