package api

import (
	"net/http"
)

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"backend": h.store.BackendName(),
	})
}

func (h *handler) getStorage(w http.ResponseWriter, r *http.Request) {
	info := h.storage
	if info.Backend == "" {
		info.Backend = h.store.BackendName()
	}
	writeJSON(w, http.StatusOK, info)
}
