package api

import (
	"encoding/json"
	"net/http"
)

func (h *handler) getPrices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.LivePrices())
}

// refreshPrices waits for the refresh to finish. A feed failure is not an
// error here: the cached prices are returned unchanged.
func (h *handler) refreshPrices(w http.ResponseWriter, r *http.Request) {
	if _, err := h.store.RefreshPrices(r.Context()); err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.store.LivePrices())
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}
