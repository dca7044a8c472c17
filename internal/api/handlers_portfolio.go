package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"tradedesk/pkg/tradedesk"
)

func (h *handler) listPortfolio(w http.ResponseWriter, r *http.Request) {
	items := h.store.ListPortfolio()
	out := make([]pricedItem, 0, len(items))
	for _, item := range items {
		price, source := h.store.EffectivePrice(item)
		out = append(out, pricedItem{PortfolioItem: item, EffectivePrice: price, PriceSource: source})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) portfolioValuation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.PortfolioValuation())
}

func (h *handler) addPortfolioItem(w http.ResponseWriter, r *http.Request) {
	var payload addPortfolioPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	item, err := h.store.AddPortfolioItem(r.Context(), tradedesk.AddPortfolioItemRequest{
		Token:        payload.Token,
		Amount:       payload.Amount,
		BuyPrice:     payload.BuyPrice,
		CurrentPrice: payload.CurrentPrice,
		Category:     payload.Category,
		AssetType:    payload.AssetType,
	})
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *handler) editPortfolioItem(w http.ResponseWriter, r *http.Request) {
	var payload editPortfolioPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	item, err := h.store.EditPortfolioItem(r.Context(), chi.URLParam(r, "id"), tradedesk.PortfolioItemPatch{
		Token:        payload.Token,
		Amount:       payload.Amount,
		BuyPrice:     payload.BuyPrice,
		CurrentPrice: payload.CurrentPrice,
		Category:     payload.Category,
		AssetType:    payload.AssetType,
	})
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *handler) deletePortfolioItem(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeletePortfolioItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
