package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"tradedesk/pkg/tradedesk"
)

func (h *handler) listTrades(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.ListTrades())
}

func (h *handler) tradeStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.TradeStats())
}

func (h *handler) addTrade(w http.ResponseWriter, r *http.Request) {
	var payload addTradePayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	trade, err := h.store.AddTrade(r.Context(), tradedesk.AddTradeRequest{
		Date:               payload.Date,
		Ticker:             payload.Ticker,
		Direction:          payload.Direction,
		EntryPrice:         payload.EntryPrice,
		ExitPrice:          payload.ExitPrice,
		Size:               payload.Size,
		Status:             payload.Status,
		Rationale:          payload.Rationale,
		ExitReason:         payload.ExitReason,
		PostExitReflection: payload.PostExitReflection,
	})
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, trade)
}

func (h *handler) editTrade(w http.ResponseWriter, r *http.Request) {
	var payload editTradePayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	trade, err := h.store.EditTrade(r.Context(), chi.URLParam(r, "id"), tradedesk.TradePatch{
		Date:               payload.Date,
		Ticker:             payload.Ticker,
		Direction:          payload.Direction,
		EntryPrice:         payload.EntryPrice,
		ExitPrice:          payload.ExitPrice,
		ClearExitPrice:     payload.ClearExitPrice,
		Size:               payload.Size,
		Status:             payload.Status,
		Rationale:          payload.Rationale,
		ExitReason:         payload.ExitReason,
		PostExitReflection: payload.PostExitReflection,
	})
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trade)
}

func (h *handler) deleteTrade(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteTrade(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) clearTrades(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.ClearTrades(r.Context())
	if err != nil {
		writeErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, clearResponse{Cleared: n})
}
