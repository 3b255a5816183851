package worksheet

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sejoli-erp/sejoli-erp/internal/platform/httpx"
)

type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

func (h *Handler) entryRef(r *http.Request) (EntryRef, error) {
	balanceID, err := strconv.ParseInt(chi.URLParam(r, "balanceID"), 10, 64)
	if err != nil {
		return EntryRef{}, errors.New("invalid balance id")
	}
	entryID, err := strconv.ParseInt(chi.URLParam(r, "entryID"), 10, 64)
	if err != nil {
		return EntryRef{}, errors.New("invalid entry id")
	}
	return EntryRef{BalanceID: balanceID, EntryID: entryID}, nil
}

func (h *Handler) respondDomainError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrGroupNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, ErrStaleRecompute):
		httpx.RespondError(w, httpx.ErrConflict)
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	ref, err := h.entryRef(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	view, err := h.service.View(r.Context(), ref)
	if err != nil {
		h.respondDomainError(w, "show worksheet", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	ref, err := h.entryRef(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	var req CreateItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	item, err := h.service.AddItem(r.Context(), ref, req)
	if err != nil {
		h.respondDomainError(w, "add item", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	ref, err := h.entryRef(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid item id")
		return
	}
	var req UpdateItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	item, err := h.service.UpdateItem(r.Context(), ref, itemID, req)
	if err != nil {
		h.respondDomainError(w, "update item", err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	ref, err := h.entryRef(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	itemID, err := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid item id")
		return
	}
	if err := h.service.DeleteItem(r.Context(), ref, itemID); err != nil {
		h.respondDomainError(w, "delete item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Reorder(w http.ResponseWriter, r *http.Request) {
	ref, err := h.entryRef(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	var req ReorderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	items, err := h.service.Reorder(r.Context(), ref, req.ItemIDs)
	if err != nil {
		h.respondDomainError(w, "reorder items", err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) SetGroupCost(w http.ResponseWriter, r *http.Request) {
	ref, err := h.entryRef(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	kind := GroupKind(chi.URLParam(r, "kind"))
	if kind != GroupKindVendor && kind != GroupKindCustomer {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "kind must be vendor or customer")
		return
	}
	groupID, err := strconv.ParseInt(chi.URLParam(r, "groupID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid group id")
		return
	}
	var req SetGroupCostRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	view, err := h.service.SetGroupCost(r.Context(), ref, kind, groupID, req.Cost)
	if err != nil {
		h.respondDomainError(w, "set group cost", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	ref, err := h.entryRef(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	var req UpdateSettingsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	settings, err := h.service.UpdateSettings(r.Context(), ref, req)
	if err != nil {
		h.respondDomainError(w, "update settings", err)
		return
	}
	httpx.JSON(w, http.StatusOK, settings)
}

func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	ref, err := h.entryRef(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	results, err := h.service.Save(r.Context(), ref)
	if err != nil {
		h.respondDomainError(w, "save worksheet", err)
		return
	}

	type rowResult struct {
		ItemID  int64  `json:"item_id"`
		Skipped bool   `json:"skipped,omitempty"`
		Error   string `json:"error,omitempty"`
	}
	out := make([]rowResult, len(results))
	for i, res := range results {
		out[i] = rowResult{ItemID: res.ItemID, Skipped: res.Skipped}
		if res.Err != nil {
			out[i].Error = res.Err.Error()
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"results": out})
}
