package worksheet

import (
	"github.com/go-chi/chi/v5"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/balances/{balanceID}/entries/{entryID}", func(r chi.Router) {
		r.Get("/worksheet", h.Show)
		r.Post("/items", h.AddItem)
		r.Put("/items/{itemID}", h.UpdateItem)
		r.Delete("/items/{itemID}", h.DeleteItem)
		r.Post("/items/reorder", h.Reorder)
		r.Put("/groups/{kind}/{groupID}/cost", h.SetGroupCost)
		r.Put("/settings", h.UpdateSettings)
		r.Post("/save", h.Save)
	})
}
