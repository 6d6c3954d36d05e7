package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/twopeaks/controlroom/internal/errors"
	"github.com/twopeaks/controlroom/internal/model"
	"github.com/twopeaks/controlroom/internal/service"
)

const defaultMockOrders = 25

type OrderController struct {
	FulfillmentService *service.FulfillmentService
}

func (c *OrderController) Routes(r chi.Router) {
	r.Post("/orders/mock", c.MockOrders)
	r.Get("/orders", c.ListOrders)
	r.Post("/orders/{orderID}/status", c.AdvanceOrder)
	r.Post("/fulfillment/generate", c.GenerateEmails)
}

func (c *OrderController) MockOrders(w http.ResponseWriter, r *http.Request) {
	count, err := queryInt(r, "count", defaultMockOrders)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	orders, err := c.FulfillmentService.GenerateMockOrders(r.Context(), count)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{"data": orders, "count": len(orders)})
}

func (c *OrderController) ListOrders(w http.ResponseWriter, r *http.Request) {
	var status model.OrderStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, ok := model.ParseOrderStatus(raw)
		if !ok {
			WriteError(w, r, appErrors.NewInvalidField("status", "must be PENDING, SHIPPED or DELIVERED"))
			return
		}
		status = st
	}
	orders, err := c.FulfillmentService.ListOrders(r.Context(), status)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"data": orders, "count": len(orders)})
}

func (c *OrderController) AdvanceOrder(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := decodeBody(r, &body); err != nil {
		WriteError(w, r, err)
		return
	}
	next, ok := model.ParseOrderStatus(body.Status)
	if !ok {
		WriteError(w, r, appErrors.NewInvalidField("status", "must be PENDING, SHIPPED or DELIVERED"))
		return
	}
	order, err := c.FulfillmentService.AdvanceOrder(r.Context(), chi.URLParam(r, "orderID"), next)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, order)
}

func (c *OrderController) GenerateEmails(w http.ResponseWriter, r *http.Request) {
	drafts, err := c.FulfillmentService.GenerateEmails(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"data": drafts, "count": len(drafts)})
}
