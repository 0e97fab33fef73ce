package api

import (
	"net/http"

	"inventory-sales-service/internal/domain"
)

// recentSalesLimit is the size of the dashboard activity feed.
const recentSalesLimit = 10

// Dashboard recomputes every figure from the stores on each request.
func (h *HTTPHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := h.now().In(h.loc)

	var (
		d   domain.Dashboard
		err error
	)
	if d.Inventory, err = h.productStore.InventoryValuation(ctx); err != nil {
		h.serverError(w, r, "Dashboard inventory valuation failed", err)
		return
	}
	todayStart := domain.DateOf(now, h.loc).Start(h.loc)
	if d.Today, err = h.saleStore.SalesSince(ctx, todayStart); err != nil {
		h.serverError(w, r, "Dashboard sales of today failed", err)
		return
	}
	if d.Last7Days, err = h.saleStore.SalesSince(ctx, now.AddDate(0, 0, -7)); err != nil {
		h.serverError(w, r, "Dashboard sales of last 7 days failed", err)
		return
	}
	if d.RecentSales, err = h.saleStore.RecentSales(ctx, recentSalesLimit); err != nil {
		h.serverError(w, r, "Dashboard recent sales failed", err)
		return
	}

	h.render(w, r, http.StatusOK, "dashboard", "Resumen", d)
}
