package httpapi

import (
	"net/http"
	"strings"
	"time"

	"ledgerpos/backend/internal/domain"
)

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.loginLimiter.Allow(clientKey(r)) {
		a.writeError(w, http.StatusTooManyRequests, errTooManyAttempts)
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		status := http.StatusUnauthorized
		if statusFor(err) == http.StatusServiceUnavailable {
			status = http.StatusServiceUnavailable
		}
		a.writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleListInventory(w http.ResponseWriter, r *http.Request) {
	items, err := a.service.ListInventory(r.Context(), companyID(r))
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (a *API) handleAddInventoryItem(w http.ResponseWriter, r *http.Request) {
	var req domain.InventoryItemCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	item, err := a.service.AddInventoryItem(r.Context(), companyID(r), req)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"item": item})
}

func (a *API) handleAdjustQuantity(w http.ResponseWriter, r *http.Request) {
	var req domain.StockAdjustRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := a.service.AdjustQuantity(r.Context(), companyID(r), r.PathValue("id"), req.Delta, req.Reason)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleRecordSale(w http.ResponseWriter, r *http.Request) {
	var req domain.SaleRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.CompanyID == "" {
		req.CompanyID = companyID(r)
	}
	if key := strings.TrimSpace(r.Header.Get("Idempotency-Key")); key != "" && req.Meta.IdempotencyKey == "" {
		req.Meta.IdempotencyKey = key
	}

	resp, err := a.service.RecordSale(r.Context(), req)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, invoiceStatus(resp), resp)
}

func (a *API) handleRecordReturn(w http.ResponseWriter, r *http.Request) {
	var req domain.ReturnRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.CompanyID == "" {
		req.CompanyID = companyID(r)
	}
	if key := strings.TrimSpace(r.Header.Get("Idempotency-Key")); key != "" && req.Meta.IdempotencyKey == "" {
		req.Meta.IdempotencyKey = key
	}

	resp, err := a.service.RecordReturn(r.Context(), req)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, invoiceStatus(resp), resp)
}

// invoiceStatus reports 200 for a replayed request and 201 for a new invoice.
func invoiceStatus(resp domain.InvoiceResponse) int {
	if resp.Duplicate {
		return http.StatusOK
	}
	return http.StatusCreated
}

func (a *API) handleDeleteSale(w http.ResponseWriter, r *http.Request) {
	deleted, err := a.service.DeleteSale(r.Context(), companyID(r), r.PathValue("id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invoice": deleted})
}

func (a *API) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	from, err := parseTime(query.Get("from"))
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	to, err := parseTime(query.Get("to"))
	if err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	invoices, err := a.service.ListInvoices(r.Context(), companyID(r), domain.InvoiceFilter{
		Type:       strings.TrimSpace(query.Get("type")),
		BillNumber: strings.TrimSpace(query.Get("bill_number")),
		From:       from,
		To:         to,
		Limit:      parseLimit(query.Get("limit"), 100, 1000),
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invoices": invoices})
}

func (a *API) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := a.service.GetInvoice(r.Context(), companyID(r), r.PathValue("id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"invoice": inv})
}

func (a *API) handleListStockMoves(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	moves, err := a.service.ListStockMoves(r.Context(), companyID(r), domain.StockMoveFilter{
		InvoiceID: strings.TrimSpace(query.Get("invoice_id")),
		ProductID: strings.TrimSpace(query.Get("product_id")),
		Limit:     parseLimit(query.Get("limit"), 200, 1000),
	})
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"stock_moves": moves})
}

func (a *API) handleListCapital(w http.ResponseWriter, r *http.Request) {
	txs, err := a.service.ListCapitalTransactions(r.Context(), companyID(r))
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"capital_transactions": txs})
}

func (a *API) handleRecordCapital(w http.ResponseWriter, r *http.Request) {
	var req domain.CapitalTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	tx, err := a.service.RecordCapitalTransaction(r.Context(), companyID(r), req)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"capital_transaction": tx})
}

func (a *API) handleListDistributions(w http.ResponseWriter, r *http.Request) {
	dists, err := a.service.ListProfitDistributions(r.Context(), companyID(r))
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"profit_distributions": dists})
}

func (a *API) handleDistributeProfit(w http.ResponseWriter, r *http.Request) {
	var req domain.ProfitDistributionRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	dist, err := a.service.DistributeProfit(r.Context(), companyID(r), req)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"profit_distribution": dist})
}

func (a *API) handleAvailableProfit(w http.ResponseWriter, r *http.Request) {
	summary, err := a.service.AvailableProfit(r.Context(), companyID(r))
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) handleOwnerEquity(w http.ResponseWriter, r *http.Request) {
	owners, err := a.service.OwnerEquitySnapshot(r.Context(), companyID(r))
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"owners": owners})
}

func (a *API) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := a.service.ListExpenses(r.Context(), companyID(r))
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"expenses": expenses})
}

func (a *API) handleRecordExpense(w http.ResponseWriter, r *http.Request) {
	var req domain.ExpenseRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	expense, err := a.service.RecordExpense(r.Context(), companyID(r), req)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"expense": expense})
}

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := a.service.DashboardSummary(r.Context(), companyID(r), strings.TrimSpace(r.URL.Query().Get("window")))
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) handleDashboardMulti(w http.ResponseWriter, r *http.Request) {
	summary, err := a.service.DashboardMultiView(r.Context(), companyID(r))
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) handleInventoryReport(w http.ResponseWriter, r *http.Request) {
	report, err := a.service.InventoryReport(r.Context(), companyID(r))
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleSalesReport(w http.ResponseWriter, r *http.Request) {
	report, err := a.service.SalesReport(r.Context(), companyID(r), strings.TrimSpace(r.URL.Query().Get("period")))
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleReturnsReport(w http.ResponseWriter, r *http.Request) {
	report, err := a.service.ReturnsReport(r.Context(), companyID(r), strings.TrimSpace(r.URL.Query().Get("period")))
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
