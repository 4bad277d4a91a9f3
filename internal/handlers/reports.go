package handlers

import (
	"net/http"
)

// PieData is a labelled series for the category chart.
type PieData struct {
	Title  string   `json:"title"`
	Labels []string `json:"labels"`
	Values []int64  `json:"values"`
}

// BarData is a single bar series.
type BarData struct {
	Title  string   `json:"title"`
	Labels []string `json:"labels"`
	Values []int64  `json:"values"`
}

// Dashboard renders daily spend, category spend and the all-time total.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	rc := FromContext(r.Context())

	dash, err := h.reportingFor(rc).Dashboard(r.Context(), rc.User.ID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "dashboard.html", Page{Title: "Dashboard", Data: dash})
}

// CategoryChart serves this year's spend per category.
func (h *Handlers) CategoryChart(w http.ResponseWriter, r *http.Request) {
	rc := FromContext(r.Context())

	totals, err := h.reportingFor(rc).CategorySpend(r.Context(), rc.User.ID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	data := PieData{Title: "Category Wise Pie Chart For Current Year", Labels: []string{}, Values: []int64{}}
	for _, t := range totals {
		data.Labels = append(data.Labels, t.Category)
		data.Values = append(data.Values, t.Total)
	}
	h.writeJSON(w, r, data)
}

// YearlyBar serves this year's and last year's monthly spend side by side.
func (h *Handlers) YearlyBar(w http.ResponseWriter, r *http.Request) {
	rc := FromContext(r.Context())

	cmp, err := h.reportingFor(rc).YearComparison(r.Context(), rc.User.ID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.writeJSON(w, r, cmp)
}

// MonthlyBar serves this year's spend for the months that have any.
func (h *Handlers) MonthlyBar(w http.ResponseWriter, r *http.Request) {
	rc := FromContext(r.Context())

	points, err := h.reportingFor(rc).MonthlySpend(r.Context(), rc.User.ID)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	data := BarData{Title: "Monthly Bar Chart For Current Year", Labels: []string{}, Values: []int64{}}
	for _, p := range points {
		data.Labels = append(data.Labels, p.Label)
		data.Values = append(data.Values, p.Total)
	}
	h.writeJSON(w, r, data)
}

// Healthz reports whether the database answers.
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	if _, err := h.db.UserCount(r.Context()); err != nil {
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}
