package httpadapter

import (
	"fmt"
	"net/http"
)

func (rt *Router) getReturn(w http.ResponseWriter, r *http.Request) {
	uid, ok := rt.requireUser(w, r)
	if !ok {
		return
	}

	ret, err := rt.reader.GetReturn(r.Context(), uid, r.PathValue("id"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ret)
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	uid, ok := rt.requireUser(w, r)
	if !ok {
		return
	}

	docs, err := rt.reader.ListDocuments(r.Context(), uid, r.PathValue("id"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (rt *Router) getIncome(w http.ResponseWriter, r *http.Request) {
	uid, ok := rt.requireUser(w, r)
	if !ok {
		return
	}

	overview, err := rt.reader.ListValidIncome(r.Context(), uid, r.PathValue("id"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (rt *Router) recalculate(w http.ResponseWriter, r *http.Request) {
	uid, ok := rt.requireUser(w, r)
	if !ok {
		return
	}

	report, err := rt.maintenance.CleanupAndRecalculate(r.Context(), uid, r.PathValue("id"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) exportReturn(w http.ResponseWriter, r *http.Request) {
	uid, ok := rt.requireUser(w, r)
	if !ok {
		return
	}
	taxReturnID := r.PathValue("id")

	ret, err := rt.reader.GetReturn(r.Context(), uid, taxReturnID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	overview, err := rt.reader.ListValidIncome(r.Context(), uid, taxReturnID)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	data, err := rt.exporter.Export(ret, overview.Entries)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("tax-return-%d.xlsx", ret.TaxYear)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
