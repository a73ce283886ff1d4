package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/mysettle/mysettle/internal/documents"
	"github.com/mysettle/mysettle/internal/filter"
	"github.com/mysettle/mysettle/internal/timespec"
	"github.com/mysettle/mysettle/internal/workflow"
	"github.com/mysettle/mysettle/pkg/ledger"
)

// dashboardItem is a session with its drivers' profiles inlined.
type dashboardItem struct {
	*ledger.Session
	DriverA *ledger.User `json:"driver_a,omitempty"`
	DriverB *ledger.User `json:"driver_b,omitempty"`
}

// generateResponse lists the files written by a generate request.
type generateResponse struct {
	Message string                    `json:"message"`
	Files   map[documents.Kind]string `json:"files"`
}

// criteriaFromQuery reads dashboard filters. Without a status filter the
// dashboard shows the review queue; status=all lists every session.
func criteriaFromQuery(q url.Values, now time.Time) (filter.Criteria, error) {
	var c filter.Criteria

	c.Statuses = filter.ParseStatuses(q.Get("status"))

	since, until, err := timespec.ParseRangeAt(q.Get("since"), q.Get("until"), now, ledger.CaseLocation)
	if err != nil {
		return c, err
	}
	c.SinceMs, c.UntilMs = since, until

	c.PlateGlob = q.Get("plate")
	c.Query = q.Get("q")
	c.SortBy = filter.SortField(strings.ToLower(q.Get("sort")))
	c.Desc = strings.EqualFold(q.Get("order"), "desc")

	if c.Page, err = intParam(q, "page"); err != nil {
		return c, err
	}
	if c.PageSize, err = intParam(q, "page_size"); err != nil {
		return c, err
	}
	return c, nil
}

func intParam(q url.Values, name string) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return n, nil
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	criteria, err := criteriaFromQuery(r.URL.Query(), time.Now())
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", workflow.ErrBadRequest, err))
		return
	}

	rows, total, err := s.svc.Dashboard(r.Context(), criteria)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	items := make([]dashboardItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, dashboardItem{Session: row.Session, DriverA: row.DriverA, DriverB: row.DriverB})
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleStartMeeting(w http.ResponseWriter, r *http.Request) {
	params, err := requireQuery(r, "session_id", "police_id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	link, err := s.svc.StartMeeting(r.Context(), params[0], params[1])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"link": link})
}

func (s *Server) handlePoliceSign(w http.ResponseWriter, r *http.Request) {
	params, err := requireQuery(r, "session_id", "police_id", "signature")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	outcome, err := s.svc.PoliceSign(r.Context(), params[0], params[1], params[2])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleReportDetails(w http.ResponseWriter, r *http.Request) {
	details, err := s.svc.ReportDetails(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

// handleGenerateReports merges the submitted form fields into the stored
// police details and writes all three PDFs.
func (s *Server) handleGenerateReports(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	patch, err := readBody(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if _, err := s.svc.UpsertPoliceDetails(r.Context(), sessionID, patch); err != nil {
		s.writeError(w, r, err)
		return
	}

	files, err := s.svc.GenerateDocuments(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, generateResponse{Message: "Reports generated successfully", Files: files})
}

func (s *Server) handleDownloadReport(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	doc, err := s.svc.RenderDocument(r.Context(), vars["id"], vars["type"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	w.WriteHeader(http.StatusOK)
	w.Write(doc.Data)
}
