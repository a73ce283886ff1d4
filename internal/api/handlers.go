package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mysettle/mysettle/internal/workflow"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	params, err := requireQuery(r, "user_id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	asPolice := false
	if raw := r.URL.Query().Get("police"); raw != "" {
		if asPolice, err = strconv.ParseBool(raw); err != nil {
			s.writeError(w, r, fmt.Errorf("%w: police must be a boolean", workflow.ErrBadRequest))
			return
		}
	}

	user, err := s.svc.Login(r.Context(), params[0], asPolice)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	params, err := requireQuery(r, "user_id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var patch workflow.ProfilePatch
	if err := decodeJSON(w, r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}

	user, err := s.svc.UpdateProfile(r.Context(), params[0], patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	params, err := requireQuery(r, "user_id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	created, err := s.svc.CreateSession(r.Context(), params[0])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, created)
}

func (s *Server) handleJoinSession(w http.ResponseWriter, r *http.Request) {
	params, err := requireQuery(r, "otp", "user_id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.svc.JoinSession(r.Context(), params[0], params[1])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleReconnect(w http.ResponseWriter, r *http.Request) {
	params, err := requireQuery(r, "otp", "user_id")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	result, err := s.svc.ReconnectSession(r.Context(), params[0], params[1])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleDriverSign(w http.ResponseWriter, r *http.Request) {
	params, err := requireQuery(r, "session_id", "user_id", "signature")
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	outcome, err := s.svc.DriverSign(r.Context(), params[0], params[1], params[2])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (s *Server) handleReportMeta(w http.ResponseWriter, r *http.Request) {
	meta, err := s.svc.ReportMeta(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (s *Server) handleSubmitReport(w http.ResponseWriter, r *http.Request) {
	var req workflow.SubmitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.SessionID == "" || req.UserID == "" {
		s.writeError(w, r, fmt.Errorf("%w: session_id and user_id are required", workflow.ErrBadRequest))
		return
	}

	result, err := s.svc.SubmitReport(r.Context(), &req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
