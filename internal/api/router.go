package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

func (s *Server) router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	auth.HandleFunc("/profile", s.handleProfile).Methods(http.MethodPost)

	session := r.PathPrefix("/session").Subrouter()
	session.HandleFunc("/create", s.handleCreateSession).Methods(http.MethodPost)
	session.HandleFunc("/join", s.handleJoinSession).Methods(http.MethodPost)
	session.HandleFunc("/reconnect", s.handleReconnect).Methods(http.MethodPost)
	session.HandleFunc("/stream/{id}", s.handleStream).Methods(http.MethodGet)
	session.HandleFunc("/sign", s.handleDriverSign).Methods(http.MethodPost)
	session.HandleFunc("/report/{id}/meta", s.handleReportMeta).Methods(http.MethodGet)

	r.HandleFunc("/report/submit", s.handleSubmitReport).Methods(http.MethodPost)

	police := r.PathPrefix("/police").Subrouter()
	police.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)
	police.HandleFunc("/meeting", s.handleStartMeeting).Methods(http.MethodPost)
	police.HandleFunc("/sign", s.handlePoliceSign).Methods(http.MethodPost)
	police.HandleFunc("/reports/{id}/details", s.handleReportDetails).Methods(http.MethodGet)
	police.HandleFunc("/reports/{id}/generate", s.handleGenerateReports).Methods(http.MethodPost)
	police.HandleFunc("/reports/{id}/download/{type}", s.handleDownloadReport).Methods(http.MethodGet)

	util := r.PathPrefix("/util").Subrouter()
	util.HandleFunc("/scene-map", s.handleSceneMap).Methods(http.MethodPost)
	util.HandleFunc("/verify-image", s.handleVerifyImage).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})

	return r
}
