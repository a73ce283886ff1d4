package api

import (
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mysettle/mysettle/internal/workflow"
)

type sceneMapRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

type verifyImageRequest struct {
	ImageBase64 string `json:"image_base64"`
	Description string `json:"description"`
}

func (s *Server) handleSceneMap(w http.ResponseWriter, r *http.Request) {
	var req sceneMapRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Lat == nil || req.Lng == nil {
		s.writeError(w, r, fmt.Errorf("%w: lat and lng are required", workflow.ErrBadRequest))
		return
	}

	image, err := s.sketcher.SceneSketchURL(*req.Lat, *req.Lng)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", workflow.ErrBadRequest, err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"image": image})
}

func (s *Server) handleVerifyImage(w http.ResponseWriter, r *http.Request) {
	var req verifyImageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.ImageBase64) == "" {
		s.writeError(w, r, fmt.Errorf("%w: image_base64 is required", workflow.ErrBadRequest))
		return
	}

	verdict, err := s.verifier.Verify(r.Context(), req.ImageBase64, req.Description)
	if err != nil {
		s.logger.Warn("image verification failed", zap.Error(err))
		writeDetail(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, verdict)
}
