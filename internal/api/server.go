package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"shrinkray/internal/pipeline"
	"shrinkray/internal/store"
)

// maxUploadBytes bounds the in-memory portion of a multipart upload parse.
const maxUploadBytes = 512 << 20

// Server is the HTTP front end over the pipeline coordinator.
type Server struct {
	coordinator *pipeline.Coordinator
	mux         *http.ServeMux
}

func NewServer(coordinator *pipeline.Coordinator) *Server {
	s := &Server{coordinator: coordinator}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("GET /video/{id}/info", s.handleInfo)
	mux.HandleFunc("GET /video/{id}/original", s.handleOriginal)
	mux.HandleFunc("GET /video/{id}/compressed", s.handleCompressed)
	mux.HandleFunc("DELETE /video/{id}", s.handleDelete)
	mux.HandleFunc("GET /health", s.handleHealth)
	s.mux = mux
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read the upload")
		return
	}

	videoID, err := s.coordinator.Submit(r.Context(), header.Filename, int64(len(data)), data)
	if err != nil {
		log.Error().Err(err).Str("name", header.Filename).Msg("failed to submit the video")
		writeError(w, http.StatusInternalServerError, "failed to submit the video")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"video_id": videoID})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	videoID := r.PathValue("id")
	record, err := s.coordinator.Status(r.Context(), videoID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "video not found")
			return
		}
		log.Error().Err(err).Str("videoId", videoID).Msg("failed to read the record")
		writeError(w, http.StatusInternalServerError, "failed to read the record")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) handleOriginal(w http.ResponseWriter, r *http.Request) {
	s.serveBlob(w, r, pipeline.KindOriginal)
}

func (s *Server) handleCompressed(w http.ResponseWriter, r *http.Request) {
	s.serveBlob(w, r, pipeline.KindDerived)
}

func (s *Server) serveBlob(w http.ResponseWriter, r *http.Request, kind pipeline.Kind) {
	videoID := r.PathValue("id")
	data, err := s.coordinator.Open(r.Context(), videoID, kind)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "video not found")
			return
		}
		log.Error().Err(err).Str("videoId", videoID).Msg("failed to fetch the blob")
		writeError(w, http.StatusInternalServerError, "failed to fetch the video")
		return
	}
	w.Header().Set("Content-Type", "video/mp4")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	videoID := r.PathValue("id")
	if err := s.coordinator.Delete(r.Context(), videoID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "video not found")
			return
		}
		log.Error().Err(err).Str("videoId", videoID).Msg("failed to delete the video")
		writeError(w, http.StatusInternalServerError, "failed to delete the video")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "video deleted successfully"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode the response")
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
