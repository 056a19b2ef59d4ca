package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/s7ern/kbrag-go/internal/ingest"
	"github.com/s7ern/kbrag-go/internal/logging"
)

// maxUploadBytes caps the total size of one multipart upload request.
const maxUploadBytes = 64 << 20 // 64 MiB

// handleReceiveFile handles POST /receive-file. The multipart form carries an
// optional kb_name plus either one or more "file" parts or a "url" field.
// Files with an unsupported extension are logged and skipped; the request
// still succeeds so one bad file does not fail a batch upload.
func (s *Server) handleReceiveFile(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	kbName := r.FormValue("kb_name")

	switch {
	case r.MultipartForm != nil && len(r.MultipartForm.File["file"]) > 0:
		for _, hdr := range r.MultipartForm.File["file"] {
			if hdr.Filename == "" {
				log.Error("upload part has no file name", slog.String("kb", kbName))
				continue
			}
			f, err := hdr.Open()
			if err != nil {
				log.Error("failed to open upload part",
					slog.String("file", hdr.Filename),
					slog.Any("error", err),
				)
				continue
			}
			n, err := s.svc.IngestUpload(r.Context(), kbName, hdr.Filename, f)
			f.Close()
			if err == nil {
				s.metrics.ingestChunksTotal.WithLabelValues("file").Add(float64(n))
			}
			if errors.Is(err, ingest.ErrUnsupportedFormat) {
				log.Error("skipping unsupported file",
					slog.String("file", hdr.Filename),
					slog.Any("error", err),
				)
				continue
			}
			if err != nil {
				log.Error("file ingestion failed",
					slog.String("file", hdr.Filename),
					slog.Any("error", err),
				)
				writeError(w, http.StatusInternalServerError, "file ingestion failed")
				return
			}
		}

	case r.FormValue("url") != "":
		n, err := s.svc.IngestURL(r.Context(), kbName, r.FormValue("url"))
		if err != nil {
			log.Error("url ingestion failed",
				slog.String("url", r.FormValue("url")),
				slog.Any("error", err),
			)
			writeError(w, http.StatusInternalServerError, "url ingestion failed")
			return
		}
		s.metrics.ingestChunksTotal.WithLabelValues("url").Add(float64(n))

	default:
		writeError(w, http.StatusBadRequest, "either file parts or a url field is required")
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Message: "Files uploaded successfully",
		KBName:  kbName,
	})
}

// handleListKB handles GET /listKB. The body selects the knowledge base; the
// response lists the uploaded file names. An unknown knowledge base yields an
// empty list with an explanatory message, not an error.
func (s *Server) handleListKB(w http.ResponseWriter, r *http.Request) {
	var req listKBRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Missing parameters in request")
		return
	}

	files, err := s.svc.ListFiles(req.KBName)
	if err != nil {
		logging.FromContext(r.Context()).Error("listKB failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "failed to list knowledge base")
		return
	}

	resp := listKBResponse{KBList: files, KBName: req.KBName}
	if len(files) == 0 {
		resp.KBList = []string{}
		resp.Message = "The Knowledge Base does not exists."
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleClear handles POST /clear. Malformed JSON is rejected before any
// store or filesystem access.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	var req clearRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	kbPath, err := s.svc.Clear(r.Context(), req.KBName)
	if err != nil {
		logging.FromContext(r.Context()).Error("clear failed",
			slog.String("kb", req.KBName),
			slog.Any("error", err),
		)
		writeJSON(w, http.StatusNotFound, clearResponse{
			Message: "The Knowledge Base does not exists.",
			KBName:  req.KBName,
		})
		return
	}

	writeJSON(w, http.StatusOK, clearResponse{
		Message: "Knowledge Base Cleared successfully.",
		KBName:  req.KBName,
		KBPath:  kbPath,
	})
}

// handleReport handles POST /getreport. The topic is required; an empty web
// search is a server-side failure because the report would be groundless.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Topic) == "" {
		writeError(w, http.StatusBadRequest, "Model and topic are required.")
		return
	}

	report, err := s.svc.Report(r.Context(), req.Topic)
	if err != nil {
		logging.FromContext(r.Context()).Error("report generation failed",
			slog.String("topic", req.Topic),
			slog.Any("error", err),
		)
		writeError(w, http.StatusInternalServerError, "Report generation failed due to no search results.")
		return
	}

	writeJSON(w, http.StatusOK, reportResponse{Report: report})
}
