package server

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/joseph-ayodele/carbon-tracker/constants"
	"github.com/joseph-ayodele/carbon-tracker/internal/common"
	"github.com/joseph-ayodele/carbon-tracker/internal/core"
	"github.com/joseph-ayodele/carbon-tracker/internal/document"
	"github.com/joseph-ayodele/carbon-tracker/internal/entity"
)

const (
	defaultPerPage = 10
	maxPerPage     = 100
	formMemory     = 8 << 20
)

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) uploadBill(w http.ResponseWriter, r *http.Request) {
	logger := common.LoggerFromContext(r.Context(), s.logger)
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(formMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large", map[string]any{"max_bytes": tooBig.Limit})
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid multipart form", map[string]any{"message": err.Error()})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, hdr, err := r.FormFile("bill_file")
	billType := strings.TrimSpace(r.FormValue("bill_type"))
	if err != nil || billType == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields", map[string]any{"required": []string{"bill_file", "bill_type"}})
		return
	}
	defer file.Close()

	contentType := document.MediaType(hdr.Header.Get("Content-Type"))
	if _, ok := document.KindForContentType(contentType); !ok {
		writeError(w, http.StatusBadRequest, "Invalid file type", map[string]any{"allowed_types": constants.ContentTypeList()})
		return
	}
	if _, err := document.Classify(hdr.Filename); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid file type", map[string]any{"message": err.Error()})
		return
	}
	if err := common.ValidateUpload(common.UploadRequest{
		BillType:    billType,
		FileName:    hdr.Filename,
		ContentType: contentType,
		FileSize:    hdr.Size,
	}); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid input", map[string]any{"message": err.Error()})
		return
	}

	path, size, err := document.Stage(s.cfg.UploadDir, hdr.Filename, file)
	if err != nil {
		logger.Error("failed to stage upload", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error(), map[string]any{"message": "Failed to process bill"})
		return
	}

	ctx := r.Context()
	if s.cfg.RequestTimeout.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout.Duration)
		defer cancel()
	}
	out := s.proc.Process(ctx, core.Upload{
		Path:        path,
		FileName:    hdr.Filename,
		FileSize:    size,
		ContentType: contentType,
		BillType:    billType,
	})
	s.writeOutcome(w, out)
}

func (s *Server) writeOutcome(w http.ResponseWriter, out core.Outcome) {
	switch out.Kind {
	case core.OutcomeSuccess:
		writeJSON(w, http.StatusOK, map[string]any{
			"message":  "Bill processed successfully",
			"bill_id":  out.RecordID,
			"analysis": out.Record.Analysis,
		})
	case core.OutcomeUnprocessable:
		if out.Stage == constants.StageFields {
			writeError(w, http.StatusUnprocessableEntity, "Could not extract bill information", map[string]any{
				"stage":          out.Stage,
				"extracted_text": out.ExtractedText,
			})
			return
		}
		writeError(w, http.StatusUnprocessableEntity, "Could not calculate carbon impact", map[string]any{
			"stage":     out.Stage,
			"bill_info": out.BillInfo,
		})
	default:
		msg := "internal error"
		if out.Err != nil {
			msg = out.Err.Error()
		}
		writeError(w, http.StatusInternalServerError, msg, map[string]any{
			"message": "Failed to process bill",
			"stage":   out.Stage,
			"code":    common.CodeOf(out.Err),
		})
	}
}

func (s *Server) getBill(w http.ResponseWriter, r *http.Request) {
	s.writeBill(w, r, chi.URLParam(r, "id"))
}

func (s *Server) writeBill(w http.ResponseWriter, r *http.Request, id string) {
	rec, err := s.store.GetByID(r.Context(), id)
	if errors.Is(err, common.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Bill not found", map[string]any{"bill_id": id})
		return
	}
	if err != nil {
		common.LoggerFromContext(r.Context(), s.logger).Error("failed to load bill", "bill_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error(), map[string]any{"message": "Failed to retrieve bill"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) listBills(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if id := strings.TrimSpace(q.Get("bill_id")); id != "" {
		s.writeBill(w, r, id)
		return
	}
	page, err := positiveParam(q.Get("page"), 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid page", map[string]any{"message": err.Error()})
		return
	}
	perPage, err := positiveParam(q.Get("per_page"), defaultPerPage)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid per_page", map[string]any{"message": err.Error()})
		return
	}
	perPage = min(perPage, maxPerPage)

	recs, total, err := s.store.List(r.Context(), page, perPage)
	if err != nil {
		common.LoggerFromContext(r.Context(), s.logger).Error("failed to list bills", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error(), map[string]any{"message": "Failed to retrieve bills"})
		return
	}
	if recs == nil {
		recs = []*entity.AnalysisRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total_bills": total,
		"page":        page,
		"per_page":    perPage,
		"total_pages": int(math.Ceil(float64(total) / float64(perPage))),
		"bills":       recs,
	})
}

func (s *Server) exportBills(w http.ResponseWriter, r *http.Request) {
	from, err := dateParam(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "from must be YYYY-MM-DD", nil)
		return
	}
	to, err := dateParam(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "to must be YYYY-MM-DD", nil)
		return
	}
	b, err := s.exporter.ExportRecordsXLSX(r.Context(), from, to)
	if err != nil {
		common.LoggerFromContext(r.Context(), s.logger).Error("export failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error(), map[string]any{"message": "Failed to export bills"})
		return
	}
	name := fmt.Sprintf("bills-%s.xlsx", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func positiveParam(raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, fmt.Errorf("%q is not a positive integer", raw)
	}
	return v, nil
}

func dateParam(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := entity.ParseYMD(raw)
	if err != nil {
		return nil, err
	}
	return &d.Time, nil
}
