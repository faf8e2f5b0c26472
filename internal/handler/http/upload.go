package http

import (
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/hris-attendance-engine/internal/handler/http/response"
)

type UploadHandler interface {
	Create(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
}

type uploadHandlerImpl struct {
	uploadService punch.UploadService
	maxSize       int64
}

func NewUploadHandler(uploadService punch.UploadService, maxSize int64) UploadHandler {
	if maxSize <= 0 {
		maxSize = 10 << 20
	}
	return &uploadHandlerImpl{
		uploadService: uploadService,
		maxSize:       maxSize,
	}
}

// Create implements UploadHandler.
func (h *uploadHandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	// Leave room for the form fields around the file.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize+(1<<20))
	if err := r.ParseMultipartForm(h.maxSize); err != nil {
		slog.Error("Failed to parse multipart form", "error", err)
		response.BadRequest(w, "Failed to parse form data", nil)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		if err == http.ErrMissingFile {
			response.BadRequest(w, "Punch log file is required", nil)
			return
		}
		slog.Error("Failed to get file from form", "error", err)
		response.BadRequest(w, "Invalid file upload", nil)
		return
	}
	defer file.Close()

	req := punch.CreateUploadRequest{
		SiteID:   r.FormValue("site_id"),
		DateFrom: r.FormValue("date_from"),
		DateTo:   r.FormValue("date_to"),
		FileName: fileHeader.Filename,
		Size:     fileHeader.Size,
	}

	result, err := h.uploadService.CreateUpload(r.Context(), actor, req, file)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Accepted(w, "Punch log queued for processing", result)
}

// Get implements UploadHandler.
func (h *uploadHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	result, err := h.uploadService.GetUpload(r.Context(), actor, id)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
