package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"jlpt-listening/config"
	"jlpt-listening/internal/core/vectorstore"
	"jlpt-listening/internal/middleware"
	"jlpt-listening/internal/services/ingest"
	"jlpt-listening/pkg/apperror"
	"jlpt-listening/pkg/apperror/status"
	"jlpt-listening/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

const ingestTimeout = 10 * time.Minute

// Runner is the ingest pipeline.
type Runner interface {
	Run(ctx context.Context, req ingest.Request) (ingest.Result, error)
	Transcripts(ctx context.Context) ([]ingest.Transcript, error)
}

type Handler struct {
	svc      Runner
	uploads  Uploader
	validate *validator.Validate
}

func NewHandler(svc Runner, uploads Uploader) *Handler {
	return &Handler{svc: svc, uploads: uploads, validate: validator.New()}
}

func isTrue(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "1" || v == "true" || v == "yes"
}

func (h *Handler) HandleIngest(c fiber.Ctx) error {
	var req ingest.Request
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return apperror.BadRequest(config.ModuleIngest, c, status.InvalidRequestBody, err.Error())
	}
	req.Path = strings.TrimSpace(req.Path)
	if err := h.validate.Struct(req); err != nil {
		return apperror.BadRequest(config.ModuleIngest, c, status.InvalidParams, err.Error())
	}
	path, err := resolveSource(req.Path)
	if err != nil {
		return apperror.Forbidden(config.ModuleIngest, c, status.ForbiddenSource, err.Error())
	}
	req.Path = path
	return h.run(c, req)
}

// HandleTranscripts lists the ingest records, newest first.
func (h *Handler) HandleTranscripts(c fiber.Ctx) error {
	rows, err := h.svc.Transcripts(c.Context())
	switch {
	case errors.Is(err, ingest.ErrNoDatabase):
		return apperror.ServiceUnavailable(config.ModuleIngest, c, err)
	case err != nil:
		return apperror.InternalError(config.ModuleIngest, c, status.New(status.StorageFailed, err))
	}
	return apperror.Success(config.ModuleIngest, c, apperror.FiberSuccessMessage{
		Code:    status.OK,
		Message: "transcripts ok",
		Data:    rows,
	})
}

// run executes the request inline, or in the background when ?async=true.
func (h *Handler) run(c fiber.Ctx, req ingest.Request) error {
	if isTrue(c.Query("async")) {
		requestID := middleware.RequestID(c.Context())
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), ingestTimeout)
			defer cancel()
			if _, err := h.svc.Run(ctx, req); err != nil {
				logger.WithFields(map[string]interface{}{
					"request_id": requestID,
					"path":       req.Path,
					"section":    req.Section,
					"error":      err.Error(),
				}).Errorf("%v: background ingest failed", config.ModuleIngest)
			}
		}()
		return apperror.Success(config.ModuleIngest, c, apperror.FiberSuccessMessage{
			Code:    status.Accepted,
			Message: "ingest started",
			Data:    req,
		})
	}

	ctx, cancel := context.WithTimeout(c.Context(), ingestTimeout)
	defer cancel()
	res, err := h.svc.Run(ctx, req)
	switch {
	case errors.Is(err, vectorstore.ErrInvalidSection):
		return apperror.BadRequest(config.ModuleIngest, c, status.InvalidSection, err.Error())
	case errors.Is(err, ingest.ErrUnsupportedFormat), errors.Is(err, ingest.ErrEmptyContent), errors.Is(err, ingest.ErrNoQuestions):
		return apperror.BadRequest(config.ModuleIngest, c, status.InvalidParams, err.Error())
	case err != nil:
		return apperror.InternalError(config.ModuleIngest, c, status.New(status.IngestFailed, err))
	}

	msg := "ingest ok"
	if res.Skipped {
		msg = "already ingested"
	}
	return apperror.Success(config.ModuleIngest, c, apperror.FiberSuccessMessage{
		Code:    status.OK,
		Message: msg,
		Data:    res,
	})
}
