package question

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"jlpt-listening/config"
	"jlpt-listening/internal/core/generator"
	corequestion "jlpt-listening/internal/core/question"
	"jlpt-listening/pkg/apperror"
	"jlpt-listening/pkg/apperror/status"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

const requestTimeout = 90 * time.Second

// Generator is the question pipeline the handlers drive.
type Generator interface {
	Generate(ctx context.Context, section *int, topic string) generator.Generation
	Feedback(ctx context.Context, q corequestion.Question, userAnswer string) string
}

type Handler struct {
	gen      Generator
	validate *validator.Validate
}

func NewHandler(gen Generator) *Handler {
	return &Handler{gen: gen, validate: validator.New()}
}

type generateRequest struct {
	Section *int   `json:"section" validate:"omitempty,oneof=1 2 3"`
	Topic   string `json:"topic" validate:"max=128"`
}

type feedbackRequest struct {
	Question   corequestion.Question `json:"question"`
	UserAnswer string                `json:"user_answer" validate:"required"`
}

type feedbackResponse struct {
	Feedback string `json:"feedback"`
}

type topicsResponse struct {
	Section int      `json:"section"`
	Topics  []string `json:"topics"`
}

func (h *Handler) HandleGenerate(c fiber.Ctx) error {
	var req generateRequest
	if body := c.Body(); len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			return apperror.BadRequest(config.ModuleQuestion, c, status.InvalidRequestBody, err.Error())
		}
	}
	req.Topic = strings.TrimSpace(req.Topic)
	if err := h.validate.Struct(req); err != nil {
		return apperror.BadRequest(config.ModuleQuestion, c, status.InvalidSection, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()
	out := h.gen.Generate(ctx, req.Section, req.Topic)

	return apperror.Success(config.ModuleQuestion, c, apperror.FiberSuccessMessage{
		Code:    status.OK,
		Message: "question " + string(out.Source),
		Data:    out,
	})
}

func (h *Handler) HandleFeedback(c fiber.Ctx) error {
	var req feedbackRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return apperror.BadRequest(config.ModuleQuestion, c, status.InvalidRequestBody, err.Error())
	}
	req.UserAnswer = strings.TrimSpace(req.UserAnswer)
	if err := h.validate.Struct(req); err != nil {
		return apperror.BadRequest(config.ModuleQuestion, c, status.MissingParams, "user_answer is required")
	}
	if err := req.Question.Validate(); err != nil {
		return apperror.BadRequest(config.ModuleQuestion, c, status.InvalidParams, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Context(), requestTimeout)
	defer cancel()
	text := h.gen.Feedback(ctx, req.Question, req.UserAnswer)

	return apperror.Success(config.ModuleQuestion, c, apperror.FiberSuccessMessage{
		Code:    status.OK,
		Message: "feedback ok",
		Data:    feedbackResponse{Feedback: text},
	})
}

func (h *Handler) HandleTopics(c fiber.Ctx) error {
	out := make([]topicsResponse, 0, len(corequestion.Sections))
	for _, sec := range corequestion.Sections {
		out = append(out, topicsResponse{Section: sec, Topics: generator.Topics(sec)})
	}
	return apperror.Success(config.ModuleQuestion, c, apperror.FiberSuccessMessage{
		Code:    status.OK,
		Message: "topics ok",
		Data:    out,
	})
}
