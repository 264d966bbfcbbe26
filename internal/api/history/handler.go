package history

import (
	"strconv"
	"strings"

	"jlpt-listening/config"
	corehistory "jlpt-listening/internal/core/history"
	"jlpt-listening/internal/core/question"
	"jlpt-listening/pkg/apperror"
	"jlpt-listening/pkg/apperror/status"

	"github.com/gofiber/fiber/v3"
)

// Reader is the read side of the history log.
type Reader interface {
	Get(section *int, topic *string) []corehistory.Entry
	GetByID(id int) (corehistory.Entry, bool)
}

type Handler struct {
	store Reader
}

func NewHandler(store Reader) *Handler {
	return &Handler{store: store}
}

type listResponse struct {
	Total   int                 `json:"total"`
	Entries []corehistory.Entry `json:"entries"`
}

func (h *Handler) HandleList(c fiber.Ctx) error {
	var section *int
	if s := strings.TrimSpace(c.Query("section")); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || !question.IsValidSection(v) {
			return apperror.BadRequest(config.ModuleHistory, c, status.InvalidSection, "section must be 1, 2 or 3")
		}
		section = &v
	}
	var topic *string
	if t := strings.TrimSpace(c.Query("topic")); t != "" {
		topic = &t
	}

	entries := h.store.Get(section, topic)
	return apperror.Success(config.ModuleHistory, c, apperror.FiberSuccessMessage{
		Code:    status.OK,
		Message: "history ok",
		Data:    listResponse{Total: len(entries), Entries: entries},
	})
}

func (h *Handler) HandleGet(c fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return apperror.BadRequest(config.ModuleHistory, c, status.InvalidParams, "invalid id")
	}
	entry, ok := h.store.GetByID(id)
	if !ok {
		return apperror.NotFound(config.ModuleHistory, c, "history entry not found")
	}
	return apperror.Success(config.ModuleHistory, c, apperror.FiberSuccessMessage{
		Code:    status.OK,
		Message: "history ok",
		Data:    entry,
	})
}
