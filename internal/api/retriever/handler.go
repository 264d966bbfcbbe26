package retriever

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"jlpt-listening/config"
	"jlpt-listening/internal/core/question"
	"jlpt-listening/internal/core/vectorstore"
	"jlpt-listening/pkg/apperror"
	"jlpt-listening/pkg/apperror/status"

	"github.com/gofiber/fiber/v3"
)

const (
	searchTimeout = 10 * time.Second
	maxResults    = 64
)

// Searcher is the read side of the vector store.
type Searcher interface {
	QuerySimilar(ctx context.Context, text string, section *int, n int) ([]vectorstore.Hit, error)
	Count(ctx context.Context, section int) (int64, error)
}

type Handler struct {
	store Searcher
}

func NewHandler(store Searcher) *Handler {
	return &Handler{store: store}
}

type searchResponse struct {
	Hits []vectorstore.Hit `json:"hits"`
}

type statsResponse struct {
	Collection string `json:"collection"`
	Section    int    `json:"section"`
	Count      int64  `json:"count"`
}

func (h *Handler) HandleSearch(c fiber.Ctx) error {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		return apperror.BadRequest(config.ModuleRetriever, c, status.MissingParams, "q is required")
	}
	n := vectorstore.DefaultResults
	if s := c.Query("n"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 && v <= maxResults {
			n = v
		}
	}
	var section *int
	if s := strings.TrimSpace(c.Query("section")); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return apperror.BadRequest(config.ModuleRetriever, c, status.InvalidSection, "section must be a number")
		}
		section = &v
	}

	ctx, cancel := context.WithTimeout(c.Context(), searchTimeout)
	defer cancel()
	hits, err := h.store.QuerySimilar(ctx, q, section, n)
	switch {
	case errors.Is(err, vectorstore.ErrInvalidSection):
		return apperror.BadRequest(config.ModuleRetriever, c, status.InvalidSection, err.Error())
	case errors.Is(err, vectorstore.ErrCollectionNotFound):
		return apperror.NotFound(config.ModuleRetriever, c, err.Error())
	case err != nil:
		return apperror.InternalError(config.ModuleRetriever, c, status.New(status.RetrievalFailed, err))
	}

	return apperror.Success(config.ModuleRetriever, c, apperror.FiberSuccessMessage{
		Code:    status.OK,
		Message: "search ok",
		Data:    searchResponse{Hits: hits},
	})
}

// HandleStats reports how many questions each section holds.
func (h *Handler) HandleStats(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), searchTimeout)
	defer cancel()

	out := make([]statsResponse, 0, len(question.Sections))
	for _, sec := range question.Sections {
		n, err := h.store.Count(ctx, sec)
		if err != nil {
			return apperror.InternalError(config.ModuleRetriever, c, status.New(status.RetrievalFailed, err))
		}
		out = append(out, statsResponse{Collection: vectorstore.CollectionName(sec), Section: sec, Count: n})
	}
	return apperror.Success(config.ModuleRetriever, c, apperror.FiberSuccessMessage{
		Code:    status.OK,
		Message: "stats ok",
		Data:    out,
	})
}
