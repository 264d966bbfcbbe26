package healthcheck

import (
	"context"
	"errors"
	"time"

	"jlpt-listening/config"
	"jlpt-listening/internal/core/vectorstore"
	"jlpt-listening/internal/database"
	"jlpt-listening/pkg/apperror"

	"github.com/gofiber/fiber/v3"
	"gorm.io/gorm"
)

const checkTimeout = 2 * time.Second

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

func (h *Handler) ApiHealthCheck(c fiber.Ctx) error {
	return c.SendString("ok")
}

func (h *Handler) DatabaseHealthCheck(c fiber.Ctx) error {
	if h.db == nil {
		return apperror.ServiceUnavailable(config.ModuleDatabase, c, errors.New("database not configured"))
	}
	ctx, cancel := context.WithTimeout(c.Context(), checkTimeout)
	defer cancel()
	if err := database.Ping(ctx, h.db); err != nil {
		return apperror.ServiceUnavailable(config.ModuleDatabase, c, err)
	}
	return c.SendString("ok")
}

// MilvusHealthCheck dials Milvus once; it reports "disabled" when the local
// backend is in use.
func (h *Handler) MilvusHealthCheck(c fiber.Ctx) error {
	if config.Cfg.Vector.Backend != "milvus" {
		return c.SendString("disabled")
	}
	ctx, cancel := context.WithTimeout(c.Context(), checkTimeout)
	defer cancel()
	cli, err := vectorstore.ConnectMilvus(ctx, config.Cfg.Milvus.Address, 0, checkTimeout)
	if err != nil {
		return apperror.ServiceUnavailable(config.ModuleMilvus, c, err)
	}
	cli.Close()
	return c.SendString("ok")
}
