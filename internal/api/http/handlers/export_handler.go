package handlers

import (
	"bytes"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/chiapettaiago/chamados/internal/auth"
	"github.com/chiapettaiago/chamados/internal/domain"
	"github.com/chiapettaiago/chamados/internal/service"
	apperrors "github.com/chiapettaiago/chamados/pkg/util"
)

// ExportHandler serves spreadsheet downloads of the ticket base.
type ExportHandler struct {
	export *service.ExportService
}

// NewExportHandler constructs handler.
func NewExportHandler(exportService *service.ExportService) *ExportHandler {
	return &ExportHandler{export: exportService}
}

// ExportCSV GET /export/csv?q=&status=.
func (h *ExportHandler) ExportCSV(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}

	rows, err := h.export.Rows(c.Context(), user, c.Query("q"), domain.TicketStatus(c.Query("status")))
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := h.export.WriteCSV(&buf, rows); err != nil {
		return err
	}

	filename := service.ExportFileName(time.Now())
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename=`+filename)
	return c.Send(buf.Bytes())
}

// StatusCounts GET /export/metrics.
func (h *ExportHandler) StatusCounts(c *fiber.Ctx) error {
	user, ok := auth.UserFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("user required")
	}
	counts, err := h.export.StatusCounts(c.Context(), user)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": counts})
}
