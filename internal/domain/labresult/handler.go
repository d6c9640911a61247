package labresult

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hruflabs/labengine/internal/domain/document"
	"github.com/hruflabs/labengine/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Processing endpoints mutate stored data, admin only.
	writeGroup := api.Group("", auth.RequireRole("admin"))
	writeGroup.POST("/extract", h.Extract)
	writeGroup.POST("/documents/:id/process", h.ProcessDocument)

	readGroup := api.Group("", auth.RequireRole("admin", "user"))
	readGroup.GET("/documents/:id/biomarkers", h.ListBiomarkers)
	readGroup.GET("/documents/:id/status", h.GetStatus)
}

type extractRequest struct {
	Text string `json:"text"`
}

// Extract previews extraction for arbitrary text without persisting.
func (h *Handler) Extract(c echo.Context) error {
	var req extractRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	result := h.svc.ExtractPreview(c.Request().Context(), req.Text)
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) ProcessDocument(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	if err := h.svc.ProcessLabResult(c.Request().Context(), id); err != nil {
		switch {
		case errors.Is(err, ErrAlreadyProcessing):
			return echo.NewHTTPError(http.StatusConflict, "document is already being processed")
		case errors.Is(err, document.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "document not found")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
	}

	status, err := h.svc.GetStatus(c.Request().Context(), id)
	if err != nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, status)
}

func (h *Handler) ListBiomarkers(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	records, err := h.svc.ListBiomarkers(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if records == nil {
		records = []Biomarker{}
	}
	return c.JSON(http.StatusOK, records)
}

func (h *Handler) GetStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	status, err := h.svc.GetStatus(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "no processing status for document")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, status)
}
