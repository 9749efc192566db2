package claz_http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"hazmat-classifier/internal/domain"
	"hazmat-classifier/internal/usecase"
)

type Handler struct {
	classifyUsecase usecase.ClassifyUsecase
}

func NewHandler(classifyUsecase usecase.ClassifyUsecase) *Handler {
	return &Handler{classifyUsecase: classifyUsecase}
}

// Register mounts the public API routes.
func (h *Handler) Register(e *echo.Echo) {
	e.POST("/v1/classify", h.Classify)
}

type ClassifyRequest struct {
	SKU         string `json:"sku,omitempty"`
	ProductName string `json:"product_name"`
}

type ClassifyResponse struct {
	UNNumber           string   `json:"un_number,omitempty"`
	ProperShippingName string   `json:"proper_shipping_name,omitempty"`
	HazardClass        string   `json:"hazard_class,omitempty"`
	PackingGroup       string   `json:"packing_group,omitempty"`
	ERGGuide           string   `json:"erg_guide,omitempty"`
	Hazardous          bool     `json:"hazardous"`
	Confidence         float64  `json:"confidence"`
	Source             string   `json:"source"`
	Explanation        string   `json:"explanation"`
	Citations          []string `json:"citations,omitempty"`
}

// Classify maps a free-text product description to a hazmat classification.
// (POST /v1/classify)
func (h *Handler) Classify(ctx echo.Context) error {
	var req ClassifyRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request"})
	}
	if strings.TrimSpace(req.ProductName) == "" {
		return ctx.JSON(http.StatusBadRequest, map[string]string{"error": "product_name is required"})
	}

	result, err := h.classifyUsecase.Execute(ctx.Request().Context(), usecase.ClassifyInput{
		SKU:         strings.TrimSpace(req.SKU),
		ProductName: req.ProductName,
	})
	if err != nil {
		if errors.Is(err, domain.ErrIndexUnavailable) {
			return ctx.JSON(http.StatusServiceUnavailable, map[string]string{"error": "knowledge base unavailable"})
		}
		return ctx.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return ctx.JSON(http.StatusOK, toResponse(result))
}

func toResponse(c domain.Classification) ClassifyResponse {
	return ClassifyResponse{
		UNNumber:           c.UNNumber,
		ProperShippingName: c.ProperShippingName,
		HazardClass:        c.HazardClass,
		PackingGroup:       string(c.PackingGroup),
		ERGGuide:           c.ERGGuide,
		Hazardous:          c.IsHazardous(),
		Confidence:         c.Confidence,
		Source:             string(c.Source),
		Explanation:        c.Explanation,
		Citations:          c.Citations,
	}
}
