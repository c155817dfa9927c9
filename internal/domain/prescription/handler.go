package prescription

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/his/his/internal/domain/pharmacy"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/prescriptions", h.CreatePrescription)
	api.GET("/prescriptions/:id", h.GetPrescription)
	api.POST("/prescriptions/:id/reserve", h.ReserveStock)
	api.POST("/prescriptions/:id/release", h.ReleaseStock)
	api.POST("/prescriptions/:id/cancel", h.CancelPrescription)

	api.GET("/prescriptions/allergy-check", h.CheckAllergies)
	api.GET("/prescriptions/interaction-check", h.CheckInteractions)
	api.GET("/prescriptions/availability", h.CheckAvailability)
}

func httpError(err error) error {
	var validation *ValidationError
	if errors.As(err, &validation) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var insufficient *pharmacy.InsufficientStockError
	if errors.As(err, &insufficient) {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	if errors.Is(err, ErrAlreadyDispensed) {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return echo.NewHTTPError(http.StatusBadRequest, err.Error())
}

func (h *Handler) CreatePrescription(c echo.Context) error {
	var p Prescription
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Create(c.Request().Context(), &p); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPrescription(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "prescription not found")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ReserveStock(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "prescription not found")
	}
	if err := h.svc.ReserveStock(c.Request().Context(), p); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ReleaseStock(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "prescription not found")
	}
	if err := h.svc.ReleaseStock(c.Request().Context(), p); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) CancelPrescription(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Cancel(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CheckAllergies(c echo.Context) error {
	patientID, err := uuid.Parse(c.QueryParam("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	drugID, err := uuid.Parse(c.QueryParam("drug_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid drug_id")
	}
	match, err := h.svc.CheckAllergies(c.Request().Context(), patientID, drugID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]bool{"allergy_match": match})
}

func (h *Handler) CheckInteractions(c echo.Context) error {
	patientID, err := uuid.Parse(c.QueryParam("patient_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
	}
	drugID, err := uuid.Parse(c.QueryParam("drug_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid drug_id")
	}
	warnings, err := h.svc.CheckInteractions(c.Request().Context(), patientID, drugID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if warnings == nil {
		warnings = []InteractionWarning{}
	}
	return c.JSON(http.StatusOK, warnings)
}

func (h *Handler) CheckAvailability(c echo.Context) error {
	drugID, err := uuid.Parse(c.QueryParam("drug_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid drug_id")
	}
	qty, err := strconv.Atoi(c.QueryParam("quantity"))
	if err != nil || qty <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}
	ok, err := h.svc.ValidateInstantDispensing(c.Request().Context(), drugID, qty)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]bool{"available": ok})
}
