package billing

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/his/his/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/charge-catalog", h.ListCatalog)
	api.GET("/charge-catalog/:id", h.GetCatalogItem)
	api.POST("/charge-catalog", h.CreateCatalogItem)
	api.PUT("/charge-catalog/:id", h.UpdateCatalogItem)
	api.DELETE("/charge-catalog/:id", h.DeleteCatalogItem)

	api.GET("/encounters/:id/billing-items", h.ListBillingItems)
}

func (h *Handler) CreateCatalogItem(c echo.Context) error {
	var item ChargeCatalogItem
	if err := c.Bind(&item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateCatalogItem(c.Request().Context(), &item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *Handler) GetCatalogItem(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	item, err := h.svc.GetCatalogItem(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "catalogue item not found")
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) ListCatalog(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListCatalog(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateCatalogItem(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var item ChargeCatalogItem
	if err := c.Bind(&item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	item.ID = id
	if err := h.svc.UpdateCatalogItem(c.Request().Context(), &item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, item)
}

func (h *Handler) DeleteCatalogItem(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteCatalogItem(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "catalogue item not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListBillingItems(c echo.Context) error {
	encounterID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	items, err := h.svc.ListByEncounter(c.Request().Context(), encounterID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*BillingItem{}
	}
	return c.JSON(http.StatusOK, items)
}
