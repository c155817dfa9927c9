package pharmacy

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *echo.Echo) {
	svc, _, _, _ := newTestService()
	return NewHandler(svc), echo.New()
}

func TestHandler_CreateDrug(t *testing.T) {
	h, e := newTestHandler()

	body := `{"name":"Paracetamol 500mg","generic_name":"Paracetamol","therapeutic_class":"Analgesic","stock_quantity":200,"reorder_level":20}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/drugs", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreateDrug(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	var d Drug
	json.Unmarshal(rec.Body.Bytes(), &d)
	if d.StockQuantity != 200 {
		t.Errorf("expected stock 200, got %d", d.StockQuantity)
	}
	if d.ID == uuid.Nil {
		t.Error("expected assigned id")
	}
}

func TestHandler_CreateDrug_BadRequest(t *testing.T) {
	h, e := newTestHandler()

	body := `{"generic_name":"Paracetamol"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/drugs", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreateDrug(c); err == nil {
		t.Error("expected error for missing name")
	}
}

func TestHandler_GetDrug(t *testing.T) {
	h, e := newTestHandler()
	d := seedDrug(t, h.svc, 50)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(d.ID.String())

	if err := h.GetDrug(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_GetDrug_InvalidID(t *testing.T) {
	h, e := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	if err := h.GetDrug(c); err == nil {
		t.Error("expected error for invalid id")
	}
}

func TestHandler_ReceiveStock(t *testing.T) {
	h, e := newTestHandler()
	d := seedDrug(t, h.svc, 20)

	body := `{"quantity":80,"reference_no":"PO-2024-001"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(d.ID.String())

	if err := h.ReceiveStock(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var updated Drug
	json.Unmarshal(rec.Body.Bytes(), &updated)
	if updated.StockQuantity != 100 {
		t.Errorf("expected stock 100, got %d", updated.StockQuantity)
	}
}

func TestHandler_Reconcile(t *testing.T) {
	h, e := newTestHandler()
	d := seedDrug(t, h.svc, 100)

	if err := h.svc.Reserve(context.Background(), d.ID, 10, "PRESCRIPTION-a"); err != nil {
		t.Fatalf("Reserve() error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(d.ID.String())

	if err := h.Reconcile(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var report ReconciliationReport
	json.Unmarshal(rec.Body.Bytes(), &report)
	if !report.Consistent {
		t.Errorf("expected consistent report, got %+v", report)
	}
}
