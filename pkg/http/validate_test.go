package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

type symbolsRequest struct {
	Symbols []string `json:"symbols" validate:"omitempty,max=2,dive,required,symbol"`
	Bars    int      `json:"bars" default:"60" validate:"gte=1,lte=500"`
}

func bind(t *testing.T, body string) interface{} {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())
	return ReadAndValidateRequest(c, &symbolsRequest{})
}

func TestReadAndValidateRequest(t *testing.T) {
	if verr := bind(t, `{"symbols":["TCS","M&M"]}`); verr != nil {
		t.Fatalf("valid request rejected: %+v", verr)
	}

	verr := bind(t, `{"symbols":["tcs"]}`)
	errs, ok := verr.([]ValidationError)
	if !ok || len(errs) != 1 || errs[0].Code != "ERR_SYMBOL" {
		t.Fatalf("lower-case ticker: %+v", verr)
	}

	errs, _ = bind(t, `{"symbols":["A","B","C"],"bars":900}`).([]ValidationError)
	if len(errs) != 2 {
		t.Fatalf("expected max and lte failures, got %+v", errs)
	}

	errs, _ = bind(t, `{"symbols":`).([]ValidationError)
	if len(errs) != 1 || errs[0].Code != "ERR_BIND" {
		t.Fatalf("malformed body: %+v", errs)
	}
}

func TestEnvelopeResponses(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	err := AppErrorResponse(c, NotFoundError("unknown strategy").WithError(errors.New("x")))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	var env struct {
		Status int        `json:"status"`
		Data   []AppError `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Code != http.StatusOK || env.Status != http.StatusNotFound || env.Data[0].Code != "ERR_NOT_FOUND" {
		t.Fatalf("code %d envelope %+v", rec.Code, env)
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	_ = StatusResponse(c, http.StatusTooManyRequests, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status response code %d", rec.Code)
	}
}
