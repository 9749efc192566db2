package claz_http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hazmat-classifier/internal/adapter/claz_http"
	"hazmat-classifier/internal/domain"
	"hazmat-classifier/internal/usecase"
)

type stubClassifyUsecase struct {
	result domain.Classification
	err    error
	input  usecase.ClassifyInput
}

func (s *stubClassifyUsecase) Execute(_ context.Context, input usecase.ClassifyInput) (domain.Classification, error) {
	s.input = input
	return s.result, s.err
}

func postClassify(e *echo.Echo, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/v1/classify", bytes.NewBufferString(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandler_Classify(t *testing.T) {
	e := echo.New()
	stub := &stubClassifyUsecase{
		result: domain.Classification{
			UNNumber:           "UN1830",
			ProperShippingName: "sulfuric acid",
			HazardClass:        "8",
			PackingGroup:       domain.PackingGroupII,
			ERGGuide:           "137",
			Confidence:         0.92,
			Source:             domain.SourceDirectRule,
			Explanation:        "matched curated rule for sulfuric acid (UN1830)",
			Citations:          []string{"rule:UN1830"},
		},
	}
	claz_http.NewHandler(stub).Register(e)

	rec := postClassify(e, `{"sku":"SKU-42","product_name":"Sulfuric Acid 98%"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp claz_http.ClassifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "UN1830", resp.UNNumber)
	assert.Equal(t, "8", resp.HazardClass)
	assert.Equal(t, "II", resp.PackingGroup)
	assert.True(t, resp.Hazardous)
	assert.Equal(t, "direct_rule", resp.Source)
	assert.Equal(t, "SKU-42", stub.input.SKU)
	assert.Equal(t, "Sulfuric Acid 98%", stub.input.ProductName)
}

func TestHandler_Classify_NonHazard(t *testing.T) {
	e := echo.New()
	stub := &stubClassifyUsecase{
		result: domain.Classification{
			Confidence:  0.95,
			Source:      domain.SourceNonHazardRule,
			Explanation: "not regulated: acetic acid solutions at or below 10% are not regulated for transport",
		},
	}
	claz_http.NewHandler(stub).Register(e)

	rec := postClassify(e, `{"product_name":"Acetic Acid 5%"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp claz_http.ClassifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.UNNumber)
	assert.False(t, resp.Hazardous)
}

func TestHandler_Classify_MissingProductName(t *testing.T) {
	e := echo.New()
	claz_http.NewHandler(&stubClassifyUsecase{}).Register(e)

	rec := postClassify(e, `{"sku":"SKU-42"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Classify_InvalidJSON(t *testing.T) {
	e := echo.New()
	claz_http.NewHandler(&stubClassifyUsecase{}).Register(e)

	rec := postClassify(e, `{not json`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Classify_IndexUnavailable(t *testing.T) {
	e := echo.New()
	stub := &stubClassifyUsecase{err: domain.ErrIndexUnavailable}
	claz_http.NewHandler(stub).Register(e)

	rec := postClassify(e, `{"product_name":"ferric chloride solution"}`)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
