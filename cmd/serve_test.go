package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/labelguard/compliance-cli/internal/config"
	"github.com/labelguard/compliance-cli/internal/model"
	"github.com/labelguard/compliance-cli/internal/ocr"
	"github.com/labelguard/compliance-cli/internal/parser"
	"github.com/labelguard/compliance-cli/internal/pipeline"
	"github.com/labelguard/compliance-cli/internal/resolve"
	"github.com/labelguard/compliance-cli/internal/rules"
	"github.com/labelguard/compliance-cli/internal/store"
	"github.com/labelguard/compliance-cli/pkg/marketplace"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type noRegions struct{}

func (noRegions) Locate(context.Context, model.ImageBlob) ([]model.Region, error) {
	return nil, nil
}

type stubExtractor struct {
	err error
}

func (s stubExtractor) Extract(context.Context, model.ImageBlob, *model.Region) ([]model.TextLine, error) {
	return nil, s.err
}

func testEnv(t *testing.T, extractor ocr.Extractor) *pipelineEnv {
	t.Helper()
	st, err := store.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { st.Close() })

	engine, err := rules.NewEngine([]model.Rule{
		{ID: "r-price", RequiredFields: []model.FieldType{model.FieldPrice}, Severity: model.SeverityBlocking, Message: "missing {field}"},
	}, 0.3)
	require.NoError(t, err)

	c := &config.Config{}
	p := pipeline.New(c, st, noRegions{}, extractor,
		parser.New(parser.NewGazetteer(nil)), nil, resolve.New(c.Resolver), engine)
	return &pipelineEnv{
		Store:       st,
		Pipeline:    p,
		Marketplace: marketplace.New(config.MarketplaceConfig{RatePerSec: 1000}),
	}
}

func testRouter(t *testing.T, extractor ocr.Extractor) (http.Handler, *pipelineEnv) {
	env := testEnv(t, extractor)
	return newRouter(env, config.ServerConfig{AllowedOrigins: []string{"*"}}), env
}

func TestServe_Health(t *testing.T) {
	router, _ := testRouter(t, stubExtractor{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestServe_CheckSellerText(t *testing.T) {
	router, _ := testRouter(t, stubExtractor{})

	body := `{"seller_text":"MRP: Rs 199\nNet Wt 250g","category":"grocery/snacks"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/check", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)

	var report model.ComplianceReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, model.VerdictCompliant, report.Verdict)
	assert.False(t, report.Field(model.FieldPrice).Absent())
}

func TestServe_CheckValidation(t *testing.T) {
	router, _ := testRouter(t, stubExtractor{})

	for name, body := range map[string]string{
		"empty input": `{"category":"grocery"}`,
		"bad json":    `{"seller_text":`,
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/check", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
}

func TestServe_CheckUnreadableImage(t *testing.T) {
	// Marketplace serves a page with one image; OCR then rejects it.
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/img/") {
			_, _ = w.Write([]byte("not-a-jpeg"))
			return
		}
		_, _ = w.Write([]byte(`<span id="productTitle">Acme</span>
<script>{"hiRes":"` + srv.URL + `/img/1.jpg"}</script>`))
	}))
	defer srv.Close()

	router, _ := testRouter(t, stubExtractor{err: &ocr.ReadError{ImageID: "img-1", Err: errors.New("decode failed")}})

	body := `{"url":"` + srv.URL + `/p/1"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/check", strings.NewReader(body)))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "unreadable")
}

func TestServe_ListAndGetRuns(t *testing.T) {
	router, env := testRouter(t, stubExtractor{})

	// Seed one run through the API.
	body := `{"seller_text":"MRP: Rs 199"}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/check", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs?status=complete", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var listResp struct {
		Runs []model.Run `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listResp))
	require.Len(t, listResp.Runs, 1)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+listResp.Runs[0].ID, nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	runs, err := env.Store.ListRuns(context.Background(), store.RunFilter{})
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestServe_GetRunNotFound(t *testing.T) {
	router, _ := testRouter(t, stubExtractor{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/runs/no-such-run", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
