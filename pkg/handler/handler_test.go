package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"promptgate/pkg/config"
	"promptgate/pkg/engine"
	"promptgate/pkg/llm"
	"promptgate/pkg/llm/dummy"
	"promptgate/pkg/monitor"

	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus"
)

func newTestEcho(t *testing.T) *echo.Echo {
	t.Helper()

	providers := llm.NewRegistry()
	providers.Register("openai", llm.FactoryFunc(func(llm.ProviderConfig, *config.SystemConfig) (llm.LLMClient, error) {
		return dummy.NewClient(map[string]string{"answer": "4"}), nil
	}))
	providers.RegisterKeyless("dummy", dummy.Factory{})

	reg := prometheus.NewRegistry()
	metrics, err := monitor.NewMetricsMonitor(reg)
	if err != nil {
		t.Fatal(err)
	}
	eng, err := engine.New(nil, config.DefaultSystemConfig(),
		engine.WithProviders(providers),
		engine.WithMonitor(metrics),
	)
	if err != nil {
		t.Fatal(err)
	}

	e := echo.New()
	e.Use(RequestID())
	New(eng, reg).Register(e)
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return out
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, typ string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d body=%s", rec.Code, status, rec.Body.String())
	}
	body := decode(t, rec)
	errObj, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("missing error object: %s", rec.Body.String())
	}
	if errObj["type"] != typ || errObj["message"] == "" {
		t.Fatalf("error = %v, want type %s", errObj, typ)
	}
}

func TestConfigureRegisterPredict(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t)

	rec := doJSON(t, e, http.MethodPost, "/configure", `{"provider":"openai","model":"gpt-4o-mini","api_key":"sk-test"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("configure: %d %s", rec.Code, rec.Body.String())
	}
	if body := decode(t, rec); body["status"] != "configured" || body["model"] != "openai/gpt-4o-mini" || body["provider"] != "openai" {
		t.Fatalf("configure body = %v", body)
	}

	rec = doJSON(t, e, http.MethodPost, "/register", `{"name":"qa","signature":"question -> answer"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("register: %d %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["status"] != "registered" || body["name"] != "qa" {
		t.Fatalf("register body = %v", body)
	}
	if in := body["input_fields"].([]any); len(in) != 1 || in[0] != "question" {
		t.Fatalf("input_fields = %v", in)
	}

	rec = doJSON(t, e, http.MethodPost, "/predict", `{"signature_name":"qa","inputs":{"question":"2+2?"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("predict: %d %s", rec.Code, rec.Body.String())
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"outputs":{"answer":"4"}}` {
		t.Fatalf("predict body = %s", got)
	}
}

func TestOptimizeAndPredictCompiled(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t)
	doJSON(t, e, http.MethodPost, "/configure", `{"provider":"dummy","model":"any"}`)
	doJSON(t, e, http.MethodPost, "/register", `{"name":"qa","signature":"question -> answer"}`)

	train := `{"signature_name":"qa","max_bootstraps":1,"train_data":[{"question":"a","answer":"42"},{"question":"b","answer":"7"}]}`
	rec := doJSON(t, e, http.MethodPost, "/optimize", train)
	if rec.Code != http.StatusOK {
		t.Fatalf("optimize: %d %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["status"] != "optimized" || body["module_id"] != "qa_opt_0" || body["num_bootstraps"] != float64(1) {
		t.Fatalf("optimize body = %v", body)
	}

	rec = doJSON(t, e, http.MethodPost, "/predict", `{"signature_name":"qa","inputs":{"question":"c"},"compiled_module_id":"qa_opt_0"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("predict compiled: %d %s", rec.Code, rec.Body.String())
	}
	body = decode(t, rec)
	if body["outputs"].(map[string]any)["answer"] != "42" || body["reasoning"] != "because" {
		t.Fatalf("predict body = %v", body)
	}

	rec = doJSON(t, e, http.MethodPost, "/optimize", train)
	if body := decode(t, rec); body["module_id"] != "qa_opt_1" {
		t.Fatalf("second optimize = %v", body)
	}
}

func TestErrorResponses(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t)

	expectError(t, doJSON(t, e, http.MethodPost, "/predict", `{"signature_name":"qa","inputs":{}}`),
		http.StatusInternalServerError, "unconfigured_model")
	expectError(t, doJSON(t, e, http.MethodPost, "/configure", `{"provider":`),
		http.StatusBadRequest, "invalid_request")
	expectError(t, doJSON(t, e, http.MethodPost, "/configure", `{"provider":"nope","model":"x"}`),
		http.StatusInternalServerError, "configuration_error")
	expectError(t, doJSON(t, e, http.MethodPost, "/register", `{"name":"bad","signature":"no arrow"}`),
		http.StatusBadRequest, "signature_parse_error")

	doJSON(t, e, http.MethodPost, "/configure", `{"provider":"dummy","model":"any"}`)
	expectError(t, doJSON(t, e, http.MethodPost, "/predict", `{"signature_name":"qa","inputs":{}}`),
		http.StatusNotFound, "unknown_signature")

	doJSON(t, e, http.MethodPost, "/register", `{"name":"qa","signature":"question -> answer"}`)
	expectError(t, doJSON(t, e, http.MethodPost, "/predict", `{"signature_name":"qa","inputs":{},"compiled_module_id":"qa_opt_3"}`),
		http.StatusNotFound, "unknown_module")
	expectError(t, doJSON(t, e, http.MethodPost, "/optimize", `{"signature_name":"qa","metric":"bleu","train_data":[{"question":"a","answer":"b"}]}`),
		http.StatusBadRequest, "unknown_metric")
	expectError(t, doJSON(t, e, http.MethodPost, "/optimize", `{"signature_name":"qa","optimizer":"MIPROv2","train_data":[{"question":"a","answer":"b"}]}`),
		http.StatusBadRequest, "unsupported_optimizer")
}

func TestHealthAndMetrics(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t)
	doJSON(t, e, http.MethodPost, "/configure", `{"provider":"dummy","model":"any"}`)

	rec := doJSON(t, e, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("health: %d", rec.Code)
	}
	if body := decode(t, rec); body["status"] != "ok" || body["model"] != "dummy/any" {
		t.Fatalf("health body = %v", body)
	}

	rec = doJSON(t, e, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `promptgate_operations_total{operation="configure",status="ok"} 1`) {
		t.Fatalf("metrics missing configure counter:\n%s", rec.Body.String())
	}
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t)

	rec := doJSON(t, e, http.MethodGet, "/health", "")
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Fatal("expected generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(echo.HeaderXRequestID, "abc-123")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if got := rec.Header().Get(echo.HeaderXRequestID); got != "abc-123" {
		t.Fatalf("request id = %q", got)
	}
}
