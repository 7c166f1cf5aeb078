package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/iwvelando/course-emi/internal/export"
	"github.com/iwvelando/course-emi/internal/metrics"
	"github.com/iwvelando/course-emi/internal/plan"
	"github.com/iwvelando/course-emi/pkg/datetime"
	"go.uber.org/zap"
)

const planBody = `{"totalFee":"60000","downPayment":"10000","tenureMonths":6,"admissionDate":"2024-03-15"}`

var testToday = datetime.MustParseDate("2026-10-18")

func newTestHandler(t *testing.T, cfg *Config, withStorage bool) (http.Handler, *metrics.Recorder) {
	t.Helper()
	recorder := metrics.NewRecorder()
	engine := plan.NewEngine(zap.NewNop(), plan.WithClock(plan.FixedClock(testToday)), plan.WithMetrics(recorder))

	opts := []export.ServiceOption{
		export.WithRecorder(recorder),
		export.WithNow(func() time.Time { return testToday }),
	}
	deps := Dependencies{Engine: engine, Metrics: recorder}
	if withStorage {
		storage, err := export.NewLocalStorage(t.TempDir(), "/files", "")
		if err != nil {
			t.Fatalf("NewLocalStorage() error: %v", err)
		}
		opts = append(opts, export.WithSink(storage))
		deps.Files = storage
	}
	deps.Exports = export.NewService(zap.NewNop(), nil, opts...)

	return NewHandler(zap.NewNop(), cfg, deps, "1.2.3"), recorder
}

func post(h http.Handler, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func decodePlan(t *testing.T, data []byte) planResponse {
	t.Helper()
	var resp planResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestHandlePlanSuccess(t *testing.T) {
	h, _ := newTestHandler(t, nil, false)

	rr := post(h, "/api/plan", planBody)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	resp := decodePlan(t, rr.Body.Bytes())
	if !resp.Validation.Valid {
		t.Fatalf("expected valid inputs, got %+v", resp.Validation)
	}
	if resp.Summary.LoanAmount != 50000 || resp.Summary.MonthlyEMI != 8333 {
		t.Fatalf("unexpected summary: %+v", resp.Summary)
	}
	if resp.Detail.Header == nil || resp.Detail.Header.FirstInstallmentDate != "7 April 2024" {
		t.Fatalf("unexpected detail header: %+v", resp.Detail.Header)
	}
	if len(resp.Detail.Rows) != 6 || resp.Detail.Rows[5].Label != "7 Sep 2024" {
		t.Fatalf("unexpected detail rows: %+v", resp.Detail.Rows)
	}
	if len(resp.Plan.Installments) != 6 {
		t.Fatalf("expected 6 installments, got %d", len(resp.Plan.Installments))
	}
}

func TestHandlePlanTotalPayable(t *testing.T) {
	h, _ := newTestHandler(t, nil, false)

	tests := []struct {
		name    string
		body    string
		rounded int64
		exact   string
	}{
		{"Repeating split", planBody, 50000, "49999.9999999999999998"},
		{"Even split", `{"totalFee":"60000","downPayment":"10000","tenureMonths":5}`, 50000, "50000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := post(h, "/api/plan", tt.body)
			if rr.Code != http.StatusOK {
				t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
			}
			var raw struct {
				Plan map[string]json.RawMessage `json:"plan"`
			}
			if err := json.Unmarshal(rr.Body.Bytes(), &raw); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if _, ok := raw.Plan["totalPayable"]; ok {
				t.Error("unlabelled totalPayable should not be exposed")
			}
			if got := string(raw.Plan["roundedTotalPayable"]); got != strconv.FormatInt(tt.rounded, 10) {
				t.Errorf("roundedTotalPayable = %s, expected %d", got, tt.rounded)
			}
			if got := string(raw.Plan["exactTotalPayable"]); got != `"`+tt.exact+`"` {
				t.Errorf("exactTotalPayable = %s, expected %q", got, tt.exact)
			}
		})
	}
}

func TestHandlePlanInvalidAndIncomplete(t *testing.T) {
	h, _ := newTestHandler(t, nil, false)

	rr := post(h, "/api/plan", `{"totalFee":"50000","downPayment":"50000","tenureMonths":6}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	resp := decodePlan(t, rr.Body.Bytes())
	if resp.Validation.Valid || resp.Validation.Message == "" || resp.Summary.LoanAmount != 0 {
		t.Fatalf("expected invalid zero plan, got %+v / %+v", resp.Validation, resp.Summary)
	}

	rr = post(h, "/api/plan", `{"totalFee":"50000","downPayment":""}`)
	resp = decodePlan(t, rr.Body.Bytes())
	if !resp.Validation.Valid || resp.Validation.State != "incomplete" || resp.Summary.LoanAmount != 0 {
		t.Fatalf("expected incomplete zero plan, got %+v / %+v", resp.Validation, resp.Summary)
	}
	if resp.Summary.TenureMonths != 6 {
		t.Fatalf("expected default tenure, got %d", resp.Summary.TenureMonths)
	}
}

func TestHandlePlanRejectsBadInput(t *testing.T) {
	h, _ := newTestHandler(t, nil, false)

	tests := []struct {
		name string
		body string
	}{
		{"Malformed JSON", `{"totalFee":`},
		{"Non-digit amount", `{"totalFee":"6e4","downPayment":"0"}`},
		{"Negative amount", `{"totalFee":"60000","downPayment":"-5"}`},
		{"Unsupported tenure", `{"totalFee":"60000","downPayment":"0","tenureMonths":12}`},
		{"Bad date", `{"totalFee":"60000","downPayment":"0","admissionDate":"15/03/2024"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := post(h, "/api/plan", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
			}
			var resp map[string]string
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil || resp["error"] == "" {
				t.Fatalf("expected error message, got %s", rr.Body.String())
			}
		})
	}
}

func TestHandlePlanRequestTooLarge(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SetRequestSizeBytes(32)
	h, _ := newTestHandler(t, cfg, false)

	rr := post(h, "/api/plan", planBody)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status 413, got %d", rr.Code)
	}
}

func TestHandleExport(t *testing.T) {
	h, _ := newTestHandler(t, nil, false)

	rr := post(h, "/api/export?format=csv", planBody)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("Content-Disposition"); got != `attachment; filename="Course_EMI_Plan_2026-10-18.csv"` {
		t.Fatalf("unexpected Content-Disposition %q", got)
	}
	if !strings.Contains(rr.Body.String(), "INR 8,333") {
		t.Fatalf("expected installment amounts in export, got %s", rr.Body.String())
	}

	rr = post(h, "/api/export", planBody)
	if rr.Code != http.StatusOK || !strings.HasSuffix(rr.Header().Get("Content-Disposition"), `.xlsx"`) {
		t.Fatalf("expected default xlsx export, got %d %q", rr.Code, rr.Header().Get("Content-Disposition"))
	}

	rr = post(h, "/api/export?format=pdf", planBody)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200 for pdf, got %d: %s", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("Content-Disposition"); got != `attachment; filename="Course_EMI_Plan_2026-10-18.pdf"` {
		t.Fatalf("unexpected Content-Disposition %q", got)
	}
	if !strings.HasPrefix(rr.Body.String(), "%PDF") {
		t.Fatal("pdf export does not start with a PDF header")
	}

	rr = post(h, "/api/export?format=docx", planBody)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 for docx, got %d", rr.Code)
	}
}

func TestHandlePublishWithoutStorage(t *testing.T) {
	h, _ := newTestHandler(t, nil, false)

	rr := post(h, "/api/exports?format=csv", planBody)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
	if rr := get(h, "/files/anything.csv"); rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestHandlePublishAndDownload(t *testing.T) {
	h, _ := newTestHandler(t, nil, true)

	rr := post(h, "/api/exports?format=csv", planBody)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var published export.Published
	if err := json.Unmarshal(rr.Body.Bytes(), &published); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if published.ID == "" || published.URL != "/files/"+export.StoredName(published.ID, published.Name) {
		t.Fatalf("unexpected publish response: %+v", published)
	}

	rr = get(h, published.URL)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if got := rr.Header().Get("Content-Disposition"); got != `attachment; filename="Course_EMI_Plan_2026-10-18.csv"` {
		t.Fatalf("unexpected Content-Disposition %q", got)
	}
	body, _ := io.ReadAll(rr.Body)
	if !strings.HasPrefix(string(body), "Course EMI Calculator") {
		t.Fatalf("unexpected file contents: %s", body)
	}

	for _, target := range []string{"/files/missing.csv", "/files/..%2Fsecret"} {
		if rr := get(h, target); rr.Code != http.StatusNotFound {
			t.Fatalf("GET %s: expected status 404, got %d", target, rr.Code)
		}
	}
}

func TestHandleMetadataEndpoints(t *testing.T) {
	h, _ := newTestHandler(t, nil, false)

	rr := get(h, "/api/version")
	var version map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &version); err != nil || version["version"] != "1.2.3" {
		t.Fatalf("unexpected version response: %s", rr.Body.String())
	}

	rr = get(h, "/api/tenures")
	var tenures struct {
		Options []int `json:"options"`
		Default int   `json:"default"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &tenures); err != nil {
		t.Fatalf("failed to decode tenures: %v", err)
	}
	if len(tenures.Options) != 8 || tenures.Options[0] != 2 || tenures.Options[7] != 9 || tenures.Default != 6 {
		t.Fatalf("unexpected tenures: %+v", tenures)
	}

	if rr := get(h, "/healthz"); rr.Code != http.StatusOK {
		t.Fatalf("expected healthy, got %d", rr.Code)
	}

	if rr := post(h, "/api/version", ""); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rr.Code)
	}
}

func TestHandleMetrics(t *testing.T) {
	h, _ := newTestHandler(t, nil, false)
	post(h, "/api/plan", planBody)

	rr := get(h, "/metrics")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `course_emi_plans_computed_total{state="valid"} 1`) {
		t.Fatalf("metrics missing plan counter:\n%s", rr.Body.String())
	}
}

func TestCORS(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowedOrigins = []string{"https://emi.example.com"}
	h, _ := newTestHandler(t, cfg, false)

	req := httptest.NewRequest(http.MethodOptions, "/api/plan", nil)
	req.Header.Set("Origin", "https://emi.example.com")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "https://emi.example.com" {
		t.Fatalf("expected allowed origin header, got %q", rr.Header().Get("Access-Control-Allow-Origin"))
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/plan", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("unexpected allow origin for foreign site")
	}
}

func TestLiveSession(t *testing.T) {
	h, _ := newTestHandler(t, nil, false)
	srv := httptest.NewServer(h)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial live endpoint: %v", err)
	}
	defer conn.Close()

	frames := []string{
		`{"totalFee":"60000","downPayment":"","tenureMonths":6}`,
		`{"totalFee":"60000","downPayment":"1x"}`,
		planBody,
	}
	for _, frame := range frames {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
			t.Fatalf("failed to write frame: %v", err)
		}
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first planResponse
	if err := conn.ReadJSON(&first); err != nil {
		t.Fatalf("failed to read first reply: %v", err)
	}
	if first.Validation.State != "incomplete" || first.Summary.LoanAmount != 0 {
		t.Fatalf("unexpected first reply: %+v", first.Validation)
	}

	var second liveError
	if err := conn.ReadJSON(&second); err != nil {
		t.Fatalf("failed to read second reply: %v", err)
	}
	if second.Error == "" {
		t.Fatal("expected an error reply for the malformed frame")
	}

	var third planResponse
	if err := conn.ReadJSON(&third); err != nil {
		t.Fatalf("failed to read third reply: %v", err)
	}
	if third.Summary.LoanAmount != 50000 || third.Summary.MonthlyEMI != 8333 {
		t.Fatalf("unexpected third reply: %+v", third.Summary)
	}
}

func TestLiveRejectsForeignOrigin(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AllowedOrigins = []string{"https://emi.example.com"}
	h, _ := newTestHandler(t, cfg, false)
	srv := httptest.NewServer(h)
	defer srv.Close()

	header := http.Header{}
	header.Set("Origin", "https://evil.example.com")
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/live"
	if _, _, err := websocket.DefaultDialer.Dial(url, header); err == nil {
		t.Fatal("expected handshake to fail for a foreign origin")
	}
}
