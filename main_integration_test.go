package main

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/example/bodyfit/internal/analysis"
	"github.com/example/bodyfit/internal/config"
)

const testSecret = "integration-secret"

// blockingAnalyzer holds every analysis until release is closed.
type blockingAnalyzer struct {
	started chan struct{}
	release chan struct{}

	once sync.Once
	mu   sync.Mutex
	req  analysis.Request
}

func newBlockingAnalyzer() *blockingAnalyzer {
	return &blockingAnalyzer{started: make(chan struct{}), release: make(chan struct{})}
}

func (a *blockingAnalyzer) Analyze(ctx context.Context, req analysis.Request) (*analysis.Outcome, error) {
	a.mu.Lock()
	a.req = req
	a.mu.Unlock()
	a.once.Do(func() { close(a.started) })

	select {
	case <-a.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &analysis.Outcome{
		RequestID: "req-1",
		Saved:     analysis.Saved{BodyShape: "pear", Undertone: "warm", Updated: true},
	}, nil
}

func (a *blockingAnalyzer) GetResult(context.Context, string, string) (*analysis.Record, error) {
	return nil, analysis.ErrResultNotFound
}

func (a *blockingAnalyzer) lastRequest() analysis.Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.req
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		JWTSecret:          testSecret,
		UploadDir:          t.TempDir(),
		RateLimitPerMinute: 60,
		RateLimitBurst:     5,
	}
}

func TestServerFinishesInFlightAnalysisOnShutdown(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	analyzer := newBlockingAnalyzer()
	defer func() {
		select {
		case <-analyzer.release:
		default:
			close(analyzer.release)
		}
	}()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}
	server := &http.Server{Handler: newRouter(testConfig(t), analyzer, logger)}

	signalCh := make(chan os.Signal, 1)
	done := make(chan error, 1)
	go func() {
		done <- serveHTTPServerWithOptions(server, 2*time.Second, logger, listener, signalCh)
	}()

	addr := listener.Addr().String()
	waitForServer(t, addr)

	req := newAnalyzeRequest(t, "http://"+addr+"/analyze/auto")
	client := &http.Client{Timeout: 3 * time.Second}
	respCh := make(chan *http.Response, 1)
	errCh := make(chan error, 1)
	go func() {
		resp, err := client.Do(req)
		if err != nil {
			errCh <- err
			return
		}
		respCh <- resp
	}()

	select {
	case <-analyzer.started:
	case err := <-errCh:
		t.Fatalf("request failed before reaching the analyzer: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("analysis did not start in time")
	}

	signalCh <- syscall.SIGTERM
	time.Sleep(50 * time.Millisecond)
	close(analyzer.release)

	select {
	case resp := <-respCh:
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("unexpected status: %d", resp.StatusCode)
		}
		var outcome analysis.Outcome
		if err := json.NewDecoder(resp.Body).Decode(&outcome); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if outcome.RequestID != "req-1" || outcome.Saved.BodyShape != "pear" {
			t.Fatalf("unexpected outcome: %+v", outcome)
		}
	case err := <-errCh:
		t.Fatalf("request failed: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("request did not complete")
	}

	got := analyzer.lastRequest()
	if got.Mode != analysis.ModeAutomatic || got.UserID != "user-42" {
		t.Fatalf("unexpected analysis request: %+v", got)
	}
	if got.ImagePath == "" {
		t.Fatal("expected the upload to be stored before analysis")
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("server did not shutdown cleanly: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not exit after shutdown")
	}
}

func TestRouterRejectsAnonymousAnalysis(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := newRouter(testConfig(t), newBlockingAnalyzer(), zap.NewNop())

	req := newAnalyzeRequest(t, "/analyze/auto")
	req.Header.Del("Authorization")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, resp.Code)
	}
}

func TestRouterHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := newRouter(testConfig(t), newBlockingAnalyzer(), zap.NewNop())

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.Code)
	}
}

func newAnalyzeRequest(t *testing.T, url string) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="image"; filename="front.jpg"`)
	header.Set("Content-Type", "image/jpeg")
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("failed to create multipart part: %v", err)
	}
	if _, err := part.Write([]byte("\xff\xd8\xff\xe0fake-jpeg")); err != nil {
		t.Fatalf("failed to write payload: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-42",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, url, body)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func waitForServer(t *testing.T, addr string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("server %s did not become ready", addr)
}

func TestCORSConfig(t *testing.T) {
	cfg := corsConfig(nil)
	if !cfg.AllowAllOrigins {
		t.Fatal("expected all origins to be allowed without an allow list")
	}

	cfg = corsConfig([]string{"https://app.example"})
	if cfg.AllowAllOrigins || len(cfg.AllowOrigins) != 1 {
		t.Fatalf("unexpected cors config: %+v", cfg)
	}
	found := false
	for _, h := range cfg.AllowHeaders {
		if h == "Authorization" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected Authorization header to be allowed, got %v", cfg.AllowHeaders)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("invalid cors config: %v", err)
	}
}
