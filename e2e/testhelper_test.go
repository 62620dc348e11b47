package e2e

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/stillmind/api/internal/auth"
	"github.com/stillmind/api/internal/client"
	"github.com/stillmind/api/internal/config"
	"github.com/stillmind/api/internal/handler"
	"github.com/stillmind/api/internal/middleware"
	"github.com/stillmind/api/internal/service"
	"github.com/stillmind/api/internal/store"
	"github.com/stillmind/api/internal/worker"
)

const (
	testJWTSecret    = "test-secret-for-e2e"
	testWorkerSecret = "test-worker-secret"
)

// testApp holds all components needed for testing
type testApp struct {
	app   *fiber.App
	store *store.Store
}

// setupApp creates a Fiber app identical to main.go but with a temp sqlite
// store and unconfigured external clients, so every service path takes its
// mock fallback.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "e2e.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	// Redis is optional: the rate limiter fails open when it is absent.
	redisClient := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // use DB 15 for tests to avoid collision
	})

	validate := validator.New()

	// External clients — all unconfigured so the pipeline uses mock fallbacks
	ttsRegistry := client.NewTTSRegistry(&config.TTSConfig{})

	// Services
	renderService := service.NewRenderService(st)
	editService := service.NewEditService(st, 3, 299)

	// Worker with a low sample rate to keep renders fast
	renderWorker := worker.NewRenderWorker(st, ttsRegistry, nil, nil, nil, nil, 4000, -16, -1)
	dispatcher := worker.NewDispatcher(st, renderWorker, nil, 5, 0, 10*time.Minute)

	// Handlers
	trackHandler := handler.NewTrackHandler(renderService, validate)
	jobHandler := handler.NewJobHandler(renderService)
	editHandler := handler.NewEditHandler(editService, validate)
	dispatchHandler := handler.NewDispatchHandler(dispatcher, testWorkerSecret)

	authMiddleware := middleware.NewAuthMiddleware(testJWTSecret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	app := fiber.New()

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"store":   st.Ping(c.Context()) == nil,
				"tts":     false,
				"catalog": false,
				"encoder": false,
				"storage": false,
			},
		})
	})

	api := app.Group("/api", authMiddleware.Authenticate())

	// Use very high rate limits so tests don't get blocked
	tracks := api.Group("/tracks")
	tracks.Post("/", rateLimiter.RenderLimit(10000), trackHandler.Create)
	tracks.Get("/:trackId", trackHandler.Get)
	tracks.Post("/:trackId/edit", rateLimiter.EditLimit(10000), editHandler.Edit)
	tracks.Get("/:trackId/edit/eligibility", editHandler.Eligibility)

	jobs := api.Group("/jobs")
	jobs.Get("/:jobId", jobHandler.Status)
	jobs.Get("/:jobId/result", jobHandler.Result)

	app.Post("/internal/worker/dispatch", dispatchHandler.Dispatch)

	return &testApp{app: app, store: st}
}

// generateToken creates a legacy HMAC JWT token for test requests.
func generateToken(t *testing.T, userID string) string {
	t.Helper()
	signed, err := auth.SignLegacyToken(userID, userID+"@example.com", testJWTSecret)
	if err != nil {
		t.Fatalf("failed to generate test token: %v", err)
	}
	return signed
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// doAuthRequest performs an authenticated request as the given user.
func doAuthRequest(t *testing.T, app *fiber.App, userID, method, path, body string) (*http.Response, error) {
	t.Helper()
	token := generateToken(t, userID)
	return doRequest(app, method, path, body, map[string]string{
		"Authorization": "Bearer " + token,
	})
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// assertErrorCode checks the error envelope's machine-readable code.
func assertErrorCode(t *testing.T, result map[string]interface{}, expected string) {
	t.Helper()
	errObj, ok := result["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error envelope, got %v", result)
	}
	if errObj["code"] != expected {
		t.Errorf("expected error code %s, got %v", expected, errObj["code"])
	}
}

const validTrackBody = `{
	"title": "Morning calm",
	"script": "Breathe in slowly. You are safe.",
	"voice": {"provider": "openai", "voiceId": "alloy", "model": "tts-1", "speed": 1.0},
	"durationMin": 1,
	"pauseSec": 3,
	"loopMode": "repeat",
	"solfeggio": {"hz": 528, "volumeDb": -18},
	"binaural": {"band": "theta", "volumeDb": -18},
	"output": {"format": "wav", "quality": "standard"}
}`

// createTrack submits a valid track and returns trackId and jobId.
func createTrack(t *testing.T, ta *testApp, userID string) (string, string) {
	t.Helper()
	resp, err := doAuthRequest(t, ta.app, userID, "POST", "/api/tracks/", validTrackBody)
	if err != nil {
		t.Fatalf("create request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusAccepted)
	result := parseJSON(t, resp)
	trackID, _ := result["trackId"].(string)
	jobID, _ := result["jobId"].(string)
	if trackID == "" || jobID == "" {
		t.Fatalf("missing ids in response: %v", result)
	}
	return trackID, jobID
}

// runDispatch triggers one worker cycle through the internal endpoint.
func runDispatch(t *testing.T, ta *testApp) map[string]interface{} {
	t.Helper()
	resp, err := doRequest(ta.app, "POST", "/internal/worker/dispatch", "", map[string]string{
		"X-Worker-Secret": testWorkerSecret,
	})
	if err != nil {
		t.Fatalf("dispatch request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
	return parseJSON(t, resp)
}
