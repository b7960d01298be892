package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tudasmester/elira-backend/internal/config"
	"github.com/tudasmester/elira-backend/internal/crypto"
	"github.com/tudasmester/elira-backend/internal/database"
	"github.com/tudasmester/elira-backend/internal/models"
	"github.com/tudasmester/elira-backend/internal/realtime"
	"github.com/tudasmester/elira-backend/internal/session"
	"github.com/tudasmester/elira-backend/internal/store"
)

type testEnv struct {
	srv     *httptest.Server
	store   *store.Store
	tracker *session.Tracker
	broker  *realtime.Broker
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("database.New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.RunMigrations(db); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}

	cfg := &config.Config{
		JWTSecret:           "test-secret",
		TokenDuration:       time.Hour,
		RateLimitPerMinute:  1000,
		SessionExpiry:       30 * time.Minute,
		SessionWarning:      5 * time.Minute,
		PublishFetchTimeout: time.Second,
	}

	st := store.New(db)
	tracker := session.NewTracker(session.Thresholds{Expiry: cfg.SessionExpiry, Warning: cfg.SessionWarning})
	broker := realtime.NewBroker(st, cfg.PublishFetchTimeout)

	srv := httptest.NewServer(New(cfg, st, tracker, broker))
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, store: st, tracker: tracker, broker: broker}
}

// registerAdmin creates an admin directly in the store and logs in over HTTP.
func (e *testEnv) loginAs(t *testing.T, email, password string, isAdmin bool) string {
	t.Helper()

	hash, err := crypto.HashPassword(password)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.store.CreateUser(context.Background(), email, "Test User", hash, isAdmin); err != nil {
		t.Fatal(err)
	}

	body, _ := json.Marshal(models.LoginRequest{Email: email, Password: password})
	resp, err := http.Post(e.srv.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}

	var login models.LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	return login.Token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}

	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func (e *testEnv) dialWS(t *testing.T, query string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/ws"
	if query != "" {
		url += "?" + query
	}
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	t.Cleanup(func() { ws.Close() })

	// consume the connection_established ack
	ws.SetReadDeadline(time.Now().Add(time.Second))
	if _, _, err := ws.ReadMessage(); err != nil {
		t.Fatalf("read ack: %v", err)
	}
	return ws
}

func readChange(t *testing.T, ws *websocket.Conn) map[string]any {
	t.Helper()

	ws.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := ws.ReadMessage()
	if err != nil {
		t.Fatalf("read change frame: %v", err)
	}
	var frame map[string]any
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	return frame
}

func waitStats(t *testing.T, b *realtime.Broker, cond func(realtime.Stats) bool) {
	t.Helper()

	deadline := time.After(time.Second)
	for !cond(b.Stats()) {
		select {
		case <-deadline:
			t.Fatalf("broker stats never converged: %+v", b.Stats())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestCourseMutationFansOutToConnectedClients(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.loginAs(t, "admin@elira.hu", "admin-pass-123", true)

	adminWS := env.dialWS(t, "token="+adminToken)
	anonWS := env.dialWS(t, "")
	waitStats(t, env.broker, func(s realtime.Stats) bool { return s.Admins == 1 && s.Anonymous == 1 })

	// Create an unpublished course: only the admin connection hears about it.
	resp := env.do(t, http.MethodPost, "/api/courses", adminToken, models.CourseRequest{Title: "Draft course"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create course status = %d", resp.StatusCode)
	}
	var course models.Course
	json.NewDecoder(resp.Body).Decode(&course)
	resp.Body.Close()

	frame := readChange(t, adminWS)
	if frame["type"] != "course_update" || frame["action"] != "create" {
		t.Errorf("admin frame = %v, want course_update/create", frame)
	}

	anonWS.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, data, err := anonWS.ReadMessage(); err == nil {
		t.Errorf("anonymous client received draft course frame: %s", data)
	}

	// Publishing the course reaches the anonymous browser too. The failed
	// read above closed anonWS client-side, so reconnect.
	anonWS2 := env.dialWS(t, "")
	waitStats(t, env.broker, func(s realtime.Stats) bool { return s.Admins == 1 && s.Anonymous >= 1 })

	resp = env.do(t, http.MethodPut, "/api/courses/"+course.ID, adminToken, models.CourseRequest{
		Title:     "Published course",
		Published: true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update course status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	frame = readChange(t, anonWS2)
	if frame["type"] != "course_update" || frame["action"] != "update" {
		t.Errorf("anonymous frame = %v, want course_update/update", frame)
	}
}

func TestEnrollmentFanOutEndToEnd(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.loginAs(t, "admin@elira.hu", "admin-pass-123", true)
	aliceToken := env.loginAs(t, "alice@elira.hu", "alice-pass-123", false)
	bobToken := env.loginAs(t, "bob@elira.hu", "bob-pass-1234", false)

	resp := env.do(t, http.MethodPost, "/api/courses", adminToken, models.CourseRequest{Title: "Go", Published: true})
	var course models.Course
	json.NewDecoder(resp.Body).Decode(&course)
	resp.Body.Close()

	aliceTab1 := env.dialWS(t, "token="+aliceToken)
	aliceTab2 := env.dialWS(t, "token="+aliceToken)
	adminWS := env.dialWS(t, "token="+adminToken)
	bobWS := env.dialWS(t, "token="+bobToken)
	waitStats(t, env.broker, func(s realtime.Stats) bool { return s.Admins == 1 && s.Users == 3 })

	resp = env.do(t, http.MethodPost, "/api/enrollments", aliceToken, models.EnrollRequest{CourseID: course.ID})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("enroll status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	for name, ws := range map[string]*websocket.Conn{"alice tab 1": aliceTab1, "alice tab 2": aliceTab2, "admin": adminWS} {
		frame := readChange(t, ws)
		if frame["type"] != "enrollment_update" {
			t.Errorf("%s frame = %v, want enrollment_update", name, frame)
		}
	}

	bobWS.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, data, err := bobWS.ReadMessage(); err == nil {
		t.Errorf("bob received alice's enrollment frame: %s", data)
	}
}

func TestDraftCoursesHiddenFromPublicListing(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.loginAs(t, "admin@elira.hu", "admin-pass-123", true)

	env.do(t, http.MethodPost, "/api/courses", adminToken, models.CourseRequest{Title: "Draft"}).Body.Close()
	env.do(t, http.MethodPost, "/api/courses", adminToken, models.CourseRequest{Title: "Live", Published: true}).Body.Close()

	// Anonymous listing sees only the published course.
	resp := env.do(t, http.MethodGet, "/api/courses", "", nil)
	var publicCourses []models.Course
	json.NewDecoder(resp.Body).Decode(&publicCourses)
	resp.Body.Close()
	if len(publicCourses) != 1 || publicCourses[0].Title != "Live" {
		t.Errorf("public listing = %+v, want only 'Live'", publicCourses)
	}

	// The admin listing includes drafts.
	resp = env.do(t, http.MethodGet, "/api/courses", adminToken, nil)
	var adminCourses []models.Course
	json.NewDecoder(resp.Body).Decode(&adminCourses)
	resp.Body.Close()
	if len(adminCourses) != 2 {
		t.Errorf("admin listing has %d courses, want 2", len(adminCourses))
	}
}

func TestSessionEndpointsOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	token := env.loginAs(t, "alice@elira.hu", "alice-pass-123", false)

	resp := env.do(t, http.MethodGet, "/api/session/status", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status endpoint = %d", resp.StatusCode)
	}
	var status models.SessionStatusResponse
	json.NewDecoder(resp.Body).Decode(&status)
	resp.Body.Close()
	if status.RemainingTime <= 0 {
		t.Errorf("RemainingTime = %d, want positive", status.RemainingTime)
	}

	resp = env.do(t, http.MethodPost, "/api/session/extend", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("extend endpoint = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/api/session/logout", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout endpoint = %d", resp.StatusCode)
	}
	resp.Body.Close()

	// After logout the session record is gone; activity-guarded routes 401.
	resp = env.do(t, http.MethodPost, "/api/session/extend", token, nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("extend after logout = %d, want 401", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestAdminRoutesRejectNonAdmins(t *testing.T) {
	env := newTestEnv(t)
	aliceToken := env.loginAs(t, "alice@elira.hu", "alice-pass-123", false)

	resp := env.do(t, http.MethodPost, "/api/courses", aliceToken, models.CourseRequest{Title: "Nope"})
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("create course as user = %d, want 403", resp.StatusCode)
	}
	resp.Body.Close()

	resp = env.do(t, http.MethodGet, "/api/admin/connections", aliceToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("stats as user = %d, want 403", resp.StatusCode)
	}
	resp.Body.Close()
}
