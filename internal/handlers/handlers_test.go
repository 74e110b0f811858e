package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siteops-backend/internal/database"
	"siteops-backend/internal/middleware"
	"siteops-backend/internal/models"
	"siteops-backend/internal/safety"
	"siteops-backend/internal/services"
	"siteops-backend/internal/store"
)

const testSecret = "handlers-secret"

var (
	supervisor = middleware.UserClaims{UserID: "u-2", Email: "lisa.chen@company.com", Name: "Lisa Chen", Role: "supervisor"}
	operator   = middleware.UserClaims{UserID: "u-1", Email: "john.smith@company.com", Name: "John Smith", Role: "operator"}
)

type stubCompleter struct {
	prompt string
	reply  string
}

func (s *stubCompleter) Complete(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.reply, nil
}

type testEnv struct {
	store   *store.Store
	monitor *safety.Monitor
	router  chi.Router
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("APP_JWT_SECRET", testSecret)

	st := store.New(store.NewMemoryBackend())
	require.NoError(t, st.InitializeDefaults(context.Background()))
	monitor := safety.NewMonitor(safety.DefaultConfig(), st)
	tasks := services.NewTaskService(st)
	prioritizer := services.NewTaskPrioritizer()

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth)
		r.Get("/auth/status", AuthStatus())

		r.Get("/operators", ListOperators(st))
		r.Get("/operators/{id}", GetOperator(st))
		r.Patch("/operators/{id}/location", UpdateOperatorLocation(st, nil))
		r.Get("/operators/{id}/nearby-tasks", NearbyTasks(st, prioritizer))
		r.Get("/operators/{id}/task-route", TaskRoute(st, prioritizer))
		r.Get("/machines/{id}", GetMachine(st))
		r.Get("/locations/distance", LocationDistance(st))

		r.Get("/tasks", ListTasks(tasks))
		r.Post("/tasks", CreateTask(tasks))
		r.Post("/tasks/{id}/status", ChangeTaskStatus(tasks))
		r.Post("/tasks/{id}/progress", UpdateTaskProgress(tasks))
		r.Get("/analytics/tasks", GetTaskAnalytics(tasks))

		r.Post("/safety/check", CheckNow(monitor))
		r.Get("/safety/alerts", ListAlerts(monitor))
		r.Delete("/safety/alerts/{id}", DismissAlert(monitor))
		r.Post("/safety/alerts/{id}/emergency", EmergencyStop(monitor))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole("supervisor", "admin"))
			r.Post("/operators", CreateOperator(st))
			r.Delete("/tasks/{id}", DeleteTask(tasks))
			r.Post("/admin/reset-data", ResetData(st, monitor))
		})
	})

	return &testEnv{store: st, monitor: monitor, router: r}
}

func (e *testEnv) do(t *testing.T, claims middleware.UserClaims, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	token, err := middleware.IssueToken(claims)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}

func TestRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/api/operators", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var body map[string]interface{}
	decode(t, rec, &body)
	assert.Equal(t, false, body["success"])
}

func TestNearbyTasksSortedByDistance(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, supervisor, http.MethodPatch, "/api/operators/1/location", map[string]interface{}{"x": 0, "y": 0, "zone": "west"})
	require.Equal(t, http.StatusOK, rec.Code)
	var moved models.Operator
	decode(t, rec, &moved)
	assert.Equal(t, models.Coordinate{X: 0, Y: 0, Zone: "west"}, *moved.CurrentLocation)
	assert.NotEmpty(t, moved.LastLocationUpdate)

	rec = env.do(t, supervisor, http.MethodGet, "/api/operators/1/nearby-tasks?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var tasks []models.Task
	decode(t, rec, &tasks)
	require.Len(t, tasks, 2)
	assert.Equal(t, 3, tasks[0].ID)
	assert.Equal(t, 1, tasks[1].ID)
	assert.InDelta(t, 111.8, *tasks[0].DistanceFromOperator, 0.1)

	rec = env.do(t, supervisor, http.MethodGet, "/api/operators/1/nearby-tasks?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, supervisor, http.MethodGet, "/api/operators/99/nearby-tasks", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, supervisor, http.MethodPatch, "/api/operators/1/location", map[string]interface{}{"x": 5})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOperatorMovesOnlyThemselves(t *testing.T) {
	env := newTestEnv(t)
	hazard := map[string]interface{}{"x": 350, "y": 250}

	rec := env.do(t, operator, http.MethodPatch, "/api/operators/2/location", hazard)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	sarah, err := env.store.Operator(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 295.0, sarah.CurrentLocation.X)

	stranger := middleware.UserClaims{UserID: "u-9", Email: "temp@company.com", Name: "Temp", Role: "operator"}
	rec = env.do(t, stranger, http.MethodPatch, "/api/operators/1/location", hazard)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, operator, http.MethodPatch, "/api/operators/1/location", map[string]interface{}{"x": 10, "y": 20})
	require.Equal(t, http.StatusOK, rec.Code)
	var moved models.Operator
	decode(t, rec, &moved)
	assert.Equal(t, 1, moved.ID)
	assert.Equal(t, 10.0, moved.CurrentLocation.X)
}

func TestTaskRouteOnlyOpenAssignedTasks(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, supervisor, http.MethodGet, "/api/operators/1/task-route", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Operator string        `json:"operator"`
		Tasks    []models.Task `json:"tasks"`
	}
	decode(t, rec, &body)
	assert.Equal(t, "John Smith", body.Operator)
	require.Len(t, body.Tasks, 1)
	assert.Equal(t, 1, body.Tasks[0].ID)
}

func TestCreateOperatorRequiresSupervisor(t *testing.T) {
	env := newTestEnv(t)
	newOp := map[string]interface{}{"name": "Ravi Kumar", "email": "ravi@company.com"}

	rec := env.do(t, operator, http.MethodPost, "/api/operators", newOp)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, supervisor, http.MethodPost, "/api/operators", newOp)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created models.Operator
	decode(t, rec, &created)
	assert.Equal(t, 5, created.ID)
	assert.Equal(t, models.RoleOperator, created.Role)
	assert.Equal(t, models.OperatorOffline, created.Status)

	rec = env.do(t, supervisor, http.MethodPost, "/api/operators", map[string]interface{}{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLocationDistance(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, operator, http.MethodGet, "/api/locations/distance?operator_id=3&location=Safety%20Station", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	decode(t, rec, &body)
	assert.InDelta(t, 45.0, body["distance"], 0.001)

	rec = env.do(t, operator, http.MethodGet, "/api/locations/distance?operator_id=3&location=Nowhere", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, operator, http.MethodGet, "/api/locations/distance", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOperatorSeesOnlyOwnTasks(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, operator, http.MethodGet, "/api/tasks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var tasks []models.Task
	decode(t, rec, &tasks)
	require.Len(t, tasks, 1)
	assert.Equal(t, "John Smith", tasks[0].AssignedOperator)

	rec = env.do(t, supervisor, http.MethodGet, "/api/tasks?priority=high", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &tasks)
	assert.Len(t, tasks, 2)
}

func TestTaskEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, supervisor, http.MethodPost, "/api/tasks", map[string]interface{}{
		"title":            "Compact access road",
		"assignedOperator": "John Smith",
		"location":         "Construction Zone B",
		"priority":         "low",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var task models.Task
	decode(t, rec, &task)
	assert.Equal(t, 5, task.ID)

	rec = env.do(t, operator, http.MethodPost, "/api/tasks/5/status", map[string]interface{}{"status": "done"})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &task)
	assert.Equal(t, models.TaskDone, task.Status)
	assert.Equal(t, 100, task.Progress)

	rec = env.do(t, operator, http.MethodPost, "/api/tasks/5/status", map[string]interface{}{"status": "paused"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, operator, http.MethodPost, "/api/tasks/2/progress", map[string]interface{}{"progress": 140})
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &task)
	assert.Equal(t, 100, task.Progress)

	rec = env.do(t, operator, http.MethodPost, "/api/tasks/2/progress", map[string]interface{}{"notes": "no number"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, operator, http.MethodDelete, "/api/tasks/5", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, supervisor, http.MethodDelete, "/api/tasks/5", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, supervisor, http.MethodDelete, "/api/tasks/5", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTaskAnalyticsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, supervisor, http.MethodGet, "/api/analytics/tasks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var a services.TaskAnalytics
	decode(t, rec, &a)
	assert.Equal(t, 4, a.TotalTasks)
	assert.Equal(t, 6, a.TotalHoursLogged)
	assert.Len(t, a.ProgressBuckets, 4)
}

func TestProximityAlertEmergencyFlow(t *testing.T) {
	env := newTestEnv(t)

	// Sarah walks up to John's excavator at (100,200)
	rec := env.do(t, supervisor, http.MethodPatch, "/api/operators/2/location", map[string]interface{}{"x": 100, "y": 205})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, supervisor, http.MethodPost, "/api/safety/check", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var result safety.TickResult
	decode(t, rec, &result)
	require.Len(t, result.Raised, 1)
	require.NotNil(t, result.Cue)

	rec = env.do(t, supervisor, http.MethodGet, "/api/safety/alerts", nil)
	var alerts []models.Alert
	decode(t, rec, &alerts)
	require.Len(t, alerts, 1)
	alert := alerts[0]
	assert.Equal(t, models.SeverityCritical, alert.Severity)
	assert.Equal(t, "proximity:2:1", alert.ConditionKey)

	rec = env.do(t, supervisor, http.MethodPost, "/api/safety/alerts/"+alert.ID+"/emergency", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, supervisor, http.MethodGet, "/api/machines/1", nil)
	var machine models.Machine
	decode(t, rec, &machine)
	assert.Equal(t, models.MachineEmergencyStop, machine.Status)

	assert.Empty(t, env.monitor.Alerts())

	rec = env.do(t, supervisor, http.MethodDelete, "/api/safety/alerts/"+alert.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResetDataRestoresSeed(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, supervisor, http.MethodPatch, "/api/operators/1/location", map[string]interface{}{"x": 1, "y": 1})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, supervisor, http.MethodPost, "/api/admin/reset-data", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	op, err := env.store.Operator(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 105.0, op.CurrentLocation.X)
}

func TestVideoPath(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]bool{
		"safety.mp4":       true,
		"":                 false,
		"..":               false,
		"../etc/passwd":    false,
		"clips/intro.mp4":  false,
		`clips\intro.mp4`:  false,
		"training day.mp4": true,
	}
	for name, want := range cases {
		path, ok := videoPath(dir, name)
		assert.Equal(t, want, ok, name)
		if ok {
			assert.Equal(t, filepath.Join(dir, name), path)
		}
	}
}

func TestVideoInfo(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "loader.mp4"), make([]byte, 2048), 0o644))

	r := chi.NewRouter()
	r.Get("/api/video-info/{filename}", VideoInfo(dir))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/video-info/loader.mp4", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	decode(t, rec, &body)
	assert.Equal(t, float64(2048), body["size"])
	assert.Equal(t, "0.00 MB", body["sizeFormatted"])

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/video-info/missing.mp4", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTranscribeVideoValidation(t *testing.T) {
	svc := services.NewTranscriptionService(nil, services.NewSpeechClient("", ""), t.TempDir(), services.NewTranscriptCache(10, 0))
	h := TranscribeVideo(svc, t.TempDir())

	cases := []struct {
		body   string
		status int
		error  string
	}{
		{`{}`, http.StatusBadRequest, "Video file name is required"},
		{`{"videoFileName":"../secret.mp4"}`, http.StatusBadRequest, "Invalid video file name"},
		{`{"videoFileName":"intro.mp4"}`, http.StatusInternalServerError, "Server dependencies not ready"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodPost, "/api/transcribe-video", bytes.NewBufferString(tc.body)))
		assert.Equal(t, tc.status, rec.Code, tc.body)
		var body map[string]interface{}
		decode(t, rec, &body)
		assert.Equal(t, tc.error, body["error"], tc.body)
	}
}

func TestChatHandler(t *testing.T) {
	completer := &stubCompleter{reply: "Check the mirrors before reversing."}
	h := Chat(services.NewChatService(completer))

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString(
		`{"transcribedText":"Always check mirrors.","userMessage":"What first?","chatHistory":[]}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	var reply services.ChatReply
	decode(t, rec, &reply)
	assert.True(t, reply.Success)
	assert.Equal(t, "Check the mirrors before reversing.", reply.Message)
	assert.Contains(t, completer.prompt, "Always check mirrors.")

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString(`{"transcribedText":"x"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginAndStatus(t *testing.T) {
	t.Setenv("APP_JWT_SECRET", testSecret)
	db, err := database.Connect(filepath.Join(t.TempDir(), "site.db"))
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, database.Migrate(db))
	require.NoError(t, database.SeedUsers(db))

	login := Login(db)

	rec := httptest.NewRecorder()
	login(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(
		`{"email":"lisa.chen@company.com","password":"wrong"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	login(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(
		`{"email":"lisa.chen@company.com","password":"supervisor123"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp LoginResponse
	decode(t, rec, &resp)
	require.True(t, resp.Success)
	assert.Equal(t, "supervisor", resp.User.Role)

	claims, err := middleware.ParseToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "Lisa Chen", claims.Name)

	rec = httptest.NewRecorder()
	req := middleware.WithUser(httptest.NewRequest(http.MethodGet, "/api/auth/status", nil), claims)
	AuthStatus()(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
