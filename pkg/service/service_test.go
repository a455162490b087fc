package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/workforce/tracker/pkg/cache"
	"github.com/workforce/tracker/pkg/client"
	"github.com/workforce/tracker/pkg/config"
	"github.com/workforce/tracker/pkg/credentials"
	apperrors "github.com/workforce/tracker/pkg/errors"
	"github.com/workforce/tracker/pkg/hours"
	"github.com/workforce/tracker/pkg/output"
	"github.com/workforce/tracker/pkg/prompter"
	"github.com/workforce/tracker/pkg/tracker"
)

// hrServer is a minimal HR backend: one user, one attendance row, three
// assigned tasks
type hrServer struct {
	t     *testing.T
	clock clockwork.Clock
	srv   *httptest.Server

	mu          sync.Mutex
	running     bool
	worked      int
	taskID      int64
	taskStart   time.Time
	revoked     bool
	revokeAfter string // revokes the session once this path has been served
	calls       []string
}

var assignedTasks = map[int64]string{
	11: "Payroll run",
	12: "Audit prep",
	13: "Old report",
}

func newHRServer(t *testing.T, clock clockwork.Clock) *hrServer {
	hr := &hrServer{t: t, clock: clock}
	hr.srv = httptest.NewServer(http.HandlerFunc(hr.handle))
	t.Cleanup(hr.srv.Close)
	return hr
}

func (hr *hrServer) handle(w http.ResponseWriter, r *http.Request) {
	hr.mu.Lock()
	defer hr.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	reply := func(status int, body string) {
		w.WriteHeader(status)
		io.WriteString(w, body)
	}

	if r.URL.Path == "/auth/login" {
		var req struct{ Email, Password string }
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "secret" {
			reply(http.StatusUnauthorized, `{"detail": "Invalid credentials"}`)
			return
		}
		reply(http.StatusOK, fmt.Sprintf(`{"access_token": %q, "role": "employee", "force_password_change": false}`, testToken(hr.t)))
		return
	}

	if hr.revoked || r.Header.Get("Authorization") == "" {
		reply(http.StatusUnauthorized, `{"detail": "Could not validate credentials"}`)
		return
	}

	hr.calls = append(hr.calls, r.Method+" "+r.URL.Path)
	if hr.revokeAfter == r.URL.Path {
		hr.revoked = true
	}
	switch {
	case r.URL.Path == "/attendance/active":
		reply(http.StatusOK, fmt.Sprintf(`{"is_running": %t, "worked_seconds": %d}`, hr.running, hr.worked))
	case r.URL.Path == "/attendance/clock-in":
		if hr.running {
			reply(http.StatusBadRequest, `{"detail": "Already clocked in"}`)
			return
		}
		hr.running = true
		reply(http.StatusOK, fmt.Sprintf(`{"worked_seconds": %d}`, hr.worked))
	case r.URL.Path == "/attendance/clock-out":
		hr.running = false
		hr.taskID = 0
		reply(http.StatusOK, `{"message": "Clocked out"}`)
	case r.URL.Path == "/attendance/summary":
		reply(http.StatusOK, `{"attendance_seconds": 3600, "task_seconds": 1800, "idle_seconds": 1800, "overtime_seconds": 0}`)
	case r.URL.Path == "/tasks/":
		reply(http.StatusOK, `[
			{"id": 11, "title": "Payroll run", "status": "in_progress"},
			{"id": 12, "title": "Audit prep", "status": "pending", "priority": "high"},
			{"id": 13, "title": "Old report", "status": "completed"}
		]`)
	case r.URL.Path == "/tasks/active":
		if hr.taskID == 0 {
			reply(http.StatusOK, `null`)
			return
		}
		reply(http.StatusOK, fmt.Sprintf(`{"task_id": %d, "task_title": %q, "start_time": %q}`,
			hr.taskID, assignedTasks[hr.taskID], hr.taskStart.UTC().Format("2006-01-02T15:04:05")))
	case strings.HasSuffix(r.URL.Path, "/start"):
		var id int64
		fmt.Sscanf(r.URL.Path, "/tasks/%d/start", &id)
		if _, ok := assignedTasks[id]; !ok {
			reply(http.StatusNotFound, `{"detail": "Task not found"}`)
			return
		}
		hr.taskID = id
		hr.taskStart = hr.clock.Now()
		reply(http.StatusOK, `{"message": "Task started"}`)
	case strings.HasSuffix(r.URL.Path, "/stop"):
		hr.taskID = 0
		reply(http.StatusOK, `{"message": "Task stopped"}`)
	default:
		reply(http.StatusNotFound, `{"detail": "Not Found"}`)
	}
}

func (hr *hrServer) set(fn func(hr *hrServer)) {
	hr.mu.Lock()
	defer hr.mu.Unlock()
	fn(hr)
}

func (hr *hrServer) called(call string) bool {
	hr.mu.Lock()
	defer hr.mu.Unlock()
	for _, c := range hr.calls {
		if c == call {
			return true
		}
	}
	return false
}

func testToken(t *testing.T) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "7",
		"role": "employee",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("server-secret"))
	require.NoError(t, err)
	return token
}

// syncBuffer is written by the watch goroutines while the test reads it
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fixture struct {
	hr    *hrServer
	clock *clockwork.FakeClock
	out   *syncBuffer
	svc   *TrackerService
}

func setup(t *testing.T) *fixture {
	t.Helper()
	require.NoError(t, config.Init(filepath.Join(t.TempDir(), "config.toml")))

	clock := clockwork.NewFakeClockAt(time.Date(2026, 10, 14, 10, 0, 0, 0, hours.IST))
	hr := newHRServer(t, clock)
	config.Set("api.base_url", hr.srv.URL)
	config.Set("ws.enabled", false)
	client.Init()

	out := &syncBuffer{}
	t.Cleanup(output.Redirect(out))

	return &fixture{
		hr:    hr,
		clock: clock,
		out:   out,
		svc:   &TrackerService{clock: clock, prompt: prompter.New(strings.NewReader(""), io.Discard, -1)},
	}
}

func (f *fixture) login(t *testing.T) {
	t.Helper()
	require.NoError(t, credentials.Save(&credentials.Credentials{
		AccessToken: testToken(t),
		ExpiresAt:   time.Now().Add(time.Hour),
		UserID:      "7",
		Email:       "asha@example.com",
		Role:        "employee",
	}))
}

func (f *fixture) decode(t *testing.T, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(f.out.String()), v), f.out.String())
}

func TestLogin(t *testing.T) {
	f := setup(t)
	svc := &AuthService{prompt: prompter.New(strings.NewReader(""), io.Discard, -1)}

	require.NoError(t, svc.Login(context.Background(), "asha@example.com", "secret"))

	creds, err := credentials.Load()
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, "7", creds.UserID)
	assert.Equal(t, "employee", creds.Role)
	assert.True(t, creds.IsValid())
	assert.Contains(t, f.out.String(), "Login successful")
}

func TestLogin_PromptsForPassword(t *testing.T) {
	setup(t)
	svc := &AuthService{prompt: prompter.New(strings.NewReader("secret\n"), io.Discard, -1)}

	require.NoError(t, svc.Login(context.Background(), "asha@example.com", ""))

	creds, err := credentials.Load()
	require.NoError(t, err)
	require.NotNil(t, creds)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	setup(t)
	svc := &AuthService{prompt: prompter.New(strings.NewReader(""), io.Discard, -1)}

	err := svc.Login(context.Background(), "asha@example.com", "wrong")
	require.Error(t, err)

	creds, err := credentials.Load()
	require.NoError(t, err)
	assert.Nil(t, creds)
}

func TestLogout(t *testing.T) {
	f := setup(t)
	f.login(t)
	require.NoError(t, snapshotCache().Save("7", tracker.Snapshot{LastSync: f.clock.Now(), At: f.clock.Now()}))

	svc := &AuthService{prompt: prompter.New(strings.NewReader(""), io.Discard, -1)}
	require.NoError(t, svc.Logout(true))

	creds, err := credentials.Load()
	require.NoError(t, err)
	assert.Nil(t, creds)

	_, ok, err := snapshotCache().Load("7", f.clock.Now(), cache.DefaultMaxAge)
	require.NoError(t, err)
	assert.False(t, ok, "logout should clear the snapshot cache")
}

func TestLogout_Declined(t *testing.T) {
	f := setup(t)
	f.login(t)

	svc := &AuthService{prompt: prompter.New(strings.NewReader("n\n"), io.Discard, -1)}
	require.NoError(t, svc.Logout(false))

	creds, err := credentials.Load()
	require.NoError(t, err)
	assert.NotNil(t, creds)
}

func TestMe(t *testing.T) {
	f := setup(t)
	f.login(t)
	config.Set("output.format", "json")

	svc := &AuthService{prompt: prompter.New(strings.NewReader(""), io.Discard, -1)}
	require.NoError(t, svc.Me())

	var me meOutput
	f.decode(t, &me)
	assert.Equal(t, "7", me.UserID)
	assert.Equal(t, "asha@example.com", me.Email)
}

func TestStatus_NotLoggedIn(t *testing.T) {
	f := setup(t)

	err := f.svc.Status(context.Background())

	var cliErr *apperrors.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, apperrors.ErrorTypeAuth, cliErr.Type)
}

func TestStatus_ExpiredCredentials(t *testing.T) {
	f := setup(t)
	require.NoError(t, credentials.Save(&credentials.Credentials{
		AccessToken: "stale",
		ExpiresAt:   time.Now().Add(-time.Minute),
		UserID:      "7",
	}))

	err := f.svc.Status(context.Background())

	var cliErr *apperrors.CLIError
	require.True(t, errors.As(err, &cliErr))
	assert.Equal(t, apperrors.ErrorTypeSessionExpired, cliErr.Type)

	creds, err := credentials.Load()
	require.NoError(t, err)
	assert.Nil(t, creds)
}

func TestStatus(t *testing.T) {
	f := setup(t)
	f.login(t)
	f.hr.set(func(hr *hrServer) {
		hr.running = true
		hr.worked = 42
	})

	require.NoError(t, f.svc.Status(context.Background()))

	out := f.out.String()
	assert.Contains(t, out, "Clocked In")
	assert.Contains(t, out, "00:00:42")
	assert.Contains(t, out, "none")

	_, ok, err := snapshotCache().Load("7", f.clock.Now(), cache.DefaultMaxAge)
	require.NoError(t, err)
	assert.True(t, ok, "status should cache the snapshot")
}

func TestStatus_JSON(t *testing.T) {
	f := setup(t)
	f.login(t)
	config.Set("output.format", "json")
	f.hr.set(func(hr *hrServer) { hr.worked = 600 })

	require.NoError(t, f.svc.Status(context.Background()))

	var got statusOutput
	f.decode(t, &got)
	assert.False(t, got.Snapshot.IsClockedIn)
	assert.Equal(t, 600, got.Snapshot.AttendanceSeconds)
	assert.Equal(t, "00:10:00", got.View.AttendanceText)
	assert.Equal(t, "Clock In", got.View.Clock.Label)
}

func TestSessionRejectedClearsCredentials(t *testing.T) {
	f := setup(t)
	f.login(t)
	f.hr.set(func(hr *hrServer) { hr.revoked = true })

	err := f.svc.Status(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, tracker.ErrSessionInvalid)

	creds, err := credentials.Load()
	require.NoError(t, err)
	assert.Nil(t, creds)
}

func TestClockInAndOut(t *testing.T) {
	f := setup(t)
	f.login(t)
	f.hr.set(func(hr *hrServer) { hr.worked = 120 })
	ctx := context.Background()

	require.NoError(t, f.svc.ClockIn(ctx))
	assert.Contains(t, f.out.String(), "Clocked in at 10:00:00 IST")
	assert.True(t, f.hr.called("POST /attendance/clock-in"))

	require.NoError(t, f.svc.StartTask(ctx, 11))
	assert.Contains(t, f.out.String(), "Started #11 Payroll run")

	require.NoError(t, f.svc.ClockOut(ctx))
	out := f.out.String()
	assert.Contains(t, out, "Stopping #11")
	assert.Contains(t, out, "Clocked out at")
	assert.True(t, f.hr.called("POST /tasks/11/stop"))
	assert.True(t, f.hr.called("POST /attendance/clock-out"))
}

func TestClockIn_AlreadyClockedIn(t *testing.T) {
	f := setup(t)
	f.login(t)
	f.hr.set(func(hr *hrServer) { hr.running = true })

	err := f.svc.ClockIn(context.Background())
	assert.ErrorIs(t, err, tracker.ErrAlreadyClockedIn)
	assert.False(t, f.hr.called("POST /attendance/clock-in"))
}

func TestClockIn_DuringBreak(t *testing.T) {
	f := setup(t)
	f.login(t)
	f.clock.Advance(3*time.Hour + 15*time.Minute)

	err := f.svc.ClockIn(context.Background())
	assert.ErrorIs(t, err, tracker.ErrBreakTime)
}

func TestStartTask_Prompt(t *testing.T) {
	f := setup(t)
	f.login(t)
	f.hr.set(func(hr *hrServer) { hr.running = true })
	// completed tasks are not offered, so option 2 is "Audit prep"
	f.svc.prompt = prompter.New(strings.NewReader("2\n"), io.Discard, -1)

	require.NoError(t, f.svc.StartTask(context.Background(), 0))

	assert.True(t, f.hr.called("POST /tasks/12/start"))
	assert.Contains(t, f.out.String(), "Started #12 Audit prep")
}

func TestStartTask_NotClockedIn(t *testing.T) {
	f := setup(t)
	f.login(t)

	err := f.svc.StartTask(context.Background(), 11)
	assert.ErrorIs(t, err, tracker.ErrNotClockedIn)
	assert.False(t, f.hr.called("POST /tasks/11/start"))
}

func TestStartTask_UnknownTask(t *testing.T) {
	f := setup(t)
	f.login(t)
	f.hr.set(func(hr *hrServer) { hr.running = true })

	err := f.svc.StartTask(context.Background(), 99)

	var cliErr *apperrors.CLIError
	require.True(t, errors.As(err, &cliErr), "got %v", err)
	assert.Equal(t, apperrors.ErrorTypeNotFound, cliErr.Type)
	assert.Equal(t, "Task not found: 99", cliErr.Message)
}

func TestClockOut_SessionRevokedDuringReconcile(t *testing.T) {
	f := setup(t)
	f.login(t)
	f.hr.set(func(hr *hrServer) {
		hr.running = true
		hr.revokeAfter = "/attendance/clock-out"
	})

	require.NoError(t, f.svc.ClockOut(context.Background()))

	creds, err := credentials.Load()
	require.NoError(t, err)
	assert.Nil(t, creds, "the rejected reconcile should clear the session")

	_, ok, err := snapshotCache().Load("7", f.clock.Now(), cache.DefaultMaxAge)
	require.NoError(t, err)
	assert.False(t, ok, "nothing is cached for a rejected session")
}

func TestSummary_SessionRejected(t *testing.T) {
	f := setup(t)
	f.login(t)
	f.hr.set(func(hr *hrServer) { hr.revoked = true })

	assert.ErrorIs(t, f.svc.Summary(context.Background()), tracker.ErrSessionInvalid)

	creds, err := credentials.Load()
	require.NoError(t, err)
	assert.Nil(t, creds)
}

func TestStopTask(t *testing.T) {
	f := setup(t)
	f.login(t)
	f.hr.set(func(hr *hrServer) {
		hr.running = true
		hr.taskID = 12
		hr.taskStart = f.clock.Now().Add(-90 * time.Second)
	})

	require.NoError(t, f.svc.StopTask(context.Background()))
	assert.True(t, f.hr.called("POST /tasks/12/stop"))
	assert.Contains(t, f.out.String(), "Stopped #12")
}

func TestStopTask_NoTask(t *testing.T) {
	f := setup(t)
	f.login(t)
	f.hr.set(func(hr *hrServer) { hr.running = true })

	assert.ErrorIs(t, f.svc.StopTask(context.Background()), tracker.ErrNoActiveTask)
}

func TestActiveTask(t *testing.T) {
	f := setup(t)
	f.login(t)
	f.hr.set(func(hr *hrServer) {
		hr.running = true
		hr.taskID = 12
		hr.taskStart = f.clock.Now().Add(-90 * time.Second)
	})

	require.NoError(t, f.svc.ActiveTask(context.Background()))
	out := f.out.String()
	assert.Contains(t, out, "Audit prep")
	assert.Contains(t, out, "00:01:30")
}

func TestListTasks(t *testing.T) {
	f := setup(t)
	f.login(t)
	config.Set("output.format", "json")

	require.NoError(t, f.svc.ListTasks(context.Background()))

	var tasks []map[string]interface{}
	f.decode(t, &tasks)
	assert.Len(t, tasks, 3)
}

func TestSummary(t *testing.T) {
	f := setup(t)
	f.login(t)
	config.Set("output.format", "json")

	require.NoError(t, f.svc.Summary(context.Background()))

	var got summaryOutput
	f.decode(t, &got)
	assert.Equal(t, 3600, got.AttendanceSeconds)
	assert.Equal(t, "01:00:00", got.Attendance)
	assert.Equal(t, "00:30:00", got.Idle)
}

func waitForOutput(t *testing.T, out *syncBuffer, want string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !strings.Contains(out.String(), want) {
		if time.Now().After(deadline) {
			t.Fatalf("output never contained %q:\n%s", want, out.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestWatch(t *testing.T) {
	f := setup(t)
	f.login(t)
	f.hr.set(func(hr *hrServer) {
		hr.running = true
		hr.worked = 42
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.svc.Watch(ctx) }()

	waitForOutput(t, f.out, "00:00:42")
	assert.Contains(t, f.out.String(), "Clocked In")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}

	snap, ok, err := snapshotCache().Load("7", f.clock.Now(), cache.DefaultMaxAge)
	require.NoError(t, err)
	require.True(t, ok, "watch should cache its last snapshot")
	assert.True(t, snap.IsClockedIn)
}

func TestWatch_LogoutElsewhere(t *testing.T) {
	f := setup(t)
	f.login(t)

	done := make(chan error, 1)
	go func() { done <- f.svc.Watch(context.Background()) }()

	waitForOutput(t, f.out, "Clocked Out")
	// give the credentials watcher time to register
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, credentials.Delete())

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Watch did not stop after logout")
	}
	assert.Contains(t, f.out.String(), "Logged out in another session")
}

func TestWatch_SessionRejected(t *testing.T) {
	f := setup(t)
	f.login(t)
	f.hr.set(func(hr *hrServer) { hr.revoked = true })

	err := f.svc.Watch(context.Background())
	assert.ErrorIs(t, err, tracker.ErrSessionInvalid)
}

func TestLatestKeepsNewest(t *testing.T) {
	l := newLatest()
	l.put(tracker.Event{Kind: tracker.EventTick})
	l.put(tracker.Event{Kind: tracker.EventStateChanged})

	ev := <-l.ch
	assert.Equal(t, tracker.EventStateChanged, ev.Kind)
	assert.Empty(t, l.ch)
}

func TestScreenSkipsTicksAndRepeats(t *testing.T) {
	var buf bytes.Buffer
	scr := &screen{w: &buf}
	snap := tracker.Snapshot{At: time.Date(2026, 10, 14, 10, 0, 0, 0, hours.IST), IsClockedIn: true, AttendanceSeconds: 5}

	scr.draw(tracker.Event{Kind: tracker.EventStateChanged, Snapshot: snap})
	scr.draw(tracker.Event{Kind: tracker.EventGate, Snapshot: snap})
	snap.AttendanceSeconds = 6
	scr.draw(tracker.Event{Kind: tracker.EventTick, Snapshot: snap})

	assert.Equal(t, 1, strings.Count(buf.String(), "\n"))
	assert.Contains(t, buf.String(), "00:00:05")
}
