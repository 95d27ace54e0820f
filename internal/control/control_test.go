package control

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type fakeSnapshot struct {
	status    Status
	endpoints []Endpoint
	rules     RulesInfo
}

func (f *fakeSnapshot) Status() Status        { return f.status }
func (f *fakeSnapshot) Endpoints() []Endpoint { return f.endpoints }
func (f *fakeSnapshot) Rules() RulesInfo      { return f.rules }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSocket(t *testing.T) string {
	t.Helper()
	// Unix socket paths are length-limited, keep it short.
	return filepath.Join(t.TempDir(), "s.sock")
}

func startServer(t *testing.T, snap Snapshotter) (*Server, string) {
	t.Helper()
	srv := NewServer(snap, testLogger())
	sock := testSocket(t)
	if err := srv.Start(sock); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() { srv.Close() })
	return srv, sock
}

func TestStatusRoundTrip(t *testing.T) {
	snap := &fakeSnapshot{
		status: Status{
			Version:         "1.2.3",
			RunID:           "run-1",
			PID:             42,
			ClientName:      "seqlinkd",
			SequencerClient: 128,
			SoftwareClients: 2,
			HardwareClients: 1,
			LinksMade:       7,
		},
	}
	_, sock := startServer(t, snap)

	client := NewClient(sock)
	got, err := client.Status(context.Background())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if got.Version != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %q", got.Version)
	}
	if got.PID != 42 {
		t.Errorf("expected pid 42, got %d", got.PID)
	}
	if got.SoftwareClients != 2 || got.HardwareClients != 1 {
		t.Errorf("expected client counts 2/1, got %d/%d", got.SoftwareClients, got.HardwareClients)
	}
	if got.LinksMade != 7 {
		t.Errorf("expected 7 links, got %d", got.LinksMade)
	}
}

func TestEndpointsRoundTrip(t *testing.T) {
	snap := &fakeSnapshot{
		endpoints: []Endpoint{
			{Client: 20, Name: "MySynth", Role: "software", Input: "20:0", Output: "20:1"},
			{Client: 24, Name: "USB Keys", Role: "hardware", Output: "24:0"},
		},
	}
	_, sock := startServer(t, snap)

	client := NewClient(sock)
	got, err := client.Endpoints(context.Background())
	if err != nil {
		t.Fatalf("endpoints: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 endpoints, got %d", len(got))
	}
	if got[0].Name != "MySynth" || got[0].Role != "software" {
		t.Errorf("unexpected first endpoint: %+v", got[0])
	}
	if got[1].Output != "24:0" || got[1].Input != "" {
		t.Errorf("unexpected second endpoint: %+v", got[1])
	}
}

func TestEndpointsEmpty(t *testing.T) {
	_, sock := startServer(t, &fakeSnapshot{})

	client := NewClient(sock)
	got, err := client.Endpoints(context.Background())
	if err != nil {
		t.Fatalf("endpoints: %v", err)
	}
	if got == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(got) != 0 {
		t.Errorf("expected no endpoints, got %d", len(got))
	}
}

func TestRulesRoundTrip(t *testing.T) {
	snap := &fakeSnapshot{
		rules: RulesInfo{Path: "/etc/seqlinkd/rules.conf", AllowRules: 3, DisallowRules: 1},
	}
	_, sock := startServer(t, snap)

	client := NewClient(sock)
	got, err := client.Rules(context.Background())
	if err != nil {
		t.Fatalf("rules: %v", err)
	}
	if got.Path != "/etc/seqlinkd/rules.conf" {
		t.Errorf("unexpected path %q", got.Path)
	}
	if got.AllowRules != 3 || got.DisallowRules != 1 {
		t.Errorf("expected rule counts 3/1, got %d/%d", got.AllowRules, got.DisallowRules)
	}
}

func TestUnknownPathReturns404(t *testing.T) {
	_, sock := startServer(t, &fakeSnapshot{})

	client := NewClient(sock)
	err := client.get(context.Background(), "/v1/nope", &struct{}{})
	if err == nil {
		t.Fatal("expected error for unknown path")
	}
}

func TestMethodNotAllowed(t *testing.T) {
	_, sock := startServer(t, &fakeSnapshot{})

	httpClient := NewClient(sock).http
	req, err := http.NewRequest(http.MethodPost, "http://seqlinkd/v1/status", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", resp.StatusCode)
	}
}

func TestStartReplacesStaleSocket(t *testing.T) {
	sock := testSocket(t)
	if err := os.WriteFile(sock, nil, 0o600); err != nil {
		t.Fatalf("plant stale socket: %v", err)
	}

	srv := NewServer(&fakeSnapshot{}, testLogger())
	if err := srv.Start(sock); err != nil {
		t.Fatalf("start over stale socket: %v", err)
	}
	defer srv.Close()

	client := NewClient(sock)
	if _, err := client.Status(context.Background()); err != nil {
		t.Fatalf("status after stale replacement: %v", err)
	}
}

func TestCloseRemovesSocket(t *testing.T) {
	srv, sock := startServer(t, &fakeSnapshot{})
	if err := srv.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := os.Stat(sock); !os.IsNotExist(err) {
		t.Errorf("expected socket removed, stat err = %v", err)
	}
}

func TestClientErrorsWithoutDaemon(t *testing.T) {
	client := NewClient(testSocket(t))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := client.Status(ctx); err == nil {
		t.Fatal("expected connection error when no daemon is listening")
	}
}
