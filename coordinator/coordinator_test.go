package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go2tv.app/rokucast/device"
	"go2tv.app/rokucast/ecp"
)

type fakeClient struct {
	mu          sync.Mutex
	infoCalls   int
	playerCalls int

	info      *ecp.DeviceInfo
	player    *ecp.PlayerStatus
	infoErr   error
	playerErr error

	gate chan struct{}
}

func (f *fakeClient) DeviceInfo(ctx context.Context) (*ecp.DeviceInfo, error) {
	f.mu.Lock()
	f.infoCalls++
	f.mu.Unlock()

	if f.infoErr != nil {
		return nil, f.infoErr
	}

	if f.info != nil {
		return f.info, nil
	}

	return &ecp.DeviceInfo{
		ModelName:       "Roku Ultra",
		SerialNumber:    "YN00H5555555",
		SoftwareVersion: "9.4.0",
		PowerMode:       "PowerOn",
	}, nil
}

func (f *fakeClient) MediaPlayer(ctx context.Context) (*ecp.PlayerStatus, error) {
	if f.gate != nil {
		<-f.gate
	}

	f.mu.Lock()
	f.playerCalls++
	f.mu.Unlock()

	if f.playerErr != nil {
		return nil, f.playerErr
	}

	if f.player != nil {
		return f.player, nil
	}

	return &ecp.PlayerStatus{State: "none"}, nil
}

func (f *fakeClient) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.infoCalls, f.playerCalls
}

func newTestCoordinator(client deviceClient, cfg Config) *Coordinator {
	return New(device.Identity{Host: "192.168.1.50"}, client, cfg)
}

func TestForceRefresh(t *testing.T) {
	client := &fakeClient{
		player: &ecp.PlayerStatus{State: "play", AppID: "12", AppName: "Netflix"},
	}

	c := newTestCoordinator(client, Config{})

	state, err := c.ForceRefresh(context.Background())
	if err != nil {
		t.Fatalf("Failed to refresh due to %s", err.Error())
	}

	if state.Power != device.PowerOn {
		t.Errorf("got power %q", state.Power)
	}

	if state.Playback != device.PlaybackPlaying || state.AppID != "12" {
		t.Errorf("got state %+v", state)
	}

	if c.CurrentState() != state {
		t.Error("expected CurrentState to return the refreshed snapshot")
	}
}

func TestRefreshSkipsFullUpdateWithinInterval(t *testing.T) {
	client := &fakeClient{}
	c := newTestCoordinator(client, Config{})

	for i := 0; i < 3; i++ {
		if _, err := c.ForceRefresh(context.Background()); err != nil {
			t.Fatalf("Failed to refresh due to %s", err.Error())
		}
	}

	infoCalls, playerCalls := client.calls()
	if infoCalls != 1 {
		t.Errorf("got %d device-info fetches, want 1", infoCalls)
	}

	if playerCalls != 3 {
		t.Errorf("got %d media-player fetches, want 3", playerCalls)
	}
}

func TestRefreshFullUpdateAfterInterval(t *testing.T) {
	client := &fakeClient{}
	c := newTestCoordinator(client, Config{FullUpdateInterval: time.Minute})

	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	if _, err := c.ForceRefresh(context.Background()); err != nil {
		t.Fatalf("Failed to refresh due to %s", err.Error())
	}

	clock = clock.Add(2 * time.Minute)

	if _, err := c.ForceRefresh(context.Background()); err != nil {
		t.Fatalf("Failed to refresh due to %s", err.Error())
	}

	infoCalls, _ := client.calls()
	if infoCalls != 2 {
		t.Errorf("got %d device-info fetches, want 2", infoCalls)
	}
}

func TestConcurrentRefreshCoalesced(t *testing.T) {
	client := &fakeClient{gate: make(chan struct{})}
	c := newTestCoordinator(client, Config{})

	const callers = 5

	var wg sync.WaitGroup
	var mu sync.Mutex
	snapshots := make([]*device.State, 0, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			state, err := c.ForceRefresh(context.Background())
			if err != nil {
				t.Errorf("Failed to refresh due to %s", err.Error())
				return
			}

			mu.Lock()
			snapshots = append(snapshots, state)
			mu.Unlock()
		}()
	}

	// Give all the callers time to join the in-flight fetch.
	time.Sleep(100 * time.Millisecond)
	close(client.gate)
	wg.Wait()

	infoCalls, playerCalls := client.calls()
	if infoCalls != 1 || playerCalls != 1 {
		t.Errorf("got %d/%d fetches, want exactly one per endpoint", infoCalls, playerCalls)
	}

	if len(snapshots) != callers {
		t.Fatalf("got %d snapshots", len(snapshots))
	}

	for _, s := range snapshots {
		if s != snapshots[0] {
			t.Fatal("expected all callers to share the same snapshot")
		}
	}
}

func TestBackoffAfterTimeouts(t *testing.T) {
	client := &fakeClient{
		playerErr: fmt.Errorf("%w: dial tcp: i/o timeout", ecp.ErrTimeout),
	}

	c := newTestCoordinator(client, Config{Interval: 10 * time.Second, BackoffFactor: 2, MaxInterval: 300 * time.Second})

	for i := 0; i < 3; i++ {
		if _, err := c.ForceRefresh(context.Background()); !errors.Is(err, ecp.ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}
	}

	if c.Failures() != 3 {
		t.Errorf("got %d failures", c.Failures())
	}

	if got := c.nextInterval(); got != 80*time.Second {
		t.Errorf("got next interval %v, want 80s", got)
	}
}

func TestBackoffCeiling(t *testing.T) {
	client := &fakeClient{
		playerErr: fmt.Errorf("%w: connection refused", ecp.ErrUnreachable),
	}

	c := newTestCoordinator(client, Config{Interval: 10 * time.Second, BackoffFactor: 2, MaxInterval: 300 * time.Second})

	for i := 0; i < 10; i++ {
		_, _ = c.ForceRefresh(context.Background())
	}

	if got := c.nextInterval(); got != 300*time.Second {
		t.Errorf("got next interval %v, want the 300s ceiling", got)
	}
}

func TestMalformedResponseDoesNotBackoff(t *testing.T) {
	client := &fakeClient{
		playerErr: fmt.Errorf("%w: unexpected EOF", ecp.ErrMalformedResponse),
	}

	c := newTestCoordinator(client, Config{Interval: 10 * time.Second})

	for i := 0; i < 3; i++ {
		if _, err := c.ForceRefresh(context.Background()); !errors.Is(err, ecp.ErrMalformedResponse) {
			t.Fatalf("expected ErrMalformedResponse, got %v", err)
		}
	}

	// The fetches still count as failures in the cache.
	if c.Failures() != 3 {
		t.Errorf("got %d failures", c.Failures())
	}

	// But a reachable device keeps the regular pace.
	if got := c.nextInterval(); got != 10*time.Second {
		t.Errorf("got next interval %v, want the base interval", got)
	}
}

func TestBackoffResetsOnSuccess(t *testing.T) {
	client := &fakeClient{
		playerErr: fmt.Errorf("%w: no route to host", ecp.ErrUnreachable),
	}

	c := newTestCoordinator(client, Config{Interval: 10 * time.Second})

	_, _ = c.ForceRefresh(context.Background())
	_, _ = c.ForceRefresh(context.Background())

	client.mu.Lock()
	client.playerErr = nil
	client.mu.Unlock()

	if _, err := c.ForceRefresh(context.Background()); err != nil {
		t.Fatalf("Failed to refresh due to %s", err.Error())
	}

	if c.Failures() != 0 {
		t.Errorf("got %d failures after success", c.Failures())
	}

	if got := c.nextInterval(); got != 10*time.Second {
		t.Errorf("got next interval %v after success", got)
	}
}

func TestStandbyMapsToIdle(t *testing.T) {
	client := &fakeClient{
		info:   &ecp.DeviceInfo{ModelName: "Roku Ultra", PowerMode: "DisplayOff", SoftwareVersion: "9.4.0"},
		player: &ecp.PlayerStatus{State: "play", AppID: "12"},
	}

	c := newTestCoordinator(client, Config{})

	state, err := c.ForceRefresh(context.Background())
	if err != nil {
		t.Fatalf("Failed to refresh due to %s", err.Error())
	}

	if state.Power != device.PowerStandby {
		t.Errorf("got power %q", state.Power)
	}

	if state.Playback != device.PlaybackIdle || state.AppID != "" {
		t.Errorf("expected idle state in standby, got %+v", state)
	}
}

func TestOnRefreshHook(t *testing.T) {
	client := &fakeClient{}
	c := newTestCoordinator(client, Config{})

	var mu sync.Mutex
	var seen []*device.State

	c.OnRefresh(func(s *device.State) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	state, err := c.ForceRefresh(context.Background())
	if err != nil {
		t.Fatalf("Failed to refresh due to %s", err.Error())
	}

	mu.Lock()
	defer mu.Unlock()

	if len(seen) != 1 || seen[0] != state {
		t.Fatalf("expected hook to observe the refreshed snapshot, got %d calls", len(seen))
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	client := &fakeClient{}
	c := newTestCoordinator(client, Config{Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Run(ctx)
	}()

	// Let at least one refresh cycle complete.
	deadline := time.After(2 * time.Second)
	for {
		if c.CurrentState() != nil {
			break
		}
		select {
		case <-deadline:
			t.Fatal("coordinator never refreshed")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("coordinator did not stop on cancel")
	}
}
