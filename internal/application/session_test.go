package application

import (
	"context"
	"errors"
	"sync"
	"testing"

	"webcam-session/internal/domain"
)

func TestNextDeviceID(t *testing.T) {
	abc := videoDevices("a", "b", "c")

	testCases := []struct {
		name     string
		current  string
		devices  []domain.MediaDevice
		expected string
	}{
		{name: "no devices", current: "x", devices: nil, expected: "x"},
		{name: "single device, other id", current: "x", devices: videoDevices("a"), expected: "x"},
		{name: "single device, same id", current: "a", devices: videoDevices("a"), expected: "a"},
		{name: "empty id, single device", current: "", devices: videoDevices("a"), expected: ""},
		{name: "first to second", current: "a", devices: abc, expected: "b"},
		{name: "middle to last", current: "b", devices: abc, expected: "c"},
		{name: "last wraps to first", current: "c", devices: abc, expected: "a"},
		{name: "absent id starts from first", current: "z", devices: abc, expected: "a"},
		{name: "empty id starts from first", current: "", devices: abc, expected: "a"},
		{name: "two devices toggle", current: "b", devices: videoDevices("a", "b"), expected: "a"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NextDeviceID(tc.current, tc.devices); got != tc.expected {
				t.Errorf("NextDeviceID(%q) = %q, expected %q", tc.current, got, tc.expected)
			}
		})
	}
}

func TestNextDeviceID_CyclesThroughAll(t *testing.T) {
	devices := videoDevices("a", "b", "c", "d")

	current := devices[0].DeviceID
	seen := map[string]bool{current: true}
	for i := 1; i < len(devices); i++ {
		current = NextDeviceID(current, devices)
		seen[current] = true
		if current != devices[i].DeviceID {
			t.Fatalf("step %d: expected %q, got %q", i, devices[i].DeviceID, current)
		}
	}

	if len(seen) != len(devices) {
		t.Errorf("expected to visit %d devices, visited %d", len(devices), len(seen))
	}
	if next := NextDeviceID(current, devices); next != devices[0].DeviceID {
		t.Errorf("expected wrap to %q, got %q", devices[0].DeviceID, next)
	}
}

func TestCameraSession_AcquireStream(t *testing.T) {
	host := &fakeHost{}
	session := NewCameraSession(host, nopLogger{})

	constraints := domain.Constraints{Video: true, DeviceID: "cam-1", FacingMode: "user", Width: 640, Height: 480}
	stream, err := session.AcquireStream(context.Background(), constraints)
	if err != nil {
		t.Fatalf("AcquireStream failed: %v", err)
	}
	if stream == nil {
		t.Fatal("expected stream, got nil")
	}

	if got := host.lastRequest(); got != constraints {
		t.Errorf("constraints were changed on the way to the host: %+v", got)
	}
}

func TestCameraSession_AcquireStreamError(t *testing.T) {
	causes := []error{
		domain.ErrPermissionDenied,
		domain.ErrDeviceNotFound,
		domain.ErrDeviceBusy,
		errHost,
	}

	for _, cause := range causes {
		t.Run(cause.Error(), func(t *testing.T) {
			host := &fakeHost{mediaErr: cause}
			session := NewCameraSession(host, nopLogger{})

			stream, err := session.AcquireStream(context.Background(), domain.Constraints{DeviceID: "cam-1"})
			if stream != nil {
				t.Errorf("expected nil stream, got %v", stream)
			}

			var acqErr *AcquisitionError
			if !errors.As(err, &acqErr) {
				t.Fatalf("expected *AcquisitionError, got %T (%v)", err, err)
			}
			if acqErr.Err != cause {
				t.Errorf("cause changed: got %v, expected %v", acqErr.Err, cause)
			}
			if !errors.Is(err, cause) {
				t.Errorf("errors.Is(err, %v) = false", cause)
			}
			if acqErr.Constraints.DeviceID != "cam-1" {
				t.Errorf("expected constraints in error, got %+v", acqErr.Constraints)
			}
			if len(host.requests) != 1 {
				t.Errorf("expected exactly one host request, got %d", len(host.requests))
			}
		})
	}
}

func TestCameraSession_ReleaseStream(t *testing.T) {
	session := NewCameraSession(&fakeHost{}, nopLogger{})

	stream := &fakeStream{
		id: "s1",
		tracks: []*fakeTrack{
			{id: "video", kind: domain.KindVideoInput},
			{id: "audio", kind: domain.KindAudioInput},
		},
	}

	session.ReleaseStream(stream)
	for _, track := range stream.tracks {
		if track.stopCount() != 1 {
			t.Errorf("track %s: expected 1 stop, got %d", track.id, track.stopCount())
		}
	}

	// Повторное освобождение не трогает треки
	session.ReleaseStream(stream)
	for _, track := range stream.tracks {
		if track.stopCount() != 1 {
			t.Errorf("track %s: expected still 1 stop, got %d", track.id, track.stopCount())
		}
	}
}

func TestCameraSession_ReleaseStreamNil(t *testing.T) {
	session := NewCameraSession(&fakeHost{}, nopLogger{})
	session.ReleaseStream(nil)
}

func TestCameraSession_ReleaseStreamStopError(t *testing.T) {
	session := NewCameraSession(&fakeHost{}, nopLogger{})

	failing := &fakeTrack{id: "failing", kind: domain.KindVideoInput, stopErr: errHost}
	other := &fakeTrack{id: "other", kind: domain.KindAudioInput}
	session.ReleaseStream(&fakeStream{id: "s1", tracks: []*fakeTrack{failing, other}})

	if other.stopCount() != 1 {
		t.Error("expected remaining tracks to be stopped after a stop error")
	}
}

func TestCameraSession_ListVideoInputs(t *testing.T) {
	host := &fakeHost{
		devices: []domain.MediaDevice{
			{DeviceID: "mic", Label: "Microphone", Kind: domain.KindAudioInput},
			{DeviceID: "cam-2", Label: "Rear", Kind: domain.KindVideoInput},
			{DeviceID: "spk", Label: "Speaker", Kind: domain.KindAudioOutput},
			{DeviceID: "cam-1", Label: "Front", Kind: domain.KindVideoInput},
			{DeviceID: "odd", Label: "Unknown", Kind: domain.KindUnknown},
		},
	}
	session := NewCameraSession(host, nopLogger{})

	devices := session.ListVideoInputs(context.Background())
	expected := []string{"cam-2", "cam-1"}
	if len(devices) != len(expected) {
		t.Fatalf("expected %d devices, got %d", len(expected), len(devices))
	}
	for i, device := range devices {
		if device.DeviceID != expected[i] {
			t.Errorf("device %d: expected %s, got %s", i, expected[i], device.DeviceID)
		}
		if device.Kind != domain.KindVideoInput {
			t.Errorf("device %s has kind %s", device.DeviceID, device.Kind)
		}
	}
}

func TestCameraSession_ListVideoInputsHostError(t *testing.T) {
	session := NewCameraSession(&fakeHost{enumerateErr: errHost}, nopLogger{})

	devices := session.ListVideoInputs(context.Background())
	if devices == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(devices) != 0 {
		t.Errorf("expected no devices, got %d", len(devices))
	}
}

func TestCameraSession_QueryPermission(t *testing.T) {
	testCases := []struct {
		name     string
		state    domain.PermissionState
		err      error
		expected domain.PermissionState
	}{
		{name: "granted", state: domain.PermissionGranted, expected: domain.PermissionGranted},
		{name: "denied", state: domain.PermissionDenied, expected: domain.PermissionDenied},
		{name: "prompt", state: domain.PermissionPrompt, expected: domain.PermissionPrompt},
		{name: "host error", state: domain.PermissionGranted, err: errHost, expected: domain.PermissionPrompt},
		{name: "unknown state", state: "maybe", expected: domain.PermissionPrompt},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			host := &fakeHost{permission: tc.state, permErr: tc.err}
			session := NewCameraSession(host, nopLogger{})

			if got := session.QueryPermission(context.Background()); got != tc.expected {
				t.Errorf("expected %s, got %s", tc.expected, got)
			}
		})
	}
}

func TestCameraSession_QueryPermissionNotCached(t *testing.T) {
	host := &fakeHost{permission: domain.PermissionPrompt}
	session := NewCameraSession(host, nopLogger{})
	ctx := context.Background()

	session.QueryPermission(ctx)
	host.permission = domain.PermissionGranted
	if got := session.QueryPermission(ctx); got != domain.PermissionGranted {
		t.Errorf("expected fresh state %s, got %s", domain.PermissionGranted, got)
	}
	if host.permissionN != 2 {
		t.Errorf("expected 2 host queries, got %d", host.permissionN)
	}
}

func TestCameraSession_ConcurrentUse(t *testing.T) {
	host := &fakeHost{devices: videoDevices("a", "b", "c"), permission: domain.PermissionGranted}
	session := NewCameraSession(host, nopLogger{})
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			devices := session.ListVideoInputs(ctx)
			if len(devices) != 3 {
				t.Errorf("expected 3 devices, got %d", len(devices))
			}
			if got := session.QueryPermission(ctx); got != domain.PermissionGranted {
				t.Errorf("expected granted, got %s", got)
			}

			stream, err := session.AcquireStream(ctx, domain.Constraints{Video: true, DeviceID: NextDeviceID("a", devices)})
			if err != nil {
				t.Errorf("AcquireStream failed: %v", err)
				return
			}
			session.ReleaseStream(stream)
			session.ReleaseStream(stream)
		}()
	}
	wg.Wait()

	if len(host.streams) != workers {
		t.Fatalf("expected %d streams, got %d", workers, len(host.streams))
	}
	for _, stream := range host.streams {
		if stream.id != "stream-b" {
			t.Errorf("expected stream-b, got %s", stream.id)
		}
		if got := stream.tracks[0].stopCount(); got != 1 {
			t.Errorf("stream %s: expected 1 Stop call, got %d", stream.id, got)
		}
	}
}
