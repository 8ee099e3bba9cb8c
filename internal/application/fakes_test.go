package application

import (
	"context"
	"errors"
	"io"
	"sync"

	"webcam-session/internal/domain"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})            {}
func (nopLogger) Error(string, ...interface{})           {}
func (nopLogger) Debug(string, ...interface{})           {}
func (l nopLogger) WithField(string, interface{}) Logger { return l }

type fakeTrack struct {
	id      string
	kind    domain.DeviceKind
	stopErr error

	mu    sync.Mutex
	stops int
}

func (t *fakeTrack) ID() string              { return t.id }
func (t *fakeTrack) Kind() domain.DeviceKind { return t.kind }

func (t *fakeTrack) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stops++
	return t.stopErr
}

func (t *fakeTrack) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stops > 0
}

func (t *fakeTrack) stopCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stops
}

func (t *fakeTrack) CreateReader(string) (domain.VideoReader, error) {
	return nil, io.EOF
}

type fakeStream struct {
	id     string
	tracks []*fakeTrack
}

func (s *fakeStream) ID() string { return s.id }

func (s *fakeStream) Tracks() []domain.Track {
	result := make([]domain.Track, 0, len(s.tracks))
	for _, t := range s.tracks {
		result = append(result, t)
	}
	return result
}

func (s *fakeStream) VideoTracks() []domain.Track {
	var result []domain.Track
	for _, t := range s.tracks {
		if t.kind == domain.KindVideoInput {
			result = append(result, t)
		}
	}
	return result
}

type fakeHost struct {
	devices      []domain.MediaDevice
	enumerateErr error
	mediaErr     error
	permission   domain.PermissionState
	permErr      error
	noVideo      bool

	mu          sync.Mutex
	requests    []domain.Constraints
	streams     []*fakeStream
	enumerateN  int
	permissionN int
}

func (h *fakeHost) EnumerateDevices(context.Context) ([]domain.MediaDevice, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.enumerateN++
	if h.enumerateErr != nil {
		return nil, h.enumerateErr
	}
	return h.devices, nil
}

func (h *fakeHost) GetUserMedia(_ context.Context, constraints domain.Constraints) (domain.Stream, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.requests = append(h.requests, constraints)
	if h.mediaErr != nil {
		return nil, h.mediaErr
	}

	kind := domain.KindVideoInput
	if h.noVideo {
		kind = domain.KindAudioInput
	}
	stream := &fakeStream{
		id:     "stream-" + constraints.DeviceID,
		tracks: []*fakeTrack{{id: "track-" + constraints.DeviceID, kind: kind}},
	}
	h.streams = append(h.streams, stream)
	return stream, nil
}

func (h *fakeHost) QueryPermission(context.Context) (domain.PermissionState, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.permissionN++
	return h.permission, h.permErr
}

func (h *fakeHost) lastRequest() domain.Constraints {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.requests[len(h.requests)-1]
}

type fakeStreamer struct {
	// finish завершает стриминг сразу, не дожидаясь отмены
	finish    bool
	finishErr error

	mu      sync.Mutex
	started []string
	stops   int
}

func (f *fakeStreamer) StartStreaming(ctx context.Context, track domain.Track, _ domain.VideoConfig) error {
	f.mu.Lock()
	f.started = append(f.started, track.ID())
	f.mu.Unlock()

	if f.finish {
		return f.finishErr
	}

	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeStreamer) StopStreaming() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

var errHost = errors.New("host failure")

func videoDevices(ids ...string) []domain.MediaDevice {
	devices := make([]domain.MediaDevice, 0, len(ids))
	for _, id := range ids {
		devices = append(devices, domain.MediaDevice{DeviceID: id, Label: "Camera " + id, Kind: domain.KindVideoInput})
	}
	return devices
}
