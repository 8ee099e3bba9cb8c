package camera

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/google/uuid"
	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/codec/x264"
	_ "github.com/pion/mediadevices/pkg/driver/camera"     // Регистрируем драйвер камеры
	_ "github.com/pion/mediadevices/pkg/driver/microphone" // Регистрируем драйвер микрофона
	"github.com/pion/mediadevices/pkg/prop"

	"webcam-session/internal/application"
	"webcam-session/internal/domain"
)

const (
	defaultBitRate     = 1_000_000
	keyFrameInterval   = 60 // Keyframe каждые 2 секунды при 30 fps
	readerBufferSize   = 1024 * 1024
	videoDevicePattern = "/dev/video*"
)

// MediaDevicesHost реализация application.MediaHost на библиотеке mediadevices
type MediaDevicesHost struct {
	logger application.Logger

	enumerate     func() []mediadevices.MediaDeviceInfo
	getUserMedia  func(mediadevices.MediaStreamConstraints) (mediadevices.MediaStream, error)
	devicePattern string
}

// NewMediaDevicesHost создает хост поверх зарегистрированных драйверов mediadevices
func NewMediaDevicesHost(logger application.Logger) *MediaDevicesHost {
	return &MediaDevicesHost{
		logger:        logger.WithField("component", "mediadevices"),
		enumerate:     mediadevices.EnumerateDevices,
		getUserMedia:  mediadevices.GetUserMedia,
		devicePattern: videoDevicePattern,
	}
}

// EnumerateDevices возвращает список всех устройств, известных драйверам
func (h *MediaDevicesHost) EnumerateDevices(ctx context.Context) ([]domain.MediaDevice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	devices := h.enumerate()
	result := make([]domain.MediaDevice, 0, len(devices))

	for _, device := range devices {
		result = append(result, domain.MediaDevice{
			DeviceID: device.DeviceID,
			Label:    device.Label,
			Kind:     convertKind(device.Kind),
		})
	}

	return result, nil
}

// GetUserMedia открывает поток с заданными ограничениями
func (h *MediaDevicesHost) GetUserMedia(ctx context.Context, constraints domain.Constraints) (domain.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if constraints.FacingMode != "" {
		h.logger.Debug("facingMode=%q не поддерживается драйвером и будет проигнорирован", constraints.FacingMode)
	}

	selector, err := newCodecSelector(constraints.BitRate)
	if err != nil {
		return nil, err
	}

	request := mediadevices.MediaStreamConstraints{
		Codec: selector,
	}
	if constraints.Video || !constraints.Audio {
		request.Video = videoOption(constraints)
	}
	if constraints.Audio {
		request.Audio = func(c *mediadevices.MediaTrackConstraints) {}
	}

	stream, err := h.getUserMedia(request)
	if err != nil {
		return nil, classifyError(err)
	}

	return newMediaStream(stream, h.logger), nil
}

// QueryPermission проверяет права доступа к видеоустройствам
func (h *MediaDevicesHost) QueryPermission(ctx context.Context) (domain.PermissionState, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return probePermission(h.devicePattern)
}

// videoOption переводит ограничения в формат mediadevices
func videoOption(constraints domain.Constraints) mediadevices.MediaOption {
	return func(c *mediadevices.MediaTrackConstraints) {
		// Задаем предпочтительные параметры, но не строгие
		if constraints.Width > 0 {
			c.Width = prop.Int(constraints.Width)
		}
		if constraints.Height > 0 {
			c.Height = prop.Int(constraints.Height)
		}
		if constraints.FrameRate > 0 {
			c.FrameRate = prop.Float(constraints.FrameRate)
		}

		// Если указан конкретный ID устройства
		if constraints.DeviceID != "" {
			c.DeviceID = prop.String(constraints.DeviceID)
		}
	}
}

// newCodecSelector настраивает кодек H.264 для кодированного чтения треков
func newCodecSelector(bitRate int) (*mediadevices.CodecSelector, error) {
	x264Params, err := x264.NewParams()
	if err != nil {
		return nil, fmt.Errorf("ошибка создания параметров x264: %w", err)
	}

	if bitRate <= 0 {
		bitRate = defaultBitRate
	}
	x264Params.BitRate = bitRate
	x264Params.Preset = x264.PresetUltrafast
	x264Params.KeyFrameInterval = keyFrameInterval

	return mediadevices.NewCodecSelector(
		mediadevices.WithVideoEncoders(&x264Params),
	), nil
}

func convertKind(kind mediadevices.MediaDeviceType) domain.DeviceKind {
	switch kind {
	case mediadevices.VideoInput:
		return domain.KindVideoInput
	case mediadevices.AudioInput:
		return domain.KindAudioInput
	case mediadevices.AudioOutput:
		return domain.KindAudioOutput
	default:
		return domain.KindUnknown
	}
}

// classifyError помечает ошибку драйвера доменной причиной, сохраняя исходную
func classifyError(err error) error {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %w", domain.ErrPermissionDenied, err)
	case errors.Is(err, syscall.EBUSY):
		return fmt.Errorf("%w: %w", domain.ErrDeviceBusy, err)
	case isDriverNotFound(err):
		return fmt.Errorf("%w: %w", domain.ErrDeviceNotFound, err)
	default:
		return err
	}
}

// driverNotFoundMessage начало текста неэкспортируемой ошибки errNotFound
// из github.com/pion/mediadevices ("failed to find the best driver that fits the constraints").
// Библиотека не экспортирует ошибку, поэтому сравниваем текст.
const driverNotFoundMessage = "failed to find the best driver"

// isDriverNotFound сообщает, что GetUserMedia не подобрал драйвер под ограничения
func isDriverNotFound(err error) bool {
	return strings.Contains(err.Error(), driverNotFoundMessage)
}

// trackSource часть mediadevices.Track, которая нужна обертке
type trackSource interface {
	ID() string
	Close() error
	NewEncodedIOReader(codecName string) (io.ReadCloser, error)
}

// MediaDevicesStream обертка для MediaStream
type MediaDevicesStream struct {
	id     string
	tracks []*MediaDevicesTrack
}

func newMediaStream(stream mediadevices.MediaStream, logger application.Logger) *MediaDevicesStream {
	result := &MediaDevicesStream{id: uuid.New().String()}

	for _, track := range stream.GetVideoTracks() {
		result.tracks = append(result.tracks, newMediaTrack(track, domain.KindVideoInput, logger))
	}
	for _, track := range stream.GetAudioTracks() {
		result.tracks = append(result.tracks, newMediaTrack(track, domain.KindAudioInput, logger))
	}

	return result
}

// ID возвращает идентификатор потока
func (s *MediaDevicesStream) ID() string {
	return s.id
}

// Tracks возвращает все треки потока
func (s *MediaDevicesStream) Tracks() []domain.Track {
	result := make([]domain.Track, 0, len(s.tracks))
	for _, track := range s.tracks {
		result = append(result, track)
	}
	return result
}

// VideoTracks возвращает только видеотреки
func (s *MediaDevicesStream) VideoTracks() []domain.Track {
	var result []domain.Track
	for _, track := range s.tracks {
		if track.kind == domain.KindVideoInput {
			result = append(result, track)
		}
	}
	return result
}

// MediaDevicesTrack обертка для MediaDevices Track
type MediaDevicesTrack struct {
	source  trackSource
	kind    domain.DeviceKind
	stopped atomic.Bool
	logger  application.Logger
}

func newMediaTrack(source trackSource, kind domain.DeviceKind, logger application.Logger) *MediaDevicesTrack {
	return &MediaDevicesTrack{
		source: source,
		kind:   kind,
		logger: logger,
	}
}

// ID возвращает идентификатор трека
func (t *MediaDevicesTrack) ID() string {
	return t.source.ID()
}

// Kind возвращает тип трека
func (t *MediaDevicesTrack) Kind() domain.DeviceKind {
	return t.kind
}

// Stop закрывает трек. Драйвер закрывается только один раз.
func (t *MediaDevicesTrack) Stop() error {
	if !t.stopped.CompareAndSwap(false, true) {
		return nil
	}
	return t.source.Close()
}

// Stopped сообщает, был ли трек остановлен
func (t *MediaDevicesTrack) Stopped() bool {
	return t.stopped.Load()
}

// CreateReader создает ридер для чтения видеокадров
func (t *MediaDevicesTrack) CreateReader(codec string) (domain.VideoReader, error) {
	if t.Stopped() {
		return nil, fmt.Errorf("трек %s уже остановлен", t.ID())
	}

	reader, err := t.source.NewEncodedIOReader(codec)
	if err != nil {
		t.logger.Error("Ошибка создания ридера %s: %v", codec, err)
		return nil, err
	}

	return &MediaDevicesReader{
		reader: reader,
		logger: t.logger,
	}, nil
}

// MediaDevicesReader обертка для MediaDevices Reader
type MediaDevicesReader struct {
	reader      io.ReadCloser
	logger      application.Logger
	frameNumber int
	buffer      []byte
}

// Read читает следующий кадр. Пустое чтение возвращает nil без ошибки.
func (r *MediaDevicesReader) Read() (*domain.VideoFrame, error) {
	if r.buffer == nil {
		r.buffer = make([]byte, readerBufferSize)
	}

	n, err := r.reader.Read(r.buffer)
	if err != nil {
		if err != io.EOF {
			r.logger.Error("Ошибка чтения данных: %v", err)
		}
		return nil, err
	}

	if n == 0 {
		return nil, nil
	}

	r.frameNumber++
	// Копируем данные, чтобы избежать проблем с перезаписью буфера
	data := make([]byte, n)
	copy(data, r.buffer[:n])

	return &domain.VideoFrame{
		Data:   data,
		Size:   n,
		Number: r.frameNumber,
	}, nil
}

// Close закрывает ридер
func (r *MediaDevicesReader) Close() error {
	return r.reader.Close()
}
