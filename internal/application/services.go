package application

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"webcam-session/internal/domain"
)

var (
	ErrNoActiveCapture = errors.New("нет активного захвата")
	ErrNoVideoTrack    = errors.New("видеотрек не обнаружен")
)

// WebcamService сервис для работы с веб-камерой и стримингом
type WebcamService struct {
	session       *CameraSession
	streamManager StreamManager
	logger        Logger

	activeStream domain.Stream
	config       domain.VideoConfig
	cancelFunc   context.CancelFunc
	done         chan struct{}
	ended        chan error
	mutex        sync.Mutex
}

// NewWebcamService создает новый сервис для работы с веб-камерой
func NewWebcamService(session *CameraSession, streamManager StreamManager, logger Logger) *WebcamService {
	return &WebcamService{
		session:       session,
		streamManager: streamManager,
		logger:        logger,
		ended:         make(chan error, 1),
	}
}

// Ended сообщает о завершении стриминга без вызова StopCapture
// (сервер закрыл соединение или трек закончился). Значение канала
// содержит ошибку стриминга или nil. Захват после этого нужно остановить.
func (s *WebcamService) Ended() <-chan error {
	return s.ended
}

// ListDevices возвращает список доступных камер
func (s *WebcamService) ListDevices(ctx context.Context) []domain.MediaDevice {
	return s.session.ListVideoInputs(ctx)
}

// Permission возвращает текущее состояние разрешения на камеру
func (s *WebcamService) Permission(ctx context.Context) domain.PermissionState {
	return s.session.QueryPermission(ctx)
}

// ActiveDeviceID возвращает ID камеры текущего захвата или пустую строку
func (s *WebcamService) ActiveDeviceID() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.activeStream == nil {
		return ""
	}
	return s.config.DeviceID
}

// StartCapture начинает захват и стриминг с указанной конфигурацией.
// Если камера не указана, берется первая из списка хоста.
func (s *WebcamService) StartCapture(ctx context.Context, config domain.VideoConfig) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	// Если есть активный стрим, останавливаем его
	if s.activeStream != nil {
		s.stopLocked()
	}

	if config.DeviceID == "" {
		if devices := s.session.ListVideoInputs(ctx); len(devices) > 0 {
			config.DeviceID = devices[0].DeviceID
		}
	}

	return s.startLocked(ctx, config)
}

// SwitchDevice переключает захват на следующую камеру и возвращает ее ID.
// Если переключаться не на что, захват продолжается на текущей камере.
func (s *WebcamService) SwitchDevice(ctx context.Context) (string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.activeStream == nil {
		return "", ErrNoActiveCapture
	}

	current := s.config.DeviceID
	next := NextDeviceID(current, s.session.ListVideoInputs(ctx))
	if next == current {
		s.logger.Info("Других камер нет, продолжаем с %s", current)
		return current, nil
	}

	s.logger.Info("Переключение камеры: %s -> %s", current, next)
	config := s.config
	config.DeviceID = next

	s.stopLocked()
	if err := s.startLocked(ctx, config); err != nil {
		return "", err
	}
	return next, nil
}

// StopCapture останавливает захват и стриминг
func (s *WebcamService) StopCapture() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.activeStream == nil {
		return ErrNoActiveCapture
	}

	s.stopLocked()
	return nil
}

// startLocked открывает поток и запускает стриминг (мьютекс захвачен)
func (s *WebcamService) startLocked(ctx context.Context, config domain.VideoConfig) error {
	s.logger.Info("Открытие камеры %q с параметрами: %dx%d, %d fps, битрейт: %d bps",
		config.DeviceID, config.Width, config.Height, config.FrameRate, config.BitRate)

	stream, err := s.session.AcquireStream(ctx, config.Constraints)
	if err != nil {
		s.logger.Error("Ошибка открытия камеры: %v", err)
		return err
	}

	videoTracks := stream.VideoTracks()
	if len(videoTracks) == 0 {
		s.session.ReleaseStream(stream)
		return fmt.Errorf("поток %s: %w", stream.ID(), ErrNoVideoTrack)
	}
	track := videoTracks[0]

	s.activeStream = stream
	s.config = config
	s.logger.Info("Используется трек: %s", track.ID())

	streamContext, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancelFunc = cancel
	s.done = done

	go func() {
		defer close(done)
		err := s.streamManager.StartStreaming(streamContext, track, config)
		if streamContext.Err() != nil {
			return
		}
		if err != nil {
			s.logger.Error("Ошибка стриминга: %v", err)
		}

		select {
		case s.ended <- err:
		default:
		}
	}()

	return nil
}

// stopLocked останавливает стриминг и освобождает поток (мьютекс захвачен)
func (s *WebcamService) stopLocked() {
	if s.cancelFunc != nil {
		s.cancelFunc()
	}

	if err := s.streamManager.StopStreaming(); err != nil {
		s.logger.Error("Ошибка остановки стриминга: %v", err)
	}

	s.session.ReleaseStream(s.activeStream)

	if s.done != nil {
		<-s.done
	}

	// Завершение остановленного захвата больше никого не интересует
	select {
	case <-s.ended:
	default:
	}

	s.activeStream = nil
	s.cancelFunc = nil
	s.done = nil
}
