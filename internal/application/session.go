package application

import (
	"context"
	"fmt"

	"webcam-session/internal/domain"
)

// AcquisitionError ошибка получения потока от хоста.
// Исходная ошибка хоста доступна через Unwrap без изменений.
type AcquisitionError struct {
	Constraints domain.Constraints
	Err         error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("не удалось получить медиапоток (устройство %q): %v", e.Constraints.DeviceID, e.Err)
}

func (e *AcquisitionError) Unwrap() error {
	return e.Err
}

// CameraSession набор операций над медиаустройствами хоста.
// Собственного состояния не хранит, методы можно вызывать конкурентно.
type CameraSession struct {
	host   MediaHost
	logger Logger
}

// NewCameraSession создает сессию поверх возможностей хоста
func NewCameraSession(host MediaHost, logger Logger) *CameraSession {
	return &CameraSession{
		host:   host,
		logger: logger.WithField("component", "camera-session"),
	}
}

// AcquireStream запрашивает у хоста новый поток. Повторных попыток не делает.
func (s *CameraSession) AcquireStream(ctx context.Context, constraints domain.Constraints) (domain.Stream, error) {
	stream, err := s.host.GetUserMedia(ctx, constraints)
	if err != nil {
		return nil, &AcquisitionError{Constraints: constraints, Err: err}
	}
	s.logger.Debug("Получен поток %s, треков: %d", stream.ID(), len(stream.Tracks()))
	return stream, nil
}

// ReleaseStream останавливает все треки потока. nil и уже остановленный поток игнорируются.
func (s *CameraSession) ReleaseStream(stream domain.Stream) {
	if stream == nil {
		return
	}

	for _, track := range stream.Tracks() {
		if track.Stopped() {
			continue
		}
		if err := track.Stop(); err != nil {
			s.logger.Debug("Ошибка остановки трека %s: %v", track.ID(), err)
		}
	}
}

// ListVideoInputs возвращает только видеовходы в порядке хоста.
// При ошибке хоста возвращает пустой список.
func (s *CameraSession) ListVideoInputs(ctx context.Context) []domain.MediaDevice {
	devices, err := s.host.EnumerateDevices(ctx)
	if err != nil {
		s.logger.Error("Ошибка получения списка устройств: %v", err)
		return []domain.MediaDevice{}
	}

	result := make([]domain.MediaDevice, 0, len(devices))
	for _, device := range devices {
		if device.Kind == domain.KindVideoInput {
			result = append(result, device)
		}
	}
	return result
}

// QueryPermission возвращает состояние разрешения на камеру.
// При ошибке хоста возвращает PermissionPrompt.
func (s *CameraSession) QueryPermission(ctx context.Context) domain.PermissionState {
	state, err := s.host.QueryPermission(ctx)
	if err != nil {
		s.logger.Debug("Не удалось запросить разрешение: %v", err)
		return domain.PermissionPrompt
	}
	if !state.Valid() {
		s.logger.Debug("Неизвестное состояние разрешения: %q", state)
		return domain.PermissionPrompt
	}
	return state
}

// NextDeviceID возвращает ID устройства, следующего за currentID.
// Если устройств меньше двух, currentID возвращается без изменений.
// Отсутствующий в списке currentID считается стоящим на позиции -1.
func NextDeviceID(currentID string, devices []domain.MediaDevice) string {
	if len(devices) <= 1 {
		return currentID
	}

	index := -1
	for i, device := range devices {
		if device.DeviceID == currentID {
			index = i
			break
		}
	}

	return devices[(index+1)%len(devices)].DeviceID
}
