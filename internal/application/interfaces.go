package application

import (
	"context"

	"webcam-session/internal/domain"
)

// MediaHost возможности хоста по работе с медиаустройствами
type MediaHost interface {
	// EnumerateDevices возвращает все медиаустройства в порядке хоста
	EnumerateDevices(ctx context.Context) ([]domain.MediaDevice, error)

	// GetUserMedia запрашивает новый поток с заданными ограничениями
	GetUserMedia(ctx context.Context, constraints domain.Constraints) (domain.Stream, error)

	// QueryPermission возвращает состояние разрешения на доступ к камере
	QueryPermission(ctx context.Context) (domain.PermissionState, error)
}

// StreamManager интерфейс для управления стримингом
type StreamManager interface {
	// StartStreaming начинает стриминг видео и блокируется до его окончания
	StartStreaming(ctx context.Context, track domain.Track, config domain.VideoConfig) error

	// StopStreaming останавливает стриминг
	StopStreaming() error
}

// Logger интерфейс для логирования
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
	WithField(key string, value interface{}) Logger
}
