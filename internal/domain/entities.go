package domain

import "errors"

// Ошибки хоста при получении медиапотока
var (
	ErrPermissionDenied = errors.New("доступ к камере запрещен")
	ErrDeviceNotFound   = errors.New("подходящее устройство не найдено")
	ErrDeviceBusy       = errors.New("устройство занято другим процессом")
)

// DeviceKind тип медиаустройства
type DeviceKind int

const (
	KindUnknown DeviceKind = iota
	KindVideoInput
	KindAudioInput
	KindAudioOutput
)

func (k DeviceKind) String() string {
	switch k {
	case KindVideoInput:
		return "videoinput"
	case KindAudioInput:
		return "audioinput"
	case KindAudioOutput:
		return "audiooutput"
	default:
		return "unknown"
	}
}

// MediaDevice снимок устройства в том виде, в каком его вернул хост.
// Идентичность устройства определяется только DeviceID.
type MediaDevice struct {
	DeviceID string     // Уникальный идентификатор устройства
	Label    string     // Человекочитаемое имя устройства
	Kind     DeviceKind // Тип устройства
}

// PermissionState состояние разрешения на доступ к камере
type PermissionState string

const (
	PermissionGranted PermissionState = "granted"
	PermissionDenied  PermissionState = "denied"
	PermissionPrompt  PermissionState = "prompt"
)

// Valid сообщает, является ли значение одним из известных состояний
func (p PermissionState) Valid() bool {
	switch p {
	case PermissionGranted, PermissionDenied, PermissionPrompt:
		return true
	}
	return false
}

// Constraints пожелания вызывающего к свойствам потока.
// Сессия передает их хосту без изменений.
type Constraints struct {
	Video      bool   // Запрашивать видео
	Audio      bool   // Запрашивать аудио
	DeviceID   string // ID устройства для захвата
	FacingMode string // "user" или "environment"
	Width      int    // Ширина видео в пикселях
	Height     int    // Высота видео в пикселях
	FrameRate  int    // Частота кадров
	BitRate    int    // Битрейт кодировщика в bps
}

// VideoFrame представляет кадр видео
type VideoFrame struct {
	Data   []byte // Закодированные данные кадра
	Size   int    // Размер данных в байтах
	Number int    // Номер кадра
}

// VideoReader интерфейс для чтения видеокадров
type VideoReader interface {
	Read() (*VideoFrame, error)
	Close() error
}

// Track один медиаканал внутри потока
type Track interface {
	ID() string
	Kind() DeviceKind
	// Stop освобождает аппаратный ресурс трека. Повторный вызов ничего не делает.
	Stop() error
	Stopped() bool
	CreateReader(codec string) (VideoReader, error)
}

// Stream дескриптор медиапотока, которым владеет хост
type Stream interface {
	ID() string
	Tracks() []Track
	VideoTracks() []Track
}

// VideoConfig содержит конфигурацию видеопотока
type VideoConfig struct {
	Constraints
	CodecName    string // Имя кодека (например, "h264")
	StreamingURL string // URL для стриминга
}
