package receiver

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Recorder управляет сохранением потока H.264 в файл
type Recorder struct {
	mutex      sync.Mutex
	outputFile *os.File
	filePath   string
	written    int64
}

// NewRecorder создает файл записи в outputDir.
// Имя файла содержит время подключения и короткий идентификатор клиента.
func NewRecorder(outputDir string, startedAt time.Time) (*Recorder, error) {
	// Создаем директорию, если она не существует
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию: %w", err)
	}

	timestamp := startedAt.Format("2006-01-02_15-04-05")
	suffix := uuid.New().String()[:8]
	filePath := filepath.Join(outputDir, fmt.Sprintf("webcam_%s_%s.h264", timestamp, suffix))

	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("не удалось создать файл: %w", err)
	}

	return &Recorder{
		outputFile: file,
		filePath:   filePath,
	}, nil
}

// Write записывает данные в файл
func (r *Recorder) Write(data []byte) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.outputFile == nil {
		return os.ErrClosed
	}

	n, err := r.outputFile.Write(data)
	r.written += int64(n)
	return err
}

// Path возвращает путь к файлу записи
func (r *Recorder) Path() string {
	return r.filePath
}

// Written возвращает число записанных байт
func (r *Recorder) Written() int64 {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.written
}

// Close закрывает файл. Повторный вызов ничего не делает.
func (r *Recorder) Close() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.outputFile == nil {
		return nil
	}

	err := r.outputFile.Close()
	r.outputFile = nil
	return err
}
