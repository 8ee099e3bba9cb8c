package receiver

import (
	"context"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"webcam-session/internal/application"
)

var statusPage = template.Must(template.New("status").Parse(`<!DOCTYPE html>
<html>
<head>
	<title>Сервер стриминга веб-камеры</title>
	<style>
		body { font-family: Arial, sans-serif; margin: 40px; }
		.status { padding: 20px; background-color: #e0f7fa; border-radius: 5px; }
	</style>
</head>
<body>
	<h1>Сервер стриминга веб-камеры</h1>
	<div class="status">
		<p>Сервер запущен и принимает соединения</p>
		<p>Директория для записей: <code>{{.}}</code></p>
	</div>
</body>
</html>
`))

// Handler принимает видеопоток по WebSocket и пишет его в файлы
type Handler struct {
	outputDir string
	logger    application.Logger
	upgrader  websocket.Upgrader
	mux       *http.ServeMux
	now       func() time.Time

	// Активные соединения. http.Server.Shutdown их не ждет.
	mutex   sync.Mutex
	conns   map[*websocket.Conn]struct{}
	active  sync.WaitGroup
	closing bool
}

// NewHandler создает обработчик с маршрутами /ws и /
func NewHandler(outputDir string, logger application.Logger) *Handler {
	h := &Handler{
		outputDir: outputDir,
		logger:    logger.WithField("component", "receiver"),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Разрешаем все подключения
			},
		},
		mux:   http.NewServeMux(),
		now:   time.Now,
		conns: make(map[*websocket.Conn]struct{}),
	}

	h.mux.HandleFunc("/ws", h.handleWebSocket)
	h.mux.HandleFunc("/", h.handleStatus)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// handleWebSocket сохраняет бинарные сообщения клиента в отдельный файл
func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	h.mutex.Lock()
	if h.closing {
		h.mutex.Unlock()
		http.Error(w, "сервер останавливается", http.StatusServiceUnavailable)
		return
	}
	h.active.Add(1)
	h.mutex.Unlock()
	defer h.active.Done()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Ошибка при апгрейде до WebSocket: %v", err)
		return
	}
	defer conn.Close()

	if !h.track(conn) {
		return
	}
	defer h.untrack(conn)

	clientAddr := conn.RemoteAddr().String()
	log := h.logger.WithField("client", clientAddr)

	// Создаем файл для сохранения потока
	recorder, err := NewRecorder(h.outputDir, h.now())
	if err != nil {
		log.Error("Не удалось создать запись: %v", err)
		return
	}
	defer func() {
		log.Info("Закрытие файла: %s (%d байт)", recorder.Path(), recorder.Written())
		recorder.Close()
	}()

	log.Info("Клиент подключен, запись в файл: %s", recorder.Path())

	// Обработка входящих сообщений
	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				break
			}
			log.Error("Ошибка чтения: %v", err)
			break
		}

		// Обрабатываем только бинарные сообщения (закодированные видеоданные)
		if messageType != websocket.BinaryMessage {
			continue
		}
		if err := recorder.Write(message); err != nil {
			log.Error("Ошибка записи данных: %v", err)
			break
		}
	}

	log.Info("Клиент отключен")
}

// Shutdown закрывает активные WebSocket соединения и ждет,
// пока их записи будут закрыты. Новые подключения отклоняются.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.mutex.Lock()
	h.closing = true
	for conn := range h.conns {
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
			time.Now().Add(time.Second),
		)
		conn.Close()
	}
	h.mutex.Unlock()

	finished := make(chan struct{})
	go func() {
		h.active.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handler) track(conn *websocket.Conn) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if h.closing {
		return false
	}
	h.conns[conn] = struct{}{}
	return true
}

func (h *Handler) untrack(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	delete(h.conns, conn)
}

// handleStatus отдает простую страницу-статус
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := statusPage.Execute(w, h.outputDir); err != nil {
		h.logger.Error("Ошибка отображения статуса: %v", err)
	}
}
