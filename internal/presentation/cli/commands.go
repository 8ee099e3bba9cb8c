package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/jawher/mow.cli"

	"webcam-session/internal/application"
	"webcam-session/internal/domain"
)

const (
	appName = "webcam-client"
	appDesc = "захват веб-камеры и стриминг на сервер"
)

// Config представляет конфигурацию CLI
type Config struct {
	Address    string
	Width      int
	Height     int
	FPS        int
	BitRate    int
	Debug      bool
	DeviceID   string
	FacingMode string
	Audio      bool
	Codec      string
}

// Validate проверяет конфигурацию
func (c *Config) Validate() error {
	if c.Address == "" {
		return errors.New("не указан адрес сервера")
	}
	if c.Width < 0 || c.Height < 0 {
		return fmt.Errorf("некорректный размер кадра: %dx%d", c.Width, c.Height)
	}
	if c.FPS < 0 || c.FPS > 120 {
		return fmt.Errorf("некорректная частота кадров: %d", c.FPS)
	}
	if c.BitRate < 0 {
		return fmt.Errorf("некорректный битрейт: %d", c.BitRate)
	}
	switch c.FacingMode {
	case "", "user", "environment":
	default:
		return fmt.Errorf("некорректный facing mode: %q", c.FacingMode)
	}
	return nil
}

// VideoConfig создает конфигурацию для видеопотока
func (c *Config) VideoConfig() domain.VideoConfig {
	return domain.VideoConfig{
		Constraints: domain.Constraints{
			Video:      true,
			Audio:      c.Audio,
			DeviceID:   c.DeviceID,
			FacingMode: c.FacingMode,
			Width:      c.Width,
			Height:     c.Height,
			FrameRate:  c.FPS,
			BitRate:    c.BitRate,
		},
		CodecName:    c.Codec,
		StreamingURL: fmt.Sprintf("ws://%s/ws", c.Address),
	}
}

// ServiceFactory собирает сервис после разбора конфигурации
type ServiceFactory func(config *Config) (*application.WebcamService, application.Logger)

// CLI представляет CLI интерфейс приложения
type CLI struct {
	build  ServiceFactory
	out    io.Writer
	notify func(c chan<- os.Signal, sig ...os.Signal)
	config *Config
}

// NewCLI создает новый CLI интерфейс
func NewCLI(build ServiceFactory, out io.Writer) *CLI {
	return &CLI{
		build:  build,
		out:    out,
		notify: signal.Notify,
		config: &Config{},
	}
}

// Run разбирает аргументы и выполняет команду
func (c *CLI) Run(args []string) error {
	app := cli.App(appName, appDesc)
	app.ErrorHandling = flag.ContinueOnError
	c.registerOptions(app)

	var runErr error
	run := func(action func(ctx context.Context, service *application.WebcamService, logger application.Logger) error) func() {
		return func() {
			if err := c.config.Validate(); err != nil {
				runErr = err
				return
			}
			service, logger := c.build(c.config)
			runErr = action(context.Background(), service, logger)
		}
	}

	app.Command("devices", "показать список доступных камер", func(cmd *cli.Cmd) {
		cmd.Action = run(c.listDevices)
	})

	app.Command("permission", "показать состояние разрешения на камеру", func(cmd *cli.Cmd) {
		cmd.Action = run(c.showPermission)
	})

	app.Command("next", "показать ID камеры, следующей за указанной", func(cmd *cli.Cmd) {
		cmd.Spec = "[CURRENT]"
		current := cmd.StringArg("CURRENT", "", "ID текущей камеры")
		cmd.Action = run(func(ctx context.Context, service *application.WebcamService, _ application.Logger) error {
			next := application.NextDeviceID(*current, service.ListDevices(ctx))
			fmt.Fprintln(c.out, next)
			return nil
		})
	})

	app.Command("stream", "захват видео и отправка на сервер (SIGHUP переключает камеру)", func(cmd *cli.Cmd) {
		cmd.Action = run(c.stream)
	})
	app.Action = run(c.stream)

	if err := app.Run(args); err != nil {
		return err
	}
	return runErr
}

// registerOptions описывает глобальные опции с переменными окружения
func (c *CLI) registerOptions(app *cli.Cli) {
	app.StringPtr(&c.config.Address, cli.StringOpt{
		Name:   "addr",
		Desc:   "адрес сервера",
		EnvVar: "WEBCAM_ADDR",
		Value:  "localhost:8080",
	})
	app.IntPtr(&c.config.Width, cli.IntOpt{
		Name:   "width",
		Desc:   "ширина видео",
		EnvVar: "WEBCAM_WIDTH",
		Value:  640,
	})
	app.IntPtr(&c.config.Height, cli.IntOpt{
		Name:   "height",
		Desc:   "высота видео",
		EnvVar: "WEBCAM_HEIGHT",
		Value:  480,
	})
	app.IntPtr(&c.config.FPS, cli.IntOpt{
		Name:   "fps",
		Desc:   "частота кадров",
		EnvVar: "WEBCAM_FPS",
		Value:  30,
	})
	app.IntPtr(&c.config.BitRate, cli.IntOpt{
		Name:   "bitrate",
		Desc:   "битрейт видео (bps)",
		EnvVar: "WEBCAM_BITRATE",
		Value:  1_000_000,
	})
	app.StringPtr(&c.config.DeviceID, cli.StringOpt{
		Name:   "device",
		Desc:   "ID устройства камеры для использования",
		EnvVar: "WEBCAM_DEVICE",
	})
	app.StringPtr(&c.config.FacingMode, cli.StringOpt{
		Name:   "facing",
		Desc:   "направление камеры: user или environment",
		EnvVar: "WEBCAM_FACING",
	})
	app.StringPtr(&c.config.Codec, cli.StringOpt{
		Name:   "codec",
		Desc:   "кодек для стриминга",
		EnvVar: "WEBCAM_CODEC",
		Value:  "h264",
	})
	app.BoolPtr(&c.config.Audio, cli.BoolOpt{
		Name:   "audio",
		Desc:   "захватывать также аудио",
		EnvVar: "WEBCAM_AUDIO",
	})
	app.BoolPtr(&c.config.Debug, cli.BoolOpt{
		Name:   "debug",
		Desc:   "включить отладочные сообщения",
		EnvVar: "WEBCAM_DEBUG",
	})
}

// listDevices выводит список доступных устройств
func (c *CLI) listDevices(ctx context.Context, service *application.WebcamService, _ application.Logger) error {
	devices := service.ListDevices(ctx)
	if len(devices) == 0 {
		fmt.Fprintln(c.out, "Камеры не найдены")
		return nil
	}

	fmt.Fprintln(c.out, "Доступные устройства:")
	for i, device := range devices {
		fmt.Fprintf(c.out, "[%d] %s (%s) id=%s\n", i, device.Label, device.Kind, device.DeviceID)
	}

	return nil
}

// showPermission выводит состояние разрешения
func (c *CLI) showPermission(ctx context.Context, service *application.WebcamService, _ application.Logger) error {
	fmt.Fprintln(c.out, service.Permission(ctx))
	return nil
}

// stream запускает захват и ждет сигналов
func (c *CLI) stream(ctx context.Context, service *application.WebcamService, logger application.Logger) error {
	// Настраиваем обработку сигналов
	signals := make(chan os.Signal, 1)
	c.notify(signals, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(signals)

	if err := service.StartCapture(ctx, c.config.VideoConfig()); err != nil {
		return err
	}

	for {
		select {
		case err := <-service.Ended():
			logger.Info("Стриминг завершен, закрытие...")
			if stopErr := service.StopCapture(); stopErr != nil {
				logger.Debug("Ошибка остановки захвата: %v", stopErr)
			}
			return err

		case sig := <-signals:
			if sig != syscall.SIGHUP {
				logger.Info("Прерывание получено, закрытие...")
				// Останавливаем захват
				return service.StopCapture()
			}

			next, err := service.SwitchDevice(ctx)
			if err != nil {
				logger.Error("Не удалось переключить камеру: %v", err)
				return err
			}
			logger.Info("Активная камера: %s", next)
		}
	}
}
