package main

import (
	"errors"
	"os"

	log "github.com/sirupsen/logrus"

	"webcam-session/internal/application"
	"webcam-session/internal/infrastructure/camera"
	"webcam-session/internal/infrastructure/logger"
	"webcam-session/internal/infrastructure/streaming"
	"webcam-session/internal/presentation/cli"
)

func main() {
	// Сервис собирается после разбора флагов, чтобы учесть --debug
	build := func(config *cli.Config) (*application.WebcamService, application.Logger) {
		appLogger := logger.NewLogrusLogger(config.Debug)

		host := camera.NewMediaDevicesHost(appLogger)
		session := application.NewCameraSession(host, appLogger)
		streamer := streaming.NewWebSocketStreamer(appLogger, config.Debug)

		return application.NewWebcamService(session, streamer, appLogger), appLogger
	}

	err := cli.NewCLI(build, os.Stdout).Run(os.Args)
	if err != nil {
		var acqErr *application.AcquisitionError
		if errors.As(err, &acqErr) {
			log.WithError(acqErr.Err).WithField("device", acqErr.Constraints.DeviceID).Fatal("Не удалось открыть камеру")
		}
		log.WithError(err).Fatal("Ошибка")
	}
}
