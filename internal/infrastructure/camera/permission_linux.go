//go:build linux

package camera

import (
	"errors"
	"fmt"
	"path/filepath"

	"golang.org/x/sys/unix"

	"webcam-session/internal/domain"
)

var errNoVideoNodes = errors.New("видеоустройства не найдены")

// probePermission проверяет права на чтение и запись узлов V4L2.
// Достаточно одного доступного узла; если все узлы закрыты правами, доступ запрещен.
func probePermission(pattern string) (domain.PermissionState, error) {
	nodes, err := filepath.Glob(pattern)
	if err != nil {
		return "", fmt.Errorf("ошибка поиска устройств %s: %w", pattern, err)
	}
	if len(nodes) == 0 {
		return "", errNoVideoNodes
	}

	denied := 0
	var lastErr error
	for _, node := range nodes {
		err := unix.Access(node, unix.R_OK|unix.W_OK)
		if err == nil {
			return domain.PermissionGranted, nil
		}
		if errors.Is(err, unix.EACCES) || errors.Is(err, unix.EPERM) {
			denied++
			continue
		}
		lastErr = fmt.Errorf("%s: %w", node, err)
	}

	if denied == len(nodes) {
		return domain.PermissionDenied, nil
	}
	return "", lastErr
}
