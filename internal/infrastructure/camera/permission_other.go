//go:build !linux

package camera

import (
	"errors"

	"webcam-session/internal/domain"
)

var errPermissionUnsupported = errors.New("проверка разрешений не поддерживается на этой платформе")

func probePermission(string) (domain.PermissionState, error) {
	return "", errPermissionUnsupported
}
