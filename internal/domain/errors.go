package domain

import "errors"

// Errores base del simulador. Se envuelven con fmt.Errorf("...: %w", Err...)
// para que el llamador pueda clasificarlos con errors.Is.
var (
	// ErrConfiguration: parámetros inválidos o ausentes. Aborta el run antes de
	// lanzar cualquier trial.
	ErrConfiguration = errors.New("configuration error")

	// ErrUnknownAccountType: la clave "<company>:<account>" no existe en el registry.
	ErrUnknownAccountType = errors.New("unknown account type")

	// ErrData: un trade del log está mal formado. Solo falla el trial que lo toca.
	ErrData = errors.New("data error")

	// ErrEmptyResult: el filtro por end state no dejó ningún trial.
	ErrEmptyResult = errors.New("no matching trials")

	// ErrRunNotFound: el run pedido no está en el storage.
	ErrRunNotFound = errors.New("run not found")
)

// IsFatal indica si el error debe abortar el run completo (fase de configuración).
func IsFatal(err error) bool {
	return errors.Is(err, ErrConfiguration) || errors.Is(err, ErrUnknownAccountType)
}
