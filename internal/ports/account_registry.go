package ports

import "github.com/razor389/prop-simulator/internal/domain"

// AccountRegistry resuelve claves "<company>:<account>" a parámetros de cuenta.
type AccountRegistry interface {
	// Lookup devuelve domain.ErrUnknownAccountType si la clave no existe.
	Lookup(key string) (domain.AccountTypeParams, error)

	// Keys lista las claves conocidas, ordenadas.
	Keys() []string
}
