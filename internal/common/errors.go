// Package common holds the error taxonomy, metadata keys and small random
// helpers shared by the Caliope client and the identity gateway. Callers match
// errors with errors.Is.
package common

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateIdentity  = errors.New("duplicate identity")
	ErrNoActiveSession    = errors.New("no active session")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrNotFound           = errors.New("not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrUpstreamFailure    = errors.New("upstream failure")

	// ErrUserCancelled is a signal, not a failure: the user closed the
	// federated sign-in flow. It is never shown as a notification.
	ErrUserCancelled = errors.New("user cancelled")

	// Gateway token lifecycle.
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)

// userMessages maps the taxonomy to the texts shown to the user.
var userMessages = []struct {
	err error
	msg string
}{
	{ErrInvalidCredentials, "Correo electrónico o contraseña incorrectos."},
	{ErrDuplicateIdentity, "El correo electrónico ya está registrado."},
	{ErrNoActiveSession, "No hay usuario autenticado."},
	{ErrBackendUnavailable, "El servicio no está disponible en este momento."},
	{ErrNotFound, "No se encontró el recurso solicitado."},
	{ErrInvalidArgument, "Los datos introducidos no son válidos."},
	{ErrUpstreamFailure, "No pude procesar tu solicitud. Por favor, inténtalo de nuevo."},
}

// UserMessage returns the user-facing text for err. Unknown errors get a
// generic message; nil and ErrUserCancelled yield an empty string.
func UserMessage(err error) string {
	if err == nil || errors.Is(err, ErrUserCancelled) {
		return ""
	}
	for _, m := range userMessages {
		if errors.Is(err, m.err) {
			return m.msg
		}
	}
	return "Ocurrió un error."
}
