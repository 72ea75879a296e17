package auth_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"

	auth "github.com/goliatone/go-report-auth"
)

func TestErrorResponse(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		message  string
		textCode string
	}{
		{
			name:     "missing token",
			err:      auth.ErrMissingToken,
			status:   http.StatusUnauthorized,
			message:  "Token não fornecido.",
			textCode: auth.TextCodeTokenMissing,
		},
		{
			name:     "malformed token",
			err:      auth.ErrMalformedToken,
			status:   http.StatusUnauthorized,
			message:  "Token mal formatado.",
			textCode: auth.TextCodeTokenMalformed,
		},
		{
			name:     "invalid token",
			err:      auth.ErrInvalidToken,
			status:   http.StatusUnauthorized,
			message:  "Token inválido ou expirado.",
			textCode: auth.TextCodeTokenInvalid,
		},
		{
			name:     "user not found",
			err:      auth.ErrUserNotFound,
			status:   http.StatusNotFound,
			message:  "Usuário não encontrado.",
			textCode: auth.TextCodeUserNotFound,
		},
		{
			name:     "login user not found",
			err:      auth.ErrLoginUserNotFound,
			status:   http.StatusBadRequest,
			message:  "Usuário não encontrado.",
			textCode: auth.TextCodeLoginUserNotFound,
		},
		{
			name:     "wrong password",
			err:      auth.ErrMismatchedHashAndPassword,
			status:   http.StatusBadRequest,
			message:  "Senha incorreta.",
			textCode: auth.TextCodePasswordMismatch,
		},
		{
			name:     "validation",
			err:      auth.NewValidationError("Todos os campos são obrigatórios.", errors.New("firstName: cannot be blank")),
			status:   http.StatusBadRequest,
			message:  "Todos os campos são obrigatórios.",
			textCode: auth.TextCodeValidation,
		},
		{
			name:     "persistence hides details",
			err:      auth.NewPersistenceError(errors.New("db down"), "Erro ao registrar usuário."),
			status:   http.StatusInternalServerError,
			message:  "fallback",
			textCode: auth.TextCodePersistence,
		},
		{
			name:     "upstream hides details",
			err:      auth.NewUpstreamError(nil, "bad gateway"),
			status:   http.StatusInternalServerError,
			message:  "fallback",
			textCode: auth.TextCodeUpstream,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := auth.ErrorResponse(tt.err, "fallback")
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.message, body["message"])
			assert.Equal(t, tt.textCode, body["textCode"])
		})
	}
}

func TestErrorResponse_PlainErrors(t *testing.T) {
	status, body := auth.ErrorResponse(errors.New("boom"), "Erro ao fazer login.")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Erro ao fazer login.", body["message"])
	assert.NotContains(t, body, "textCode")

	status, body = auth.ErrorResponse(nil, "fallback")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "fallback", body["message"])
}

func TestErrorResponse_WrappedRichError(t *testing.T) {
	err := fmt.Errorf("handler: %w", auth.ErrUserNotFound)

	status, body := auth.ErrorResponse(err, "fallback")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Usuário não encontrado.", body["message"])
}

func TestIsUserNotFound(t *testing.T) {
	assert.True(t, auth.IsUserNotFound(auth.ErrUserNotFound))
	assert.True(t, auth.IsUserNotFound(auth.NewUserNotFoundError(map[string]any{"id": "x"})))
	assert.True(t, auth.IsUserNotFound(fmt.Errorf("wrapped: %w", auth.ErrUserNotFound)))
	assert.False(t, auth.IsUserNotFound(auth.ErrLoginUserNotFound))
	assert.False(t, auth.IsUserNotFound(errors.New("user not found")))
	assert.False(t, auth.IsUserNotFound(nil))
}

func TestIsEmailAlreadyExists(t *testing.T) {
	dup := auth.NewEmailExistsError(errors.New("UNIQUE constraint failed: users.email"), "ana@example.com")
	assert.True(t, auth.IsEmailAlreadyExists(dup))
	assert.Equal(t, http.StatusConflict, dup.Code)
	assert.Equal(t, "ana@example.com", dup.Metadata["email"])

	// still detectable once the register flow wraps it
	wrapped := auth.NewPersistenceError(dup, "Erro ao registrar usuário.")
	assert.True(t, auth.IsEmailAlreadyExists(wrapped))

	status, _ := auth.ErrorResponse(wrapped, "Erro ao registrar usuário.")
	assert.Equal(t, http.StatusInternalServerError, status)

	assert.False(t, auth.IsEmailAlreadyExists(errors.New("duplicate")))
}

func TestNewUserNotFoundError_DoesNotMutateSentinel(t *testing.T) {
	err := auth.NewUserNotFoundError(map[string]any{"email": "x@y.z"})

	var richErr *goerrors.Error
	assert.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, "x@y.z", richErr.Metadata["email"])
	assert.NotContains(t, auth.ErrUserNotFound.Metadata, "email")
}
