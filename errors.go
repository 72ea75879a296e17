package auth

import (
	stderrors "errors"
	"net/http"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeValidation        = "VALIDATION_ERROR"
	TextCodeTokenMissing      = "TOKEN_MISSING"
	TextCodeTokenMalformed    = "TOKEN_MALFORMED"
	TextCodeTokenInvalid      = "TOKEN_INVALID"
	TextCodeUserNotFound      = "USER_NOT_FOUND"
	TextCodeLoginUserNotFound = "LOGIN_USER_NOT_FOUND"
	TextCodePasswordMismatch  = "PASSWORD_MISMATCH"
	TextCodeEmailExists       = "EMAIL_EXISTS"
	TextCodePersistence       = "PERSISTENCE_ERROR"
	TextCodeUpstream          = "UPSTREAM_ERROR"
)

// ErrMissingToken is returned when the request carries no token at all
var ErrMissingToken = errors.New("Token não fornecido.", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMissing).
	WithCode(errors.CodeUnauthorized)

// ErrMalformedToken is returned when the header does not use the Bearer scheme
var ErrMalformedToken = errors.New("Token mal formatado.", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrInvalidToken covers bad signatures, tampered payloads and expired tokens
var ErrInvalidToken = errors.New("Token inválido ou expirado.", errors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(errors.CodeUnauthorized)

// ErrUserNotFound is returned when a token subject or id has no stored user
var ErrUserNotFound = errors.New("Usuário não encontrado.", errors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(errors.CodeNotFound)

// ErrLoginUserNotFound is the login flavour of a missing user. It answers 400
// like a wrong password does.
var ErrLoginUserNotFound = errors.New("Usuário não encontrado.", errors.CategoryAuth).
	WithTextCode(TextCodeLoginUserNotFound).
	WithCode(errors.CodeBadRequest)

// ErrMismatchedHashAndPassword is returned on a wrong password
var ErrMismatchedHashAndPassword = errors.New("Senha incorreta.", errors.CategoryAuth).
	WithTextCode(TextCodePasswordMismatch).
	WithCode(errors.CodeBadRequest)

// ErrEmailAlreadyExists is returned by stores on a duplicated email
var ErrEmailAlreadyExists = errors.New("email already registered", errors.CategoryConflict).
	WithTextCode(TextCodeEmailExists).
	WithCode(errors.CodeConflict)

// ErrNoEmptyString is returned when hashing an empty password
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithTextCode(TextCodeValidation).
	WithCode(errors.CodeBadRequest)

// ErrUnableToFindUser is returned when a handler runs without the middleware
var ErrUnableToFindUser = stderrors.New("unable to find user in request")

// NewValidationError builds a 400 error with the user facing message
func NewValidationError(message string, err error) *errors.Error {
	if err == nil {
		return errors.New(message, errors.CategoryValidation).
			WithTextCode(TextCodeValidation).
			WithCode(errors.CodeBadRequest)
	}
	return errors.Wrap(err, errors.CategoryValidation, message).
		WithTextCode(TextCodeValidation).
		WithCode(errors.CodeBadRequest)
}

// NewPersistenceError wraps a storage failure into a 500 error
func NewPersistenceError(err error, message string) *errors.Error {
	return errors.Wrap(err, errors.CategoryInternal, message).
		WithTextCode(TextCodePersistence).
		WithCode(errors.CodeInternal)
}

// NewUpstreamError wraps a failure of an external service into a 500 error
func NewUpstreamError(err error, message string) *errors.Error {
	if err == nil {
		return errors.New(message, errors.CategoryOperation).
			WithTextCode(TextCodeUpstream).
			WithCode(errors.CodeInternal)
	}
	return errors.Wrap(err, errors.CategoryOperation, message).
		WithTextCode(TextCodeUpstream).
		WithCode(errors.CodeInternal)
}

// NewUserNotFoundError is ErrUserNotFound carrying lookup metadata
func NewUserNotFoundError(metadata map[string]any) *errors.Error {
	return ErrUserNotFound.Clone().WithMetadata(metadata)
}

// NewEmailExistsError wraps a unique violation on the email column or index
func NewEmailExistsError(err error, email string) *errors.Error {
	return errors.Wrap(err, ErrEmailAlreadyExists.Category, ErrEmailAlreadyExists.Message).
		WithTextCode(ErrEmailAlreadyExists.TextCode).
		WithCode(ErrEmailAlreadyExists.Code).
		WithMetadata(map[string]any{"email": email})
}

// IsUserNotFound reports whether err resolves to a missing user
func IsUserNotFound(err error) bool {
	return hasTextCode(err, TextCodeUserNotFound)
}

// IsEmailAlreadyExists reports whether err is a duplicated email
func IsEmailAlreadyExists(err error) bool {
	return hasTextCode(err, TextCodeEmailExists)
}

func hasTextCode(err error, code string) bool {
	for err != nil {
		if richErr, ok := err.(*errors.Error); ok && richErr.TextCode == code {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// ErrorResponse maps any error to the status code and JSON body sent back
// to clients. Unknown errors become a 500 with the fallback message.
func ErrorResponse(err error, fallback string) (int, map[string]any) {
	var richErr *errors.Error
	if err == nil || !errors.As(err, &richErr) {
		return http.StatusInternalServerError, map[string]any{
			"message": fallback,
		}
	}

	status := richErr.Code
	if status == 0 {
		status = http.StatusInternalServerError
	}

	message := richErr.Message
	if status >= http.StatusInternalServerError {
		message = fallback
	}

	body := map[string]any{
		"message": message,
	}
	if richErr.TextCode != "" {
		body["textCode"] = richErr.TextCode
	}
	return status, body
}

const (
	msgUserLookupFailed    = "Erro interno ao buscar usuário."
	msgProfileUpdateFailed = "Erro ao atualizar os dados do usuário."
	msgProfileUpdated      = "Dados atualizados com sucesso."
	msgProfileLoadFailed   = "Erro ao obter dados do usuário"
	msgAccessGranted       = "Acesso permitido"
	msgCSVUploaderAccess   = "Acesso ao CSV Uploader permitido"
	msgLogout              = "Logout realizado com sucesso!"
	msgLoginSuccess        = "Login bem-sucedido"
	msgLoginFailed         = "Erro ao fazer login."
	msgLoginFieldsRequired = "E-mail e senha são obrigatórios."
	msgRegisterSuccess     = "Usuário registrado com sucesso."
)
