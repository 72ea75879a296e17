package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/nyaruka/phonenumbers"
	"golang.org/x/crypto/bcrypt"
)

const (
	msgFieldsRequired  = "Todos os campos são obrigatórios."
	msgRegisterFailed  = "Erro ao registrar usuário."
	msgPasswordTooLong = "A senha deve ter no máximo 72 bytes."
)

// MaxPasswordBytes is the longest password bcrypt accepts
const MaxPasswordBytes = 72

// DefaultPhoneRegion is used to parse numbers without a country prefix
var DefaultPhoneRegion = "BR"

// RegisterUserTimeout bounds the whole registration
var RegisterUserTimeout = time.Second * 10

type RegisterUserMessage struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	CityState string `json:"cityState"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	UseHashid bool   `json:"-"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// Validate requires every field. Whitespace only values count as missing
// and the password must fit in MaxPasswordBytes.
func (e RegisterUserMessage) Validate() error {
	e.FirstName = strings.TrimSpace(e.FirstName)
	e.LastName = strings.TrimSpace(e.LastName)
	e.Phone = strings.TrimSpace(e.Phone)
	e.CityState = strings.TrimSpace(e.CityState)
	e.Email = strings.TrimSpace(e.Email)

	return validation.ValidateStruct(&e,
		validation.Field(&e.FirstName, validation.Required),
		validation.Field(&e.LastName, validation.Required),
		validation.Field(&e.Phone, validation.Required),
		validation.Field(&e.CityState, validation.Required),
		validation.Field(&e.Email, validation.Required),
		validation.Field(&e.Password, validation.Required, validation.By(passwordFitsHash)),
	)
}

func passwordFitsHash(value any) error {
	if s, _ := value.(string); len(s) > MaxPasswordBytes {
		return bcrypt.ErrPasswordTooLong
	}
	return nil
}

func registerValidationMessage(err error) string {
	if errs, ok := err.(validation.Errors); ok && len(errs) == 1 && errors.Is(errs["password"], bcrypt.ErrPasswordTooLong) {
		return msgPasswordTooLong
	}
	return msgFieldsRequired
}

// RegisterUserHandler hashes the password and persists a new Free user
type RegisterUserHandler struct {
	store  UserStore
	hasher PasswordAuthenticator
	logger Logger
}

// NewRegisterUserHandler returns a handler with bcrypt hashing
func NewRegisterUserHandler(store UserStore, logger Logger) *RegisterUserHandler {
	if logger == nil {
		logger = defLogger{}
	}
	return &RegisterUserHandler{
		store:  store,
		hasher: BcryptHasher{},
		logger: logger,
	}
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	if err := event.Validate(); err != nil {
		return nil, NewValidationError(registerValidationMessage(err), err)
	}

	ctx, cancel := context.WithTimeout(ctx, RegisterUserTimeout)
	defer cancel()

	hash, err := h.hasher.HashPassword(event.Password)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, NewValidationError(msgPasswordTooLong, err)
		}
		return nil, NewPersistenceError(err, msgRegisterFailed)
	}

	user := &User{
		FirstName:    strings.TrimSpace(event.FirstName),
		LastName:     strings.TrimSpace(event.LastName),
		Phone:        NormalizePhone(event.Phone, DefaultPhoneRegion),
		CityState:    strings.TrimSpace(event.CityState),
		Email:        NormalizeEmail(event.Email),
		PasswordHash: hash,
		UserType:     UserTypeFree,
	}

	if event.UseHashid {
		if id, err := hashid.NewUUID(user.Email); err == nil {
			user.ID = id
		}
	}

	created, err := h.store.Register(ctx, user)
	if err != nil {
		if IsEmailAlreadyExists(err) {
			h.logger.Warn("register user duplicated email", "email", user.Email)
		} else {
			h.logger.Error("register user persist error", "error", err)
		}
		return nil, NewPersistenceError(err, msgRegisterFailed)
	}

	return created, nil
}

// NormalizePhone formats valid numbers as E.164. Anything that does not
// parse as a valid number for region is kept as given, trimmed.
func NormalizePhone(phone, region string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return phone
	}

	num, err := phonenumbers.Parse(phone, region)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return phone
	}

	return phonenumbers.Format(num, phonenumbers.E164)
}
