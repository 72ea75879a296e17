package auth

import (
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// RegisterAuthRoutes mounts the account routes on app and returns the
// controller serving them.
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	protected := controller.HTTP.ProtectedRoute(nil, nil)

	app.Post(controller.Routes.Register, controller.RegistrationCreate).
		SetName("register.post")
	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("sign-in.post")
	app.Post(controller.Routes.Logout, controller.LogOut).
		SetName("sign-out.post")

	app.Post(controller.Routes.VerifyToken, controller.VerifyToken, protected).
		SetName("verify-token.post")
	app.Get(controller.Routes.Profile, controller.ProfileShow, protected).
		SetName("profile.get")
	app.Put(controller.Routes.ProfileEdit, controller.ProfileEdit, protected).
		SetName("profile-edit.put")
	app.Get(controller.Routes.Editor, controller.ProfileShow, protected).
		SetName("editor.get")
	app.Get(controller.Routes.CSVUploader, controller.CSVUploader, protected).
		SetName("csv-uploader.get")

	return controller
}

type AuthControllerRoutes struct {
	Register    string
	Login       string
	Logout      string
	VerifyToken string
	Profile     string
	ProfileEdit string
	Editor      string
	CSVUploader string
}

type AuthController struct {
	Debug        bool
	Logger       Logger
	Auth         Authenticator
	HTTP         HTTPAuthenticator
	Routes       *AuthControllerRoutes
	ErrorHandler func(c router.Context, err error, fallback string) error
}

type AuthControllerOption func(*AuthController) *AuthController

// WithAuthenticator sets the authenticator used by the handlers
func WithAuthenticator(auth Authenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auth = auth
		return c
	}
}

// WithHTTPAuthenticator sets the route authenticator
func WithHTTPAuthenticator(http HTTPAuthenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.HTTP = http
		return c
	}
}

// WithControllerLogger sets the controller logger
func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

// WithDebug dumps request payloads, passwords redacted
func WithDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

// WithRoutes overrides the route paths
func WithRoutes(routes AuthControllerRoutes) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Routes = &routes
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			Register:    "/register",
			Login:       "/login",
			Logout:      "/logout",
			VerifyToken: "/verify-token",
			Profile:     "/profile",
			ProfileEdit: "/profile/edit",
			Editor:      "/editor",
			CSVUploader: "/csvUploader",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = c.defaultErrHandler
	}

	if c.Auth == nil {
		panic("Missing Authenticator in auth controller...")
	}

	if c.HTTP == nil {
		panic("Missing HTTPAuthenticator in auth controller...")
	}

	return c
}

// RegistrationCreatePayload is the register request body
type RegistrationCreatePayload struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	CityState string `json:"cityState"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

func (a *AuthController) RegistrationCreate(ctx router.Context) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register user parse payload", "error", err)
		return a.ErrorHandler(ctx, NewValidationError(msgFieldsRequired, err), msgRegisterFailed)
	}

	a.dump("register", RegistrationCreatePayload{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Phone:     payload.Phone,
		CityState: payload.CityState,
		Email:     payload.Email,
		Password:  redacted(payload.Password),
	})

	req := RegisterUserMessage{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Phone:     payload.Phone,
		CityState: payload.CityState,
		Email:     payload.Email,
		Password:  payload.Password,
	}

	if _, err := a.Auth.Register(ctx.Context(), req); err != nil {
		return a.ErrorHandler(ctx, err, msgRegisterFailed)
	}

	return ctx.JSON(http.StatusCreated, map[string]any{
		"message": msgRegisterSuccess,
	})
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// GetIdentifier returns the email
func (r LoginRequest) GetIdentifier() string {
	return r.Email
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return a.ErrorHandler(ctx, NewValidationError(msgLoginFieldsRequired, err), msgLoginFailed)
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, NewValidationError(msgLoginFieldsRequired, err), msgLoginFailed)
	}

	a.dump("login", LoginRequest{Email: payload.Email, Password: redacted(payload.Password)})

	res, err := a.HTTP.Login(ctx, payload)
	if err != nil {
		return a.ErrorHandler(ctx, err, msgLoginFailed)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"message":  msgLoginSuccess,
		"token":    res.Token,
		"userType": res.UserType,
	})
}

func (a *AuthController) LogOut(ctx router.Context) error {
	a.HTTP.Logout(ctx)

	user, _ := GetRouterUser(ctx, a.HTTP.GetContextKey())
	emitActivity(ctx.Context(), activitySinkOf(a.Auth), a.Logger, ActivityEventLogout, user, nil)

	return ctx.JSON(router.StatusOK, map[string]any{
		"message": msgLogout,
	})
}

func (a *AuthController) VerifyToken(ctx router.Context) error {
	user, err := MustGetRouterUser(ctx, a.HTTP.GetContextKey())
	if err != nil {
		return a.ErrorHandler(ctx, err, msgUserLookupFailed)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"message":     msgAccessGranted,
		"userId":      user.ID.String(),
		"userProfile": ProfileFromUser(user, msgAccessGranted),
	})
}

func (a *AuthController) ProfileShow(ctx router.Context) error {
	user, err := MustGetRouterUser(ctx, a.HTTP.GetContextKey())
	if err != nil {
		return a.ErrorHandler(ctx, err, msgProfileLoadFailed)
	}

	return ctx.JSON(router.StatusOK, ProfileFromUser(user, msgAccessGranted))
}

// ProfileEditPayload holds the editable profile fields
type ProfileEditPayload struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	CityState string `json:"cityState"`
}

// Validate requires every editable field
func (r ProfileEditPayload) Validate() error {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Phone = strings.TrimSpace(r.Phone)
	r.CityState = strings.TrimSpace(r.CityState)

	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required),
		validation.Field(&r.LastName, validation.Required),
		validation.Field(&r.Phone, validation.Required),
		validation.Field(&r.CityState, validation.Required),
	)
}

// ToProfileEdit trims the values and normalizes the phone
func (r ProfileEditPayload) ToProfileEdit() ProfileEdit {
	return ProfileEdit{
		FirstName: strings.TrimSpace(r.FirstName),
		LastName:  strings.TrimSpace(r.LastName),
		Phone:     NormalizePhone(r.Phone, DefaultPhoneRegion),
		CityState: strings.TrimSpace(r.CityState),
	}
}

func (a *AuthController) ProfileEdit(ctx router.Context) error {
	user, err := MustGetRouterUser(ctx, a.HTTP.GetContextKey())
	if err != nil {
		return a.ErrorHandler(ctx, err, msgProfileUpdateFailed)
	}

	payload := new(ProfileEditPayload)
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, NewValidationError(msgFieldsRequired, err), msgProfileUpdateFailed)
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, NewValidationError(msgFieldsRequired, err), msgProfileUpdateFailed)
	}

	a.dump("profile edit", payload)

	updated, err := a.Auth.UpdateProfile(ctx.Context(), user, payload.ToProfileEdit())
	if err != nil {
		return a.ErrorHandler(ctx, err, msgProfileUpdateFailed)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"message": msgProfileUpdated,
		"user":    updated,
	})
}

func (a *AuthController) CSVUploader(ctx router.Context) error {
	user, err := MustGetRouterUser(ctx, a.HTTP.GetContextKey())
	if err != nil {
		return a.ErrorHandler(ctx, err, msgProfileLoadFailed)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"message": msgCSVUploaderAccess,
		"userId":  user.ID.String(),
	})
}

func (a *AuthController) dump(label string, payload any) {
	if !a.Debug {
		return
	}
	a.Logger.Debug("payload "+label, "body", print.MaybePrettyJSON(payload))
}

func (a *AuthController) defaultErrHandler(c router.Context, err error, fallback string) error {
	status, body := ErrorResponse(err, fallback)
	if status >= router.StatusInternalServerError {
		a.Logger.Error("request failed", "path", c.OriginalURL(), "error", err)
	} else {
		a.Logger.Info("request rejected", "path", c.OriginalURL(), "status", status, "error", err)
	}
	return c.JSON(status, body)
}

func redacted(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}

type activitySinkProvider interface {
	ActivitySink() ActivitySink
}

func activitySinkOf(auth Authenticator) ActivitySink {
	if p, ok := auth.(activitySinkProvider); ok {
		return p.ActivitySink()
	}
	return noopActivitySink{}
}
