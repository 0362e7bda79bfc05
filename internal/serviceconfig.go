package internal

import (
	"bytes"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/oauth2/google"
)

// OAuth scopes accepted by the reporting service.
const (
	ScopeAnalytics         = "https://www.googleapis.com/auth/analytics"
	ScopeAnalyticsReadonly = "https://www.googleapis.com/auth/analytics.readonly"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("private_key", validatePrivateKey)
	return v
}

// validatePrivateKey accepts PEM data holding a PKCS#8 or PKCS#1 private key.
func validatePrivateKey(fl validator.FieldLevel) bool {
	key, ok := fl.Field().Interface().([]byte)
	if !ok {
		return false
	}
	return parsePrivateKey(key) == nil
}

func parsePrivateKey(key []byte) error {
	block, _ := pem.Decode(key)
	if block == nil {
		return errors.New("no PEM block found")
	}
	if _, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		return nil
	}
	if _, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return nil
	}
	return errors.New("PEM block does not contain a private key")
}

type serviceSettings struct {
	ServiceAccountID string `validate:"required"`
	PrivateKey       []byte `validate:"required,private_key"`
	PrivateKeyID     string
	Scope            string `validate:"required,oneof=https://www.googleapis.com/auth/analytics https://www.googleapis.com/auth/analytics.readonly"`
	GZipEnabled      bool
	ApplicationName  string
}

// ServiceConfiguration holds the validated, per-client transport settings.
type ServiceConfiguration struct {
	settings serviceSettings
}

func (c ServiceConfiguration) ServiceAccountID() string {
	return c.settings.ServiceAccountID
}

// PrivateKey returns a copy of the PEM-encoded service account key.
func (c ServiceConfiguration) PrivateKey() []byte {
	return bytes.Clone(c.settings.PrivateKey)
}

func (c ServiceConfiguration) PrivateKeyID() string {
	return c.settings.PrivateKeyID
}

func (c ServiceConfiguration) Scope() string {
	return c.settings.Scope
}

func (c ServiceConfiguration) GZipEnabled() bool {
	return c.settings.GZipEnabled
}

func (c ServiceConfiguration) ApplicationName() string {
	return c.settings.ApplicationName
}

// UserAgent is the application name, marked with " (gzip)" when compression is on.
func (c ServiceConfiguration) UserAgent() string {
	if c.settings.GZipEnabled {
		return c.settings.ApplicationName + " (gzip)"
	}
	return c.settings.ApplicationName
}

// ServiceConfigurer collects service settings. Defaults: read-only scope, gzip
// enabled, empty application name.
type ServiceConfigurer struct {
	settings serviceSettings
	err      error
}

func NewServiceConfigurer() *ServiceConfigurer {
	return &ServiceConfigurer{
		settings: serviceSettings{
			Scope:       ScopeAnalyticsReadonly,
			GZipEnabled: true,
		},
	}
}

func (c *ServiceConfigurer) WithApplicationName(name string) *ServiceConfigurer {
	if !isBlank(name) {
		c.settings.ApplicationName = name
	}
	return c
}

func (c *ServiceConfigurer) WithServiceAccountID(id string) *ServiceConfigurer {
	c.settings.ServiceAccountID = id
	return c
}

// WithPrivateKey sets the PEM-encoded service account key.
func (c *ServiceConfigurer) WithPrivateKey(key []byte) *ServiceConfigurer {
	if err := parsePrivateKey(key); err != nil {
		c.fail(fmt.Errorf("%w: unable to verify private key: %v", ErrConfigurationInvalid, err))
		return c
	}
	c.settings.PrivateKey = bytes.Clone(key)
	return c
}

// WithServiceAccount sets the account id and its PEM-encoded key.
func (c *ServiceConfigurer) WithServiceAccount(id string, key []byte) *ServiceConfigurer {
	return c.WithServiceAccountID(id).WithPrivateKey(key)
}

// WithKeyFile loads credentials from a service account JSON key file or a PEM
// private key file. A JSON key also supplies the account id unless one is set.
func (c *ServiceConfigurer) WithKeyFile(path string) *ServiceConfigurer {
	if isBlank(path) {
		c.fail(fmt.Errorf("%w: service account key file is required", ErrConfigurationInvalid))
		return c
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.fail(fmt.Errorf("%w: unable to locate service account key: [%s]", ErrConfigurationInvalid, path))
			return c
		}
		c.fail(fmt.Errorf("%w: unable to read service account key %s: %v", ErrConfigurationInvalid, path, err))
		return c
	}

	if !strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
		return c.WithPrivateKey(data)
	}

	jwtConfig, err := google.JWTConfigFromJSON(data, c.settings.Scope)
	if err != nil {
		c.fail(fmt.Errorf("%w: invalid service account key %s: %v", ErrConfigurationInvalid, path, err))
		return c
	}
	if c.settings.ServiceAccountID == "" {
		c.settings.ServiceAccountID = jwtConfig.Email
	}
	c.settings.PrivateKeyID = jwtConfig.PrivateKeyID
	return c.WithPrivateKey(jwtConfig.PrivateKey)
}

// WithScope sets the OAuth scope; blank restores the read-only default.
func (c *ServiceConfigurer) WithScope(scope string) *ServiceConfigurer {
	if isBlank(scope) {
		scope = ScopeAnalyticsReadonly
	}
	c.settings.Scope = scope
	return c
}

func (c *ServiceConfigurer) WithGZipEnabled(enabled bool) *ServiceConfigurer {
	c.settings.GZipEnabled = enabled
	return c
}

func (c *ServiceConfigurer) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

// Build validates the settings. Failures wrap ErrConfigurationInvalid.
func (c *ServiceConfigurer) Build() (ServiceConfiguration, error) {
	if c.err != nil {
		return ServiceConfiguration{}, c.err
	}
	if err := validate.Struct(c.settings); err != nil {
		return ServiceConfiguration{}, fmt.Errorf("%w: %s", ErrConfigurationInvalid, describeValidation(err))
	}
	settings := c.settings
	settings.PrivateKey = bytes.Clone(c.settings.PrivateKey)
	return ServiceConfiguration{settings: settings}, nil
}

func describeValidation(err error) string {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err.Error()
	}
	messages := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		switch fe.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", fe.Field()))
		case "oneof":
			messages = append(messages, fmt.Sprintf("invalid analytics scope: [%v]", fe.Value()))
		case "private_key":
			messages = append(messages, "service account key does not contain a private key")
		default:
			messages = append(messages, fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(messages, "; ")
}
