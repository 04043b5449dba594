package session

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/staffhub-dev/staffhub/internal/cli/client"
)

// User types accepted at registration
const (
	RoleCompany    = "BEDRIJF"
	RoleBureau     = "BUREAU"
	RoleFreelancer = "ZZP"
)

// RegisterData is the signup form
type RegisterData struct {
	Name             string `json:"name" validate:"required"`
	Email            string `json:"email" validate:"required,email"`
	Password         string `json:"password" validate:"required,min=8"`
	OrganizationName string `json:"organization_name"`
	Role             string `json:"role" validate:"required,oneof=BEDRIJF BUREAU ZZP"`
}

// ProfileUpdate is a partial profile change. Nil fields are left alone.
type ProfileUpdate struct {
	Name              *string `json:"name" validate:"omitnil,notblank"`
	OrganizationName  *string `json:"organization_name"`
	NotificationEmail *string `json:"notification_email" validate:"omitempty,email"`
}

func (p ProfileUpdate) empty() bool {
	return p.Name == nil && p.OrganizationName == nil && p.NotificationEmail == nil
}

func (p ProfileUpdate) request() client.ProfileUpdate {
	trim := func(s *string) *string {
		if s == nil {
			return nil
		}
		v := strings.TrimSpace(*s)
		return &v
	}
	return client.ProfileUpdate{
		Name:              trim(p.Name),
		OrganizationName:  trim(p.OrganizationName),
		NotificationEmail: trim(p.NotificationEmail),
	}
}

type credential struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type emailOnly struct {
	Email string `json:"email" validate:"required,email"`
}

type passwordReset struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

var (
	validateOnce    sync.Once
	structValidator *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
			return strings.TrimSpace(fl.Field().String()) != ""
		})
		structValidator = v
	})
	return structValidator
}

// validate checks input before any network call. invalid is true when res should be returned as is.
func validate(input any) (res Result, invalid bool) {
	err := validatorInstance().Struct(input)
	if err == nil {
		return Result{}, false
	}
	return Result{Error: validationMessage(err), Kind: client.KindValidation}, true
}

func validateProfile(update ProfileUpdate) (Result, bool) {
	if update.empty() {
		return Result{Error: "No fields to update", Kind: client.KindValidation}, true
	}
	return validate(update)
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid input"
	}

	fe := verrs[0]
	field := strings.ReplaceAll(fe.Field(), "_", " ")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "notblank":
		return fmt.Sprintf("%s cannot be empty", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
