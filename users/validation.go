package users

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/pkg/errors"

	porterrors "github.com/jrsteele09/go-portal-client/internal/errors"
)

// MinPasswordLength is the shortest password the backend accepts.
const MinPasswordLength = 6

// PasswordChange is the body of POST /api/auth/change-password/.
type PasswordChange struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// ProfilePatch is the body of PATCH /api/auth/profile/. Nil fields are not sent.
type ProfilePatch struct {
	FirstName       *string `json:"first_name,omitempty"`
	LastName        *string `json:"last_name,omitempty"`
	Email           *string `json:"email,omitempty" validate:"omitempty,email"`
	PhoneNumber     *string `json:"phone_number,omitempty" validate:"omitempty,max=15"`
	Address         *string `json:"address,omitempty"`
	Password        string  `json:"password,omitempty" validate:"omitempty,min=6"`
	ConfirmPassword string  `json:"-"`
}

var (
	validatorOnce sync.Once
	validate      *validator.Validate
	translator    ut.Translator
)

func formValidator() (*validator.Validate, ut.Translator) {
	validatorOnce.Do(func() {
		english := en.New()
		translator, _ = ut.New(english, english).GetTranslator("en")
		validate = validator.New()
		_ = en_translations.RegisterDefaultTranslations(validate, translator)

		// Use JSON tag names for errors instead of Go struct names.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate, translator
}

// Validate applies the portal's password rules. The new password may not
// equal the account's national ID, which is the initial password.
func (p PasswordChange) Validate(identity *Identity) error {
	if err := validateStruct(p); err != nil {
		return err
	}
	if identity != nil && identity.NationalID != "" && p.NewPassword == identity.NationalID {
		return errors.Wrap(porterrors.ErrValidation, "new password cannot be the national ID")
	}
	return nil
}

func (p ProfilePatch) Validate() error {
	if err := validateStruct(p); err != nil {
		return err
	}
	if p.Password != "" && p.Password != p.ConfirmPassword {
		return errors.Wrap(porterrors.ErrValidation, "passwords do not match")
	}
	return nil
}

func validateStruct(s any) error {
	v, trans := formValidator()
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return errors.Wrap(err, "validateStruct")
	}
	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		messages = append(messages, fe.Translate(trans))
	}
	return errors.Wrap(porterrors.ErrValidation, strings.Join(messages, "; "))
}
