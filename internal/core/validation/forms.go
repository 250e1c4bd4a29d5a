package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/agadir/task-manager/internal/core/domain"
)

// LoginForm is the input of the sign-in screen.
type LoginForm struct {
	Email    string `json:"email" validate:"required,email_shape"`
	Password string `json:"password" validate:"required"`
}

// RegisterForm is the input of the sign-up screen.
type RegisterForm struct {
	Name            string `json:"name" validate:"name_length"`
	Email           string `json:"email" validate:"required,email_shape"`
	Password        string `json:"password" validate:"required,password_strength"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// TaskForm is the input of the create-task screen.
type TaskForm struct {
	Title       string    `json:"title" validate:"title_length"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date" validate:"required,future"`
}

// Errors maps a form field to its first failing message. It satisfies
// errors.Is(err, domain.ErrValidation).
type Errors map[string]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	msgs := make([]string, 0, len(fields))
	for _, f := range fields {
		msgs = append(msgs, e[f])
	}
	return strings.Join(msgs, "; ")
}

func (e Errors) Unwrap() error {
	return domain.ErrValidation
}

// rules backs the custom validator tags. The same function produces the
// message when a tag fails, so tag and message never disagree.
var rules = map[string]func(reflect.Value) Result{
	"email_shape": func(v reflect.Value) Result {
		return ValidateEmail(v.String())
	},
	"password_strength": func(v reflect.Value) Result {
		return ValidatePassword(v.String())
	},
	"name_length": func(v reflect.Value) Result {
		return ValidateName(v.String())
	},
	"title_length": func(v reflect.Value) Result {
		return ValidateTaskTitle(v.String())
	},
	"future": func(v reflect.Value) Result {
		t, ok := v.Interface().(time.Time)
		if !ok {
			return fail("date is invalid")
		}
		return ValidateFutureDate(t)
	},
}

// Validator checks the form structs above with go-playground/validator.
type Validator struct {
	v *validator.Validate
}

// New returns a Validator with the form tags registered.
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return strings.ToLower(f.Name)
		}
		return name
	})
	if err := registerRules(v, rules); err != nil {
		panic(fmt.Sprintf("validation: %v", err))
	}
	return &Validator{v: v}
}

func registerRules(v *validator.Validate, set map[string]func(reflect.Value) Result) error {
	for tag, rule := range set {
		err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return rule(fl.Field()).Valid
		})
		if err != nil {
			return fmt.Errorf("register %q: %w", tag, err)
		}
	}
	return nil
}

// Struct validates a form and returns Errors, or nil when every field passes.
func (fv *Validator) Struct(form any) error {
	err := fv.v.Struct(form)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	out := make(Errors, len(ve))
	for _, fe := range ve {
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		out[fe.Field()] = fieldError(fe)
	}
	return out
}

func fieldError(fe validator.FieldError) string {
	field := strings.ReplaceAll(fe.Field(), "_", " ")
	if rule, found := rules[fe.Tag()]; found {
		return rule(reflect.ValueOf(fe.Value())).Message
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "eqfield":
		return "passwords do not match"
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}

var defaultValidator = New()

// ValidateLogin checks a sign-in form.
func ValidateLogin(f LoginForm) error {
	return defaultValidator.Struct(f)
}

// ValidateRegister checks a sign-up form.
func ValidateRegister(f RegisterForm) error {
	return defaultValidator.Struct(f)
}

// ValidateTask checks a create-task form.
func ValidateTask(f TaskForm) error {
	return defaultValidator.Struct(f)
}
