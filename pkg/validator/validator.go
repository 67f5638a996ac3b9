package validator

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// DefaultMaxUsernameLength applies when no explicit limit is configured.
const DefaultMaxUsernameLength = 150

var (
	once     sync.Once
	validate *validator.Validate

	// Non-space, at least one more character, non-space.
	passwordPattern = regexp.MustCompile(`^\S.+\S$`)
)

// ValidationError represents a single field validation failure.
type ValidationError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Param string `json:"param"`
}

// ValidationErrors collects multiple validation failures.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation failed"
	}

	parts := make([]string, len(v))
	for i, err := range v {
		if err.Param != "" {
			parts[i] = err.Field + " failed on " + err.Tag + "=" + err.Param
		} else {
			parts[i] = err.Field + " failed on " + err.Tag
		}
	}
	return strings.Join(parts, "; ")
}

// ValidateStruct validates a struct using registered rules.
func ValidateStruct(s interface{}) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	if ve, ok := err.(validator.ValidationErrors); ok {
		failures := make(ValidationErrors, 0, len(ve))
		for _, fe := range ve {
			failures = append(failures, ValidationError{
				Field: fe.Field(),
				Tag:   fe.Tag(),
				Param: fe.Param(),
			})
		}
		return failures
	}

	return err
}

// RegisterValidation exposes underlying validator custom rules.
func RegisterValidation(tag string, fn validator.Func) error {
	return getValidator().RegisterValidation(tag, fn)
}

// IsBlank reports whether s is nil, empty or whitespace only.
func IsBlank(s *string) bool {
	return s == nil || IsBlankString(*s)
}

// IsBlankString is IsBlank for plain strings.
func IsBlankString(s string) bool {
	return strings.TrimSpace(s) == ""
}

// ValidPassword reports whether p has no leading or trailing whitespace and is at least three characters long.
func ValidPassword(p string) bool {
	return passwordPattern.MatchString(p)
}

// ValidEmail applies the validator "email" rule to a single address.
func ValidEmail(email string) bool {
	return getValidator().Var(email, "required,email") == nil
}

// UsernamePattern compiles the allow-listed username rule for the given maximum length.
func UsernamePattern(maxLength int) *regexp.Regexp {
	if maxLength <= 0 {
		maxLength = DefaultMaxUsernameLength
	}
	return regexp.MustCompile(fmt.Sprintf(`^[A-Za-z0-9_-]{1,%d}$`, maxLength))
}

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := fld.Tag.Get("json")
			if name == "" {
				return fld.Name
			}

			comma := strings.Index(name, ",")
			if comma != -1 {
				name = name[:comma]
			}

			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = validate.RegisterValidation("password", func(fl validator.FieldLevel) bool {
			return ValidPassword(fl.Field().String())
		})
	})
	return validate
}
