package handlers

import (
	"reflect"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/gofiber/fiber/v2"
)

func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}

	if utf8.RuneCountInString(s) < max {
		return s
	}

	return string([]rune(s)[:max])
}

// ValidateInput runs struct validation and returns translated field errors,
// one fiber.Map per failed field, nil when the input is clean.
func ValidateInput(input any) []fiber.Map {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	en := en.New()
	uni := ut.New(en, en)
	trans, _ := uni.GetTranslator("en")
	en_translations.RegisterDefaultTranslations(validate, trans)

	err := validate.Struct(input)

	if err == nil {
		return nil
	}

	var errors []fiber.Map

	errs := err.(validator.ValidationErrors)

	for _, v := range errs {
		errors = append(errors, fiber.Map{
			"field":   v.Field(),
			"message": v.Translate(trans),
		})
	}

	return errors
}
