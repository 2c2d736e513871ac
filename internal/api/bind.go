package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 16

var (
	validateOnce sync.Once
	validate     *validator.Validate
	translator   ut.Translator
)

// validatorInstance returns the shared validator, reporting fields by their
// JSON names with English messages.
func validatorInstance() (*validator.Validate, ut.Translator) {
	validateOnce.Do(func() {
		loc := en.New()
		trans, _ := ut.New(loc, loc).GetTranslator("en")

		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
		_ = entranslations.RegisterDefaultTranslations(v, trans)

		validate, translator = v, trans
	})
	return validate, translator
}

// decodeJSON reads a single JSON object into T and validates it. Unknown
// fields and trailing data are rejected.
func decodeJSON[T any](r *http.Request) (T, error) {
	var dst T
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&dst); err != nil {
		if errors.Is(err, io.EOF) {
			return dst, errors.New("empty body")
		}
		return dst, fmt.Errorf("invalid JSON: %w", err)
	}
	if dec.More() {
		return dst, errors.New("unexpected trailing data")
	}

	v, trans := validatorInstance()
	if err := v.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return dst, errors.New(verrs[0].Translate(trans))
		}
		return dst, err
	}
	return dst, nil
}
