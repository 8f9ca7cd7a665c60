package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	appErrors "github.com/emontalvo/tienda-storefront/internal/errors"
	"github.com/go-playground/validator/v10"
)

func DecodeJSONBody(r *http.Request, dest any) error {

	body, err := io.ReadAll(r.Body)
	if err != nil {
		slog.Error("Failed to read request body",
			slog.String("error", err.Error()),
			slog.String("endpoint", r.URL.Path),
		)

		return fmt.Errorf("failed to read request body: %w", err)
	}

	defer r.Body.Close()

	if len(body) == 0 {
		return errors.New("request body cannot be empty")
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("invalid JSON format: %w", err)
	}

	return nil
}

func ValidateStruct(validate *validator.Validate, data any) error {
	if err := validate.Struct(data); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return fmt.Errorf("validation error: %w", validationErrs)
		}

		return fmt.Errorf("unexpected validation error: %w", err)
	}

	return nil
}

// ParseInt64ID reads an integer path value, e.g. a product id.
func ParseInt64ID(r *http.Request, name string) (int64, error) {
	raw := r.PathValue(name)
	if raw == "" {
		return 0, appErrors.BadRequestError(fmt.Sprintf("Missing path parameter '%s'", name))
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, appErrors.BadRequestError(fmt.Sprintf("Invalid id '%s'", raw)).WithError(err)
	}

	return id, nil
}
