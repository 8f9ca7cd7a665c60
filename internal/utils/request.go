package utils

import (
	"fmt"
	"log/slog"
	"net/http"

	appErrors "github.com/emontalvo/tienda-storefront/internal/errors"
	"github.com/emontalvo/tienda-storefront/internal/utils/response"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

func ParseAndValidate(r *http.Request, w http.ResponseWriter, dest any, validate *validator.Validate) bool {

	if err := DecodeJSONBody(r, dest); err != nil {
		slog.Warn("Invalid request", slog.String("error", err.Error()))
		response.Error(w, appErrors.BadRequestError(err.Error()))

		return false
	}

	if err := ValidateStruct(validate, dest); err != nil {
		slog.Warn("Validation failed", slog.String("error", err.Error()))
		response.Error(w, appErrors.ValidationError("Invalid input data").WithError(err))

		return false
	}

	return true
}

// ParseUUID reads a uuid path value, e.g. an order or payment id.
func ParseUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := r.PathValue(name)
	if raw == "" {
		return uuid.Nil, appErrors.BadRequestError(fmt.Sprintf("Missing path parameter '%s'", name))
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, appErrors.BadRequestError(fmt.Sprintf("Invalid id '%s'", raw)).WithError(err)
	}

	return id, nil
}
