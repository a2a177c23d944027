package helpers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gookit/validate"

	"github.com/zsmartex/launchpad/sale"
)

type Errors struct {
	Errors []string `json:"errors"`
}

func (e Errors) Size() int {
	return len(e.Errors)
}

func Validate(payload interface{}, err_src *Errors) {
	v := validate.Struct(payload)
	if !v.Validate() {
		for _, errs := range v.Errors.All() {
			for _, err := range errs {
				err_src.Errors = append(err_src.Errors, err)
			}
		}
	}
}

// HandleError maps a sale error to an error response.
func HandleError(c *fiber.Ctx, err error) error {
	status := 422

	switch {
	case errors.Is(err, sale.ErrUnauthorized):
		status = 403
	case errors.Is(err, sale.ErrTransferFailed), errors.Is(err, sale.ErrReentrancy):
		status = 500
	}

	return c.Status(status).JSON(Errors{
		Errors: []string{err.Error()},
	})
}
