package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/artisanmart/storefront/pkg/apperr"
)

var errSoldOut = errors.New("sold out")

func TestClassifiedErrorUnwraps(t *testing.T) {
	err := fmt.Errorf("place order: %w", apperr.Conflict("checkout.reserve", "Insufficient stock for Vase", errSoldOut))

	assert.ErrorIs(t, err, errSoldOut)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	assert.Equal(t, http.StatusConflict, apperr.Status(err))
	assert.Equal(t, "Insufficient stock for Vase", apperr.Message(err))
}

func TestInternalErrorsHideCause(t *testing.T) {
	err := apperr.Internal("orders.create", errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, apperr.Status(err))
	assert.NotContains(t, apperr.Message(err), "pq")
	assert.Equal(t, http.StatusInternalServerError, apperr.Status(errors.New("plain")))
}

func TestStatusPerKind(t *testing.T) {
	cases := map[apperr.Kind]int{
		apperr.KindValidation:   http.StatusBadRequest,
		apperr.KindUnauthorized: http.StatusUnauthorized,
		apperr.KindForbidden:    http.StatusForbidden,
		apperr.KindNotFound:     http.StatusNotFound,
		apperr.KindConflict:     http.StatusConflict,
	}
	for kind, status := range cases {
		assert.Equal(t, status, apperr.Status(apperr.E("op", kind, "msg", nil)), kind.String())
	}
}
