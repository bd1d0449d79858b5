package utils

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"billsplit-backend/ledger"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "ValidationMapsToBadRequest",
			err:        ledger.ValidationError{Message: "total amount must be greater than zero"},
			wantStatus: http.StatusBadRequest,
			wantBody:   "total amount must be greater than zero",
		},
		{
			name:       "NotFoundMapsToNotFound",
			err:        ledger.NotFoundError{Resource: "bill", ID: uuid.Nil},
			wantStatus: http.StatusNotFound,
			wantBody:   "bill not found",
		},
		{
			name:       "AuthorizationMapsToForbidden",
			err:        ledger.AuthorizationError{Message: "only the debtor can mark a payment as paid"},
			wantStatus: http.StatusForbidden,
			wantBody:   "only the debtor",
		},
		{
			name:       "ConflictMapsToConflict",
			err:        ledger.ConflictError{Message: "cannot confirm a payment while the share is unpaid"},
			wantStatus: http.StatusConflict,
			wantBody:   "cannot confirm",
		},
		{
			name:       "UntypedErrorStaysGeneric",
			err:        errors.New("pq: connection refused"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   "Something went wrong",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			RespondError(c, tc.err)

			assert.Equal(t, tc.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tc.wantBody)
			assert.Contains(t, w.Body.String(), `"success":false`)
		})
	}
}

func TestGetCurrentUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("ReturnsStoredID", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		id := uuid.New()
		c.Set("user_id", id)
		assert.Equal(t, id, GetCurrentUserID(c))
	})

	t.Run("NilWithoutAuth", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		assert.Equal(t, uuid.Nil, GetCurrentUserID(c))
	})
}

func TestRoundToTwo(t *testing.T) {
	assert.Equal(t, 33.33, RoundToTwo(33.333333))
	assert.Equal(t, 66.67, RoundToTwo(66.666666))
	assert.Equal(t, 100.0, RoundToTwo(100.0))
	assert.Equal(t, 0.0, RoundToTwo(0))
}

func TestPaginationOffset(t *testing.T) {
	p := PaginationQuery{Page: 3, Limit: 20}
	assert.Equal(t, 40, p.Offset())

	first := PaginationQuery{Page: 1, Limit: 50}
	assert.Equal(t, 0, first.Offset())
}
