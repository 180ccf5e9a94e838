package activities

import (
	"errors"
	"testing"

	"tutorflow/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
)

func TestMissingClassificationFields(t *testing.T) {
	cases := []struct {
		name string
		req  models.Request
		want []string
	}{
		{"all present", models.Request{Tag: "math", Level: "beginner"}, []string{}},
		{"tag blank", models.Request{Tag: "  ", Level: "beginner"}, []string{"tag"}},
		{"level blank", models.Request{Tag: "math"}, []string{"level"}},
		{"both blank", models.Request{}, []string{"tag", "level"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, missingClassificationFields(tc.req))
		})
	}
}

func TestValidateClassificationListsEveryMissingField(t *testing.T) {
	err := validateClassification(models.Request{RequestID: "req-1"})
	require.Error(t, err)

	var appErr *temporal.ApplicationError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, ErrTypeValidation, appErr.Type())
	require.True(t, appErr.NonRetryable())
	require.Contains(t, appErr.Message(), "tag")
	require.Contains(t, appErr.Message(), "level")
}

func TestClassifyFetchErr(t *testing.T) {
	var appErr *temporal.ApplicationError

	err := classifyFetchErr("req-missing", pgx.ErrNoRows)
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, ErrTypeNotFound, appErr.Type())
	require.True(t, appErr.NonRetryable())
	require.Contains(t, appErr.Message(), "req-missing")

	err = classifyFetchErr("req-1", errors.New("connection refused"))
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, ErrTypePersistence, appErr.Type())
}
