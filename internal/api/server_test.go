package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"go.temporal.io/api/serviceerror"
)

func TestStartErrorStatus(t *testing.T) {
	already := serviceerror.NewWorkflowExecutionAlreadyStarted("workflow execution already started", "", "")
	require.Equal(t, http.StatusConflict, startErrorStatus(already))
	require.Equal(t, http.StatusConflict, startErrorStatus(fmt.Errorf("start workflow: %w", already)))

	require.Equal(t, http.StatusInternalServerError, startErrorStatus(errors.New("dial tcp 127.0.0.1:7233: connection refused")))
}

func TestToAPIErrorStatusMapping(t *testing.T) {
	cases := []struct {
		status   int
		err      error
		wantCode string
	}{
		{http.StatusBadRequest, errors.New("invalid json: unexpected EOF"), "TF-API-4001"},
		{http.StatusNotFound, errors.New("request not found"), "TF-API-4004"},
		{http.StatusConflict, errors.New("workflow execution already started"), "TF-API-4009"},
		{http.StatusInternalServerError, errors.New("dial tcp: connection refused"), "TF-DB-5002"},
		{http.StatusInternalServerError, errors.New("boom"), "TF-API-5000"},
	}
	for _, tc := range cases {
		got := toAPIError(tc.status, tc.err)
		require.Equal(t, tc.wantCode, got.Code)
		require.NotEmpty(t, got.Message)
	}
}
