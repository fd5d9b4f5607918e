package apperr_test

import (
	"errors"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/restql/restql/apperr"
	"github.com/stretchr/testify/require"
)

func TestFromDriverError_SQLState(t *testing.T) {
	err := apperr.FromDriverError(&pq.Error{Code: "23505", Message: "duplicate key value"})
	require.Equal(t, "23505", err.Code)
	require.ErrorIs(t, err, apperr.ErrDatabase)
}

func TestFromDriverError_MySQLNumber(t *testing.T) {
	err := apperr.FromDriverError(&mysql.MySQLError{Number: 1451, Message: "Duplicate entry"})
	require.Equal(t, "1451", err.Code)
}

func TestFromDriverError_Unrecognized(t *testing.T) {
	err := apperr.FromDriverError(errors.New("boom"))
	require.Equal(t, "", err.Code)
}

func TestDatabaseStatus(t *testing.T) {
	cases := map[string]int{
		"":       500,
		"PT404":  404,
		"PT999":  500,
		"08006":  503,
		"28000":  403,
		"42501":  403,
		"23505":  409,
		"25006":  405,
		"42601":  400,
		"XXUNK":  500,
	}
	for code, want := range cases {
		require.Equal(t, want, apperr.DatabaseStatus(code), "code %q", code)
	}
}
