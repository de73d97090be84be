package service_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/provision/internal/provision/service"
	"github.com/stretchr/testify/require"
)

func TestGenerateCode(t *testing.T) {
	t.Parallel()

	// RFC 6238 reference secret "12345678901234567890" in base32.
	const secret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"
	at := time.Unix(59, 0).UTC()

	code, err := service.GenerateCode(secret, at)
	require.NoError(t, err)
	require.Equal(t, "287082", code.Code)
	require.Equal(t, 1, code.Remaining)
	require.Equal(t, time.Unix(60, 0).UTC(), code.ExpiresAt.UTC())

	grouped, err := service.GenerateCode("gezd gnbv gy3t qojq gezd gnbv gy3t qojq", at)
	require.NoError(t, err)
	require.Equal(t, code.Code, grouped.Code)

	_, err = service.GenerateCode("not base32!", at)
	require.Error(t, err)
}
