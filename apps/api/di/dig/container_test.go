package dig_container

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/feeportal/apps/api/echo"
	"github.com/trezcool/feeportal/core/user"
	"github.com/trezcool/feeportal/storage/cache"
)

func TestNew_inMemory(t *testing.T) {
	t.Setenv("ENV", "TEST")
	t.Setenv("TEST_DATABASE_INMEMORY", "true")
	t.Setenv("TEST_REDIS_ADDRESS", "")

	c := New()
	err := c.Invoke(func(server *echoapi.Server, revoker user.Revoker) {
		assert.IsType(t, &cache.MemoryRevoker{}, revoker)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok","db":"connected"}`, rec.Body.String())
	})
	require.NoError(t, err)
}
