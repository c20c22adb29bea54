package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerd/internal/core/apperror"
	coretx "ledgerd/internal/core/tx"
	"ledgerd/internal/infrastructure/storage/postgres"
)

func newTransactionalRouter(txm *postgres.TxManager) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandler())

	wrapped := router.Group("", Transactional(txm))
	wrapped.POST("/ok", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"txId": coretx.GetID(c.Request.Context())})
	})
	wrapped.POST("/fail", func(c *gin.Context) {
		_ = c.Error(apperror.NewBusinessRule(apperror.CodeBusinessRule, "posting rejected"))
	})
	return router
}

func TestTransactional_CommitsAndFlushesResponse(t *testing.T) {
	pool := &postgres.MockPool{}
	txm := postgres.NewTxManager(postgres.NewMockDatabase(pool))
	router := newTransactionalRouter(txm)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ok", nil))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "txId")

	begun := pool.Begun()
	require.Len(t, begun, 1)
	assert.Equal(t, 1, begun[0].Commits())
	assert.Equal(t, 0, begun[0].Rollbacks())
}

func TestTransactional_HandlerErrorRollsBack(t *testing.T) {
	pool := &postgres.MockPool{}
	txm := postgres.NewTxManager(postgres.NewMockDatabase(pool))
	router := newTransactionalRouter(txm)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/fail", nil))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), apperror.CodeBusinessRule)

	begun := pool.Begun()
	require.Len(t, begun, 1)
	assert.Equal(t, 0, begun[0].Commits())
	assert.Equal(t, 1, begun[0].Rollbacks())
}

func TestTransactional_SuccessBodyHeldUntilCommit(t *testing.T) {
	// A handler that writes a success body before the transaction fails
	// to commit must not leak that body to the client.
	pool := &postgres.MockPool{}
	txm := postgres.NewTxManager(postgres.NewMockDatabase(pool))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandler())
	router.POST("/late-fail", Transactional(txm), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "done"})
		_ = c.Error(apperror.NewBusinessRule(apperror.CodeBusinessRule, "rejected after write"))
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/late-fail", nil))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.NotContains(t, w.Body.String(), "done")

	begun := pool.Begun()
	require.Len(t, begun, 1)
	assert.Equal(t, 1, begun[0].Rollbacks())
}

func TestTransactional_NotConnectedReportsUnavailable(t *testing.T) {
	db := postgres.NewDatabase(postgres.DefaultPoolConfig("postgres://unused"))
	txm := postgres.NewTxManager(db)
	router := newTransactionalRouter(txm)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ok", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), apperror.CodeNotReady)
}

func TestTransactional_ServiceCallJoinsRequestTransaction(t *testing.T) {
	// A nested RunInTransaction inside the handler must join the ambient
	// request transaction instead of opening a second one.
	pool := &postgres.MockPool{}
	txm := postgres.NewTxManager(postgres.NewMockDatabase(pool))

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandler())

	var rootID, nestedID string
	router.POST("/nested", Transactional(txm), func(c *gin.Context) {
		ctx := c.Request.Context()
		rootID = coretx.GetID(ctx)

		err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
			nestedID = coretx.GetID(ctx)
			return nil
		})
		require.NoError(t, err)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/nested", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, rootID)
	assert.Equal(t, rootID, nestedID)
	assert.Len(t, pool.Begun(), 1)
}
