package middleware

import (
	"bytes"
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"ledgerd/internal/core/apperror"
	"ledgerd/internal/infrastructure/storage/postgres"
)

// Transactional wraps the rest of the handler chain in one ambient
// transaction. Registered statically per route; service calls made by
// the handler join it instead of opening their own. The chain's errors
// roll it back, and the response is buffered until commit so a client
// never sees success for work that was rolled back.
func Transactional(txm *postgres.TxManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		orig := c.Writer
		buffered := &txWriter{ResponseWriter: orig}
		c.Writer = buffered

		err := txm.RunInTransaction(c.Request.Context(), func(ctx context.Context) error {
			c.Request = c.Request.WithContext(ctx)
			c.Next()

			if len(c.Errors) > 0 {
				return c.Errors.Last().Err
			}
			return nil
		})

		c.Writer = orig

		if err != nil {
			// Discard the buffered body; ErrorHandler renders the failure.
			if len(c.Errors) == 0 {
				_ = c.Error(mapTxError(err))
			}
			return
		}

		buffered.flush(orig)
	}
}

func mapTxError(err error) error {
	if errors.Is(err, postgres.ErrNotConnected) || errors.Is(err, postgres.ErrClosed) {
		return apperror.NewNotReady(err)
	}
	return apperror.NewInternal(err)
}

// txWriter holds back the response until the transaction commits.
type txWriter struct {
	gin.ResponseWriter

	body   bytes.Buffer
	status int
}

func (w *txWriter) WriteHeader(status int) {
	w.status = status
}

// WriteHeaderNow is deferred until flush.
func (w *txWriter) WriteHeaderNow() {}

func (w *txWriter) Write(b []byte) (int, error) {
	return w.body.Write(b)
}

func (w *txWriter) WriteString(s string) (int, error) {
	return w.body.WriteString(s)
}

func (w *txWriter) Status() int {
	if w.status != 0 {
		return w.status
	}
	return w.ResponseWriter.Status()
}

func (w *txWriter) Size() int {
	return w.body.Len()
}

func (w *txWriter) Written() bool {
	return w.status != 0 || w.body.Len() > 0
}

func (w *txWriter) flush(dst gin.ResponseWriter) {
	if w.status != 0 {
		dst.WriteHeader(w.status)
	}
	if w.body.Len() > 0 {
		_, _ = dst.Write(w.body.Bytes())
	}
}
