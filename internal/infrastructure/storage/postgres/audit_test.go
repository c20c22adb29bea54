package postgres

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "ledgerd/internal/core/context"
	"ledgerd/internal/core/id"
)

// Column order of the sys_audit INSERT.
const (
	auditArgUserID     = 4
	auditArgTxID       = 6
	auditArgChanges    = 7
	auditArgCompressed = 8
	auditArgAlgo       = 9
)

func newTestAuditLog(t *testing.T, pool Pool) (*AuditLog, *TxManager) {
	t.Helper()
	txm := NewTxManager(readyDatabase(pool))
	log, err := NewAuditLog(txm)
	require.NoError(t, err)
	return log, txm
}

func TestAuditLog_SmallPayloadStaysRaw(t *testing.T) {
	pool := &fakePool{}
	log, _ := newTestAuditLog(t, pool)

	err := log.LogChange(context.Background(), "account", id.New(), "create",
		map[string]any{"currency": "EUR"})
	require.NoError(t, err)

	require.Len(t, pool.execArgs, 1)
	args := pool.execArgs[0]
	assert.Equal(t, CompressionNone, args[auditArgAlgo])
	assert.NotEmpty(t, args[auditArgChanges])
	assert.Empty(t, args[auditArgCompressed])
}

func TestAuditLog_LargePayloadCompressed(t *testing.T) {
	pool := &fakePool{}
	log, _ := newTestAuditLog(t, pool)

	big := map[string]any{"note": strings.Repeat("ledger entry ", 2048)}
	err := log.LogChange(context.Background(), "transfer", id.New(), "transfer", big)
	require.NoError(t, err)

	args := pool.execArgs[0]
	assert.Equal(t, CompressionZstd, args[auditArgAlgo])
	assert.Nil(t, args[auditArgChanges])

	compressed, ok := args[auditArgCompressed].([]byte)
	require.True(t, ok, "compressed payload missing")
	require.NotEmpty(t, compressed)

	decoder, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer decoder.Close()
	raw, err := decoder.DecodeAll(compressed, nil)
	require.NoError(t, err)

	want, _ := json.Marshal(big)
	assert.True(t, bytes.Equal(want, raw), "roundtrip mismatch")
}

func TestAuditLog_JoinsActiveTransaction(t *testing.T) {
	pool := &fakePool{}
	log, txm := newTestAuditLog(t, pool)

	err := txm.RunInTransaction(context.Background(), func(ctx context.Context) error {
		return log.LogChange(ctx, "account", id.New(), "update",
			map[string]any{"status": "frozen"})
	})
	require.NoError(t, err)

	// The insert must ride the transaction, not the pool.
	assert.Empty(t, pool.execSQL, "audit write bypassed the transaction")
	ft := pool.begun[0]
	found := false
	for _, sql := range ft.execs {
		if strings.Contains(sql, "INSERT INTO sys_audit") {
			found = true
		}
	}
	assert.True(t, found, "audit insert not executed on the transaction")
}

func TestAuditLog_AttributesActor(t *testing.T) {
	pool := &fakePool{}
	log, _ := newTestAuditLog(t, pool)

	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID: "usr-1", Email: "ops@example.com",
	})
	err := log.Log(ctx, AuditEntry{
		EntityType: "account",
		EntityID:   id.New(),
		Action:     AuditActionFreeze,
		CreatedAt:  time.Now().UTC(),
	})
	require.NoError(t, err)

	args := pool.execArgs[0]
	assert.Equal(t, "usr-1", args[auditArgUserID])
	assert.Equal(t, "", args[auditArgTxID], "no transaction active on the pool path")
}

func TestAuditLog_FailsWhenStoreClosed(t *testing.T) {
	pool := &fakePool{}
	db := readyDatabase(pool)
	txm := NewTxManager(db)
	log, err := NewAuditLog(txm)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, db.Shutdown(ctx))

	err = log.LogChange(context.Background(), "account", id.New(), "create", nil)
	assert.True(t, errors.Is(err, ErrClosed), "got %v, want ErrClosed", err)
}

func TestDiff(t *testing.T) {
	old := map[string]any{"status": "active", "version": 1, "owner": "a"}
	updated := map[string]any{"status": "frozen", "version": 2, "label": "vip"}

	changes := Diff(old, updated)

	assert.Contains(t, changes, "status")
	assert.Contains(t, changes, "version")
	assert.Contains(t, changes, "label")
	assert.Contains(t, changes, "owner")
	assert.NotContains(t, changes, "missing")

	statusChange := changes["status"].(map[string]any)
	assert.Equal(t, "active", statusChange["old"])
	assert.Equal(t, "frozen", statusChange["new"])
}
