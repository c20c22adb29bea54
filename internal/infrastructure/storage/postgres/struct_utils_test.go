package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ledgerd/internal/core/entity"
	"ledgerd/internal/core/id"
)

type taggedEntity struct {
	entity.Base

	Name     string `db:"name" json:"name"`
	Currency string `db:"currency" json:"currency"`
	internal string
	Skipped  string `db:"-"`
}

func TestExtractDBColumns(t *testing.T) {
	cols := ExtractDBColumns[taggedEntity]()

	// Embedded fields come first, in declaration order. Repositories
	// rely on this order for their SELECT lists.
	expected := []string{"id", "version", "created_at", "updated_at", "name", "currency"}
	assert.Equal(t, expected, cols)
}

func TestExtractDBColumns_NonStruct(t *testing.T) {
	assert.Nil(t, ExtractDBColumns[int]())
}

func TestStructToMap(t *testing.T) {
	now := time.Now().UTC()
	e := taggedEntity{
		Base: entity.Base{
			ID:        id.New(),
			Version:   3,
			CreatedAt: now,
			UpdatedAt: now,
		},
		Name:     "Operating EUR",
		Currency: "EUR",
		internal: "hidden",
		Skipped:  "hidden",
	}

	m := StructToMap(e)

	assert.Equal(t, e.ID, m["id"])
	assert.Equal(t, 3, m["version"])
	assert.Equal(t, now, m["created_at"])
	assert.Equal(t, now, m["updated_at"])
	assert.Equal(t, "Operating EUR", m["name"])
	assert.Equal(t, "EUR", m["currency"])

	assert.NotContains(t, m, "internal")
	assert.NotContains(t, m, "-")
	assert.Len(t, m, 6)
}

func TestStructToMap_Pointer(t *testing.T) {
	e := &taggedEntity{Name: "Reserve"}

	m := StructToMap(e)

	assert.Equal(t, "Reserve", m["name"])
}

func TestStructToMap_NonStruct(t *testing.T) {
	assert.Nil(t, StructToMap(42))
}
