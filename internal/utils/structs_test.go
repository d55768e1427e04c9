package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type record struct {
	ID        string  `db:"id"`
	Name      *string `db:"name"`
	Skipped   string  `db:"-"`
	Untagged  int
	hidden    string    `db:"hidden"`
	CreatedAt time.Time `db:"created_at"`
}

func TestStructTagValues(t *testing.T) {
	assert.Equal(t, []string{"id", "name", "created_at"}, StructTagValues(record{}))
	assert.Equal(t, []string{"id", "name", "created_at"}, StructTagValues(&record{}))
	assert.Panics(t, func() { StructTagValues(42) })
}

func TestStructToMap(t *testing.T) {
	now := time.Now()
	r := &record{ID: "a", Name: StringPtr("n"), Skipped: "x", Untagged: 3, hidden: "h", CreatedAt: now}

	m := StructToMap(r)
	assert.Len(t, m, 3)
	assert.Equal(t, "a", m["id"])
	assert.Equal(t, now, m["created_at"])

	m = StructToMap(r, "created_at")
	assert.Len(t, m, 2)
	assert.NotContains(t, m, "created_at")
}

func TestNanoID(t *testing.T) {
	id := NanoID()
	assert.Len(t, id, NanoidSize)
	assert.NotEqual(t, id, NanoID())
	assert.Len(t, NanoIDSize(8), 8)
	assert.Len(t, NanoIDSize(-1), NanoidSize)
}
