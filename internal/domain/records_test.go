package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasLiveLink(t *testing.T) {
	tests := []struct {
		link string
		want bool
	}{
		{"", false},
		{"#", false},
		{"https://shop.example.com", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SampleWork{Link: tt.link}.HasLiveLink(), "link %q", tt.link)
	}
}

func TestNewRecord(t *testing.T) {
	for _, table := range Tables {
		rec, ok := NewRecord(table)
		require.True(t, ok, table)
		assert.Equal(t, table, rec.TableName())
	}

	rec, ok := NewRecord("users")
	assert.False(t, ok)
	assert.Nil(t, rec)
}

func TestBeforeCreateAssignsIdentity(t *testing.T) {
	q := &Quote{Name: "Ada"}
	require.NoError(t, q.BeforeCreate(nil))
	assert.Len(t, q.ID, 36)
	assert.False(t, q.CreatedAt.IsZero())

	other := &Quote{}
	require.NoError(t, other.BeforeCreate(nil))
	assert.NotEqual(t, q.ID, other.ID)
}

func TestBeforeCreateKeepsExistingIdentity(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	r := &IoTRequest{ID: "fixed", CreatedAt: at}
	require.NoError(t, r.BeforeCreate(nil))
	assert.Equal(t, RowID("fixed"), r.ID)
	assert.Equal(t, at, r.CreatedAt)
}

func TestRowIDDecodesNumbersAndStrings(t *testing.T) {
	var works []SampleWork
	data := `[{"id":7,"title":"Shop"},{"id":"9f1c","title":"Blog"},{"id":null,"title":"Draft"}]`
	require.NoError(t, json.Unmarshal([]byte(data), &works))
	require.Len(t, works, 3)
	assert.Equal(t, "7", works[0].ID.String())
	assert.Equal(t, RowID("9f1c"), works[1].ID)
	assert.Empty(t, works[2].ID)

	out, err := json.Marshal(works[0])
	require.NoError(t, err)
	assert.Contains(t, string(out), `"id":"7"`)

	var bad RowID
	assert.Error(t, json.Unmarshal([]byte(`{"n":1}`), &bad))
}
