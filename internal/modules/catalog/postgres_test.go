package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupeProducts(t *testing.T) {
	brand1 := "Old"
	brand2 := "New"

	t.Run("repeated identity keeps the last record", func(t *testing.T) {
		records := []ProductRecord{
			{ProductName: "Milk 1L", Market: "a101", Brand: &brand1},
			{ProductName: "Bread", Market: "a101"},
			{ProductName: "Milk 1L", Market: "a101", Brand: &brand2},
		}

		out := dedupeProducts(records)

		require.Len(t, out, 2)
		assert.Equal(t, "Milk 1L", out[0].ProductName)
		require.NotNil(t, out[0].Brand)
		assert.Equal(t, "New", *out[0].Brand)
		assert.Equal(t, "Bread", out[1].ProductName)
	})

	t.Run("same name in different markets is two identities", func(t *testing.T) {
		records := []ProductRecord{
			{ProductName: "Milk 1L", Market: "a101"},
			{ProductName: "Milk 1L", Market: "migros"},
		}

		assert.Len(t, dedupeProducts(records), 2)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, dedupeProducts(nil))
	})
}
