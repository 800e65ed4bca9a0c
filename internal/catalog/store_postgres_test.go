package catalog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/catalog"
)

func TestPGStoreMalformedIDIsNotFound(t *testing.T) {
	ctx := context.Background()
	store := catalog.PGStore{}

	_, err := store.GetMenuItem(ctx, "burger")
	require.ErrorIs(t, err, catalog.ErrNotFound)

	options, err := store.ListOptions(ctx, "burger")
	require.NoError(t, err)
	require.Empty(t, options)
}
