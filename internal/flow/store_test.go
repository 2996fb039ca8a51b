package flow

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssvmg10-debug/UI-automation/internal/step"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenStore(filepath.Join(t.TempDir(), "fragments.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testFragment(t *testing.T, endURL string, steps ...FragmentStep) Fragment {
	t.Helper()
	f := Fragment{
		Site:     "shop.example",
		StartURL: "https://shop.example/",
		EndURL:   endURL,
	}
	require.NoError(t, f.SetSteps(steps))
	return f
}

func TestSaveOrIncrement(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	f := testFragment(t, "https://shop.example/cart",
		FragmentStep{Action: step.Click, Target: "add to cart"},
		FragmentStep{Action: step.Click, Target: "go to cart"},
	)

	count, err := store.SaveOrIncrement(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Same identity: no new row, the counter moves.
	count, err = store.SaveOrIncrement(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	all, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 2, all[0].SuccessCount)

	// A different end URL is a different fragment.
	other := testFragment(t, "https://shop.example/checkout",
		FragmentStep{Action: step.Click, Target: "add to cart"},
		FragmentStep{Action: step.Click, Target: "go to cart"},
	)
	_, err = store.SaveOrIncrement(ctx, other)
	require.NoError(t, err)
	all, err = store.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestBySiteOrdersBySuccessCount(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	weak := testFragment(t, "https://shop.example/a", FragmentStep{Action: step.Click, Target: "a"}, FragmentStep{Action: step.Click, Target: "b"})
	strong := testFragment(t, "https://shop.example/b", FragmentStep{Action: step.Click, Target: "c"}, FragmentStep{Action: step.Click, Target: "d"})

	_, err := store.SaveOrIncrement(ctx, weak)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = store.SaveOrIncrement(ctx, strong)
		require.NoError(t, err)
	}

	got, err := store.BySite(ctx, "shop.example")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "https://shop.example/b", got[0].EndURL)
	assert.Equal(t, 3, got[0].SuccessCount)

	none, err := store.BySite(ctx, "other.example")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDelete(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	f := testFragment(t, "https://shop.example/cart", FragmentStep{Action: step.Click, Target: "x"}, FragmentStep{Action: step.Click, Target: "y"})
	_, err := store.SaveOrIncrement(ctx, f)
	require.NoError(t, err)

	all, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	require.NoError(t, store.Delete(ctx, all[0].ID))
	all, err = store.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestFragmentStepsRoundTrip(t *testing.T) {
	f := Fragment{}
	require.NoError(t, f.SetSteps([]FragmentStep{
		{Action: step.Navigate, Target: "https://shop.example/"},
		{Action: step.Click, Target: "add to cart"},
	}))
	steps, err := f.Steps()
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, step.Click, steps[1].Action)
}
