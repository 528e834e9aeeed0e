package optimistic_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperbuds/hyperbuds-client/internal/optimistic"
)

type counter struct {
	Value   int
	Pending bool
}

func TestExecute(t *testing.T) {
	confirmErr := errors.New("offline")

	tests := []struct {
		name       string
		confirmErr error
		want       counter
		wantSeen   []counter
	}{
		{
			name: "Confirmed",
			want: counter{Value: 10},
			wantSeen: []counter{
				{Value: 2, Pending: true},
				{Value: 10},
			},
		},
		{
			name:       "Rejected",
			confirmErr: confirmErr,
			want:       counter{Value: 1},
			wantSeen: []counter{
				{Value: 2, Pending: true},
				{Value: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := optimistic.NewStore(counter{Value: 1})

			var seen []counter
			unsubscribe := store.Subscribe(func(c counter) { seen = append(seen, c) })
			defer unsubscribe()

			var duringConfirm counter
			_, err := optimistic.Execute(t.Context(), store, optimistic.Command[counter, int]{
				Apply: func(c counter) counter { return counter{Value: c.Value + 1, Pending: true} },
				Confirm: func(context.Context) (int, error) {
					duringConfirm = store.Get()
					return 10, tt.confirmErr
				},
				Commit: func(_ counter, server int) counter { return counter{Value: server} },
				Revert: func(c counter) counter { return counter{Value: c.Value - 1} },
			})
			if tt.confirmErr != nil {
				require.ErrorIs(t, err, tt.confirmErr)
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, counter{Value: 2, Pending: true}, duringConfirm)
			assert.Equal(t, tt.want, store.Get())
			assert.Equal(t, tt.wantSeen, seen)
		})
	}
}

func TestExecute_NilCommitKeepsAppliedState(t *testing.T) {
	store := optimistic.NewStore(1)

	_, err := optimistic.Execute(t.Context(), store, optimistic.Command[int, struct{}]{
		Apply:   func(v int) int { return v * 3 },
		Confirm: func(context.Context) (struct{}, error) { return struct{}{}, nil },
	})
	require.NoError(t, err)

	assert.Equal(t, 3, store.Get())
}

func TestStore_Unsubscribe(t *testing.T) {
	store := optimistic.NewStore("a")

	var calls int
	unsubscribe := store.Subscribe(func(string) { calls++ })

	store.Update(func(string) string { return "b" })
	unsubscribe()
	store.Update(func(string) string { return "c" })

	assert.Equal(t, 1, calls)
	assert.Equal(t, "c", store.Get())
}
