package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"annotation-survey/internal/domain/entity"
)

func TestMemoryOperatorRepository_GetCreates(t *testing.T) {
	repo := NewMemoryOperatorRepository()
	ctx := context.Background()

	operator, err := repo.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateIdle, operator.State)

	operator.SetState(entity.StateAwaitingSessionID)
	require.NoError(t, repo.Save(ctx, operator))

	again, err := repo.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateAwaitingSessionID, again.State)
}

func TestMemoryOperatorRepository_Subscribers(t *testing.T) {
	repo := NewMemoryOperatorRepository()
	ctx := context.Background()

	for _, id := range []int64{3, 1, 2} {
		operator, err := repo.Get(ctx, id, id*10)
		require.NoError(t, err)
		operator.Subscribed = id != 2
		require.NoError(t, repo.Save(ctx, operator))
	}

	subs, err := repo.Subscribers(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	require.Equal(t, int64(1), subs[0].ID)
	require.Equal(t, int64(3), subs[1].ID)
}
