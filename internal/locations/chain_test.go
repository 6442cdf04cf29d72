package locations

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestChainResolver_FirstNonEmptyWins(t *testing.T) {
	static := new(MockResolver)
	model := new(MockResolver)
	static.On("NeighboringLocations", mock.Anything, "Delta", "MG").Return([]string{}, nil)
	model.On("NeighboringLocations", mock.Anything, "Delta", "MG").Return([]string{"Uberaba"}, nil)

	got, err := NewChainResolver(zap.NewNop(), static, model).NeighboringLocations(context.Background(), "Delta", "MG")
	require.NoError(t, err)
	assert.Equal(t, []string{"Uberaba"}, got)
}

func TestChainResolver_SkipsFailures(t *testing.T) {
	broken := new(MockResolver)
	static := new(MockResolver)
	broken.On("NeighboringLocations", mock.Anything, "Delta", "MG").Return(nil, errors.New("down"))
	static.On("NeighboringLocations", mock.Anything, "Delta", "MG").Return([]string{"Uberaba"}, nil)

	got, err := NewChainResolver(nil, broken, static).NeighboringLocations(context.Background(), "Delta", "MG")
	require.NoError(t, err)
	assert.Equal(t, []string{"Uberaba"}, got)
}

func TestChainResolver_AllFail(t *testing.T) {
	a := new(MockResolver)
	b := new(MockResolver)
	a.On("NeighboringLocations", mock.Anything, "Delta", "MG").Return(nil, errors.New("a down"))
	b.On("NeighboringLocations", mock.Anything, "Delta", "MG").Return(nil, errors.New("b down"))

	_, err := NewChainResolver(nil, a, b).NeighboringLocations(context.Background(), "Delta", "MG")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a down")
	assert.Contains(t, err.Error(), "b down")
}

func TestChainResolver_EmptyWithPartialFailure(t *testing.T) {
	a := new(MockResolver)
	b := new(MockResolver)
	a.On("NeighboringLocations", mock.Anything, "Delta", "MG").Return(nil, errors.New("a down"))
	b.On("NeighboringLocations", mock.Anything, "Delta", "MG").Return([]string{}, nil)

	got, err := NewChainResolver(nil, a, b).NeighboringLocations(context.Background(), "Delta", "MG")
	require.NoError(t, err)
	assert.Empty(t, got)
}
