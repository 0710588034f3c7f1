package policies

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockLoader struct{ mock.Mock }

func (m *mockLoader) Detail(ctx context.Context, id string) (*Detail, error) {
	args := m.Called(ctx, id)
	d, _ := args.Get(0).(*Detail)
	return d, args.Error(1)
}

func TestViewer_Open(t *testing.T) {
	loader := new(mockLoader)
	d := &Detail{Policy: sampleDetail()}
	loader.On("Detail", mock.Anything, "up-1").Return(d, nil).Once()

	v := NewViewer(loader)
	state, err := v.Open(context.Background(), "up-1")
	require.NoError(t, err)
	assert.Same(t, d, state.Detail)
	assert.False(t, state.Loading)
	assert.Equal(t, state, v.Current())
}

func TestViewer_SupersededLoadIsDiscarded(t *testing.T) {
	loader := new(mockLoader)
	release := make(chan time.Time)
	first := &Detail{Policy: sampleDetail()}
	second := &Detail{Policy: sampleDetail()}
	loader.On("Detail", mock.Anything, "up-1").WaitUntil(release).Return(first, nil).Once()
	loader.On("Detail", mock.Anything, "up-2").Return(second, nil).Once()

	v := NewViewer(loader)
	errc := make(chan error, 1)
	go func() {
		_, err := v.Open(context.Background(), "up-1")
		errc <- err
	}()
	require.Eventually(t, func() bool { return v.Current().PolicyID == "up-1" }, time.Second, 5*time.Millisecond)

	_, err := v.Open(context.Background(), "up-2")
	require.NoError(t, err)
	close(release)

	assert.ErrorIs(t, <-errc, ErrSuperseded)
	assert.Equal(t, "up-2", v.Current().PolicyID)
	assert.Same(t, second, v.Current().Detail)
}

func TestViewer_CloseDiscardsInFlightLoad(t *testing.T) {
	loader := new(mockLoader)
	release := make(chan time.Time)
	loader.On("Detail", mock.Anything, "up-1").WaitUntil(release).Return(&Detail{Policy: sampleDetail()}, nil).Once()

	v := NewViewer(loader)
	errc := make(chan error, 1)
	go func() {
		_, err := v.Open(context.Background(), "up-1")
		errc <- err
	}()
	require.Eventually(t, func() bool { return v.Current().Loading }, time.Second, 5*time.Millisecond)

	v.Close()
	close(release)
	assert.ErrorIs(t, <-errc, ErrSuperseded)
	assert.Equal(t, ViewState{}, v.Current())
}
