package invitation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invitegen/internal/domain"
	"invitegen/internal/render"
)

// blockingPages holds RenderPage until release is closed.
type blockingPages struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingPages) RenderPage(ctx context.Context, p render.Page) ([]byte, error) {
	close(b.entered)
	<-b.release
	return render.NewPDFRenderer(595).RenderPage(ctx, p)
}

func TestGenerator_BusyPerClient(t *testing.T) {
	pages := &blockingPages{entered: make(chan struct{}), release: make(chan struct{})}
	gen := NewGenerator(newFakeComposer(t, &fakeAssets{bg: smallBackground(t)}, pages), nil)

	done := make(chan error, 1)
	go func() {
		_, err := gen.Generate(context.Background(), "alice", Request{Name: "Raj"})
		done <- err
	}()

	select {
	case <-pages.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first generation never started")
	}
	assert.True(t, gen.Busy("alice"))
	assert.False(t, gen.Busy("bob"))

	_, err := gen.Generate(context.Background(), "alice", Request{Name: "Raj"})
	assert.ErrorIs(t, err, domain.ErrBusy)

	// Validation still wins over busy.
	_, err = gen.Generate(context.Background(), "alice", Request{Name: ""})
	var ve *domain.ValidationError
	assert.True(t, errors.As(err, &ve))

	close(pages.release)
	require.NoError(t, <-done)
	assert.False(t, gen.Busy("alice"))
}

func TestGenerator_ObserverFunc(t *testing.T) {
	var events []bool
	obs := StateObserverFunc(func(key string, busy bool) {
		assert.Equal(t, "k", key)
		events = append(events, busy)
	})
	gen := NewGenerator(newFakeComposer(t, &fakeAssets{bg: smallBackground(t)}, &capturingPages{err: errors.New("boom")}), obs)

	_, err := gen.Generate(context.Background(), "k", Request{Name: "Raj"})
	assert.ErrorIs(t, err, domain.ErrEncode)
	assert.Equal(t, []bool{true, false}, events)
	assert.False(t, gen.Busy("k"))
}
