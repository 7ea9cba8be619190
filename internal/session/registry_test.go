package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/MegaGrindStone/agrisaarthi-web/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateViews(t *testing.T) {
	asker := &scriptedAsker{pieces: []string{"Sow in November."}}
	reg := session.NewRegistry(asker, "crop_info", "hi-IN", discard)
	st := reg.Create()

	assert.Equal(t, session.ViewHome, st.View())
	assert.Equal(t, "crop_info", st.Category())
	assert.Nil(t, st.Chat())

	// Without a category the previous selection is kept.
	chat := st.StartChat("")
	assert.Equal(t, session.ViewChat, st.View())
	assert.Equal(t, "crop_info", chat.Category())
	assert.Same(t, chat, st.Chat())

	msg, err := chat.Submit("When to sow wheat?", "")
	require.NoError(t, err)
	chat.Respond(context.Background(), msg, nil)
	assert.Len(t, chat.Transcript(), 1)
	assert.Equal(t, "hi-IN", asker.questions()[0].Language)

	st.BackToHome()
	assert.Equal(t, session.ViewHome, st.View())
	assert.Nil(t, st.Chat())

	// Coming back starts over with an empty transcript.
	chat = st.StartChat("market_prices")
	assert.Equal(t, "market_prices", chat.Category())
	assert.Equal(t, "market_prices", st.Category())
	assert.Empty(t, chat.Transcript())

	st.BackToHome()
	assert.Equal(t, "market_prices", st.StartChat("").Category())
}

func TestStateLeaveWhilePending(t *testing.T) {
	asker := gatedAsker{pieces: make(chan string)}
	reg := session.NewRegistry(asker, "crop_info", "en-US", discard)
	st := reg.Create()

	old := st.StartChat("")
	msg, err := old.Submit("Soil pH?", "")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		old.Respond(context.Background(), msg, nil)
	}()

	st.BackToHome()
	fresh := st.StartChat("")
	assert.False(t, fresh.Pending())
	assert.Empty(t, fresh.Transcript())

	asker.pieces <- "6.5"
	close(asker.pieces)
	<-done

	assert.Equal(t, "6.5", old.Transcript()[0].Response)
	assert.Empty(t, fresh.Transcript())
}

func TestRegistry(t *testing.T) {
	reg := session.NewRegistry(&scriptedAsker{}, "crop_info", "en-US", discard)

	a := reg.Create()
	b := reg.Create()
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 2, reg.Len())

	got, ok := reg.Get(a.ID)
	require.True(t, ok)
	assert.Same(t, a, got)

	_, ok = reg.Get("unknown")
	assert.False(t, ok)

	assert.Equal(t, 0, reg.Prune(time.Hour))
	assert.Equal(t, 2, reg.Len())

	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 2, reg.Prune(time.Millisecond))
	assert.Equal(t, 0, reg.Len())
}

func TestRegistryPruneEveryStops(t *testing.T) {
	reg := session.NewRegistry(&scriptedAsker{}, "crop_info", "en-US", discard)
	reg.Create()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- reg.PruneEvery(ctx, time.Millisecond, time.Nanosecond)
	}()

	assert.Eventually(t, func() bool { return reg.Len() == 0 }, time.Second, time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
