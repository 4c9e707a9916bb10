package notify

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_Publish_dispatches_to_subscribers(t *testing.T) {
	bus := NewBus()

	var got []Notification
	bus.Subscribe(func(n Notification) {
		got = append(got, n)
	})

	bus.Publish(Notification{Level: LevelInfo, Message: "hello"})

	require.Len(t, got, 1)
	assert.Equal(t, "hello", got[0].Message)
	assert.False(t, got[0].CreatedAt.IsZero())
}

func TestBus_Publish_without_subscribers_is_safe(t *testing.T) {
	bus := NewBus()
	bus.Errorf("nobody listening")
	assert.Len(t, bus.History(), 1)
}

func TestBus_History_newest_first(t *testing.T) {
	bus := NewBus()
	bus.Infof("first")
	bus.Warnf("second")
	bus.Errorf("third")

	history := bus.History()
	require.Len(t, history, 3)
	assert.Equal(t, "third", history[0].Message)
	assert.Equal(t, LevelError, history[0].Level)
	assert.Equal(t, "first", history[2].Message)
}

func TestBus_History_is_bounded(t *testing.T) {
	bus := NewBus()
	for i := 0; i < historyCap+25; i++ {
		bus.Infof("n%d", i)
	}

	history := bus.History()
	require.Len(t, history, historyCap)
	assert.Equal(t, fmt.Sprintf("n%d", historyCap+24), history[0].Message)
}

func TestBus_level_helpers(t *testing.T) {
	bus := NewBus()

	var levels []Level
	bus.Subscribe(func(n Notification) {
		levels = append(levels, n.Level)
	})

	bus.Infof("i")
	bus.Warnf("w")
	bus.Errorf("e")

	assert.Equal(t, []Level{LevelInfo, LevelWarning, LevelError}, levels)
}
