package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tgnotifier/core/chats"
	"tgnotifier/core/events"
)

type memTracker struct {
	farmPrice map[int64]float64
	eventID   map[int64]string
}

func newMemTracker() *memTracker {
	return &memTracker{farmPrice: map[int64]float64{}, eventID: map[int64]string{}}
}

func (m *memTracker) SetLastFarmPrice(_ context.Context, chatID int64, price float64) error {
	m.farmPrice[chatID] = price
	return nil
}

func (m *memTracker) SetLastImportantEventID(_ context.Context, chatID int64, eventID string) error {
	m.eventID[chatID] = eventID
	return nil
}

func harvest(amountUSD float64) *events.HarvestEvent {
	return &events.HarvestEvent{
		ID:        "h-1",
		Vault:     "USDC",
		Method:    "deposit",
		Owner:     "0xaaaa000000000000000000000000000000000001",
		Amount:    100,
		AmountUSD: amountUSD,
		TxHash:    "0xfeed000000000000000000000000000000000002",
	}
}

func TestDefaultCheckerAmountThreshold(t *testing.T) {
	c := NewDefaultChecker(newMemTracker())
	chat := &chats.Chat{ID: 1, MinAmountUSD: 500}

	res, err := c.Check(context.Background(), chat, harvest(499))
	require.NoError(t, err)
	assert.Nil(t, res)

	res, err = c.Check(context.Background(), chat, harvest(500))
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Contains(t, res.Message, "USDC deposit")
	assert.Contains(t, res.Message, "500.00 USD")
}

func TestDefaultCheckerIgnoresTokenMint(t *testing.T) {
	c := NewDefaultChecker(newMemTracker())
	chat := &chats.Chat{ID: 1, MinAmountUSD: 1}

	res, err := c.Check(context.Background(), chat, &events.TokenMintEvent{ID: "m-1", Amount: 5})
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestDefaultCheckerFarmPriceBaselineThenGap(t *testing.T) {
	tracker := newMemTracker()
	c := NewDefaultChecker(tracker)
	chat := &chats.Chat{ID: 1, FarmChangeGap: 2}

	// First sighting only seeds the watermark.
	ev := harvest(0)
	ev.FarmPrice = 40
	res, err := c.Check(context.Background(), chat, ev)
	require.NoError(t, err)
	assert.Nil(t, res)
	assert.Equal(t, 40.0, tracker.farmPrice[1])

	// Below the gap: silent.
	chat.LastFarmPrice = 40
	ev2 := harvest(0)
	ev2.FarmPrice = 41.5
	res, err = c.Check(context.Background(), chat, ev2)
	require.NoError(t, err)
	assert.Nil(t, res)

	// At the gap: notify and move the watermark.
	ev3 := harvest(0)
	ev3.FarmPrice = 42
	res, err = c.Check(context.Background(), chat, ev3)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Contains(t, res.Message, "FARM price up")
	assert.Equal(t, 42.0, tracker.farmPrice[1])
}

func TestDefaultCheckerFarmPriceDown(t *testing.T) {
	tracker := newMemTracker()
	c := NewDefaultChecker(tracker)
	chat := &chats.Chat{ID: 1, FarmChangeGap: 2, LastFarmPrice: 40}

	ev := harvest(0)
	ev.FarmPrice = 37
	res, err := c.Check(context.Background(), chat, ev)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Contains(t, res.Message, "FARM price down")
}

func TestAddressesCheckerMatchesCaseInsensitive(t *testing.T) {
	c := NewAddressesChecker()
	chat := &chats.Chat{ID: 1, WatchedAddress: "0xAAAA000000000000000000000000000000000001"}

	res, err := c.Check(context.Background(), chat, harvest(1))
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Contains(t, res.Message, "Address activity")
}

func TestAddressesCheckerNoSubscription(t *testing.T) {
	c := NewAddressesChecker()
	chat := &chats.Chat{ID: 1}

	res, err := c.Check(context.Background(), chat, harvest(1))
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestAddressesCheckerDifferentOwner(t *testing.T) {
	c := NewAddressesChecker()
	chat := &chats.Chat{ID: 1, WatchedAddress: "0xbbbb000000000000000000000000000000000002"}

	res, err := c.Check(context.Background(), chat, harvest(1))
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestImportantCheckerTokenMint(t *testing.T) {
	tracker := newMemTracker()
	c := NewImportantEventsChecker(tracker)
	chat := &chats.Chat{ID: 1, ImportantEvents: true}

	ev := &events.TokenMintEvent{ID: "m-1", Amount: 120}
	res, err := c.Check(context.Background(), chat, ev)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Contains(t, res.Message, "Token mint")
	assert.Equal(t, "m-1", tracker.eventID[1])
}

func TestImportantCheckerDedupesByEventID(t *testing.T) {
	tracker := newMemTracker()
	c := NewImportantEventsChecker(tracker)
	chat := &chats.Chat{ID: 1, ImportantEvents: true, LastImportantEventID: "m-1"}

	res, err := c.Check(context.Background(), chat, &events.TokenMintEvent{ID: "m-1", Amount: 120})
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestImportantCheckerStrategyChange(t *testing.T) {
	tracker := newMemTracker()
	c := NewImportantEventsChecker(tracker)
	chat := &chats.Chat{ID: 1, ImportantEvents: true}

	ev := harvest(0)
	ev.Method = events.MethodSetStrategy
	res, err := c.Check(context.Background(), chat, ev)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Contains(t, res.Message, "Strategy change")
}

func TestImportantCheckerOptedOut(t *testing.T) {
	c := NewImportantEventsChecker(newMemTracker())
	chat := &chats.Chat{ID: 1}

	res, err := c.Check(context.Background(), chat, &events.TokenMintEvent{ID: "m-1"})
	require.NoError(t, err)
	assert.Nil(t, res)
}
