package events

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collectingSink struct {
	events []Event
}

func (c *collectingSink) SendDTO(_ context.Context, ev Event) error {
	c.events = append(c.events, ev)
	return nil
}

func TestSubscriberPollDecodesEvents(t *testing.T) {
	body := `[
		{"kind":"harvest","id":"e1","payload":{"vault":"FARM_USDC","method":"Deposit","owner":"0xabc","amount":100,"amount_usd":3500}},
		{"kind":"token_mint","id":"e2","payload":{"amount":1000,"tx_hash":"0xdeadbeefdeadbeef"}}
	]`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	sink := &collectingSink{}
	sub := NewSubscriber(SubscriberOptions{URL: srv.URL}, sink)

	require.NoError(t, sub.poll(context.Background()))
	require.Len(t, sink.events, 2)

	hv, ok := sink.events[0].(*HarvestEvent)
	require.True(t, ok)
	assert.Equal(t, "FARM_USDC", hv.Vault)
	assert.Equal(t, "e1", hv.ID)
	assert.Equal(t, 3500.0, hv.AmountUSD)

	mint, ok := sink.events[1].(*TokenMintEvent)
	require.True(t, ok)
	assert.Equal(t, "e2", mint.ID)
	assert.Equal(t, KindTokenMint, mint.Kind())
}

func TestSubscriberPollAdvancesCursor(t *testing.T) {
	var afters []string
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		afters = append(afters, r.URL.Query().Get("after"))
		calls++
		if calls == 1 {
			_, _ = w.Write([]byte(`[{"kind":"token_mint","id":"m7","payload":{"amount":5}}]`))
			return
		}
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	sink := &collectingSink{}
	sub := NewSubscriber(SubscriberOptions{URL: srv.URL}, sink)

	require.NoError(t, sub.poll(context.Background()))
	require.NoError(t, sub.poll(context.Background()))

	require.Len(t, afters, 2)
	assert.Empty(t, afters[0])
	assert.Equal(t, "m7", afters[1])
}

func TestSubscriberPollSkipsUnknownKinds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"kind":"uniswap","id":"u1","payload":{}},
			{"kind":"harvest","id":"h1","payload":{"vault":"FARM_WETH","method":"Withdraw"}}
		]`))
	}))
	defer srv.Close()

	sink := &collectingSink{}
	sub := NewSubscriber(SubscriberOptions{URL: srv.URL}, sink)

	require.NoError(t, sub.poll(context.Background()))
	require.Len(t, sink.events, 1)
	assert.Equal(t, KindHarvest, sink.events[0].Kind())
}

func TestSubscriberPollReportsHTTPFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	sub := NewSubscriber(SubscriberOptions{URL: srv.URL}, &collectingSink{})
	require.Error(t, sub.poll(context.Background()))
}

func TestHarvestEventPrint(t *testing.T) {
	ev := &HarvestEvent{
		Vault:     "FARM_USDC",
		Method:    "Deposit",
		Owner:     "0x1234567890abcdef1234567890abcdef12345678",
		Amount:    1200,
		AmountUSD: 3500,
	}
	out := ev.Print()
	assert.Contains(t, out, "FARM_USDC Deposit")
	assert.Contains(t, out, "3500.00 USD")
	assert.Contains(t, out, "0x123456..")
}
