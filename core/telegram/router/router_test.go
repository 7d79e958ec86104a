package router

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"tgnotifier/core/chats"
	"tgnotifier/core/telegram/commands"
)

type recordingSender struct {
	sent map[int64][]string
}

func newRecordingSender() *recordingSender {
	return &recordingSender{sent: map[int64][]string{}}
}

func (s *recordingSender) Send(_ context.Context, chatID int64, text string) error {
	s.sent[chatID] = append(s.sent[chatID], text)
	return nil
}

func (s *recordingSender) last(chatID int64) string {
	msgs := s.sent[chatID]
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1]
}

func newTestRouter(t *testing.T) (*Router, *chats.Service, *recordingSender) {
	t.Helper()
	svc := chats.NewService(chats.NewMemoryStore(), chats.Defaults{MinAmountUSD: 500, FarmChangeGap: 1})
	sender := newRecordingSender()
	return New(svc, sender, 0), svc, sender
}

func update(id int, chatID int64, text string) tele.Update {
	return tele.Update{
		ID: id,
		Message: &tele.Message{
			Text:   text,
			Chat:   &tele.Chat{ID: chatID, Username: "tester"},
			Sender: &tele.User{ID: chatID},
		},
	}
}

// register runs the first-contact update so later updates hit the
// command/value flow.
func register(t *testing.T, r *Router, chatID int64) {
	t.Helper()
	r.ProcessBatch(context.Background(), []tele.Update{update(1, chatID, "/start")})
}

func TestMalformedUpdatesAreSkipped(t *testing.T) {
	r, svc, sender := newTestRouter(t)

	r.ProcessBatch(context.Background(), []tele.Update{
		{ID: 1},
		{ID: 2, Message: &tele.Message{Text: "hi"}},
		{ID: 3, Message: &tele.Message{Text: "hi", Chat: &tele.Chat{ID: 0}}},
	})

	assert.Empty(t, sender.sent)
	all, err := svc.FindAllChats(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestFirstContactRegistersAndConsumesUpdate(t *testing.T) {
	r, svc, sender := newTestRouter(t)

	// Even a valid command in the first message only triggers the welcome.
	r.ProcessBatch(context.Background(), []tele.Update{update(1, 10, commands.MinimumAmount)})

	assert.Equal(t, []string{commands.WelcomeMessage}, sender.sent[10])
	chat, err := svc.FindByID(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, chat.LastCommand)
	assert.Equal(t, 500.0, chat.MinAmountUSD)
}

func TestHelpCommand(t *testing.T) {
	r, _, sender := newTestRouter(t)
	register(t, r, 10)

	r.ProcessBatch(context.Background(), []tele.Update{update(2, 10, "/help")})
	assert.Equal(t, commands.HelpText, sender.last(10))
}

func TestInfoCommandShowsSettings(t *testing.T) {
	r, _, sender := newTestRouter(t)
	register(t, r, 10)

	r.ProcessBatch(context.Background(), []tele.Update{update(2, 10, "/info")})
	reply := sender.last(10)
	assert.Contains(t, reply, "Your settings:")
	assert.Contains(t, reply, "Minimum amount: 500.00 USD")
	assert.Contains(t, reply, "Pending command: none")
}

func TestInfoDoesNotArmPendingCommand(t *testing.T) {
	r, svc, _ := newTestRouter(t)
	register(t, r, 10)

	r.ProcessBatch(context.Background(), []tele.Update{update(2, 10, "/info")})
	chat, err := svc.FindByID(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, chat.LastCommand)
}

func TestRecognizedCommandArmsPending(t *testing.T) {
	r, svc, sender := newTestRouter(t)
	register(t, r, 10)

	r.ProcessBatch(context.Background(), []tele.Update{update(2, 10, "/minimum_amount")})

	entry, ok := commands.Lookup(commands.MinimumAmount)
	require.True(t, ok)
	assert.Equal(t, entry.Response, sender.last(10))

	chat, err := svc.FindByID(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, commands.MinimumAmount, chat.LastCommand)
}

func TestCommandPrefixMatchTakesMention(t *testing.T) {
	r, svc, _ := newTestRouter(t)
	register(t, r, 10)

	r.ProcessBatch(context.Background(), []tele.Update{update(2, 10, "/minimum_amount@harvest_bot")})
	chat, err := svc.FindByID(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, commands.MinimumAmount, chat.LastCommand)
}

func TestUnknownCommandLeavesStateAlone(t *testing.T) {
	r, svc, sender := newTestRouter(t)
	register(t, r, 10)
	r.ProcessBatch(context.Background(), []tele.Update{update(2, 10, "/minimum_amount")})

	r.ProcessBatch(context.Background(), []tele.Update{update(3, 10, "/frobnicate")})
	assert.Equal(t, commands.UnknownCommand, sender.last(10))

	chat, err := svc.FindByID(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, commands.MinimumAmount, chat.LastCommand, "unknown commands must not touch the pending command")
}

func TestValueFlowAppliesAndAppendsHelp(t *testing.T) {
	r, svc, sender := newTestRouter(t)
	register(t, r, 10)
	r.ProcessBatch(context.Background(), []tele.Update{update(2, 10, "/minimum_amount")})

	r.ProcessBatch(context.Background(), []tele.Update{update(3, 10, "750")})
	assert.Equal(t, "Minimum amount set to 750.00 USD. "+commands.HelpText, sender.last(10))

	chat, err := svc.FindByID(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 750.0, chat.MinAmountUSD)
	assert.Empty(t, chat.LastCommand)
}

func TestValueWithoutPendingCommandReportsError(t *testing.T) {
	r, _, sender := newTestRouter(t)
	register(t, r, 10)

	r.ProcessBatch(context.Background(), []tele.Update{update(2, 10, "750")})
	assert.Equal(t, commands.ErrorText, sender.last(10))
}

func TestInvalidValueKeepsPendingCommand(t *testing.T) {
	r, svc, sender := newTestRouter(t)
	register(t, r, 10)
	r.ProcessBatch(context.Background(), []tele.Update{update(2, 10, "/minimum_amount")})

	r.ProcessBatch(context.Background(), []tele.Update{update(3, 10, "not a number")})
	assert.Equal(t, commands.ErrorText, sender.last(10))

	chat, err := svc.FindByID(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, commands.MinimumAmount, chat.LastCommand)
}

func TestBatchIsolation(t *testing.T) {
	r, svc, sender := newTestRouter(t)
	register(t, r, 10)
	register(t, r, 20)

	// The failing value for chat 10 must not stop chat 20's command.
	r.ProcessBatch(context.Background(), []tele.Update{
		update(3, 10, "no pending"),
		update(4, 20, "/important_events"),
	})

	assert.Equal(t, commands.ErrorText, sender.last(10))
	chat, err := svc.FindByID(context.Background(), 20)
	require.NoError(t, err)
	assert.Equal(t, commands.ImportantEvents, chat.LastCommand)
}

func TestRateLimitDropsRapidUpdates(t *testing.T) {
	svc := chats.NewService(chats.NewMemoryStore(), chats.Defaults{})
	sender := newRecordingSender()
	r := New(svc, sender, time.Minute)
	register(t, r, 10)

	r.ProcessBatch(context.Background(), []tele.Update{update(2, 10, "/help")})
	assert.Equal(t, []string{commands.WelcomeMessage}, sender.sent[10], "second update inside the interval is dropped")
}

func TestFullConversation(t *testing.T) {
	r, svc, sender := newTestRouter(t)

	steps := []tele.Update{
		update(1, 10, "/start"),
		update(2, 10, "/subscribe_address"),
		update(3, 10, "0xAbCd000000000000000000000000000000001234"),
		update(4, 10, "/important_events"),
		update(5, 10, "on"),
	}
	for _, u := range steps {
		r.ProcessBatch(context.Background(), []tele.Update{u})
	}

	chat, err := svc.FindByID(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, "0xabcd000000000000000000000000000000001234", chat.WatchedAddress)
	assert.True(t, chat.ImportantEvents)
	assert.Empty(t, chat.LastCommand)
	assert.Len(t, sender.sent[10], 5)
}
