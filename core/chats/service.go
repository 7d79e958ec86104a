package chats

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"log/slog"

	"tgnotifier/core/logger"
	"tgnotifier/core/telegram/commands"
)

// Defaults seed the settings of newly registered chats.
type Defaults struct {
	MinAmountUSD  float64
	FarmChangeGap float64
}

// Service is the chat registry. It is the single owner of chat state for
// both the update router and the broadcast dispatcher.
type Service struct {
	store    Store
	defaults Defaults
}

// NewService builds a Service over the given store.
func NewService(store Store, defaults Defaults) *Service {
	return &Service{store: store, defaults: defaults}
}

// IsKnownChatID reports whether the chat id has been registered.
func (s *Service) IsKnownChatID(ctx context.Context, id int64) (bool, error) {
	return s.store.Exists(ctx, id)
}

// SaveNewChat registers a first-contact chat with default settings.
func (s *Service) SaveNewChat(ctx context.Context, id int64, name string, userID int64) error {
	c := &Chat{
		ID:            id,
		Name:          name,
		UserID:        userID,
		MinAmountUSD:  s.defaults.MinAmountUSD,
		FarmChangeGap: s.defaults.FarmChangeGap,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.store.Insert(ctx, c); err != nil {
		return err
	}
	logger.Info(ctx, "db", "chat.add",
		slog.Int64("chat_id", id),
		slog.String("username", logger.SanitizeLimit(name, 64)),
	)
	return nil
}

// FindByID returns the chat record or ErrChatNotFound.
func (s *Service) FindByID(ctx context.Context, id int64) (*Chat, error) {
	return s.store.Get(ctx, id)
}

// FindAllChats returns every registered chat.
func (s *Service) FindAllChats(ctx context.Context) ([]Chat, error) {
	return s.store.All(ctx)
}

// UpdateLastCommand arms the chat's pending command.
func (s *Service) UpdateLastCommand(ctx context.Context, id int64, command string) error {
	return s.store.SetLastCommand(ctx, id, command)
}

// SetLastFarmPrice persists the last notified FARM price for change tracking.
func (s *Service) SetLastFarmPrice(ctx context.Context, id int64, price float64) error {
	return s.store.SetLastFarmPrice(ctx, id, price)
}

// SetLastImportantEventID persists the id of the last important event sent to the chat.
func (s *Service) SetLastImportantEventID(ctx context.Context, id int64, eventID string) error {
	return s.store.SetLastImportantEventID(ctx, id, eventID)
}

// ApplyValue applies free-form text against the chat's pending command,
// clears the pending command, and returns a human-readable result.
// It fails with ErrNoPendingCommand when the chat is idle.
func (s *Service) ApplyValue(ctx context.Context, id int64, value string) (string, error) {
	chat, err := s.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if chat.LastCommand == "" {
		return "", ErrNoPendingCommand
	}

	value = strings.TrimSpace(value)
	var result string
	switch chat.LastCommand {
	case commands.MinimumAmount:
		v, err := parseAmount(value)
		if err != nil {
			return "", err
		}
		chat.MinAmountUSD = v
		result = fmt.Sprintf("Minimum amount set to %.2f USD", v)

	case commands.FarmChange:
		v, err := parseAmount(value)
		if err != nil {
			return "", err
		}
		chat.FarmChangeGap = v
		if v == 0 {
			result = "FARM price change notifications disabled"
		} else {
			result = fmt.Sprintf("FARM change gap set to %.2f USD", v)
		}

	case commands.SubscribeAddress:
		switch strings.ToLower(value) {
		case "off", "none":
			chat.WatchedAddress = ""
			result = "Address subscription removed"
		default:
			addr, err := parseAddress(value)
			if err != nil {
				return "", err
			}
			chat.WatchedAddress = addr
			result = "Now following " + addr
		}

	case commands.ImportantEvents:
		on, err := parseToggle(value)
		if err != nil {
			return "", err
		}
		chat.ImportantEvents = on
		if on {
			result = "Important event notifications on"
		} else {
			result = "Important event notifications off"
		}

	default:
		return "", fmt.Errorf("chats: unsupported pending command %q", chat.LastCommand)
	}

	chat.LastCommand = ""
	if err := s.store.UpdateSettings(ctx, chat); err != nil {
		return "", err
	}
	logger.Debug(ctx, "db", "chat.value", slog.Int64("chat_id", id))
	return result, nil
}

func parseAmount(value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("chats: invalid amount %q", value)
	}
	return v, nil
}

func parseAddress(value string) (string, error) {
	addr := strings.ToLower(value)
	if len(addr) != 42 || !strings.HasPrefix(addr, "0x") {
		return "", fmt.Errorf("chats: invalid address %q", value)
	}
	for _, r := range addr[2:] {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return "", fmt.Errorf("chats: invalid address %q", value)
		}
	}
	return addr, nil
}

func parseToggle(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "on", "true", "1", "yes":
		return true, nil
	case "off", "false", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("chats: expected on or off, got %q", value)
}
