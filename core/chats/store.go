package chats

import (
	"context"
	"errors"
)

var (
	// ErrChatNotFound is returned when the requested chat id is not registered.
	ErrChatNotFound = errors.New("chats: chat not found")
	// ErrNoPendingCommand is returned when a value arrives while the chat is idle.
	ErrNoPendingCommand = errors.New("chats: no command is pending")
)

// Store is the persistence contract behind the Service. Implementations must
// serialize concurrent mutations to the same chat's record; the update router
// and the broadcast dispatcher access it from independent goroutines.
type Store interface {
	Exists(ctx context.Context, id int64) (bool, error)
	Get(ctx context.Context, id int64) (*Chat, error)
	Insert(ctx context.Context, c *Chat) error
	All(ctx context.Context) ([]Chat, error)

	SetLastCommand(ctx context.Context, id int64, command string) error
	// UpdateSettings persists the chat's user-tunable fields together with
	// its (possibly cleared) pending command in one write.
	UpdateSettings(ctx context.Context, c *Chat) error

	SetLastFarmPrice(ctx context.Context, id int64, price float64) error
	SetLastImportantEventID(ctx context.Context, id int64, eventID string) error
}
