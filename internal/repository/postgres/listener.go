package postgres

import (
	"context"

	"github.com/mraskin/userdir-server/internal/logger"
	"github.com/mraskin/userdir-server/internal/model"
)

// Notification channel fired by the users table trigger.
const changeChannel = "users_changed"

var _ model.ChangeFeed = (*Listener)(nil)

// Listener delivers users-table change notifications over LISTEN/NOTIFY.
// The notification payload (the trigger operation) is ignored: subscribers
// only learn that something changed and must re-fetch.
type Listener struct {
	db     *Connection
	logger *logger.Logger
}

func NewListener(db *Connection, logger *logger.Logger) *Listener {
	return &Listener{
		db:     db,
		logger: logger,
	}
}

// Subscribe holds a dedicated pool connection on LISTEN and invokes
// onChange once per notification until the returned Unsubscribe is called
// or ctx is cancelled. Unsubscribe blocks until the listen loop has
// released the connection, so onChange is never invoked afterwards.
func (l *Listener) Subscribe(ctx context.Context, onChange func()) (model.Unsubscribe, error) {
	conn, err := l.db.Acquire(ctx)
	if err != nil {
		return nil, model.NewBackendError("acquire listen connection", err)
	}

	if _, err := conn.Exec(ctx, "LISTEN "+changeChannel); err != nil {
		conn.Release()
		return nil, model.NewBackendError("listen on "+changeChannel, err)
	}

	listenCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer conn.Release()

		for {
			if _, err := conn.Conn().WaitForNotification(listenCtx); err != nil {
				if listenCtx.Err() != nil {
					return
				}
				l.logger.Error("notification wait failed", "channel", changeChannel, "error", err)
				return
			}
			onChange()
		}
	}()

	return func() {
		cancel()
		<-done
	}, nil
}
