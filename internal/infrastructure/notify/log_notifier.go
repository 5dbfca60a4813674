// Package notify delivers account messages. The only implementation here
// prints deliveries to the process output stream the way a console outbox
// would; deployments with a real mail path plug in their own Notifier.
package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/internal/domain/service"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/constants"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/errors"
	"github.com/irubey/Prototype-Climbing-Analytics-App-sub002/pkg/logger"
)

var _ service.Notifier = (*LogNotifier)(nil)

// LogNotifier 将密码重置投递打印到进程输出流的通知器（开发/单节点配置用）
//
// The delivery text, reset token included, goes to the notifier's writer
// (stdout by default), which is the whole delivery channel for this
// implementation. The structured log gets a delivery record without the
// token, so log pipelines never carry the secret.
type LogNotifier struct {
	mu     sync.Mutex
	out    io.Writer
	logger logger.Logger
}

// NewLogNotifier creates a notifier that prints deliveries to stdout.
//
// Parameters:
//   - log: structured logger
//
// Returns:
//   - *LogNotifier: initialized notifier
func NewLogNotifier(log logger.Logger) *LogNotifier {
	return NewLogNotifierTo(os.Stdout, log)
}

// NewLogNotifierTo creates a notifier printing to the given writer.
//
// Parameters:
//   - out: destination for delivery text
//   - log: structured logger
//
// Returns:
//   - *LogNotifier: initialized notifier
func NewLogNotifierTo(out io.Writer, log logger.Logger) *LogNotifier {
	return &LogNotifier{
		out:    out,
		logger: log.WithComponent("notifier"),
	}
}

// SendPasswordReset prints the reset message for the account.
func (n *LogNotifier) SendPasswordReset(ctx context.Context, email, resetToken string, expiresAt time.Time) error {
	n.mu.Lock()
	_, err := fmt.Fprintf(n.out,
		"--- password reset for %s (valid until %s) ---\nreset_token: %s\n",
		email, expiresAt.UTC().Format(time.RFC3339), resetToken)
	n.mu.Unlock()
	if err != nil {
		return errors.Wrap(err, constants.ErrCodeInternal, "reset delivery failed")
	}

	n.logger.Info(ctx, "password reset delivery recorded",
		logger.String("email", email),
		logger.Time("expires_at", expiresAt),
	)
	return nil
}
