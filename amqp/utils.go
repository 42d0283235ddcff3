package amqp

import (
	"fmt"

	"github.com/google/uuid"
)

// newConsumerTag synthesizes a consumer tag in the ctag<channel_id>.<hex>
// form basic_consume uses when the caller does not supply one.
func newConsumerTag(channelID uint16) string {
	id := uuid.New()
	return fmt.Sprintf("ctag%d.%x", channelID, id[:])
}
