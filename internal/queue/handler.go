package queue

import (
	"github.com/rabbitmq/amqp091-go"

	"atlas/pkg/logger"
)

// maxRetries is how often a message may bounce through the retry queue
// before it lands in the DLQ.
const maxRetries = 10

// RetryCount reads the x-retries header set by previous delivery attempts.
func RetryCount(headers amqp091.Table) int {
	if val, ok := headers["x-retries"]; ok {
		if v, ok := val.(int32); ok {
			return int(v)
		}
	}
	return 0
}

// RetryTarget decides where a failed message goes next and returns the
// headers it should carry.
func RetryTarget(queueName string, headers amqp091.Table) (string, amqp091.Table) {
	retries := RetryCount(headers)
	if retries >= maxRetries {
		return queueName + "_dlq", headers
	}

	if headers == nil {
		headers = amqp091.Table{}
	}
	headers["x-retries"] = int32(retries + 1)
	return queueName + "_retry", headers
}

// HandleProcessingError republishes a failed message to its retry queue, or
// to the DLQ once it has exhausted its retries, then acks the original
// delivery. On publish failure the message is nacked back onto the queue.
func HandleProcessingError(ch *amqp091.Channel, msg amqp091.Delivery, queueName string) {
	target, headers := RetryTarget(queueName, msg.Headers)
	if target == queueName+"_dlq" {
		logger.Info("Sending message to DLQ", "dlq", target)
	}

	pubErr := ch.Publish(
		"",
		target,
		false,
		false,
		amqp091.Publishing{
			ContentType: "application/json",
			Body:        msg.Body,
			Headers:     headers,
		},
	)
	if pubErr != nil {
		logger.Error("Failed to republish message", "target", target, "err", pubErr)
		msg.Nack(false, true)
		return
	}
	msg.Ack(false)
}
