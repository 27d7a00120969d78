package rabbitmq

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/getsentry/sentry-go"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/ziflex/lecho/v3"
)

// bufPool lets concurrent publishers reuse encode buffers instead of allocating one per event.
var bufPool = sync.Pool{
	New: func() interface{} { return new(bytes.Buffer) },
}

const (
	contentTypeJSON = "application/json"

	DefaultLedgerExchange = "finhub_ledger"
)

// Client publishes ledger events to a topic exchange.
type Client interface {
	Publish(ctx context.Context, routingKey string, payload interface{}) error
	// Close will close all connections to rabbitmq
	Close() error
}

type DefaultClient struct {
	amqpClient AMQPClient

	logger *lecho.Logger

	ledgerExchange string
}

type ClientOption = func(client *DefaultClient)

func WithLedgerExchange(exchange string) ClientOption {
	return func(client *DefaultClient) {
		client.ledgerExchange = exchange
	}
}

func WithLogger(logger *lecho.Logger) ClientOption {
	return func(client *DefaultClient) {
		client.logger = logger
	}
}

// NewClient declares the ledger exchange on amqpClient and returns a publisher for it.
func NewClient(amqpClient AMQPClient, options ...ClientOption) (Client, error) {
	client := &DefaultClient{
		amqpClient:     amqpClient,
		logger:         lecho.From(zerolog.Nop()),
		ledgerExchange: DefaultLedgerExchange,
	}
	for _, opt := range options {
		opt(client)
	}

	err := amqpClient.ExchangeDeclare(
		client.ledgerExchange,
		// topic is needed so consumers can bind with wildcards like "transaction.*"
		amqp.ExchangeTopic,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, err
	}
	return client, nil
}

func (client *DefaultClient) Close() error { return client.amqpClient.Close() }

func (client *DefaultClient) Publish(ctx context.Context, routingKey string, payload interface{}) error {
	buf := bufPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufPool.Put(buf)

	if err := encodeJSON(buf, payload); err != nil {
		captureErr(client.logger, err)
		return err
	}

	err := client.amqpClient.PublishWithContext(ctx,
		client.ledgerExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType: contentTypeJSON,
			Body:        buf.Bytes(),
		},
	)
	if err != nil {
		captureErr(client.logger, err)
		return err
	}

	client.logger.Debugf("published %s to %s", routingKey, client.ledgerExchange)
	return nil
}

func encodeJSON(w io.Writer, payload interface{}) error {
	return json.NewEncoder(w).Encode(payload)
}

func captureErr(logger *lecho.Logger, err error) {
	logger.Error(err)
	sentry.CaptureException(err)
}
