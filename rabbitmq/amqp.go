package rabbitmq

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/ziflex/lecho/v3"
)

const (
	defaultHeartbeat = 10 * time.Second
	defaultLocale    = "en_US"
)

var ErrNotConnected = errors.New("amqp: not connected")

type AMQPClient interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	Close() error
}

type defaultAMQPClient struct {
	uri string

	mu              sync.RWMutex
	conn            *amqp.Connection
	publishChannel  *amqp.Channel
	notifyCloseChan chan *amqp.Error
	closed          chan struct{}
	closeOnce       sync.Once

	logger *lecho.Logger
}

// DialAMQP connects with exponential backoff and keeps reconnecting in the background
// until Close is called.
func DialAMQP(uri string, logger *lecho.Logger) (AMQPClient, error) {
	client := &defaultAMQPClient{
		uri:    uri,
		logger: logger,
		closed: make(chan struct{}),
	}
	err := backoff.Retry(client.connect, connectBackoff())
	if err != nil {
		return nil, err
	}

	go client.reconnectionLoop()

	return client, nil
}

func connectBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = time.Minute
	return b
}

func (c *defaultAMQPClient) connect() error {
	conn, err := amqp.DialConfig(c.uri, amqp.Config{
		Heartbeat: defaultHeartbeat,
		Locale:    defaultLocale,
		Dial:      amqp.DefaultDial(3 * time.Second),
	})
	if err != nil {
		c.logger.Warnf("amqp: dial failed: %v", err)
		return err
	}

	publishChannel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}

	notifyCloseChan := make(chan *amqp.Error, 1)
	conn.NotifyClose(notifyCloseChan)

	c.mu.Lock()
	c.conn = conn
	c.publishChannel = publishChannel
	c.notifyCloseChan = notifyCloseChan
	c.mu.Unlock()

	return nil
}

func (c *defaultAMQPClient) reconnectionLoop() {
	for {
		c.mu.RLock()
		notify := c.notifyCloseChan
		c.mu.RUnlock()

		select {
		case <-c.closed:
			return
		case amqpError, ok := <-notify:
			if !ok || amqpError == nil {
				// graceful close
				return
			}
			c.logger.Errorf("amqp: connection lost: %v", amqpError)
			c.logger.Info("amqp: trying to reconnect...")
			if err := backoff.Retry(c.connect, connectBackoff()); err != nil {
				c.logger.Errorf("amqp: giving up reconnecting: %v", err)
				return
			}
			c.logger.Info("amqp: successfully reconnected")
		}
	}
}

func (c *defaultAMQPClient) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	c.mu.RLock()
	ch := c.publishChannel
	c.mu.RUnlock()
	if ch == nil {
		return ErrNotConnected
	}
	return ch.PublishWithContext(ctx, exchange, key, mandatory, immediate, msg)
}

func (c *defaultAMQPClient) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return ErrNotConnected
	}
	// short lived management channel
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	return ch.ExchangeDeclare(name, kind, durable, autoDelete, internal, noWait, args)
}

func (c *defaultAMQPClient) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		c.mu.RLock()
		defer c.mu.RUnlock()
		if c.conn != nil {
			err = c.conn.Close()
		}
	})
	return err
}
