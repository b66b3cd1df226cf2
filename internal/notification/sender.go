package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rabbitmq/amqp091-go"
	"github.com/smallbiznis/ridepay/internal/config"
	"github.com/smallbiznis/ridepay/internal/observability/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrPublish = errors.New("message_publish_failed")

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle `optional:"true"`
	Config    config.Config
	Log       *zap.Logger
}

// New publishes to RabbitMQ when a URL is configured and only logs otherwise.
func New(p Params) Sender {
	log := p.Log.Named("notification")
	url := strings.TrimSpace(p.Config.Messaging.URL)
	if url == "" {
		log.Info("message gateway disabled, notifications are logged only")
		return &LogSender{log: log}
	}

	pub := &Publisher{
		url:   url,
		queue: p.Config.Messaging.Queue,
		log:   log,
		dial:  amqp091.Dial,
	}
	if p.Lifecycle != nil {
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(context.Context) error {
				return pub.Close()
			},
		})
	}
	return pub
}

// LogSender writes messages to the log instead of a queue.
type LogSender struct {
	log *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	logger.WithContext(ctx, s.log).Info("notification",
		zap.String("template", msg.Name),
		zap.Bool("has_phone", msg.Phone != ""),
	)
	return nil
}

// Publisher holds one channel to the message gateway and redials after a
// failed publish.
type Publisher struct {
	url   string
	queue string
	log   *zap.Logger
	dial  func(url string) (*amqp091.Connection, error)

	mu   sync.Mutex
	conn *amqp091.Connection
	ch   *amqp091.Channel
}

func (p *Publisher) Send(ctx context.Context, msg Message) error {
	log := logger.WithContext(ctx, p.log)
	if strings.TrimSpace(msg.Phone) == "" {
		log.Debug("notification skipped without phone", zap.String("template", msg.Name))
		return nil
	}

	publishing, err := toPublishing(msg)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for attempt := 0; attempt < 2; attempt++ {
		ch, err := p.channel()
		if err != nil {
			log.Warn("cannot open message gateway channel", zap.Error(err))
			continue
		}
		err = ch.PublishWithContext(ctx, "", p.queue, false, false, publishing)
		if err == nil {
			log.Info("notification published",
				zap.String("template", msg.Name),
				zap.String("queue", p.queue),
			)
			return nil
		}
		log.Warn("notification publish failed", zap.String("queue", p.queue), zap.Error(err))
		p.reset()
	}
	return fmt.Errorf("%w: %s", ErrPublish, msg.Name)
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reset()
}

func (p *Publisher) channel() (*amqp091.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := p.dial(p.url)
		if err != nil {
			return nil, err
		}
		p.conn = conn
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, err
	}
	p.ch = ch
	return ch, nil
}

func (p *Publisher) reset() error {
	var errs []error
	if p.ch != nil {
		errs = append(errs, ignoreClosed(p.ch.Close()))
		p.ch = nil
	}
	if p.conn != nil {
		errs = append(errs, ignoreClosed(p.conn.Close()))
		p.conn = nil
	}
	return errors.Join(errs...)
}

func ignoreClosed(err error) error {
	if errors.Is(err, amqp091.ErrClosed) {
		return nil
	}
	return err
}

func toPublishing(msg Message) (amqp091.Publishing, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return amqp091.Publishing{}, err
	}
	return amqp091.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp091.Persistent,
		Headers: amqp091.Table{
			"message_type":     "JSON",
			"requeue_strategy": "DROP",
		},
	}, nil
}

var Module = fx.Module("notification",
	fx.Provide(New),
)
