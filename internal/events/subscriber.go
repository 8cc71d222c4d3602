package events

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Subscriber выдает поток live-сообщений одного пользователя
type Subscriber struct {
	redisClient *redis.Client
}

func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{redisClient: client}
}

// Stream - поток live-сообщений, который читает websocket-обработчик
type Stream interface {
	Messages() <-chan []byte
	Close() error
}

// Subscription - подписка на события своих инцидентов и входящие уведомления
type Subscription struct {
	pubsub   *redis.PubSub
	messages chan []byte
}

// Subscribe подписывается на каналы пользователя. Поток закрывается вместе с ctx или Close.
func (s *Subscriber) Subscribe(ctx context.Context, userID string) (Stream, error) {
	pubsub := s.redisClient.Subscribe(ctx, OwnerChannel(userID), UserNotificationsChannel(userID))
	// Ждем подтверждения подписки, чтобы не потерять первые сообщения
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	sub := &Subscription{
		pubsub:   pubsub,
		messages: make(chan []byte, 16),
	}
	go sub.pump(ctx)
	return sub, nil
}

func (s *Subscription) pump(ctx context.Context) {
	defer close(s.messages)
	ch := s.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			select {
			case s.messages <- []byte(msg.Payload):
			case <-ctx.Done():
				return
			}
		}
	}
}

// Messages - сырые JSON-сообщения LiveMessage
func (s *Subscription) Messages() <-chan []byte {
	return s.messages
}

func (s *Subscription) Close() error {
	return s.pubsub.Close()
}
