package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent() Event {
	return Event{
		Type:       HoldCreated,
		SessionID:  42,
		HoldUUID:   "6f1c7f0e-8a7e-4e0b-9d0e-2d7f3f6a1b11",
		OccurredAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestMulti_PublishesToAllAndJoinsErrors(t *testing.T) {
	var got []Type
	ok := PublisherFunc(func(_ context.Context, ev Event) error {
		got = append(got, ev.Type)
		return nil
	})
	boom := errors.New("boom")
	failing := PublisherFunc(func(context.Context, Event) error { return boom })

	err := Multi{ok, nil, failing, ok}.Publish(context.Background(), sampleEvent())

	require.ErrorIs(t, err, boom)
	assert.Equal(t, []Type{HoldCreated, HoldCreated}, got)
}

func TestKafkaPublisher_SendsKeyedJSON(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	producer := mocks.NewSyncProducer(t, cfg)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var ev Event
		if err := json.Unmarshal(val, &ev); err != nil {
			return err
		}
		if ev.SessionID != 42 || ev.Type != HoldCreated {
			return errors.New("unexpected payload")
		}
		return nil
	})

	p := NewKafkaPublisherWithProducer(producer, "seatflow.events")
	require.NoError(t, p.Publish(context.Background(), sampleEvent()))
	require.NoError(t, p.Close())
}

func TestKafkaPublisher_ReturnsProducerError(t *testing.T) {
	cfg := mocks.NewTestConfig()
	cfg.Producer.Return.Successes = true
	producer := mocks.NewSyncProducer(t, cfg)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := NewKafkaPublisherWithProducer(producer, "seatflow.events")
	err := p.Publish(context.Background(), sampleEvent())

	require.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}

func TestNewSaramaConfig(t *testing.T) {
	sc := NewSaramaConfig(KafkaConfig{RetryMax: 7, Timeout: 3 * time.Second})

	assert.True(t, sc.Producer.Return.Successes)
	assert.Equal(t, sarama.WaitForAll, sc.Producer.RequiredAcks)
	assert.Equal(t, 7, sc.Producer.Retry.Max)
	assert.Equal(t, 3*time.Second, sc.Producer.Timeout)
}

func TestAMQPMessage(t *testing.T) {
	msg, err := amqpMessage(sampleEvent())
	require.NoError(t, err)

	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "hold.created", msg.Type)

	var ev Event
	require.NoError(t, json.Unmarshal(msg.Body, &ev))
	assert.Equal(t, int64(42), ev.SessionID)
}

func TestEventKey(t *testing.T) {
	assert.Equal(t, "session:42", sampleEvent().Key())
}
