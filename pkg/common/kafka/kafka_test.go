package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/tib-ai/triage/pkg/common/models"
)

func TestEncodeDecodeMessage(t *testing.T) {
	event := NewEvent(models.EventPatientDiagnosed, models.SourceTriageService, map[string]interface{}{"disease": "Measles"})

	msg, err := EncodeMessage(event, "7")
	require.NoError(t, err)
	require.Equal(t, "7", string(msg.Key))
	require.Len(t, msg.Headers, 2)
	require.Equal(t, models.EventPatientDiagnosed, string(msg.Headers[0].Value))

	decoded, err := DecodeMessage(msg)
	require.NoError(t, err)
	require.Equal(t, event.ID, decoded.ID)
	require.Equal(t, "Measles", decoded.Data["disease"])
}

func TestEncodeMessageDefaultsKeyToEventID(t *testing.T) {
	event := NewEvent("x", "y", nil)
	msg, err := EncodeMessage(event, "")
	require.NoError(t, err)
	require.Equal(t, event.ID, string(msg.Key))
}

type fakeReader struct {
	messages  []kafka.Message
	next      int
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if r.next >= len(r.messages) {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.messages[r.next]
	r.next++
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func encodeAt(t *testing.T, offset int64, disease string) kafka.Message {
	t.Helper()
	msg, err := EncodeMessage(NewEvent(models.EventPatientDiagnosed, models.SourceTriageService, map[string]interface{}{"disease": disease}), "")
	require.NoError(t, err)
	msg.Offset = offset
	return msg
}

func TestConsumeRetriesFailedHandlerBeforeCommitting(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		encodeAt(t, 0, "Dengue"),
		{Offset: 1, Value: []byte("not json")},
		encodeAt(t, 2, "Measles"),
	}}
	consumer := newConsumer(reader)
	consumer.retryDelay = time.Millisecond
	consumer.maxBackoff = 2 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var handled []string
	failures := 2
	handler := func(_ context.Context, event models.Event) error {
		disease, _ := event.Data["disease"].(string)
		if disease == "Dengue" && failures > 0 {
			failures--
			return errors.New("database unavailable")
		}
		handled = append(handled, disease)
		if disease == "Measles" {
			cancel()
		}
		return nil
	}

	err := consumer.Consume(ctx, handler)
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, []string{"Dengue", "Measles"}, handled)
	require.Equal(t, []int64{0, 1, 2}, reader.committed)
}

func TestConsumeLeavesMessageUncommittedOnCancel(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{encodeAt(t, 0, "Dengue")}}
	consumer := newConsumer(reader)
	consumer.retryDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	handler := func(context.Context, models.Event) error {
		cancel()
		return errors.New("database unavailable")
	}

	err := consumer.Consume(ctx, handler)
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, reader.committed)
}
