package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer()
	assert.Error(t, err)
}

func TestPublishEncodesValues(t *testing.T) {
	w := &recordingWriter{}
	p := NewProducerWithWriter(w)

	require.NoError(t, p.Publish(context.Background(), "runs", []byte("k1"), map[string]int{"n": 1}))
	require.NoError(t, p.Publish(context.Background(), "runs", nil, "plain"))
	require.NoError(t, p.Publish(context.Background(), "runs", nil, []byte("raw")))

	require.Len(t, w.msgs, 3)
	assert.Equal(t, "runs", w.msgs[0].Topic)
	assert.Equal(t, []byte("k1"), w.msgs[0].Key)
	assert.JSONEq(t, `{"n":1}`, string(w.msgs[0].Value))
	assert.Equal(t, "plain", string(w.msgs[1].Value))
	assert.Equal(t, "raw", string(w.msgs[2].Value))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublishRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	w := &recordingWriter{err: errors.New("broker down")}
	p := NewProducerWithWriter(w, WithRegisterer(reg))

	err := p.Publish(context.Background(), "runs", nil, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if c := m.GetCounter(); c != nil {
				names[mf.GetName()] += c.GetValue()
			}
		}
	}
	assert.Equal(t, 1.0, names["finfolio_kafka_producer_errors_total"])
	assert.Equal(t, 1.0, names["finfolio_kafka_producer_messages_total"])
}

func TestParseCompression(t *testing.T) {
	assert.Equal(t, kafka.Snappy, parseCompression("snappy"))
	assert.Equal(t, kafka.Gzip, parseCompression("unknown"))
}
