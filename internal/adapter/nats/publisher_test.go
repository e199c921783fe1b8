package nats

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return nil
}

func TestNewNATSPublisher_NilConnection(t *testing.T) {
	pub, err := NewNATSPublisher(nil)

	assert.ErrorIs(t, err, ErrNoConnection)
	assert.Nil(t, pub)
}

func TestNATSPublisher_PublishEncodesJSON(t *testing.T) {
	conn := &fakeConn{}
	pub := &natsPublisher{conn: conn}

	err := pub.Publish(context.Background(), "cart.events", map[string]interface{}{"type": "CLEAR_CART", "count": 0})

	require.NoError(t, err)
	require.Equal(t, []string{"cart.events"}, conn.subjects)
	assert.JSONEq(t, `{"type":"CLEAR_CART","count":0}`, string(conn.payloads[0]))
}

func TestNATSPublisher_PublishErrors(t *testing.T) {
	pub := &natsPublisher{conn: &fakeConn{err: errors.New("nats: connection closed")}}
	err := pub.Publish(context.Background(), "cart.events", struct{}{})
	assert.ErrorContains(t, err, "cart.events")

	err = pub.Publish(context.Background(), "cart.events", make(chan int))
	assert.ErrorContains(t, err, "failed to marshal")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = (&natsPublisher{conn: &fakeConn{}}).PublishRaw(ctx, "cart.events", []byte("{}"))
	assert.ErrorIs(t, err, context.Canceled)
}
