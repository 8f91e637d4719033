package sender

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/printmesh/internal/printjob"
)

func TestSocketSender_DeliversExactBytes(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	received := make(chan []byte, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		data, _ := io.ReadAll(conn)
		received <- data
	}()

	addr := ln.Addr().(*net.TCPAddr)
	payload := []byte("^XA^FO50,50^FDHello^FS^XZ")
	require.NoError(t, NewSocketSender(time.Second).Send(context.Background(), "127.0.0.1", addr.Port, payload))

	select {
	case got := <-received:
		assert.Equal(t, payload, got)
	case <-time.After(2 * time.Second):
		t.Fatal("listener never received the payload")
	}
}

func TestSocketSender_ClosedPortFailsFast(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	start := time.Now()
	err = NewSocketSender(500*time.Millisecond).Send(context.Background(), "127.0.0.1", port, []byte("^XA^XZ"))
	require.Error(t, err)
	assert.ErrorIs(t, err, printjob.ErrDelivery)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestSocketSender_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewSocketSender(time.Second).Send(ctx, "127.0.0.1", 9, []byte("^XA^XZ"))
	require.Error(t, err)
	assert.ErrorIs(t, err, printjob.ErrDelivery)
}

func TestNewSocketSender_DefaultTimeout(t *testing.T) {
	assert.Equal(t, defaultSocketTimeout, NewSocketSender(0).timeout)
}
