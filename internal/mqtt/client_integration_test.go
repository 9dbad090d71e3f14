//go:build integration

package mqtt

import (
	"fmt"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestClientAgainstMosquitto(t *testing.T) {
	ctx := t.Context()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "eclipse-mosquitto:2",
			ExposedPorts: []string{"1883/tcp"},
			Cmd:          []string{"mosquitto", "-c", "/mosquitto-no-auth.conf"},
			WaitingFor:   wait.ForListeningPort("1883/tcp"),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "1883")
	require.NoError(t, err)
	broker := fmt.Sprintf("tcp://%s:%s", host, port.Port())

	received := make(chan string, 1)
	sub := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("cropdoc-test-sub"))
	token := sub.Connect()
	require.True(t, token.WaitTimeout(10*time.Second))
	require.NoError(t, token.Error())
	t.Cleanup(func() { sub.Disconnect(100) })

	token = sub.Subscribe(DefaultTopic, 0, func(_ paho.Client, msg paho.Message) {
		received <- string(msg.Payload())
	})
	require.True(t, token.WaitTimeout(10*time.Second))
	require.NoError(t, token.Error())

	cfg := DefaultConfig()
	cfg.Broker = broker
	cfg.ClientID = "cropdoc-test-pub"
	c := newClient(cfg, newTestMetrics(t))
	require.NoError(t, c.Connect(ctx))
	t.Cleanup(c.Disconnect)
	require.True(t, c.IsConnected())

	require.NoError(t, NewPublisher(c, DefaultTopic).ProcessEvent(sampleEvent()))

	select {
	case payload := <-received:
		assert.Contains(t, payload, `"crop":"Potato"`)
	case <-time.After(10 * time.Second):
		t.Fatal("message not received")
	}
}
