package mqtt

import (
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type fakePaho struct {
	mu         sync.Mutex
	connectErr error
	publishErr []error // consumed per call, nil entries succeed
	pubs       []published
}

func (f *fakePaho) IsConnected() bool { return true }

func (f *fakePaho) Connect() paho.Token {
	return &fakeToken{err: f.connectErr}
}

func (f *fakePaho) Disconnect(uint) {}

func (f *fakePaho) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	var err error
	if len(f.publishErr) > 0 {
		err = f.publishErr[0]
		f.publishErr = f.publishErr[1:]
	}
	if err == nil {
		f.pubs = append(f.pubs, published{topic: topic, qos: qos, payload: payload.([]byte)})
	}
	return &fakeToken{err: err}
}

func (f *fakePaho) Subscribe(string, byte, paho.MessageHandler) paho.Token {
	return &fakeToken{}
}

func (f *fakePaho) publishCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pubs)
}

func withFakeClient(t *testing.T, f *fakePaho) {
	t.Helper()
	orig := newMQTTClient
	newMQTTClient = func(*paho.ClientOptions) pahoClient { return f }
	t.Cleanup(func() { newMQTTClient = orig })
}

func testConfig() Config {
	return Config{
		Broker:     "tcp://localhost:1883",
		ClientID:   "groundlink-test",
		QoS:        map[string]byte{"command": 1},
		MaxRetries: 3,
		BackoffMS:  1,
	}
}

func TestPublishTopicAndQoS(t *testing.T) {
	fake := &fakePaho{}
	withFakeClient(t, fake)

	cli, err := NewPahoClient(testConfig(), func([]byte) {})
	require.NoError(t, err)
	defer cli.Disconnect()

	require.NoError(t, cli.Publish("V1", []byte(`{"type":"START"}`)))
	require.Equal(t, 1, fake.publishCount())
	require.Equal(t, "groundlink/vehicle/V1/cmd", fake.pubs[0].topic)
	require.Equal(t, byte(1), fake.pubs[0].qos)
}

func TestPublishRetriesOnBrokerError(t *testing.T) {
	fake := &fakePaho{publishErr: []error{errors.New("flaky"), errors.New("flaky"), nil}}
	withFakeClient(t, fake)

	cli, err := NewPahoClient(testConfig(), func([]byte) {})
	require.NoError(t, err)
	require.NoError(t, cli.Publish("V1", []byte("x")))
	require.Equal(t, 1, fake.publishCount())
}

func TestPublishExhaustsRetries(t *testing.T) {
	down := errors.New("broker down")
	fake := &fakePaho{publishErr: []error{down, down, down, down}}
	withFakeClient(t, fake)

	cli, err := NewPahoClient(testConfig(), func([]byte) {})
	require.NoError(t, err)
	require.Error(t, cli.Publish("V1", []byte("x")))
	require.Zero(t, fake.publishCount())
}

func TestConnectFailure(t *testing.T) {
	fake := &fakePaho{connectErr: errors.New("refused")}
	withFakeClient(t, fake)

	_, err := NewPahoClient(testConfig(), func([]byte) {})
	require.Error(t, err)
}

func TestNilHandlerRefused(t *testing.T) {
	_, err := NewPahoClient(testConfig(), nil)
	require.Error(t, err)
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.SetDefaults()
	require.Equal(t, "groundlink/vehicle", cfg.CommandPrefix)
	require.Equal(t, "groundlink/vehicle/+/telemetry", cfg.TelemetryTopic)
	require.Equal(t, 3, cfg.MaxRetries)
	require.Equal(t, 100, cfg.BackoffMS)
}

func TestNewClientOptions(t *testing.T) {
	opts, err := NewClientOptions(Config{
		Broker:     "tcp://broker:1883",
		Username:   "gc",
		Password:   "secret",
		LWTTopic:   "groundlink/status",
		LWTPayload: "offline",
	})
	require.NoError(t, err)
	require.Equal(t, "gc", opts.Username)
	require.Equal(t, "secret", opts.Password)
	require.Equal(t, "groundlink/status", opts.WillTopic)
	require.NotEmpty(t, opts.ClientID, "generated when unset")
}

func TestLoadTLSConfigRequiresFiles(t *testing.T) {
	_, err := Config{UseTLS: true}.LoadTLSConfig()
	require.Error(t, err)
}
