package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/nerrad567/family-rules-core/internal/infrastructure/config"
)

// testConfig returns a valid MQTT configuration for testing.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Enabled: true,
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "familyrules-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
		TopicPrefix: "familyrules",
	}
}

func TestTopicBuilders(t *testing.T) {
	tests := []struct {
		name     string
		builder  func() string
		expected string
	}{
		{
			name:     "DeviceStatus",
			builder:  func() string { return NewTopics("familyrules").DeviceStatus("tablet-1") },
			expected: "familyrules/device/tablet-1/status",
		},
		{
			name:     "SystemStatus",
			builder:  func() string { return NewTopics("familyrules").SystemStatus() },
			expected: "familyrules/system/status",
		},
		{
			name:     "AllDeviceStatuses",
			builder:  func() string { return NewTopics("familyrules").AllDeviceStatuses() },
			expected: "familyrules/device/+/status",
		},
		{
			name:     "AllTopics",
			builder:  func() string { return NewTopics("familyrules").AllTopics() },
			expected: "familyrules/#",
		},
		{
			name:     "custom prefix trimmed",
			builder:  func() string { return NewTopics("/home/kids/").DeviceStatus("t") },
			expected: "home/kids/device/t/status",
		},
		{
			name:     "empty prefix defaults",
			builder:  func() string { return NewTopics("").SystemStatus() },
			expected: "familyrules/system/status",
		},
		{
			name:     "zero value defaults",
			builder:  func() string { return Topics{}.DeviceStatus("t") },
			expected: "familyrules/device/t/status",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.builder(); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestBuildClientOptions(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*config.MQTTConfig)
		wantBroker string
		wantUser   string
		wantTLS    bool
	}{
		{
			name:       "plain tcp",
			mutate:     func(*config.MQTTConfig) {},
			wantBroker: "tcp://127.0.0.1:1883",
		},
		{
			name: "tls with auth",
			mutate: func(c *config.MQTTConfig) {
				c.Broker.TLS = true
				c.Broker.Port = 8883
				c.Auth.Username = "core"
				c.Auth.Password = "pw"
			},
			wantBroker: "ssl://127.0.0.1:8883",
			wantUser:   "core",
			wantTLS:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			opts := buildClientOptions(cfg)

			if len(opts.Servers) != 1 || opts.Servers[0].String() != tt.wantBroker {
				t.Errorf("Servers = %v, want %s", opts.Servers, tt.wantBroker)
			}
			if opts.ClientID != cfg.Broker.ClientID {
				t.Errorf("ClientID = %q, want %q", opts.ClientID, cfg.Broker.ClientID)
			}
			if opts.Username != tt.wantUser {
				t.Errorf("Username = %q, want %q", opts.Username, tt.wantUser)
			}
			if (opts.TLSConfig != nil) != tt.wantTLS {
				t.Errorf("TLSConfig set = %v, want %v", opts.TLSConfig != nil, tt.wantTLS)
			}
			if !opts.AutoReconnect || !opts.CleanSession {
				t.Error("AutoReconnect and CleanSession should be enabled")
			}
		})
	}
}

func TestConfigureLWT(t *testing.T) {
	cfg := testConfig()
	opts := buildClientOptions(cfg)
	configureLWT(opts, NewTopics("kids"), cfg.Broker.ClientID)

	if !opts.WillEnabled || !opts.WillRetained {
		t.Fatal("LWT should be enabled and retained")
	}
	if opts.WillTopic != "kids/system/status" {
		t.Errorf("WillTopic = %q", opts.WillTopic)
	}

	var payload statusPayload
	if err := json.Unmarshal(opts.WillPayload, &payload); err != nil {
		t.Fatalf("WillPayload not JSON: %v", err)
	}
	if payload.Status != "offline" || payload.Reason != "unexpected_disconnect" || payload.ClientID != "familyrules-test" {
		t.Errorf("WillPayload = %+v", payload)
	}
}

func TestStatusPayloads(t *testing.T) {
	var online statusPayload
	if err := json.Unmarshal(buildOnlinePayload("c1"), &online); err != nil {
		t.Fatalf("online payload: %v", err)
	}
	if online.Status != "online" || online.Reason != "" {
		t.Errorf("online = %+v", online)
	}
	if strings.Contains(string(buildOnlinePayload("c1")), "reason") {
		t.Error("online payload should omit reason")
	}

	var offline statusPayload
	if err := json.Unmarshal(buildOfflinePayload("c1"), &offline); err != nil {
		t.Fatalf("offline payload: %v", err)
	}
	if offline.Status != "offline" || offline.Reason != "graceful_shutdown" {
		t.Errorf("offline = %+v", offline)
	}
}

func TestPublish_Validation(t *testing.T) {
	client := &Client{cfg: testConfig(), topics: NewTopics("familyrules")}

	tests := []struct {
		name    string
		publish func() error
		wantErr error
	}{
		{"empty topic", func() error { return client.Publish("", nil, 1, false) }, ErrInvalidTopic},
		{"invalid qos", func() error { return client.Publish("t", nil, 3, false) }, ErrInvalidQoS},
		{"oversized payload", func() error { return client.Publish("t", make([]byte, maxPayloadSize+1), 1, false) }, ErrPublishFailed},
		{"not connected", func() error { return client.PublishRetained("t", []byte("{}")) }, ErrNotConnected},
		{"empty device id", func() error { return client.PublishDeviceStatus("", []byte("{}")) }, ErrInvalidDeviceID},
		{"device not connected", func() error { return client.PublishDeviceStatus("tablet-1", []byte("{}")) }, ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.publish(); !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsConnected_InitialState(t *testing.T) {
	client := &Client{}

	if client.IsConnected() {
		t.Error("IsConnected() should be false for uninitialised client")
	}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on uninitialised client error = %v", err)
	}
}

func TestHealthCheck_NotConnected(t *testing.T) {
	client := &Client{}

	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck(cancelled) error = %v, want context.Canceled", err)
	}
}

func TestConnect_BrokerRefused(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.Port = 19998

	// With ConnectRetry set the connect token only resolves on success, so a
	// refused broker surfaces as a timeout.
	_, err := Connect(cfg)
	if err == nil {
		t.Skip("a broker is unexpectedly listening on the test port")
	}
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}
