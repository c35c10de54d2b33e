package mqtt

import (
	"fmt"
	"strings"
)

// DefaultTopicPrefix is the root of every topic when none is configured.
const DefaultTopicPrefix = "familyrules"

// Topics builds the service's MQTT topic names under a common prefix.
//
// Only retained state topics are published: per-device decisions and the
// service's own online status. Consumers subscribe with the wildcard
// patterns below.
//
//	topics := mqtt.NewTopics("familyrules")
//	topics.DeviceStatus("tablet-1") // "familyrules/device/tablet-1/status"
type Topics struct {
	prefix string
}

// NewTopics returns a topic builder rooted at prefix. Surrounding slashes are
// trimmed and an empty prefix falls back to DefaultTopicPrefix.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the topic root.
func (t Topics) Prefix() string {
	if t.prefix == "" {
		return DefaultTopicPrefix
	}
	return t.prefix
}

// DeviceStatus returns the retained decision topic for a device.
//
// Example: familyrules/device/tablet-1/status
func (t Topics) DeviceStatus(deviceID string) string {
	return fmt.Sprintf("%s/device/%s/status", t.Prefix(), deviceID)
}

// SystemStatus returns the service online/offline topic, also used as the LWT.
//
// Example: familyrules/system/status
func (t Topics) SystemStatus() string {
	return fmt.Sprintf("%s/system/status", t.Prefix())
}

// AllDeviceStatuses returns a pattern matching every device decision.
//
// Pattern: familyrules/device/+/status
func (t Topics) AllDeviceStatuses() string {
	return fmt.Sprintf("%s/device/+/status", t.Prefix())
}

// AllTopics returns a pattern matching all service traffic.
//
// Pattern: familyrules/#
func (t Topics) AllTopics() string {
	return t.Prefix() + "/#"
}
