package mqtt

import "testing"

func TestTopics(t *testing.T) {
	t.Run("system status", func(t *testing.T) {
		if got := (Topics{}).SystemStatus(); got != "espportal/system/status" {
			t.Errorf("SystemStatus() = %q", got)
		}
	})

	t.Run("device firmware", func(t *testing.T) {
		got := (Topics{}).DeviceFirmware("AA:BB:CC:DD:EE:FF")
		if got != "espportal/device/AA:BB:CC:DD:EE:FF/firmware" {
			t.Errorf("DeviceFirmware() = %q", got)
		}
	})
}

func TestPublishValidation(t *testing.T) {
	c := &Client{}

	t.Run("empty topic", func(t *testing.T) {
		if err := c.Publish("", []byte("x"), 0, false); err != ErrInvalidTopic {
			t.Errorf("Publish() error = %v, want ErrInvalidTopic", err)
		}
	})

	t.Run("invalid qos", func(t *testing.T) {
		if err := c.Publish("espportal/system/status", []byte("x"), 3, false); err != ErrInvalidQoS {
			t.Errorf("Publish() error = %v, want ErrInvalidQoS", err)
		}
	})
}
