package influxdb

import (
	"errors"
	"testing"

	"github.com/gpioneers/esp-firmware-portal/internal/infrastructure/config"
)

func TestConnect_Disabled(t *testing.T) {
	_, err := Connect(config.InfluxDBConfig{Enabled: false})
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestWriteHandshakeEvent_Disconnected(t *testing.T) {
	// A disconnected client must swallow writes rather than panic.
	c := &Client{}
	c.WriteHandshakeEvent("AA:BB:CC:DD:EE:FF", OperationAuthenticate, "ok")
	c.WriteDownloadEvent("AA:BB:CC:DD:EE:FF", "1.0", 1024)
}
