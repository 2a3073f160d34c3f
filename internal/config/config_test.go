package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "heli_config.txt")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
# rig 2
MQTT_BROKER=tcp://broker:1883
TELEMETRY_SERIAL_PORT = /dev/ttyUSB0
TELEMETRY_FORMAT=sentence
ADC_I2C_ADDR=0x49
ALTITUDE_KP=450
YAW_BIAS=-3
DISPLAY_ENABLED=false
SIM_TIME_SCALE=4
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MQTTBroker != "tcp://broker:1883" {
		t.Errorf("MQTTBroker = %q", cfg.MQTTBroker)
	}
	if cfg.TelemetrySerialPort != "/dev/ttyUSB0" {
		t.Errorf("TelemetrySerialPort = %q", cfg.TelemetrySerialPort)
	}
	if cfg.TelemetryFormat != "sentence" {
		t.Errorf("TelemetryFormat = %q", cfg.TelemetryFormat)
	}
	if cfg.ADCI2CAddr != 0x49 {
		t.Errorf("ADCI2CAddr = %#x", cfg.ADCI2CAddr)
	}
	if cfg.AltitudeKP != 450 || cfg.YawBias != -3 {
		t.Errorf("gains = %d, %d", cfg.AltitudeKP, cfg.YawBias)
	}
	if cfg.DisplayEnabled {
		t.Error("DisplayEnabled still true")
	}
	if cfg.SimTimeScale != 4 {
		t.Errorf("SimTimeScale = %v", cfg.SimTimeScale)
	}
	// untouched keys keep their defaults
	if cfg.AltitudeKI != 10 || cfg.SampleBufferSize != 20 || cfg.DisplayRateHz != 4 {
		t.Errorf("defaults lost: KI=%d buf=%d display=%d", cfg.AltitudeKI, cfg.SampleBufferSize, cfg.DisplayRateHz)
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().validate(); err != nil {
		t.Fatal(err)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"no equals", "MQTT_BROKER\n", "invalid config line 1"},
		{"unknown key", "\nFOO=1\n", "config line 2: unknown config key"},
		{"bad int", "WEB_SERVER_PORT=http\n", "invalid WEB_SERVER_PORT"},
		{"port range", "WEB_SERVER_PORT=70000\n", "WEB_SERVER_PORT must be 1-65535"},
		{"channel range", "ADC_CHANNEL=4\n", "ADC_CHANNEL must be 0-3"},
		{"format", "TELEMETRY_FORMAT=json\n", "TELEMETRY_FORMAT must be text or sentence"},
		{"scale", "SIM_TIME_SCALE=0\n", "SIM_TIME_SCALE must be positive"},
		{"empty broker", "MQTT_BROKER=\n", "MQTT_BROKER is required"},
		{"empty pin", "RESET_PIN=\n", "RESET_PIN is required"},
		{"shared pin", "PWM_TAIL_PIN=GPIO18\n", "PWM_MAIN_PIN and PWM_TAIL_PIN both use GPIO18"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatalf("Load() succeeded, want error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Load() error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Fatal("Load() of missing file succeeded")
	}
}

func TestInitDefaultAfterMissingFile(t *testing.T) {
	if err := InitGlobal(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Fatal("InitGlobal() of missing file succeeded")
	}
	if Get() != nil {
		t.Fatal("Get() returned a config after a failed load")
	}
	InitDefault()
	cfg := Get()
	if cfg == nil {
		t.Fatal("Get() = nil after InitDefault")
	}
	if cfg.SampleBufferSize != 20 || cfg.TelemetryRateHz != 5 {
		t.Errorf("InitDefault installed %+v", cfg)
	}
}
