// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// DefaultPath is the configuration file read when no -config flag is given.
const DefaultPath = "heli_config.txt"

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker             string
	MQTTClientIDController string
	MQTTClientIDConsole    string
	MQTTClientIDWeb        string

	// Topics
	TopicTelemetry string
	TopicState     string

	// Serial telemetry
	TelemetrySerialPort string // empty disables the UART sink
	TelemetryBaudRate   int
	TelemetryFormat     string // "text" or "sentence"

	// Web Server
	WebServerPort int

	// Display
	DisplayEnabled bool

	// Altitude ADC
	ADCI2CAddr           uint16
	ADCChannel           int
	SampleRateHz         int
	SampleBufferSize     int
	ADCOneVolt           int // counts per volt
	AltitudeVoltageRange int // volts between landed and full height

	// GPIO
	YawPinA        string
	YawPinB        string
	YawRefPin      string
	SwitchPin      string
	ButtonUpPin    string
	ButtonDownPin  string
	ButtonLeftPin  string
	ButtonRightPin string
	ResetPin       string
	PWMMainPin     string
	PWMTailPin     string
	PWMRateHz      int

	// Controller gains, scaled by 1000
	AltitudeKP, AltitudeKI, AltitudeKD, AltitudeBias int64
	YawKP, YawKI, YawKD, YawBias                     int64

	// Task rates in Hz; 0 runs on every scheduler pass
	ControlRateHz   int
	DisplayRateHz   int
	ControlsRateHz  int
	TelemetryRateHz int

	// Simulator
	SimTimeScale float64
}

// Default returns the rig's stock configuration. A config file only needs
// to list what differs.
func Default() *Config {
	return &Config{
		MQTTBroker:             "tcp://localhost:1883",
		MQTTClientIDController: "heli-controller",
		MQTTClientIDConsole:    "heli-telemetry-console",
		MQTTClientIDWeb:        "heli-web-subscriber",

		TopicTelemetry: "heli/telemetry",
		TopicState:     "heli/state",

		TelemetryBaudRate: 9600,
		TelemetryFormat:   "text",

		WebServerPort: 8080,

		DisplayEnabled: true,

		ADCI2CAddr:           0x48,
		ADCChannel:           0,
		SampleRateHz:         860,
		SampleBufferSize:     20,
		ADCOneVolt:           1200,
		AltitudeVoltageRange: 1,

		YawPinA:        "GPIO17",
		YawPinB:        "GPIO27",
		YawRefPin:      "GPIO22",
		SwitchPin:      "GPIO5",
		ButtonUpPin:    "GPIO6",
		ButtonDownPin:  "GPIO23",
		ButtonLeftPin:  "GPIO24",
		ButtonRightPin: "GPIO25",
		ResetPin:       "GPIO16",
		PWMMainPin:     "GPIO18",
		PWMTailPin:     "GPIO19",
		PWMRateHz:      200,

		AltitudeKP: 400, AltitudeKI: 10, AltitudeKD: 0, AltitudeBias: 5,
		YawKP: 300, YawKI: 10, YawKD: 0, YawBias: 0,

		ControlRateHz:   0,
		DisplayRateHz:   4,
		ControlsRateHz:  100,
		TelemetryRateHz: 5,

		SimTimeScale: 1,
	}
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: set once by InitGlobal, read through Get.
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: RWMutex protects concurrent access. Write lock for initialization,
//     read lock for Get().
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file over the defaults and returns the result.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parseInt(key, value string, min, max int) (int, error) {
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v < min || v > max {
		return 0, fmt.Errorf("%s must be %d-%d, got %d", key, min, max, v)
	}
	return v, nil
}

func parseGain(key, value string) (int64, error) {
	v, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return v, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	var err error
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_CONTROLLER":
		c.MQTTClientIDController = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value

	// Topics
	case "TOPIC_TELEMETRY":
		c.TopicTelemetry = value
	case "TOPIC_STATE":
		c.TopicState = value

	// Serial telemetry
	case "TELEMETRY_SERIAL_PORT":
		c.TelemetrySerialPort = value
	case "TELEMETRY_BAUD_RATE":
		c.TelemetryBaudRate, err = parseInt(key, value, 1, 4000000)
	case "TELEMETRY_FORMAT":
		if value != "text" && value != "sentence" {
			return fmt.Errorf("TELEMETRY_FORMAT must be text or sentence, got %q", value)
		}
		c.TelemetryFormat = value

	// Web Server
	case "WEB_SERVER_PORT":
		c.WebServerPort, err = parseInt(key, value, 1, 65535)

	// Display
	case "DISPLAY_ENABLED":
		c.DisplayEnabled, err = strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_ENABLED %q: %w", value, err)
		}

	// Altitude ADC
	case "ADC_I2C_ADDR":
		addr, perr := strconv.ParseUint(value, 0, 16)
		if perr != nil {
			return fmt.Errorf("invalid ADC_I2C_ADDR %q: %w", value, perr)
		}
		c.ADCI2CAddr = uint16(addr)
	case "ADC_CHANNEL":
		c.ADCChannel, err = parseInt(key, value, 0, 3)
	case "SAMPLE_RATE_HZ":
		c.SampleRateHz, err = parseInt(key, value, 1, 100000)
	case "SAMPLE_BUFFER_SIZE":
		c.SampleBufferSize, err = parseInt(key, value, 1, 1<<20)
	case "ADC_ONE_VOLT":
		c.ADCOneVolt, err = parseInt(key, value, 1, 1<<20)
	case "ALTITUDE_VOLTAGE_RANGE":
		c.AltitudeVoltageRange, err = parseInt(key, value, 1, 100)

	// GPIO
	case "YAW_PIN_A":
		c.YawPinA = value
	case "YAW_PIN_B":
		c.YawPinB = value
	case "YAW_REF_PIN":
		c.YawRefPin = value
	case "SWITCH_PIN":
		c.SwitchPin = value
	case "BUTTON_UP_PIN":
		c.ButtonUpPin = value
	case "BUTTON_DOWN_PIN":
		c.ButtonDownPin = value
	case "BUTTON_LEFT_PIN":
		c.ButtonLeftPin = value
	case "BUTTON_RIGHT_PIN":
		c.ButtonRightPin = value
	case "RESET_PIN":
		c.ResetPin = value
	case "PWM_MAIN_PIN":
		c.PWMMainPin = value
	case "PWM_TAIL_PIN":
		c.PWMTailPin = value
	case "PWM_RATE_HZ":
		c.PWMRateHz, err = parseInt(key, value, 1, 100000)

	// Controller gains
	case "ALTITUDE_KP":
		c.AltitudeKP, err = parseGain(key, value)
	case "ALTITUDE_KI":
		c.AltitudeKI, err = parseGain(key, value)
	case "ALTITUDE_KD":
		c.AltitudeKD, err = parseGain(key, value)
	case "ALTITUDE_BIAS":
		c.AltitudeBias, err = parseGain(key, value)
	case "YAW_KP":
		c.YawKP, err = parseGain(key, value)
	case "YAW_KI":
		c.YawKI, err = parseGain(key, value)
	case "YAW_KD":
		c.YawKD, err = parseGain(key, value)
	case "YAW_BIAS":
		c.YawBias, err = parseGain(key, value)

	// Task rates
	case "CONTROL_RATE_HZ":
		c.ControlRateHz, err = parseInt(key, value, 0, 100000)
	case "DISPLAY_RATE_HZ":
		c.DisplayRateHz, err = parseInt(key, value, 0, 1000)
	case "CONTROLS_RATE_HZ":
		c.ControlsRateHz, err = parseInt(key, value, 0, 10000)
	case "TELEMETRY_RATE_HZ":
		c.TelemetryRateHz, err = parseInt(key, value, 0, 1000)

	// Simulator
	case "SIM_TIME_SCALE":
		scale, perr := strconv.ParseFloat(value, 64)
		if perr != nil {
			return fmt.Errorf("invalid SIM_TIME_SCALE %q: %w", value, perr)
		}
		if scale <= 0 {
			return fmt.Errorf("SIM_TIME_SCALE must be positive, got %v", scale)
		}
		c.SimTimeScale = scale

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return err
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicTelemetry == "" {
		return fmt.Errorf("TOPIC_TELEMETRY is required")
	}
	pins := map[string]string{
		"YAW_PIN_A":        c.YawPinA,
		"YAW_PIN_B":        c.YawPinB,
		"YAW_REF_PIN":      c.YawRefPin,
		"SWITCH_PIN":       c.SwitchPin,
		"BUTTON_UP_PIN":    c.ButtonUpPin,
		"BUTTON_DOWN_PIN":  c.ButtonDownPin,
		"BUTTON_LEFT_PIN":  c.ButtonLeftPin,
		"BUTTON_RIGHT_PIN": c.ButtonRightPin,
		"RESET_PIN":        c.ResetPin,
		"PWM_MAIN_PIN":     c.PWMMainPin,
		"PWM_TAIL_PIN":     c.PWMTailPin,
	}
	owner := make(map[string]string, len(pins))
	for key, pin := range pins {
		if pin == "" {
			return fmt.Errorf("%s is required", key)
		}
		if other, dup := owner[pin]; dup {
			return fmt.Errorf("%s and %s both use %s", min(key, other), max(key, other), pin)
		}
		owner[pin] = key
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// InitDefault installs Default() as the global configuration unless one
// was already loaded.
func InitDefault() {
	configMu.Lock()
	defer configMu.Unlock()
	if globalConfig == nil {
		globalConfig = Default()
	}
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
