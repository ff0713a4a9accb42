// Package config loads seat-sensor settings from built-in defaults, a dotenv
// settings file, the process environment and command-line flags, in that
// order of increasing precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/sweeney/seat-sensor/internal/logic"
	"github.com/sweeney/seat-sensor/internal/sensor"
)

// Environment / settings file keys. The first three keep the names used by
// the sensor's original settings header so existing deployments carry over.
const (
	EnvPollInterval = "SLEEP_DURATION_IN_SECONDS"
	EnvFreeTimeout  = "TIMEOUT_BEFORE_SEAT_FREE_IN_SECONDS"
	EnvChannel      = "WIRELESS_CHANNEL"
	EnvSeatID       = "SEAT_ID"
	EnvBroker       = "MQTT_BROKER"
	EnvUsername     = "MQTT_USERNAME"
	EnvPassword     = "MQTT_PASSWORD"
	EnvHeartbeat    = "HEARTBEAT_INTERVAL"
	EnvGPIOChip     = "GPIO_CHIP"
	EnvGPIOLine     = "GPIO_LINE"
	EnvActiveLow    = "GPIO_ACTIVE_LOW"
	EnvHTTPAddr     = "HTTP_ADDR"

	// EnvFile names the settings file when --env-file is not given.
	EnvFile = "SEAT_SENSOR_ENV"
)

// DefaultEnvFile is read if present when no settings file is named.
const DefaultEnvFile = "seat-sensor.env"

// Config is the complete daemon configuration.
type Config struct {
	Sensor logic.Config

	SeatID   string
	Broker   string
	Username string
	Password string

	Heartbeat time.Duration
	GPIO      sensor.Options
	HTTPAddr  string

	PrintState bool
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Sensor: logic.Config{
			PollIntervalSeconds: 30,
			FreeTimeoutSeconds:  60,
			WirelessChannel:     1,
		},
		SeatID:    "seat-1",
		Broker:    "tcp://localhost:1883",
		Heartbeat: 15 * time.Minute,
		GPIO: sensor.Options{
			Chip: sensor.DefaultChip,
			Line: sensor.DefaultLine,
		},
		HTTPAddr: ":8080",
	}
}

// UsageOutput receives the flag summary when -h or -help is given.
var UsageOutput io.Writer = os.Stderr

// LookupFunc reports the value of an environment variable, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load builds a Config from args (without the program name) and environ.
func Load(args []string, environ LookupFunc) (Config, error) {
	flags := flag.NewFlagSet("seat-sensor", flag.ContinueOnError)
	flags.SetOutput(io.Discard)

	envFile := flags.String("env-file", "", "dotenv settings file (default $"+EnvFile+" or "+DefaultEnvFile+")")
	poll := flags.Int("poll", 0, "seconds between occupancy checks")
	free := flags.Int("free-timeout", 0, "seconds a seat must read empty before it is free")
	channel := flags.Int("channel", 0, "wireless channel (MQTT topic namespace)")
	seat := flags.String("seat", "", "seat identifier")
	broker := flags.String("broker", "", "MQTT broker address")
	heartbeat := flags.Duration("heartbeat", 0, "heartbeat interval (0 to disable)")
	chip := flags.String("gpio-chip", "", "GPIO chip name")
	line := flags.Int("gpio-line", 0, "GPIO line offset of the presence input")
	activeLow := flags.Bool("active-low", false, "presence input is active low")
	httpAddr := flags.String("http", "", "HTTP status address (empty to disable)")
	printState := flags.Bool("print-state", false, "print current presence reading and exit")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(UsageOutput, "Usage of seat-sensor:\n")
			flags.SetOutput(UsageOutput)
			flags.PrintDefaults()
		}
		return Config{}, fmt.Errorf("parse flags: %w", err)
	}

	set := map[string]bool{}
	flags.Visit(func(f *flag.Flag) { set[f.Name] = true })

	fileVals, err := readEnvFile(*envFile, set["env-file"], environ)
	if err != nil {
		return Config{}, err
	}
	lookup := func(key string) (string, bool) {
		if v, ok := environ(key); ok {
			return v, true
		}
		v, ok := fileVals[key]
		return v, ok
	}

	cfg := Default()
	if err := cfg.apply(lookup); err != nil {
		return Config{}, err
	}

	if set["poll"] {
		cfg.Sensor.PollIntervalSeconds = *poll
	}
	if set["free-timeout"] {
		cfg.Sensor.FreeTimeoutSeconds = *free
	}
	if set["channel"] {
		cfg.Sensor.WirelessChannel = *channel
	}
	if set["seat"] {
		cfg.SeatID = *seat
	}
	if set["broker"] {
		cfg.Broker = *broker
	}
	if set["heartbeat"] {
		cfg.Heartbeat = *heartbeat
	}
	if set["gpio-chip"] {
		cfg.GPIO.Chip = *chip
	}
	if set["gpio-line"] {
		cfg.GPIO.Line = *line
	}
	if set["active-low"] {
		cfg.GPIO.ActiveLow = *activeLow
	}
	if set["http"] {
		cfg.HTTPAddr = *httpAddr
	}
	cfg.PrintState = *printState

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readEnvFile(path string, explicit bool, environ LookupFunc) (map[string]string, error) {
	if path == "" {
		if v, ok := environ(EnvFile); ok && v != "" {
			path, explicit = v, true
		} else {
			path = DefaultEnvFile
		}
	}

	vals, err := godotenv.Read(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read settings file %s: %w", path, err)
	}
	return vals, nil
}

func (c *Config) apply(lookup LookupFunc) error {
	ints := []struct {
		key string
		dst *int
	}{
		{EnvPollInterval, &c.Sensor.PollIntervalSeconds},
		{EnvFreeTimeout, &c.Sensor.FreeTimeoutSeconds},
		{EnvChannel, &c.Sensor.WirelessChannel},
		{EnvGPIOLine, &c.GPIO.Line},
	}
	for _, f := range ints {
		v, ok := lookup(f.key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: expected a whole number, got %q", f.key, v)
		}
		*f.dst = n
	}

	strs := []struct {
		key string
		dst *string
	}{
		{EnvSeatID, &c.SeatID},
		{EnvBroker, &c.Broker},
		{EnvUsername, &c.Username},
		{EnvPassword, &c.Password},
		{EnvGPIOChip, &c.GPIO.Chip},
		{EnvHTTPAddr, &c.HTTPAddr},
	}
	for _, f := range strs {
		if v, ok := lookup(f.key); ok {
			*f.dst = v
		}
	}

	if v, ok := lookup(EnvHeartbeat); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvHeartbeat, err)
		}
		c.Heartbeat = d
	}
	if v, ok := lookup(EnvActiveLow); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: expected true or false, got %q", EnvActiveLow, v)
		}
		c.GPIO.ActiveLow = b
	}
	return nil
}

// Validate checks every setting. Sensor timing errors are *logic.InvalidConfigError.
func (c Config) Validate() error {
	if _, err := logic.Initialize(c.Sensor); err != nil {
		return err
	}
	if c.Sensor.WirelessChannel <= 0 {
		return &logic.InvalidConfigError{Field: "wirelessChannel", Value: c.Sensor.WirelessChannel}
	}
	if c.SeatID == "" {
		return errors.New("invalid config: seat id must not be empty")
	}
	if strings.ContainsAny(c.SeatID, "/+#") {
		return fmt.Errorf("invalid config: seat id %q must not contain '/', '+' or '#'", c.SeatID)
	}
	if c.Broker == "" {
		return errors.New("invalid config: broker must not be empty")
	}
	return nil
}

// Warnings lists settings that are legal but probably not intended.
func (c Config) Warnings() []string {
	var w []string
	if c.Sensor.FreeTimeoutSeconds < c.Sensor.PollIntervalSeconds {
		w = append(w, fmt.Sprintf(
			"free timeout %ds is shorter than poll interval %ds: the second empty sample always frees the seat",
			c.Sensor.FreeTimeoutSeconds, c.Sensor.PollIntervalSeconds))
	}
	if c.Username != "" && c.Password == "" {
		w = append(w, EnvUsername+" is set without "+EnvPassword)
	}
	return w
}
