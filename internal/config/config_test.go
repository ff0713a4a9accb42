package config

import (
	"bytes"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/seat-sensor/internal/logic"
)

func envMap(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func writeEnvFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seat.env")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir()) // no seat-sensor.env here

	cfg, err := Load(nil, envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Sensor.PollIntervalSeconds)
	assert.Equal(t, 60, cfg.Sensor.FreeTimeoutSeconds)
	assert.Equal(t, 1, cfg.Sensor.WirelessChannel)
	assert.Equal(t, "seat-1", cfg.SeatID)
	assert.Equal(t, 15*time.Minute, cfg.Heartbeat)
	assert.False(t, cfg.PrintState)
	assert.Empty(t, cfg.Warnings())
}

func TestLoadPrecedence(t *testing.T) {
	path := writeEnvFile(t, `
# settings file
SLEEP_DURATION_IN_SECONDS=10
TIMEOUT_BEFORE_SEAT_FREE_IN_SECONDS=120
WIRELESS_CHANNEL=4
SEAT_ID=file-seat
MQTT_BROKER=tcp://file:1883
`)

	env := envMap(map[string]string{
		EnvFile:        path,
		EnvFreeTimeout: "90",
		EnvSeatID:      "env-seat",
	})

	cfg, err := Load([]string{"-seat", "flag-seat", "-heartbeat", "1m"}, env)
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Sensor.PollIntervalSeconds, "from file")
	assert.Equal(t, 90, cfg.Sensor.FreeTimeoutSeconds, "env beats file")
	assert.Equal(t, 4, cfg.Sensor.WirelessChannel, "from file")
	assert.Equal(t, "flag-seat", cfg.SeatID, "flag beats env")
	assert.Equal(t, "tcp://file:1883", cfg.Broker)
	assert.Equal(t, time.Minute, cfg.Heartbeat)
}

func TestLoadEnvFileFlag(t *testing.T) {
	path := writeEnvFile(t, "WIRELESS_CHANNEL=7\nGPIO_ACTIVE_LOW=true\nGPIO_LINE=22\n")

	cfg, err := Load([]string{"-env-file", path}, envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Sensor.WirelessChannel)
	assert.True(t, cfg.GPIO.ActiveLow)
	assert.Equal(t, 22, cfg.GPIO.Line)
}

func TestLoadMissingExplicitEnvFile(t *testing.T) {
	_, err := Load([]string{"-env-file", filepath.Join(t.TempDir(), "missing.env")}, envMap(nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read settings file")
}

func TestLoadRejectsNonPositive(t *testing.T) {
	chdir(t, t.TempDir())

	tests := []struct {
		name      string
		args      []string
		wantField string
	}{
		{"zero poll", []string{"-poll", "0"}, "pollIntervalSeconds"},
		{"negative free", []string{"-free-timeout", "-1"}, "freeTimeoutSeconds"},
		{"zero channel", []string{"-channel", "0"}, "wirelessChannel"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.args, envMap(nil))
			require.Error(t, err)
			assert.True(t, errors.Is(err, logic.ErrInvalidConfig))

			var cfgErr *logic.InvalidConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, tt.wantField, cfgErr.Field)
		})
	}
}

func TestLoadRejectsMalformedEnv(t *testing.T) {
	chdir(t, t.TempDir())

	tests := []struct {
		key, value string
	}{
		{EnvPollInterval, "thirty"},
		{EnvChannel, "1.5"},
		{EnvHeartbeat, "soon"},
		{EnvActiveLow, "maybe"},
	}
	for _, tt := range tests {
		_, err := Load(nil, envMap(map[string]string{tt.key: tt.value}))
		require.Error(t, err, tt.key)
		assert.Contains(t, err.Error(), tt.key)
	}
}

func TestLoadRejectsEmptySeat(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := Load([]string{"-seat", ""}, envMap(nil))
	assert.Error(t, err)
}

func TestLoadRejectsSeatWithTopicCharacters(t *testing.T) {
	chdir(t, t.TempDir())

	for _, seat := range []string{"floor2/desk1", "desk+", "#"} {
		_, err := Load([]string{"-seat", seat}, envMap(nil))
		require.Error(t, err, seat)
		assert.Contains(t, err.Error(), "seat id")
	}

	cfg, err := Load([]string{"-seat", "floor2-desk_1.a"}, envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, "floor2-desk_1.a", cfg.SeatID)
}

func TestLoadHelpPrintsUsage(t *testing.T) {
	var out bytes.Buffer
	prev := UsageOutput
	UsageOutput = &out
	t.Cleanup(func() { UsageOutput = prev })

	_, err := Load([]string{"-help"}, envMap(nil))
	require.Error(t, err)
	assert.True(t, errors.Is(err, flag.ErrHelp))
	assert.Contains(t, out.String(), "Usage of seat-sensor")
	assert.Contains(t, out.String(), "-free-timeout")
	assert.Contains(t, out.String(), "seconds a seat must read empty")
}

func TestLoadUnknownFlag(t *testing.T) {
	_, err := Load([]string{"-bogus"}, envMap(nil))
	assert.Error(t, err)
}

func TestWarnings(t *testing.T) {
	cfg := Default()
	cfg.Sensor.FreeTimeoutSeconds = 10
	cfg.Username = "sensor"

	w := cfg.Warnings()
	require.Len(t, w, 2)
	assert.Contains(t, w[0], "shorter than poll interval")
	assert.Contains(t, w[1], EnvPassword)
}

// chdir changes the working directory for the duration of the test and
// restores it on cleanup (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
