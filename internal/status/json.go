package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event           string       `json:"event,omitempty"`
	Reason          string       `json:"reason,omitempty"`
	Seat            string       `json:"seat"`
	Channel         int          `json:"channel"`
	Occupancy       string       `json:"occupancy"`
	EmptySince      string       `json:"empty_since,omitempty"`
	EmptyForSeconds int64        `json:"empty_for_seconds"`
	UptimeSeconds   int64        `json:"uptime_seconds"`
	StartTime       string       `json:"start_time"`
	Timestamp       string       `json:"timestamp"`
	Samples         int64        `json:"samples"`
	ReadErrors      int64        `json:"read_errors"`
	MQTT            MQTTStatus   `json:"mqtt"`
	Counts          CountsJSON   `json:"event_counts"`
	Network         *NetworkJSON `json:"network,omitempty"`
	Config          ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Occupied int `json:"occupied"`
	Free     int `json:"free"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollIntervalSeconds int    `json:"poll_interval_seconds"`
	FreeTimeoutSeconds  int    `json:"free_timeout_seconds"`
	WirelessChannel     int    `json:"wireless_channel"`
	HeartbeatSeconds    int64  `json:"heartbeat_seconds"`
	Broker              string `json:"broker"`
	HTTPAddr            string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	occupancy := string(snap.Status)
	if occupancy == "" {
		occupancy = "UNKNOWN"
	}

	inner := StatusInner{
		Seat:            snap.Config.SeatID,
		Channel:         snap.Config.WirelessChannel,
		Occupancy:       occupancy,
		EmptyForSeconds: int64(snap.EmptyFor().Truncate(time.Second).Seconds()),
		UptimeSeconds:   int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:       snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:       snap.Now.UTC().Format(time.RFC3339),
		Samples:         snap.Samples,
		ReadErrors:      snap.ReadErrors,
		MQTT:            MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Occupied: snap.Counts.Occupied,
			Free:     snap.Counts.Free,
		},
		Config: ConfigJSON{
			PollIntervalSeconds: snap.Config.PollIntervalSeconds,
			FreeTimeoutSeconds:  snap.Config.FreeTimeoutSeconds,
			WirelessChannel:     snap.Config.WirelessChannel,
			HeartbeatSeconds:    snap.Config.HeartbeatSeconds,
			Broker:              snap.Config.Broker,
			HTTPAddr:            snap.Config.HTTPAddr,
		},
	}
	if !snap.EmptySince.IsZero() {
		inner.EmptySince = snap.EmptySince.UTC().Format(time.RFC3339)
	}
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
