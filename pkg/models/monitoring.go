package models

// Host is a monitored host as reported by the monitoring source.
type Host struct {
	ID   string `json:"hostid"`
	Name string `json:"name"`
}

// Item is a single metric item on a host.
type Item struct {
	ID     string `json:"itemid"`
	HostID string `json:"hostid,omitempty"`
	Name   string `json:"name"`
}

// RawSample is a history record exactly as the monitoring source returns it.
type RawSample struct {
	Clock int64  `json:"clock"`
	Value string `json:"value"`
}

// HostNames returns the set of host names for membership checks.
func HostNames(hosts []Host) map[string]bool {
	names := make(map[string]bool, len(hosts))
	for _, h := range hosts {
		names[h.Name] = true
	}
	return names
}
