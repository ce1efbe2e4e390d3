package waqi

import (
	"encoding/json"
	"strings"
)

// envelope wraps every WAQI response. When status is not "ok", data holds
// an error string instead of the payload.
type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func (e envelope) message() string {
	var s string
	if err := json.Unmarshal(e.Data, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(e.Data))
}

type boundsEntry struct {
	UID     json.RawMessage `json:"uid"`
	Lat     json.RawMessage `json:"lat"`
	Lon     json.RawMessage `json:"lon"`
	Station struct {
		Name string `json:"name"`
	} `json:"station"`
}

// stationID accepts the uid as a JSON number or string.
func stationID(raw json.RawMessage) string {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return ""
}
