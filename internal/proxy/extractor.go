package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Headers that override or complete the JSON body.
const (
	HeaderAudience = "X-Notifox-Audience"
	HeaderChannel  = "X-Notifox-Channel"
	HeaderPlan     = "X-Notifox-Plan"
)

// RequestInfo holds what the relay needs from an inbound alert request.
type RequestInfo struct {
	Audience string
	Alert    string
	Channel  string
	Plan     string
}

// Defaults fill fields the caller left empty.
type Defaults struct {
	Audience string
	Channel  string
	Plan     string
}

// ExtractRequestInfo decodes an alert request body. Header values take
// precedence over empty body fields, and defaults over both.
func ExtractRequestInfo(body []byte, header http.Header, defaults Defaults) (*RequestInfo, error) {
	var req alertRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("decode alert request: %w", err)
	}

	info := &RequestInfo{
		Audience: strings.TrimSpace(req.Audience),
		Alert:    req.Alert,
		Channel:  strings.ToLower(strings.TrimSpace(req.Channel)),
		Plan:     strings.TrimSpace(req.Plan),
	}

	fill := func(dst *string, values ...string) {
		for _, v := range values {
			if *dst != "" {
				return
			}
			*dst = v
		}
	}
	fill(&info.Audience, header.Get(HeaderAudience), defaults.Audience)
	fill(&info.Channel, strings.ToLower(header.Get(HeaderChannel)), defaults.Channel)
	fill(&info.Plan, header.Get(HeaderPlan), defaults.Plan)

	return info, nil
}

type alertRequest struct {
	Audience string `json:"audience"`
	Alert    string `json:"alert"`
	Channel  string `json:"channel,omitempty"`
	Plan     string `json:"plan,omitempty"`
}
