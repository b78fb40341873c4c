package config

import (
	"encoding/json"
	"sort"
	"strings"
)

// Services is the decoded VCAP_SERVICES document, keyed by service label.
type Services map[string][]ServiceInstance

// ServiceInstance is one bound service instance.
type ServiceInstance struct {
	Name        string          `json:"name"`
	Label       string          `json:"label"`
	Credentials BoundCredential `json:"credentials"`
}

// BoundCredential is the credentials block injected by the platform.
type BoundCredential struct {
	URL       string `json:"url"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	APIKey    string `json:"apikey"`
	IAMAPIKey string `json:"iam_apikey"`
	IAMURL    string `json:"iam_url"`
}

// ParseVCAP decodes a VCAP_SERVICES JSON document.
func ParseVCAP(raw string) (Services, error) {
	var s Services
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return nil, err
	}
	return s, nil
}

// Lookup returns the credentials of the first instance whose label starts
// with prefix. Labels are visited in sorted order.
func (s Services) Lookup(prefix string) (BoundCredential, bool) {
	labels := make([]string, 0, len(s))
	for label := range s {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		if !strings.HasPrefix(label, prefix) || len(s[label]) == 0 {
			continue
		}
		return s[label][0].Credentials, true
	}
	return BoundCredential{}, false
}

// Apply overlays bound credentials on cfg. Only fields present in the bound
// credentials replace configured values.
func (s Services) Apply(cfg *Config) {
	for _, label := range []string{"conversation", "assistant"} {
		if bc, ok := s.Lookup(label); ok {
			overlay(&cfg.Assistant.Credentials, &cfg.Assistant.URL, bc)
			break
		}
	}
	if bc, ok := s.Lookup("speech_to_text"); ok {
		overlay(&cfg.Speech.STT.Credentials, &cfg.Speech.STT.URL, bc)
	}
	if bc, ok := s.Lookup("text_to_speech"); ok {
		overlay(&cfg.Speech.TTS.Credentials, &cfg.Speech.TTS.URL, bc)
	}
}

func overlay(c *Credentials, url *string, bc BoundCredential) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(url, bc.URL)
	if (bc.APIKey != "" || bc.IAMAPIKey != "") && bc.Username == "" {
		// A bound API key selects IAM even when basic auth was configured.
		c.Username, c.Password = "", ""
	}
	set(&c.Username, bc.Username)
	set(&c.Password, bc.Password)
	set(&c.APIKey, bc.APIKey)
	set(&c.APIKey, bc.IAMAPIKey)
	set(&c.IAMURL, bc.IAMURL)
}
