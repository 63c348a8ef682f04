package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Terms holds the free-form terms of an asset or the constraints of a want.
// Only the location keys are interpreted; every other key is kept in Extra.
type Terms struct {
	State     string         `mapstructure:"state"`
	Geography string         `mapstructure:"geography"`
	Extra     map[string]any `mapstructure:",remain"`
}

// DecodeTerms converts a loosely typed map (request body, stored JSON) into Terms.
func DecodeTerms(raw map[string]any) (Terms, error) {
	var t Terms
	if len(raw) == 0 {
		return t, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &t,
	})
	if err != nil {
		return t, fmt.Errorf("terms decoder: %w", err)
	}

	if err := decoder.Decode(raw); err != nil {
		return t, fmt.Errorf("decode terms: %w", err)
	}

	t.State = strings.TrimSpace(t.State)
	t.Geography = strings.TrimSpace(t.Geography)
	if len(t.Extra) == 0 {
		t.Extra = nil
	}

	return t, nil
}

// Region returns the normalized location used for geographic scoring: the
// state when present, otherwise the geography. Empty when neither is set.
func (t Terms) Region() string {
	region := strings.TrimSpace(t.State)
	if region == "" {
		region = strings.TrimSpace(t.Geography)
	}
	return strings.ToLower(region)
}

// Map flattens Terms back into the free-form shape clients send.
func (t Terms) Map() map[string]any {
	out := make(map[string]any, len(t.Extra)+2)
	for k, v := range t.Extra {
		out[k] = v
	}
	if t.State != "" {
		out["state"] = t.State
	}
	if t.Geography != "" {
		out["geography"] = t.Geography
	}
	return out
}

func (t Terms) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Map())
}

func (t *Terms) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded, err := DecodeTerms(raw)
	if err != nil {
		return err
	}
	*t = decoded
	return nil
}

// Value stores Terms as JSON text.
func (t Terms) Value() (driver.Value, error) {
	b, err := json.Marshal(t.Map())
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan reads Terms from a JSON text or bytes column. NULL yields empty terms.
func (t *Terms) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*t = Terms{}
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("terms: unsupported column type %T", src)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		*t = Terms{}
		return nil
	}
	return t.UnmarshalJSON(data)
}
