package models

// DeviceClass is the resolved device category of a visitor session.
type DeviceClass string

const (
	DeviceDesktop DeviceClass = "desktop"
	DeviceMobile  DeviceClass = "mobile"
	DeviceTablet  DeviceClass = "tablet"
)

// IdentifiedUser carries the attributes set by an explicit identify() call on
// the tracker. Session-scoped: it only ever travels inside the event payload.
type IdentifiedUser struct {
	ID         string            `json:"id"`
	Email      string            `json:"email,omitempty"`
	Name       string            `json:"name,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// DeviceFacts are the device/geo/session facts resolved from the event.
type DeviceFacts struct {
	Class     DeviceClass `json:"class,omitempty"`
	Browser   string      `json:"browser,omitempty"`
	OS        string      `json:"os,omitempty"`
	Country   string      `json:"country,omitempty"`
	Referrer  string      `json:"referrer,omitempty"`
	SessionID string      `json:"session_id,omitempty"`
}

// VisitorContext is the evaluation context assembled per event: identity,
// the client's localStorage snapshot, device facts, and the visitor's durable
// tag set. Constructed, used, and discarded within one event's processing.
type VisitorContext struct {
	SiteID         string
	VisitorID      string
	Page           string
	IdentifiedUser *IdentifiedUser
	LocalStorage   map[string]string
	Device         DeviceFacts
	Tags           []string
	Returning      bool
	Payload        map[string]any
}

// HasTag reports set membership against the tag snapshot loaded at resolve
// time. Condition evaluation re-reads the store per node, so this snapshot is
// only the initial view.
func (c *VisitorContext) HasTag(name string) bool {
	for _, t := range c.Tags {
		if t == name {
			return true
		}
	}

	return false
}

// UserAttribute resolves a dotted identifiedUser path: "id", "email", "name",
// or "attributes.<key>".
func (c *VisitorContext) UserAttribute(path string) (string, bool) {
	if c.IdentifiedUser == nil {
		return "", false
	}

	switch path {
	case "id":
		return c.IdentifiedUser.ID, true
	case "email":
		return c.IdentifiedUser.Email, true
	case "name":
		return c.IdentifiedUser.Name, true
	}

	const attrPrefix = "attributes."
	if len(path) > len(attrPrefix) && path[:len(attrPrefix)] == attrPrefix {
		v, ok := c.IdentifiedUser.Attributes[path[len(attrPrefix):]]

		return v, ok
	}

	return "", false
}
