package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes of the beamline MQTT hierarchy.
//
// Commands to protocol bridges use: beamline/command/{location}/{field}
// where {location} is the device's control-system address without scheme.
const (
	// TopicPrefixCommand is the base for device commands sent to bridges.
	TopicPrefixCommand = "beamline/command"

	// TopicPrefixCore is the base for all core topics.
	TopicPrefixCore = "beamline/core"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "beamline/system"
)

// Topics provides builders for beamline MQTT topics.
//
//	topics := mqtt.Topics{}
//	topic := topics.DeviceCommand("tango://hasep23oh:10000/p23/dgg2/eh.01", "Start")
//	// Returns: "beamline/command/hasep23oh:10000/p23/dgg2/eh.01/Start"
type Topics struct{}

// DeviceCommand returns the command topic for one field of a device.
func (Topics) DeviceCommand(location, field string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefixCommand, LocationPath(location), field)
}

// CoreDeviceCreated returns the retained topic announcing a created device.
//
// Example: beamline/core/device/gate01/created
func (Topics) CoreDeviceCreated(name string) string {
	return fmt.Sprintf("%s/device/%s/created", TopicPrefixCore, name)
}

// CoreEvent returns the topic for core events.
//
// Example: beamline/core/event/pass_finished
func (Topics) CoreEvent(eventType string) string {
	return fmt.Sprintf("%s/event/%s", TopicPrefixCore, eventType)
}

// SystemStatus returns the system status topic (LWT).
//
// Example: beamline/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllDeviceCommands returns a pattern matching every device command.
//
// Pattern: beamline/command/#
func (Topics) AllDeviceCommands() string {
	return TopicPrefixCommand + "/#"
}

// AllCoreEvents returns a pattern matching all core events.
//
// Pattern: beamline/core/event/+
func (Topics) AllCoreEvents() string {
	return fmt.Sprintf("%s/event/+", TopicPrefixCore)
}

// LocationPath turns a control-system address into topic levels.
// The scheme is dropped, surrounding slashes are trimmed and MQTT wildcard
// characters are replaced.
func LocationPath(location string) string {
	if _, rest, ok := strings.Cut(location, "://"); ok {
		location = rest
	}
	location = strings.Trim(location, "/")
	return strings.NewReplacer("+", "_", "#", "_").Replace(location)
}
