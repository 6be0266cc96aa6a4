// Package drivers provides the beamline device drivers built by devinit.
//
// Hardware drivers (Timer, Counter, Motor, Undulator) address a control-system
// location and send commands over MQTT to the protocol bridge that owns it:
//
//	beamline/command/{location}/{field}
//
// Composite drivers (GatedCounter, GatedArray) hold references to other
// devices of the same device list and drive them together.
//
// Register adds every driver to a devinit.TypeRegistry:
//
//	registry := devinit.NewTypeRegistry()
//	if err := drivers.Register(registry, mqttClient); err != nil {
//	    return err
//	}
package drivers
