// Package mqtt provides MQTT connectivity for the beamline service.
//
// The service talks to the control system through protocol bridges
// (Tango, EPICS) listening on a shared Mosquitto broker:
//
//	beamline-core ↔ MQTT Broker ↔ Tango / EPICS bridges
//
// This package manages:
//   - Connection with Last Will and Testament on beamline/system/status
//   - Publishing device commands (beamline/command/{location}/{field})
//   - Publishing lifecycle events (beamline/core/...)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := mqtt.Topics{}.DeviceCommand("tango://host:10000/p23/dgg2/eh.01", "Start")
//	err = client.Publish(topic, payload, 1, false)
package mqtt
