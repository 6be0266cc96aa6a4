// Package influxdb records device instantiation timings in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library. Two measurements are
// written:
//   - device_construction: one point per created device (tags device, type)
//   - instantiation_pass: one point per pass (tags status, beamline)
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteConstructionMetric("gate01", "gated.Counter", took)
//
// Writes are non-blocking and batched; asynchronous failures reach the
// callback set with SetOnError.
package influxdb
