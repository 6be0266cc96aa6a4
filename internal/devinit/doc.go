// Package devinit builds a graph of beamline devices from a declarative
// device table.
//
// Each entry in the table names a driver (type reference), an optional
// control-system location (Tango TRL, EPICS prefix, MQTT base topic) and a
// tree of constructor arguments. Arguments may reference other devices of the
// same table using the "<name>#device" syntax; such references are resolved to
// the live device once it has been constructed.
//
// # Architecture
//
//	┌───────────────────────────────────────────────────────────────────────┐
//	│                               Engine.Run                               │
//	│                                                                        │
//	│  Validate ──▶ resolve type refs ──▶ one goroutine per device spec      │
//	│                                          │                             │
//	│                                          ▼                             │
//	│                     resolve arguments (lists/maps fan out)             │
//	│                                          │  Ref                        │
//	│                                          ▼                             │
//	│                     await dependency (namespace / pending / missing)   │
//	│                                          │                             │
//	│                                          ▼                             │
//	│                     construct (allow-list, scope, connect, md)         │
//	│                                          │                             │
//	│                                          ▼                             │
//	│                     publish (namespace += device, pending -= name)     │
//	└───────────────────────────────────────────────────────────────────────┘
//
// All shared state of a pass (namespace, pending set, construction markers)
// lives in a resolution context created per Run call. Waiters block on a
// broadcast channel that is closed on every publish, bounded by the
// WaitPolicy timeout (10 attempts of 1s by default).
//
// # Usage
//
//	registry := devinit.NewTypeRegistry()
//	drivers.Register(registry, transport)
//
//	engine := devinit.NewEngine(registry,
//	    devinit.WithLogger(log),
//	    devinit.WithCycleDetection(true),
//	)
//	devices, err := engine.Run(ctx, table, nil)
//	if err != nil {
//	    var pe *devinit.PassError
//	    if errors.As(err, &pe) {
//	        log.Error("devices not created", "pending", pe.Pending)
//	    }
//	    return err
//	}
//
// # Failure semantics
//
// A pass is all-or-nothing from the caller's point of view: the first fatal
// error (missing dependency, wait timeout, construction failure) cancels the
// remaining work and is returned wrapped in a *PassError. Devices published
// before the failure stay in the caller's namespace.
package devinit
