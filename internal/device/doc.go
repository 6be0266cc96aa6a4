// Package device keeps the devices created by instantiation passes.
//
// # Key Types
//
//   - Registry: live devices by name plus a cache of inventory records
//   - Repository: persistence of inventory records and pass history
//     (SQLiteRepository over the devices and instantiation_passes tables)
//   - Inventory: a devinit.Observer feeding a Registry
//   - Settings: device → field → value writes applied after a pass
//
// # Usage
//
//	registry := device.NewRegistry(device.NewSQLiteRepository(db.DB))
//	engine.AddObserver(device.NewInventory(registry, log))
//
//	ns, err := engine.Run(ctx, table, nil)
//	if err != nil {
//	    return err
//	}
//	if err := registry.Merge(ns); err != nil {
//	    return err
//	}
//
//	settings, err := device.LoadSettings("configs/settings.yaml")
//	if err != nil {
//	    return err
//	}
//	err = device.ApplySettings(ctx, registry.Namespace(), settings, 10*time.Second)
//
// # Thread Safety
//
// Registry and Inventory are safe for concurrent use.
package device
