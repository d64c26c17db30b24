// Package device provides block device drivers for the bcache package.
//
// Every driver implements bcache.Driver: one synchronous transfer of a whole
// block between a caller-owned buffer and backing storage. Drivers compose:
//
//	mem := device.NewMemory(1024, 1024)
//	tab := device.NewTable()
//	_ = tab.Mount(1, device.NewThrottled(mem, device.Throttle{OpsPerSec: 500}))
//	c := bcache.New(bcache.Options{Driver: tab})
//
// Memory is a RAM disk, File is a file-backed disk, Table multiplexes device
// numbers, Throttled rate-limits another driver and Faulty injects errors.
// Object-store backed devices live in the objstore subpackage.
package device
