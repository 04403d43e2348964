// Package workload builds the task lists fed to the pool.
//
// Presets generate synthetic inputs by name; ReadFile loads one unsigned
// integer per line from a file.
//
// # Presets
//
//	mixed   every sixth entry is a 64-bit prime, the rest a 64-bit composite (slow)
//	small   the integers 0..size-1
//	random  pseudo-random 32-bit values from a fixed seed
package workload
