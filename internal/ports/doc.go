// Package ports defines the interfaces that connect the recovery core to
// infrastructure adapters.
//
// The application layer (internal/app) depends only on these interfaces.
// Adapters (internal/adapters) implement them with concrete devices, map
// files, zerolog and Prometheus.
//
// # Port Interfaces
//
//   - [SectorSource]: reads sector ranges from the damaged medium
//   - [SectorSink]: writes recovered sector ranges to the output image
//   - [BufferAllocator]: provides I/O buffers suitable for direct I/O
//   - [MapRepository]: loads and checkpoints the sector map
//   - [Observer]: receives progress events for metrics and displays
//   - [Logger]: structured logging abstraction
package ports
