// Package serialization stores pruning masks and weight snapshots in the
// SafeTensors format.
//
//	Format Structure:
//	  [8 bytes: Header Size (uint64 LE)]
//	  [Header: JSON object, tensor name -> {dtype, shape, data_offsets}]
//	  [Tensor data: raw little-endian bytes]
//
// Masks are written as U8 (one byte per entry, 0 or 1). Weights and
// scores are written as F64. The optional "__metadata__" entry carries
// string key/value pairs such as the network name and the keep ratio.
//
// Example usage:
//
//	var buf bytes.Buffer
//	names := []string{"conv1", "fc"}
//	if err := serialization.WriteMasks(&buf, names, masks, meta); err != nil {
//	    log.Fatal(err)
//	}
//
//	file, err := serialization.Read(&buf)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	masks, err := file.Masks(names)
package serialization
