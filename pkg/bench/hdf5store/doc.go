// Package hdf5store benchmarks HDF5 files with one extendable rows x width
// dataset per feature, placed in groups following the feature layout.
// It needs cgo and libhdf5 and is only built with the hdf5 build tag.
package hdf5store
