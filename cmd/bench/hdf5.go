//go:build hdf5

package main

import (
	"github.com/spf13/viper"

	"github.com/kpfaulkner/featuretables/pkg/bench"
	"github.com/kpfaulkner/featuretables/pkg/bench/hdf5store"
)

func openHDF5() (bench.Store, error) {
	return hdf5store.New(hdf5store.Config{
		Filename:  viper.GetString("hdf5-file"),
		Mode:      hdf5store.Mode(viper.GetString("hdf5-mode")),
		ChunkRows: viper.GetUint("hdf5-chunk"),
		Layout:    layout(),
	})
}
