//go:build !hdf5

package main

import (
	"errors"

	"github.com/kpfaulkner/featuretables/pkg/bench"
)

func openHDF5() (bench.Store, error) {
	return nil, errors.New("built without hdf5 support, rebuild with -tags hdf5")
}
