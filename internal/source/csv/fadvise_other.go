//go:build !linux

package csv

import "os"

func adviseSequential(*os.File) {}
