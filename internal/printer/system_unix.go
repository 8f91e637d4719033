//go:build !windows

package printer

func newSystemLister() Lister {
	return NewCUPSLister(ExecRunner{})
}
