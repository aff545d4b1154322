package cmdutil

import (
	"github.com/spf13/pflag"
)

var _ pflag.Value = (*ByteSize)(nil)

func (b *ByteSize) Set(s string) error {
	v, err := ParseByteSize(s)
	if err != nil {
		return err
	}
	*b = v
	return nil
}

func (b *ByteSize) Type() string {
	return "size"
}
