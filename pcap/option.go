package pcap

import (
	"github.com/ydb-platform/benchhelpers/debuglog"
)

type Options struct {
	// capture file to read
	File string

	// frames discarded from the head of the capture without decoding
	SkipFrames int

	// stop after decoding this many frames; 0 means the whole file
	MaxFrames int

	// track every transaction type instead of TPC-C NewOrder only
	AllTypes bool

	Verbosity debuglog.Level
}

func NewOptions() Options {
	return Options{}
}

type Option func(*Options)

func WithFile(name string) Option {
	return func(o *Options) {
		o.File = name
	}
}

func WithSkipFrames(n int) Option {
	return func(o *Options) {
		o.SkipFrames = n
	}
}

func WithMaxFrames(n int) Option {
	return func(o *Options) {
		o.MaxFrames = n
	}
}

func WithAllTypes() Option {
	return func(o *Options) {
		o.AllTypes = true
	}
}

func WithVerbosity(level debuglog.Level) Option {
	return func(o *Options) {
		o.Verbosity = level
	}
}
