package api

import (
	"log/slog"
	"regexp"
)

// DriverBuilder creates a new instance of Driver.
type DriverBuilder struct {
	fs        FileSystem
	logger    *slog.Logger
	inputExt  string
	outputExt string
}

// WithFileSystem sets the file system the driver reads and writes.
func (b DriverBuilder) WithFileSystem(fs FileSystem) DriverBuilder {
	b.fs = fs
	return b
}

// WithLogger sets the logger.
func (b DriverBuilder) WithLogger(logger *slog.Logger) DriverBuilder {
	b.logger = logger
	return b
}

// WithExtensions sets the input and output file extensions, dot included.
func (b DriverBuilder) WithExtensions(input, output string) DriverBuilder {
	b.inputExt = input
	b.outputExt = output
	return b
}

// Build creates a driver.
func (b DriverBuilder) Build() Driver {
	return b.build()
}

func (b DriverBuilder) build() *driverImpl {
	if b.fs == nil {
		b.fs = OSFileSystem{}
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	if b.inputExt == "" {
		b.inputExt = ".bf"
	}
	if b.outputExt == "" {
		b.outputExt = ".asm"
	}

	return &driverImpl{
		fs:        b.fs,
		logger:    b.logger,
		inputExt:  regexp.MustCompile(regexp.QuoteMeta(b.inputExt) + `$`),
		outputExt: b.outputExt,
	}
}
