package js5

import "log/slog"

// ArchiveOption configures an Archive.
type ArchiveOption func(*archiveConfig)

type archiveConfig struct {
	compression         Compression
	settingsCompression Compression
	whirlpool           bool
	sizes               bool
	uncompressedCRC     bool
	noVersionTrailer    bool
	logger              *slog.Logger
}

func defaultArchiveConfig() archiveConfig {
	return archiveConfig{
		compression:         CompressionGzip,
		settingsCompression: CompressionGzip,
	}
}

// WithCompression sets the compression used for written groups.
// The default is gzip.
func WithCompression(c Compression) ArchiveOption {
	return func(cfg *archiveConfig) {
		cfg.compression = c
	}
}

// WithSettingsCompression sets the compression of the settings container
// written on Close. The default is gzip.
func WithSettingsCompression(c Compression) ArchiveOption {
	return func(cfg *archiveConfig) {
		cfg.settingsCompression = c
	}
}

// WithWhirlpool records a whirlpool digest of every written group.
//
// Archives whose settings already carry digests keep recording them
// regardless of this option.
func WithWhirlpool(enabled bool) ArchiveOption {
	return func(cfg *archiveConfig) {
		cfg.whirlpool = enabled
	}
}

// WithSizes records stored and uncompressed sizes of every written group.
func WithSizes(enabled bool) ArchiveOption {
	return func(cfg *archiveConfig) {
		cfg.sizes = enabled
	}
}

// WithUncompressedCRC records a CRC-32 of every written group's uncompressed
// payload.
func WithUncompressedCRC(enabled bool) ArchiveOption {
	return func(cfg *archiveConfig) {
		cfg.uncompressedCRC = enabled
	}
}

// WithVersionTrailer controls whether written group containers end with the
// 16-bit version trailer. Enabled by default.
func WithVersionTrailer(enabled bool) ArchiveOption {
	return func(cfg *archiveConfig) {
		cfg.noVersionTrailer = !enabled
	}
}

// WithArchiveLogger sets the logger for archive operations.
// If not set, logging is disabled.
func WithArchiveLogger(logger *slog.Logger) ArchiveOption {
	return func(cfg *archiveConfig) {
		cfg.logger = logger
	}
}
