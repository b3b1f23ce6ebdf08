package config

import "errors"

var (
	ErrNoSourceData     = errors.New("no source data provided")
	ErrParseToml        = errors.New("failed to parse TOML")
	ErrUnsupportedVer   = errors.New("unsupported config version")
	ErrFailedValidation = errors.New("config validation failed")
)
