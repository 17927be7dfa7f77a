package spreadsheet

import "errors"

// ErrFileNotFound indicates the spreadsheet file does not exist.
var ErrFileNotFound = errors.New("file not found")

// ErrUnsupportedFormat indicates a file extension the loader cannot parse.
var ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")

// ErrTooLarge indicates the file exceeds the configured size bound.
var ErrTooLarge = errors.New("spreadsheet too large")
