package domain

import "errors"

var ErrNotFound = errors.New("not found")
var ErrUnsupported = errors.New("unsupported operation")
var ErrInvalidQuality = errors.New("invalid quality")
var ErrInvalidContentID = errors.New("invalid content id")
