package domain

import "errors"

// ErrConfiguration marks fatal input/configuration problems detected before generation.
var ErrConfiguration = errors.New("configuration error")
