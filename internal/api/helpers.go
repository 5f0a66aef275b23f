package api

import "errors"

var errInvalidConfig = errors.New("invalid limit config")
