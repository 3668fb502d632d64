package chunks

import "errors"

var ErrEncounterRequired = errors.New("chunks: encounter id required")
