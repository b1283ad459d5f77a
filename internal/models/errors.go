package models

import "errors"

// ErrInvalidArgument markiert Validierungsfehler (fehlerhafte IDs, fehlende Felder, ungültige Enum-Werte).
var ErrInvalidArgument = errors.New("ungültiges argument")
