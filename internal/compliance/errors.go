package compliance

import "errors"

var (
	// ErrSessionNotFound — операция над workflow без активной сессии.
	// Поднимается синхронно вызывающей стороне, фатальна только для вызова.
	ErrSessionNotFound = errors.New("compliance: session not found")

	// ErrSessionActive — повторный start для workflow с живой сессией.
	ErrSessionActive = errors.New("compliance: monitoring already active for workflow")
)
