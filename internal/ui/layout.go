package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which optional columns hide.
	LayoutCompactWidth = 100

	// LayoutWideWidth is the minimum width to show the site URL column.
	LayoutWideWidth = 140
)

// Timing constants.
const (
	// DefaultUIInterval is the default store snapshot interval.
	DefaultUIInterval = time.Second

	// ToastDuration is how long a status-line notification stays visible.
	ToastDuration = 6 * time.Second

	// ActionTimeout bounds a single user-triggered write.
	ActionTimeout = 15 * time.Second

	// BulkTimeout bounds a whole bulk run.
	BulkTimeout = 2 * time.Minute
)

// chromeLines is the number of rows taken by header, command bar and toast.
const chromeLines = 3
