package utils

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"
)

// FormatDuration formats the time between start and end as "1h 2m 3s".
func FormatDuration(startTime, endTime time.Time) string {
	return FormatDurationSeconds(int64(endTime.Sub(startTime).Seconds()))
}

// FormatDurationSeconds formats a duration given in seconds.
func FormatDurationSeconds(durationSeconds int64) string {
	hours := durationSeconds / 3600
	minutes := (durationSeconds % 3600) / 60
	seconds := durationSeconds % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

// GetRandomNumberInRange returns a random int in [min, max].
func GetRandomNumberInRange(min, max int) int {
	if min > max {
		min, max = max, min
	}
	return rand.Intn(max-min+1) + min
}

// SleepCtx pauses for d, waking early if ctx is cancelled.
func SleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SleepRandom pauses for a random number of seconds in
// [minSeconds, maxSeconds], waking early if ctx is cancelled.
func SleepRandom(ctx context.Context, minSeconds, maxSeconds int) error {
	seconds := GetRandomNumberInRange(minSeconds, maxSeconds)
	return SleepCtx(ctx, time.Duration(seconds)*time.Second)
}

// Truncate shortens s to at most max runes, marking the cut with "...".
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

// ParseInt parses s as an int, returning 0 on any failure.
func ParseInt(s string) int {
	if s == "" {
		return 0
	}
	val, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return val
}

// ContainsFold reports whether slice contains str, ignoring case.
func ContainsFold(slice []string, str string) bool {
	for _, s := range slice {
		if strings.EqualFold(s, str) {
			return true
		}
	}
	return false
}

// UniqueStrings removes duplicates, keeping first occurrences in order.
func UniqueStrings(slice []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(slice))
	for _, s := range slice {
		if !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	return result
}

// IsEmpty reports whether s is empty after trimming whitespace.
func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

// DefaultIfEmpty returns defaultValue when s is blank.
func DefaultIfEmpty(s, defaultValue string) string {
	if IsEmpty(s) {
		return defaultValue
	}
	return s
}
