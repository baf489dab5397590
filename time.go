package identity

import "time"

// IsWithinWindow reports whether t still falls inside the trailing window
// ending now. Windows are duration expressions ("1h", "45m"); reset token
// validity and login cooldowns are both bounded this way.
func IsWithinWindow(t time.Time, window string) (bool, error) {
	d, err := time.ParseDuration(window)
	if err != nil {
		return false, err
	}

	return t.After(time.Now().Add(-d)), nil
}

// IsOutsideWindow is the negation of IsWithinWindow.
func IsOutsideWindow(t time.Time, window string) (bool, error) {
	within, err := IsWithinWindow(t, window)
	if err != nil {
		return false, err
	}

	return !within, nil
}
