package domain

import "time"

// Backoff computes the exponential retry delay: base^max(1, attempts)
// seconds. attempts is the post-increment count of failed attempts, so
// the first failure already yields a non-zero delay.
func Backoff(base, attempts int) time.Duration {
	a := attempts
	if a < 1 {
		a = 1
	}
	seconds := 1
	for i := 0; i < a; i++ {
		seconds *= base
	}
	return time.Duration(seconds) * time.Second
}
