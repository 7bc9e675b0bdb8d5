package timemath

import "time"

func Seconds(d time.Duration) float64 {
	return float64(d) / float64(time.Second)
}

func Duration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
