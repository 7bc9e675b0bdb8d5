// NIST daytime protocol (RFC 867, NIST time server format)

package daytime

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ServerPort is the well-known daytime protocol port.
const ServerPort = 13

// MaxResponseLen bounds the size of a daytime response; NIST servers send a
// single line well below this limit.
const MaxResponseLen = 256

var (
	mjdEpoch = time.Date(1858, 11, 17, 0, 0, 0, 0, time.UTC)

	errResponseFormat = errors.New("unexpected response format")
)

// ParseResponse decodes a NIST daytime response of the form
//
//	JJJJJ YY-MM-DD HH:MM:SS TT L H msADV UTC(NIST) OTM
//
// and returns the contained timestamp in UTC, adjusted by the advance value
// msADV. Two-digit years map to the 21st century.
func ParseResponse(b []byte) (time.Time, error) {
	fields := strings.Fields(string(b))
	if len(fields) < 7 {
		return time.Time{}, errResponseFormat
	}
	t, err := time.Parse("06-01-02 15:04:05", fields[1]+" "+fields[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", errResponseFormat, err)
	}
	if t.Year() < 2000 {
		t = t.AddDate(100, 0, 0)
	}
	adv, err := strconv.ParseFloat(fields[6], 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", errResponseFormat, err)
	}
	return t.Add(time.Duration(adv * float64(time.Millisecond))).UTC(), nil
}

// FormatResponse encodes t in the NIST daytime layout accepted by
// ParseResponse. The advance value adv is given in milliseconds.
func FormatResponse(t time.Time, adv float64) []byte {
	t = t.UTC()
	mjd := int(t.Sub(mjdEpoch).Hours() / 24)
	return []byte(fmt.Sprintf("\n%05d %s 00 0 0 %5.1f UTC(NIST) *\n",
		mjd, t.Format("06-01-02 15:04:05"), adv))
}
