package billing

import (
	"fmt"
	"strconv"
	"strings"
)

// Bill number defaults
const (
	DefaultNumberPrefix = "TB-"
	DefaultNumberWidth  = 6
)

// SequenceName is the counter row that numbers bills
const SequenceName = "bill"

// FormatBillNumber renders seq as prefix followed by seq zero-padded to
// width digits. Sequences wider than width are kept whole.
func FormatBillNumber(prefix string, width int, seq int64) (string, error) {
	if seq <= 0 {
		return "", fmt.Errorf("bill sequence must be positive, got %d", seq)
	}
	if width <= 0 {
		return "", fmt.Errorf("bill number width must be positive, got %d", width)
	}
	return fmt.Sprintf("%s%0*d", prefix, width, seq), nil
}

// ParseBillNumber extracts the sequence from a number produced by FormatBillNumber
func ParseBillNumber(prefix, number string) (int64, error) {
	digits, ok := strings.CutPrefix(number, prefix)
	if !ok || digits == "" {
		return 0, fmt.Errorf("bill number %q does not start with %q", number, prefix)
	}
	seq, err := strconv.ParseInt(digits, 10, 64)
	if err != nil || seq <= 0 {
		return 0, fmt.Errorf("bill number %q has no valid sequence", number)
	}
	return seq, nil
}
