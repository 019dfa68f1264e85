// Package numerator defines the sequence generator contract and the number format
// PREFIX-YYYYMMDD-NNNN shared by transactions, payments and vouchers.
package numerator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"pharmaledger/internal/core/apperror"
)

// Well-known prefixes.
const (
	PrefixSale           = "SALE"
	PrefixPurchase       = "PUR"
	PrefixSaleReturn     = "SRET"
	PrefixPurchaseReturn = "PRET"
	PrefixExpense        = "EXP"
	PrefixReceipt        = "RCPT"
	PrefixPaymentMade    = "PAY"
	PrefixJournal        = "JV"
	PrefixPaymentVoucher = "PMV"
	PrefixReversal       = "REV"
)

const (
	// DateLayout is the date part of a number.
	DateLayout = "20060102"
	// PadWidth is the width of the zero-padded suffix.
	PadWidth = 4
	// MaxSequence is the largest suffix that fits PadWidth.
	MaxSequence int64 = 9999
)

var prefixPattern = regexp.MustCompile(`^[A-Z0-9]{1,10}$`)

// ValidatePrefix rejects prefixes that would make numbers ambiguous to parse.
func ValidatePrefix(prefix string) error {
	if !prefixPattern.MatchString(prefix) {
		return apperror.NewInvalidInput("prefix", fmt.Sprintf("invalid sequence prefix %q", prefix))
	}
	return nil
}

// Key is the counter key for a prefix and calendar day, e.g. "SALE:20261016".
// The day is taken in the date's own location.
func Key(prefix string, date time.Time) string {
	return prefix + ":" + date.Format(DateLayout)
}

// Format renders PREFIX-YYYYMMDD-NNNN.
func Format(prefix string, date time.Time, seq int64) string {
	return fmt.Sprintf("%s-%s-%0*d", prefix, date.Format(DateLayout), PadWidth, seq)
}

// Checked formats seq after verifying it is within 1..MaxSequence.
func Checked(prefix string, date time.Time, seq int64) (string, error) {
	if seq < 1 {
		return "", fmt.Errorf("sequence %s returned non-positive value %d", Key(prefix, date), seq)
	}
	if seq > MaxSequence {
		return "", apperror.NewSequenceExhausted(Key(prefix, date), int(MaxSequence))
	}
	return Format(prefix, date, seq), nil
}

// Parse splits a number into prefix, day and suffix.
func Parse(number string) (prefix string, date time.Time, seq int64, err error) {
	parts := strings.Split(number, "-")
	if len(parts) != 3 {
		return "", time.Time{}, 0, fmt.Errorf("invalid number format: %s", number)
	}

	prefix = parts[0]
	if err := ValidatePrefix(prefix); err != nil {
		return "", time.Time{}, 0, fmt.Errorf("invalid number prefix: %s", number)
	}

	date, err = time.Parse(DateLayout, parts[1])
	if err != nil {
		return "", time.Time{}, 0, fmt.Errorf("invalid date in number %s: %w", number, err)
	}

	if len(parts[2]) < PadWidth {
		return "", time.Time{}, 0, fmt.Errorf("invalid suffix in number: %s", number)
	}
	seq, err = strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return "", time.Time{}, 0, fmt.Errorf("invalid suffix in number %s: %w", number, err)
	}

	return prefix, date, seq, nil
}
