package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestDemo(t *testing.T) {
	out, err := run(t, "demo", "--date", "2026-10-16")
	require.NoError(t, err, out)

	for _, want := range []string{
		"SALE-20261016-0001 total 200.00 paid 150.00 balance 50.00 (partial)",
		"balance 1103 Accounts Receivable: 50.00",
		"SALE-20261016-0001 is void, 1 payment(s) voided",
		"balance 1103 Accounts Receivable: 0.00",
		"rejected: MISSING_ACCOUNT_MAPPING",
		"REV-20261016-0001",
		"REV-20261016-0002",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "does not balance")
	assert.Equal(t, 1, strings.Count(out, "Trial balance as of 2026-10-16"))
}

func TestDemo_BadDate(t *testing.T) {
	_, err := run(t, "demo", "--date", "16/10/2026")
	assert.ErrorContains(t, err, "--date")
}

func TestNextNumber_RequiresValidPrefix(t *testing.T) {
	_, err := run(t, "next-number")
	assert.ErrorContains(t, err, "prefix")

	_, err = run(t, "next-number", "--prefix", "sale-x")
	assert.Error(t, err)
}
