package issues

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIssueCodePrefixCarriesTwoDigitYear(t *testing.T) {
	require.Equal(t, "ISS25", issueCodePrefix(time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, "ISS26", issueCodePrefix(time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)))
}

func TestBumpIssueCode(t *testing.T) {
	// first issue of the year
	require.Equal(t, "ISS2500001", bumpIssueCode("ISS25", ""))
	// successors are strictly increasing
	require.Equal(t, "ISS2500002", bumpIssueCode("ISS25", "ISS2500001"))
	require.Equal(t, "ISS2500043", bumpIssueCode("ISS25", "ISS2500042"))
	// a new year starts from 1 regardless of the previous year's max
	require.Equal(t, "ISS2600001", bumpIssueCode("ISS26", ""))
}

func TestBumpIssueCodeBeyondPadding(t *testing.T) {
	require.Equal(t, "ISS25100000", bumpIssueCode("ISS25", "ISS2599999"))
	require.Equal(t, "ISS25100001", bumpIssueCode("ISS25", "ISS25100000"))
}

func TestBumpIssueCodeIgnoresGarbage(t *testing.T) {
	// an unparseable latest falls back to the sequence start rather than
	// producing a malformed code
	require.Equal(t, "ISS2500001", bumpIssueCode("ISS25", "ISS25-oops"))
}
