package invoices

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInvoicePeriod(t *testing.T) {
	require.Equal(t, "202509", invoicePeriod(time.Date(2025, time.September, 10, 12, 0, 0, 0, time.UTC)))
	require.Equal(t, "202510", invoicePeriod(time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC)))
}

func TestBumpInvoiceNumber(t *testing.T) {
	// first invoice of the month
	require.Equal(t, "INV-202509-001", bumpInvoiceNumber("202509", ""))
	// successors within the month
	require.Equal(t, "INV-202509-015", bumpInvoiceNumber("202509", "INV-202509-014"))
	// a new month restarts from 1, whatever the previous month reached
	require.Equal(t, "INV-202510-001", bumpInvoiceNumber("202510", ""))
}

func TestBumpInvoiceNumberBeyondPadding(t *testing.T) {
	require.Equal(t, "INV-202509-1000", bumpInvoiceNumber("202509", "INV-202509-999"))
	require.Equal(t, "INV-202509-1001", bumpInvoiceNumber("202509", "INV-202509-1000"))
}

func TestBumpInvoiceNumberIgnoresGarbage(t *testing.T) {
	require.Equal(t, "INV-202509-001", bumpInvoiceNumber("202509", "INV-2025-xx"))
}
