package shared

import "fmt"

// IssueLockKey builds redis keys for issue critical sections.
func IssueLockKey(issueCode string) string {
	return fmt.Sprintf("issue:%s:lock", issueCode)
}

// InvoiceSequenceLockKey guards monthly invoice number generation.
func InvoiceSequenceLockKey(period string) string {
	return fmt.Sprintf("invoice:seq:%s:lock", period)
}
