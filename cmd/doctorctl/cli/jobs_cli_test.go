package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTriggerRejectsUnknownJob(t *testing.T) {
	jobsCLI, err := NewJobsCLI("127.0.0.1:6379", "")
	require.NoError(t, err)
	defer jobsCLI.Close()

	_, err = jobsCLI.Trigger(context.Background(), "mail:blast", "")
	require.ErrorContains(t, err, "unsupported job")
}

func TestTriggerValidatesArguments(t *testing.T) {
	jobsCLI, err := NewJobsCLI("127.0.0.1:6379", "")
	require.NoError(t, err)
	defer jobsCLI.Close()

	_, err = jobsCLI.Trigger(context.Background(), "invoice:pdf", "not-a-number")
	require.ErrorContains(t, err, "invoice id")

	_, err = jobsCLI.Trigger(context.Background(), "sla:scan", "abc")
	require.ErrorContains(t, err, "stale-after hours")
}

func TestTriggerNilClient(t *testing.T) {
	var jobsCLI *JobsCLI
	_, err := jobsCLI.Trigger(context.Background(), "sla:scan", "")
	require.Error(t, err)
}
