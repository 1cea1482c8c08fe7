package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/life2you_mini/tradestats/internal/config"
)

func TestWriteResults(t *testing.T) {
	dir := t.TempDir()
	path := writeLog(t, dir, "log.txt", sampleLog())

	p := newTestProcessor(t, config.GetDefaultConfig())
	res, err := p.Refresh(context.Background(), []string{path})
	require.NoError(t, err)

	var all bytes.Buffer
	require.NoError(t, WriteResults(&all, res, ""))
	text := all.String()
	for _, name := range []string{"ACC1", "ACC2", "ALL", "EMPTY"} {
		assert.Contains(t, text, "=== "+name+" ===")
	}
	assert.Contains(t, text, "[CAUTION] Trade open for > 10 mins (30 mins)")

	var one bytes.Buffer
	require.NoError(t, WriteResults(&one, res, "EMPTY"))
	assert.Equal(t, "=== EMPTY ===\nTrades                 0\nLast Updated           2024-02-03 10:30:00\n", one.String())

	assert.Error(t, WriteResults(&one, res, "NOPE"))

	var none bytes.Buffer
	require.NoError(t, WriteResults(&none, nil, ""))
	assert.Equal(t, "No results.\n", none.String())
}
