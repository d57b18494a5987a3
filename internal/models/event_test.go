package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventFlags(t *testing.T) {
	e := &Event{Title: "Horário BLOQUEADO - manutenção"}
	assert.True(t, e.IsBlocked("bloqueado"))
	assert.False(t, (&Event{Title: "Treino"}).IsBlocked("bloqueado"))
	assert.False(t, e.IsBlocked(""))
	assert.False(t, e.IsRecurring())

	e.SeriesID = "series-1"
	assert.True(t, e.IsRecurring())
}
