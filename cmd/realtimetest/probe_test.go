package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatsPrint(t *testing.T) {
	var s stats
	s.dialed.Add(4)
	s.follows.Add(3)
	s.delivered.Add(6)

	var out bytes.Buffer
	s.print(&out)

	assert.EqualValues(t, 12, s.expected())
	assert.Contains(t, out.String(), "delivered   6 of 12")
	assert.Contains(t, out.String(), "ratio       50.0%")
}

func TestStatsPrint_NoFollows(t *testing.T) {
	var s stats
	s.dialed.Add(2)

	var out bytes.Buffer
	s.print(&out)
	assert.NotContains(t, out.String(), "ratio")
}
